package ner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGazetteerFindPersons(t *testing.T) {
	g := NewGazetteer()
	require.True(t, g.Available())

	text := "Spoke with Sarah Connor at reception.\nJohn reported the issue to Maria."
	spans := g.FindPersons(text)

	require.Len(t, spans, 3)
	assert.Equal(t, "Sarah Connor", spans[0].Text)
	assert.Equal(t, "John", spans[1].Text)
	assert.Equal(t, "Maria", spans[2].Text)
	for _, s := range spans {
		assert.Equal(t, s.Text, text[s.Start:s.End])
		assert.Equal(t, LabelPerson, s.Label)
	}
}

func TestGazetteerStopsAtFieldLabels(t *testing.T) {
	g := NewGazetteer()

	spans := g.FindPersons("Guest Emily Room 204")
	require.Len(t, spans, 1)
	assert.Equal(t, "Emily", spans[0].Text)

	spans = g.FindPersons("Emily Jane Watson Smith checked in")
	require.Len(t, spans, 1)
	assert.Equal(t, "Emily Jane Watson", spans[0].Text)
}

func TestGazetteerDoesNotCrossLines(t *testing.T) {
	spans := NewGazetteer().FindPersons("Peter\nParker")
	require.Len(t, spans, 1)
	assert.Equal(t, "Peter", spans[0].Text)
}

func TestGazetteerIgnoresLowercaseAndUppercase(t *testing.T) {
	spans := NewGazetteer().FindPersons("john called. STATUS OPEN. DAVID")
	assert.Empty(t, spans)
}

func TestGazetteerAccents(t *testing.T) {
	spans := NewGazetteer().FindPersons("Call José Álvarez tomorrow")
	require.Len(t, spans, 1)
	assert.Equal(t, "José Álvarez", spans[0].Text)
}

func TestGazetteerUnavailable(t *testing.T) {
	g := NewGazetteer(WithNamesFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.False(t, g.Available())
	assert.Nil(t, g.FindPersons("Sarah Connor"))

	g = NewGazetteer(WithData([]byte("given_names: []\n")))
	assert.False(t, g.Available())
}

func TestGazetteerCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	require.NoError(t, os.WriteFile(path, []byte("given_names:\n  - Zelda\nstop_words:\n  - Room\n"), 0o644))

	g := NewGazetteer(WithNamesFile(path))
	spans := g.FindPersons("Zelda Hyrule asked about Room 5; Sarah waited")
	require.Len(t, spans, 1)
	assert.Equal(t, "Zelda Hyrule", spans[0].Text)
}

func TestGazetteerConcurrentFirstUse(t *testing.T) {
	g := NewGazetteer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, g.FindPersons("Thomas Anderson"), 1)
		}()
	}
	wg.Wait()
}
