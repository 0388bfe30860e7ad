package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeText(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newJSONRequest(t, http.MethodPost, "/api/anonymization/text", map[string]interface{}{
		"text": "Guest can be reached at jane.doe@example.com on 12/03/2024",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.AnonymizeTextResponse
	decode(t, w, &resp)
	assert.Equal(t, "Guest can be reached at [EMAIL] on [DATE]", resp.AnonymizedText)

	w = serve(env, newJSONRequest(t, http.MethodPost, "/api/anonymization/text", map[string]interface{}{
		"text":           "Call back on 12/03/2024",
		"preserve_dates": true,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Call back on 12/03/2024", resp.AnonymizedText)
}

func TestAnonymizeTextRequiresText(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newJSONRequest(t, http.MethodPost, "/api/anonymization/text", map[string]interface{}{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAnonymizationStats(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newJSONRequest(t, http.MethodPost, "/api/anonymization/stats", map[string]interface{}{
		"text": "a@x.com b@x.com and Guest ID 42",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.AnonymizationStatsResponse
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Breakdown["email"].Count)
	assert.Equal(t, "Found 3 potential PII elements in the text", resp.Message)
}

func TestAnonymizeDocument(t *testing.T) {
	env := setupTestEnv(t, false)

	req := newUploadRequest(t, "/api/anonymization/document", "report.txt",
		[]byte("Mail jane@hotel.com\n\nRoom 101 quiet"), nil)
	w := serve(env, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.AnonymizeDocumentResponse
	decode(t, w, &resp)
	assert.Equal(t, []string{"Mail [EMAIL]", "Room 101 quiet"}, resp.AnonymizedContent)
	assert.Equal(t, 1, resp.Summary.TotalReplacements)
	assert.Equal(t, "plaintext", resp.FileType)
	assert.True(t, strings.HasPrefix(resp.Message, "Successfully anonymized report.txt"))

	w = serve(env, newUploadRequest(t, "/api/anonymization/document", "report.exe", []byte("x"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnonymizationPatterns(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/anonymization/patterns", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.PatternsResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Patterns)
	assert.Contains(t, resp.Message, "PII detection patterns")
}
