package anonymizer

import (
	"strings"
	"testing"

	"github.com/fyerfyer/case-extractor/internal/ner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRecognizer 按给定名字做字面匹配
type stubRecognizer struct {
	names       []string
	unavailable bool
}

func (s stubRecognizer) FindPersons(text string) []ner.Span {
	var spans []ner.Span
	for _, name := range s.names {
		offset := 0
		for {
			i := strings.Index(text[offset:], name)
			if i < 0 {
				break
			}
			start := offset + i
			spans = append(spans, ner.Span{Start: start, End: start + len(name), Text: name, Label: ner.LabelPerson})
			offset = start + len(name)
		}
	}
	return spans
}

func (s stubRecognizer) Available() bool { return !s.unavailable }

func TestAnonymizeScenario(t *testing.T) {
	a := New()
	in := "Guest Mr. John Smith\nRoom 101\nStatus OPEN\nCase: AC not working"

	out := a.Anonymize(in, Options{})

	assert.Equal(t, "Guest [CLIENT_NAME]\nRoom 101\nStatus OPEN\nCase: AC not working", out)
}

func TestAnonymizeEmailAndPhoneOnce(t *testing.T) {
	a := New()
	in := "Guest can be reached at jane.doe@example.com or +1 415 555 0100."

	out := a.Anonymize(in, Options{})

	assert.Equal(t, 1, strings.Count(out, "[EMAIL]"))
	assert.Equal(t, 1, strings.Count(out, "[PHONE]"))
	assert.NotContains(t, out, "jane.doe@example.com")
	assert.NotContains(t, out, "415 555 0100")
	assert.Equal(t, "Guest can be reached at [EMAIL] or [PHONE].", out)
}

func TestAnonymizeIdentifiers(t *testing.T) {
	a := New()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"guest id keeps label", "Guest ID #1234 asked again", "Guest ID #[GUEST_ID] asked again"},
		{"customer id", "Customer ID: 998877", "Customer ID: [GUEST_ID]"},
		{"reservation id", "Reservation ID 4455", "Reservation ID [RESERVATION_ID]"},
		{"ref code", "Quoted REF123 at desk", "Quoted [BOOKING_REFERENCE] at desk"},
		{"booking with suffix", "Booking 555A confirmed", "[BOOKING_REFERENCE] confirmed"},
		{"hash reference", "see #12345 for details", "see [BOOKING_REFERENCE] for details"},
		{"room hash kept", "Moved to Room #101 today", "Moved to Room #101 today"},
		{"credit card", "Card 4111 1111 1111 1111 on file", "Card [CREDIT_CARD] on file"},
		{"invalid card kept", "Code 1234 5678 9012 3456", "Code 1234 5678 9012 3456"},
		{"ip address", "Login from 192.168.10.5 failed", "Login from [IP_ADDRESS] failed"},
		{"url", "Review at https://reviews.example.com/h/123.", "Review at [URL]."},
		{"phone with area code", "Call (555) 123-4567 now", "Call [PHONE] now"},
		{"phone after reference", "Booking REF12 3456789 confirmed", "Booking [BOOKING_REFERENCE] [PHONE] confirmed"},
		{"room number not merged", "Room 305 1500 points refunded", "Room 305 1500 points refunded"},
		{"phone after room number", "Room 305 555 1234 called", "Room 305 [PHONE] called"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Anonymize(tt.in, Options{}))
		})
	}
}

func TestAnonymizeDatesAndTimes(t *testing.T) {
	a := New()
	in := "Created 12/03/2024 at 14:30, follow up 2024-03-15 9:05 PM"

	assert.Equal(t, "Created [DATE] at [TIME], follow up [DATE] [TIME]", a.Anonymize(in, Options{}))
	assert.Equal(t, "Created 12/03/2024 at [TIME], follow up 2024-03-15 [TIME]",
		a.Anonymize(in, Options{PreserveDates: true}))
	assert.Equal(t, in, a.Anonymize(in, Options{PreserveDates: true, PreserveTimes: true}))
}

func TestAnonymizeDateNotPhone(t *testing.T) {
	out := New().Anonymize("Stay 2024-03-15 to 2024-03-18", Options{PreserveDates: true})
	assert.Equal(t, "Stay 2024-03-15 to 2024-03-18", out)
}

func TestAnonymizePreserveList(t *testing.T) {
	a := New(WithRecognizer(stubRecognizer{names: []string{"Status Open"}}))
	in := "Status OPEN\nType COMPLAINT\nImportance HIGH\nRoom Service Request\nGuest Relations Report\nStatus Open"

	out := a.Anonymize(in, Options{})

	assert.Equal(t, in, out)
	for _, word := range []string{"Status", "OPEN", "Type", "COMPLAINT", "Importance", "HIGH", "Room", "Guest"} {
		assert.Contains(t, out, word)
	}
}

func TestAnonymizeResidualRuns(t *testing.T) {
	a := New()

	assert.Equal(t, "Spoke with [CLIENT_NAME] in lobby", a.Anonymize("Spoke with Jonas Whitaker in lobby", Options{}))
	// 运行串在保留词处被切开
	assert.Equal(t, "Room Service [CLIENT_NAME] called", a.Anonymize("Room Service Jonas Whitaker called", Options{}))
	// 不跨行
	assert.Equal(t, "Jonas\nWhitaker", a.Anonymize("Jonas\nWhitaker", Options{}))
}

func TestAnonymizeRecognizer(t *testing.T) {
	t.Run("SingleNames", func(t *testing.T) {
		a := New(WithRecognizer(stubRecognizer{names: []string{"Sarah"}}))
		assert.Equal(t, "Reported by [CLIENT_NAME] at reception", a.Anonymize("Reported by Sarah at reception", Options{}))
	})

	t.Run("LongestSpanWins", func(t *testing.T) {
		a := New(WithRecognizer(stubRecognizer{names: []string{"Ann", "Ann Lee"}}))
		assert.Equal(t, "met [CLIENT_NAME] today", a.Anonymize("met Ann Lee today", Options{}))
	})

	t.Run("Unavailable", func(t *testing.T) {
		a := New(WithRecognizer(stubRecognizer{names: []string{"Sarah"}, unavailable: true}))
		assert.Equal(t, "Reported by Sarah", a.Anonymize("Reported by Sarah", Options{}))
	})

	t.Run("Gazetteer", func(t *testing.T) {
		a := New(WithRecognizer(ner.NewGazetteer()))
		assert.Equal(t, "Escalated to [CLIENT_NAME] by phone", a.Anonymize("Escalated to Michael by phone", Options{}))
	})
}

func TestAnonymizeIdempotent(t *testing.T) {
	a := New(WithRecognizer(ner.NewGazetteer()))
	inputs := []string{
		"Guest Mr. John Smith\nRoom 101\nStatus OPEN\nCase: AC not working",
		"Called John Smith at 555-123-4567 about REF99A.",
		"Guest ID #1234, email jane.doe@example.com, Booking #777, card 4111-1111-1111-1111",
		"Created 12/03/2024 14:30 by Sarah Connor\nModified by Front Desk Team",
		"Dr. Emily Watson Room 12 Floor 3",
		"",
		"[CLIENT_NAME] [PHONE] already redacted",
		"Booking REF12 3456789 confirmed",
		"Room 305 1500 points refunded",
	}
	for _, in := range inputs {
		for _, opts := range []Options{{}, {PreserveDates: true, PreserveTimes: true}} {
			once := a.Anonymize(in, opts)
			assert.Equal(t, once, a.Anonymize(once, opts), in)
		}
	}
}

func TestHonorificTrimsPreservedWords(t *testing.T) {
	out := New().Anonymize("Dr. Emily Watson Room 12", Options{})
	assert.Equal(t, "[CLIENT_NAME] Room 12", out)
}

func TestStats(t *testing.T) {
	a := New()
	text := "a@x.com b@x.com c@x.com d@x.com and Guest ID 42 on 01/02/2024"

	stats := a.Stats(text)

	require.Contains(t, stats.Breakdown, "email")
	assert.Equal(t, 4, stats.Breakdown["email"].Count)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, stats.Breakdown["email"].Examples)
	assert.Equal(t, 1, stats.Breakdown["guest_id"].Count)
	assert.Equal(t, 1, stats.Breakdown["date"].Count)
	assert.Equal(t, 6, stats.Total)

	empty := a.Stats("")
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Breakdown)
}

func TestAnonymizeWithStatsMatchesOutput(t *testing.T) {
	out, stats := New().AnonymizeWithStats("Mail jane@hotel.com, call +44 20 7946 0958", Options{})
	assert.Equal(t, "Mail [EMAIL], call [PHONE]", out)
	assert.Equal(t, 2, stats.Total)
}

func TestSummarize(t *testing.T) {
	original := []string{"Mail jane@hotel.com", "[PHONE] known", "Guest ID 9"}
	anonymized := []string{"Mail [EMAIL]", "[PHONE] known", "Guest ID [GUEST_ID]"}

	s := Summarize(original, anonymized)

	assert.Equal(t, 2, s.TotalReplacements)
	assert.Equal(t, map[string]int{"email": 1, "guest_id": 1}, s.ReplacementBreakdown)
	assert.Greater(t, s.AnonymizationRatio, 0.0)
	assert.Less(t, s.AnonymizationRatio, 1.0)
}

func TestPatterns(t *testing.T) {
	patterns := Patterns()
	seen := map[string]bool{}
	for _, p := range patterns {
		seen[p.Category] = true
		assert.True(t, strings.HasPrefix(p.Placeholder, "["))
	}
	for _, c := range Categories {
		assert.True(t, seen[c.Name], c.Name)
	}
}

func TestIsPreserved(t *testing.T) {
	assert.True(t, IsPreserved("Status"))
	assert.True(t, IsPreserved("OPEN"))
	assert.True(t, IsPreserved("In Progress"))
	assert.False(t, IsPreserved("Smith"))
}
