package caseparser

import (
	"strings"
	"testing"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValue(t *testing.T, want string, got *string) {
	t.Helper()
	require.NotNil(t, got, "expected %q", want)
	assert.Equal(t, want, *got)
}

func TestParseCasesAnonymizedScenario(t *testing.T) {
	text := anonymizer.New().Anonymize("Guest Mr. John Smith\nRoom 101\nStatus OPEN\nCase: AC not working", anonymizer.Options{})

	cases := ParseCases(text)

	require.Len(t, cases, 1)
	c := cases[0]
	assertValue(t, "101", c.Room)
	assertValue(t, "OPEN", c.Status)
	assertValue(t, "AC not working", c.CaseDescription)
	assertValue(t, "[CLIENT_NAME]", c.Guest)
	assert.Equal(t, "Room 101", c.Title)
	assert.Nil(t, c.Action)
	assert.Nil(t, c.ModifiedBy)
	assert.Nil(t, c.Type)
}

func TestParseCasesCreatedBoundary(t *testing.T) {
	text := "Created 12/03/2024 14:30 by Sarah\n" +
		"Guest: Jane Roe | Room 204\n" +
		"Status: Open\nImportance: High\nType: Complaint\n" +
		"CASE\nGuest reported the shower was leaking badly.\n" +
		"ACTION\nEngineering fixed the shower head.\n\n" +
		"Created 13/03/2024 09:00 by Tom\nRoom 305\nStatus Closed\nCase: Noise from the neighbouring room\n"

	cases := ParseCases(text)

	require.Len(t, cases, 2)

	first := cases[0]
	assertValue(t, "Jane Roe", first.Guest)
	assertValue(t, "204", first.Room)
	assertValue(t, "Open", first.Status)
	assertValue(t, "High", first.Importance)
	assertValue(t, "Complaint", first.Type)
	assertValue(t, "12/03/2024 14:30", first.Created)
	assertValue(t, "Sarah", first.CreatedBy)
	assertValue(t, "Guest reported the shower was leaking badly.", first.CaseDescription)
	assertValue(t, "Engineering fixed the shower head.", first.Action)
	assert.Equal(t, "Room 204", first.Title)

	second := cases[1]
	assertValue(t, "305", second.Room)
	assertValue(t, "Closed", second.Status)
	assertValue(t, "13/03/2024 09:00", second.Created)
	assertValue(t, "Tom", second.CreatedBy)
	assertValue(t, "Noise from the neighbouring room", second.CaseDescription)
	assert.Nil(t, second.Guest)
	assert.Nil(t, second.Action)
}

func TestParseCasesTitledSingleCase(t *testing.T) {
	text := "Daily Guest Report\n" +
		"Created 12/03/2024 10:30 by Anna Reception\n" +
		"Status OPEN Importance HIGH Type Complaint\n" +
		"Guest Smith reported the air conditioner was not cooling at all\n" +
		"Room 101 engineering informed"

	blocks := Segment(text)
	require.Len(t, blocks, 1)
	assert.True(t, strings.HasPrefix(blocks[0], "Created 12/03/2024"))

	cases := ParseCases(text)
	require.Len(t, cases, 1)
	c := cases[0]
	assertValue(t, "101", c.Room)
	assertValue(t, "OPEN", c.Status)
	assertValue(t, "HIGH", c.Importance)
	assertValue(t, "Complaint", c.Type)
	assertValue(t, "12/03/2024 10:30", c.Created)
	assertValue(t, "Anna Reception", c.CreatedBy)
	assert.Equal(t, "Room 101", c.Title)
}

func TestSegment(t *testing.T) {
	t.Run("RoomBoundary", func(t *testing.T) {
		text := "Room 101 Status OPEN guest reported broken air conditioner\n" +
			"Room 202 Status CLOSED guest requested extra pillows today"
		blocks := Segment(text)
		require.Len(t, blocks, 2)
		assert.True(t, strings.HasPrefix(blocks[0], "Room 101"))
		assert.True(t, strings.HasPrefix(blocks[1], "Room 202"))
	})

	t.Run("BlankLines", func(t *testing.T) {
		text := "First block of text that is long enough to be a case entry.\n\n\n" +
			"Second block of text that is also long enough for a case."
		blocks := Segment(text)
		require.Len(t, blocks, 2)
		assert.Equal(t, "Second block of text that is also long enough for a case.", blocks[1])
	})

	t.Run("WholeTextWhenNoSplit", func(t *testing.T) {
		assert.Equal(t, []string{"Created 01/02/2024\nshort"}, Segment("  Created 01/02/2024\nshort \n"))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Segment(" \n\t"))
	})

	t.Run("ShortBlocksDropped", func(t *testing.T) {
		text := "Guest Anna\n" +
			"Guest Bruno stayed in a room with a broken window latch\n" +
			"Guest Clara asked for a late checkout and a taxi booking"
		blocks := Segment(text)
		require.Len(t, blocks, 2)
		assert.True(t, strings.HasPrefix(blocks[0], "Guest Bruno"))
	})

	t.Run("FirstMatchingBoundaryWins", func(t *testing.T) {
		text := "Created 01/02/2024 by Front Desk\n" +
			"Room 101 guest reported a broken air conditioner unit\n" +
			"Room 202 guest requested extra pillows for the night"
		assert.Equal(t, []string{strings.TrimSpace(text)}, Segment(text))
	})
}

func TestRoomTokenAlwaysAssigned(t *testing.T) {
	inputs := []string{
		"Some preface text that is not important.\nRoom 12 guest asked for towels",
		"Room 7",
		"Room No. 415 reported a leak in the bathroom ceiling near the window",
		"Header line for the daily report\n\n\nRoom 88 noise complaint from next door guests\n\n\nRoom 89 minibar restock requested by the guest",
	}
	for _, in := range inputs {
		cases := ParseCases(in)
		require.NotEmpty(t, cases, in)
		found := false
		for _, c := range cases {
			if c.Room != nil {
				found = true
				assert.Equal(t, "Room "+*c.Room, c.Title)
			}
		}
		assert.True(t, found, in)
	}
}

func TestExtractFieldRules(t *testing.T) {
	t.Run("BareRoomNumber", func(t *testing.T) {
		r, ok := ExtractFields("Complaint about noise near 1204 late at night")
		require.True(t, ok)
		assertValue(t, "1204", r.Room)
	})

	t.Run("DatesAreNotRooms", func(t *testing.T) {
		r, _ := ExtractFields("Call back at 14:30 on 12/03/2024")
		assert.Nil(t, r.Room)
	})

	t.Run("GuestIdentifierIsNotName", func(t *testing.T) {
		r, _ := ExtractFields("Guest ID #[GUEST_ID] called about Room 5")
		assert.Nil(t, r.Guest)
	})

	t.Run("UpdatedBy", func(t *testing.T) {
		r, _ := ExtractFields("Room 9\nUpdated by: Front Desk")
		assert.Nil(t, r.Modified)
		assertValue(t, "Front Desk", r.ModifiedBy)
	})

	t.Run("ModifiedDate", func(t *testing.T) {
		r, _ := ExtractFields("Room 9\nModified 14/03/2024 10:15 by Lee")
		assertValue(t, "14/03/2024 10:15", r.Modified)
		assertValue(t, "Lee", r.ModifiedBy)
	})

	t.Run("TrailingStaffLine", func(t *testing.T) {
		r, _ := ExtractFields("Room 12\nTowels delivered to the room\nAnna Berg")
		assertValue(t, "Anna Berg", r.ModifiedBy)

		r, _ = ExtractFields("Room 12\nTowels delivered to the room\nRoom Service")
		assert.Nil(t, r.ModifiedBy)
	})

	t.Run("ActionKeywordLines", func(t *testing.T) {
		r, ok := ExtractFields("Room 12\nFollow-up call completed with the guest")
		require.True(t, ok)
		assertValue(t, "Follow-up call completed with the guest", r.Action)
		assert.Nil(t, r.CaseDescription)
	})

	t.Run("UpdateSection", func(t *testing.T) {
		r, _ := ExtractFields("Room 3\nUpdate: replaced the remote\nbatteries as well")
		assertValue(t, "replaced the remote\nbatteries as well", r.Action)
	})

	t.Run("DescriptionLinesAndTitle", func(t *testing.T) {
		r, ok := ExtractFields("The guest complained loudly about the noise\nSecond line that is fairly long too\nStatus: Open")
		require.True(t, ok)
		assertValue(t, "The guest complained loudly about the noise Second line that is fairly long too", r.CaseDescription)
		assert.Equal(t, "The guest complained loudly about the noise Second...", r.Title)
		assert.Nil(t, r.Room)
	})

	t.Run("InlineCase", func(t *testing.T) {
		r, _ := ExtractFields("Room 14 CASE shower drain blocked ACTION plumber called")
		assertValue(t, "shower drain blocked", r.CaseDescription)
	})

	t.Run("InOutHeading", func(t *testing.T) {
		r, _ := ExtractFields("Room 21\nIN/OUT\n12/03 - 15/03")
		assertValue(t, "12/03 - 15/03", r.InOut)
	})

	t.Run("PipeDelimitedLabels", func(t *testing.T) {
		r, _ := ExtractFields("Room: 33 | Source: Email | Membership: Gold")
		assertValue(t, "33", r.Room)
		assertValue(t, "Email", r.Source)
		assertValue(t, "Gold", r.Membership)
	})

	t.Run("FirstRuleWins", func(t *testing.T) {
		r, _ := ExtractFields("Room 1\nCreated: 01/01/2024\nCreated 02/02/2024")
		assertValue(t, "01/01/2024", r.Created)

		r, _ = ExtractFields("Room 1\nDate: 05/05/2024")
		assertValue(t, "05/05/2024", r.Created)
	})
}

func TestExtractFieldsValidity(t *testing.T) {
	r, ok := ExtractFields("Nothing useful here")
	assert.False(t, ok)
	assert.Equal(t, models.UntitledCase, r.Title)

	assert.Empty(t, ParseCases("Hello"))
	assert.Empty(t, ParseCases(""))
}

func TestTitlesNeverEmpty(t *testing.T) {
	inputs := []string{
		"Guest [CLIENT_NAME]\nRoom 101\nStatus OPEN\nCase: AC not working",
		"A very long description of a complaint that goes on and on about many things in the hotel",
		"Room 5",
		"Status: Closed\nThe guest left a very positive note for housekeeping staff",
	}
	for _, in := range inputs {
		for _, c := range ParseCases(in) {
			assert.NotEmpty(t, c.Title, in)
		}
	}
}

func TestCaseFieldsCoverRecord(t *testing.T) {
	covered := map[string]bool{}
	for _, f := range caseFields {
		assert.NotEmpty(t, f.rules, f.field)
		covered[f.field] = true
	}
	for _, name := range models.CaseFieldNames {
		if name == "title" {
			continue
		}
		assert.True(t, covered[name], name)
	}
}

func TestDefaultCase(t *testing.T) {
	r, ok := DefaultCase("Hi\nMonthly guest relations summary\nmore")
	require.True(t, ok)
	assert.Equal(t, "Monthly guest relations summary", r.Title)
	assertValue(t, "Open", r.Status)
	assertValue(t, "Medium", r.Importance)
	assertValue(t, "General", r.Type)

	long := strings.Repeat("x", 120)
	r, ok = DefaultCase(long)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("x", 100)+"...", r.Title)

	_, ok = DefaultCase("short\n\n")
	assert.False(t, ok)
}
