package roster_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/roster"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const rosterHeader = "Date,Duty,Flight,Sector,Report,Debrief\n"

func parseCSV(t *testing.T, body string) []roster.RawScheduleRow {
	t.Helper()
	rows, err := roster.Parse(strings.NewReader(body), roster.ContentCSV)
	require.NoError(t, err)
	return rows
}

// =============================================================================
// CONTENT TYPE DETECTION
// =============================================================================

func TestContentTypeForFilename(t *testing.T) {
	for name, want := range map[string]roster.ContentType{
		"roster.csv":      roster.ContentCSV,
		"ROSTER.CSV":      roster.ContentCSV,
		"jan_2025.xlsx":   roster.ContentXLSX,
		"jan_2025.xls":    roster.ContentXLS,
	} {
		got, err := roster.ContentTypeForFilename(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestContentTypeForFilename_Unsupported(t *testing.T) {
	_, err := roster.ContentTypeForFilename("roster.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, roster.ErrUnsupportedFormat))

	var ufe *roster.UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
}

// =============================================================================
// CSV PARSING
// =============================================================================

func TestParse_CSVHappyPath(t *testing.T) {
	// GIVEN: A roster with a flight day, a standby day and a day off
	// WHEN: Parsing
	// THEN: Three rows with the right cells in the right fields

	body := rosterHeader +
		"2025-01-15,,FZ123 FZ124,DXB-CMB CMB-DXB,09:30,17:45\n" +
		"2025-01-16,ASBY,,,,\n" +
		"2025-01-17,OFF,,,,\n"

	rows := parseCSV(t, body)
	require.Len(t, rows, 3)

	assert.Equal(t, duty.NewDate(2025, time.January, 15), rows[0].Date)
	assert.Equal(t, []string{"FZ123", "FZ124"}, rows[0].FlightNumbers)
	assert.Equal(t, []string{"DXB-CMB", "CMB-DXB"}, rows[0].Sectors)
	assert.Equal(t, "09:30", rows[0].ReportTime)
	assert.Equal(t, "17:45", rows[0].DebriefTime)
	assert.True(t, rows[0].HasFlights())

	assert.Equal(t, "ASBY", rows[1].DutyCode)
	assert.False(t, rows[1].HasFlights())
	assert.Equal(t, "OFF", rows[2].DutyCode)
}

func TestParse_HeaderSynonyms(t *testing.T) {
	// Airlines label the same columns differently.
	body := "Day,Activity,Flight No,Routing,C/I,C/O\n" +
		"15/01/2025,,FZ123/FZ124,DXB-CMB/CMB-DXB,0930,1745\n"

	rows := parseCSV(t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, duty.NewDate(2025, time.January, 15), rows[0].Date)
	assert.Equal(t, []string{"FZ123", "FZ124"}, rows[0].FlightNumbers)
	assert.Equal(t, "0930", rows[0].ReportTime)
}

func TestParse_ContinuationRowMergesIntoPreviousDay(t *testing.T) {
	// GIVEN: A second leg row with an empty date cell
	// WHEN: Parsing
	// THEN: Its flight, sector and debrief merge into the previous row

	body := rosterHeader +
		"2025-01-15,,FZ123,DXB-CMB,09:30,13:00\n" +
		",,FZ124,CMB-DXB,,17:45\n"

	rows := parseCSV(t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"FZ123", "FZ124"}, rows[0].FlightNumbers)
	assert.Equal(t, []string{"DXB-CMB", "CMB-DXB"}, rows[0].Sectors)
	assert.Equal(t, "17:45", rows[0].DebriefTime)
	assert.Equal(t, "09:30", rows[0].ReportTime)
}

func TestParse_DateFormats(t *testing.T) {
	for _, dateCell := range []string{"2025-01-15", "15/01/2025", "15 Jan 2025", "15Jan2025", "2025/01/15"} {
		body := rosterHeader + dateCell + ",OFF,,,,\n"
		rows := parseCSV(t, body)
		require.Len(t, rows, 1, dateCell)
		assert.Equal(t, duty.NewDate(2025, time.January, 15), rows[0].Date, dateCell)
	}
}

func TestParse_UnparseableDateKeptWithZeroDate(t *testing.T) {
	// Classification reports zero-date rows as warnings; parsing keeps them.
	body := rosterHeader + "someday,OFF,,,,\n"

	rows := parseCSV(t, body)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Date.IsZero())
}

// =============================================================================
// FATAL PARSE FAILURES
// =============================================================================

func TestParse_NoHeader_IsMalformed(t *testing.T) {
	_, err := roster.Parse(strings.NewReader("just,some,cells\n1,2,3\n"), roster.ContentCSV)
	require.Error(t, err)
	assert.True(t, errors.Is(err, roster.ErrMalformedFile))

	var mfe *roster.MalformedFileError
	require.True(t, errors.As(err, &mfe))
}

func TestParse_HeaderWithoutDateColumn_IsMalformed(t *testing.T) {
	_, err := roster.Parse(strings.NewReader("Duty,Flight,Sector\nOFF,,\n"), roster.ContentCSV)
	assert.True(t, errors.Is(err, roster.ErrMalformedFile))
}

func TestParse_HeaderButNoRows_IsMalformed(t *testing.T) {
	_, err := roster.Parse(strings.NewReader(rosterHeader), roster.ContentCSV)
	assert.True(t, errors.Is(err, roster.ErrMalformedFile))
}

func TestParse_UnknownContentType(t *testing.T) {
	_, err := roster.Parse(strings.NewReader("x"), roster.ContentType("pdf"))
	assert.True(t, errors.Is(err, roster.ErrUnsupportedFormat))
}

func TestParse_BinaryGarbageAsXLSX_IsMalformed(t *testing.T) {
	_, err := roster.Parse(strings.NewReader("this is not a zip archive"), roster.ContentXLSX)
	assert.True(t, errors.Is(err, roster.ErrMalformedFile))
}
