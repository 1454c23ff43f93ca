package roster_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/roster"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const classifyUser = crew.ID("crew-42")

func flightRow(line int, date duty.Date, flights, sectors []string, report, debrief string) roster.RawScheduleRow {
	return roster.RawScheduleRow{
		Line:          line,
		Date:          date,
		FlightNumbers: flights,
		Sectors:       sectors,
		ReportTime:    report,
		DebriefTime:   debrief,
	}
}

func codeRow(line int, date duty.Date, code string) roster.RawScheduleRow {
	return roster.RawScheduleRow{Line: line, Date: date, DutyCode: code}
}

func jan(day int) duty.Date { return duty.NewDate(2025, time.January, day) }

// =============================================================================
// BASIC CLASSIFICATION
// =============================================================================

func TestClassify_Turnaround(t *testing.T) {
	// GIVEN: A two-sector flight day with report and debrief
	// WHEN: Classifying
	// THEN: One turnaround with computed duty hours

	rows := []roster.RawScheduleRow{
		flightRow(2, jan(15), []string{"FZ123", "FZ124"}, []string{"DXB-CMB", "CMB-DXB"}, "09:30", "17:45"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 1)
	assert.Empty(t, warnings)

	d := duties[0]
	assert.Equal(t, duty.TypeTurnaround, d.Type)
	assert.Equal(t, classifyUser, d.UserID)
	assert.Equal(t, duty.SourceUpload, d.Source)
	assert.True(t, d.DutyHours.Equal(decimal.RequireFromString("8.25")), "hours %s", d.DutyHours)
	assert.NoError(t, d.CheckInvariants())
}

func TestClassify_DutyCodes(t *testing.T) {
	rows := []roster.RawScheduleRow{
		codeRow(2, jan(3), "ASBY"),
		codeRow(3, jan(4), "OFF"),
		codeRow(4, jan(5), "AL"),
		codeRow(5, jan(6), "REC1"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 4)
	assert.Empty(t, warnings)
	assert.Equal(t, duty.TypeStandbyAirport, duties[0].Type)
	assert.Equal(t, duty.TypeDayOff, duties[1].Type)
	assert.Equal(t, duty.TypeAnnualLeave, duties[2].Type)
	assert.Equal(t, duty.TypeRecurrentTraining, duties[3].Type)
}

func TestClassify_UnknownCodeBecomesWarning(t *testing.T) {
	rows := []roster.RawScheduleRow{codeRow(2, jan(3), "ZZZ")}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	assert.Empty(t, duties)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "ZZZ")
}

// =============================================================================
// ROW PRECEDENCE
// =============================================================================

func TestClassify_FlightRowBeatsDutyCodeOnSameDate(t *testing.T) {
	// GIVEN: A standby code and a flight row on the same date
	// WHEN: Classifying
	// THEN: The flight row wins regardless of file order

	rows := []roster.RawScheduleRow{
		codeRow(2, jan(15), "SBY"),
		flightRow(3, jan(15), []string{"FZ123", "FZ124"}, []string{"DXB-CMB", "CMB-DXB"}, "09:30", "17:45"),
	}

	duties, _ := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 1)
	assert.Equal(t, duty.TypeTurnaround, duties[0].Type)
}

func TestClassify_RowsOutsideTargetMonthAreWarned(t *testing.T) {
	rows := []roster.RawScheduleRow{
		codeRow(2, duty.NewDate(2025, time.February, 1), "OFF"),
		codeRow(3, jan(4), "OFF"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 1)
	assert.Equal(t, jan(4), duties[0].Date)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "outside target month")
}

func TestClassify_ZeroDateRowIsWarned(t *testing.T) {
	rows := []roster.RawScheduleRow{{Line: 2, DutyCode: "OFF"}}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	assert.Empty(t, duties)
	require.Len(t, warnings, 1)
}

func TestClassify_EqualReportAndDebriefIsWarned(t *testing.T) {
	// GIVEN: A flight row whose debrief reads the same as its report
	// WHEN: Classifying
	// THEN: The row is skipped with a warning; no zero-duration duty appears

	rows := []roster.RawScheduleRow{
		flightRow(2, jan(15), []string{"FZ123", "FZ124"}, []string{"DXB-CMB", "CMB-DXB"}, "09:30", "09:30"),
		flightRow(3, jan(20), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "08:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	assert.Empty(t, duties)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, "both read 09:30")
	assert.Contains(t, warnings[1].Message, "both read 08:00")
}

func TestClassify_MismatchedFlightsAndSectors(t *testing.T) {
	rows := []roster.RawScheduleRow{
		flightRow(2, jan(15), []string{"FZ123"}, []string{"DXB-CMB", "CMB-DXB"}, "09:30", "17:45"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	assert.Empty(t, duties)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "do not match")
}

// =============================================================================
// LAYOVER PAIRING
// =============================================================================

func TestClassify_LayoverPairing(t *testing.T) {
	// GIVEN: An outbound DXB-CMB half and the inverse leg two days later
	// WHEN: Classifying
	// THEN: Both halves share a PairID; rest hours accrue on the outbound
	//       half from its debrief to the inbound report

	rows := []roster.RawScheduleRow{
		flightRow(2, jan(10), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "14:00"),
		flightRow(3, jan(12), []string{"FZ570"}, []string{"CMB-DXB"}, "06:00", "12:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 2)
	assert.Empty(t, warnings)

	out, in := duties[0], duties[1]
	assert.Equal(t, duty.TypeLayover, out.Type)
	assert.Equal(t, duty.TypeLayover, in.Type)
	assert.NotEmpty(t, out.PairID)
	assert.Equal(t, out.PairID, in.PairID)

	// 14:00 on the 10th until 06:00 on the 12th = 40 hours.
	assert.True(t, out.RestHours.Equal(decimal.NewFromInt(40)), "rest %s", out.RestHours)
	assert.True(t, in.RestHours.IsZero())
}

func TestClassify_LayoverPairsWithNearestInverse(t *testing.T) {
	// Two rotations to the same destination pair in file order: each outbound
	// takes the nearest subsequent inverse leg.
	rows := []roster.RawScheduleRow{
		flightRow(2, jan(5), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "14:00"),
		flightRow(3, jan(7), []string{"FZ570"}, []string{"CMB-DXB"}, "06:00", "12:00"),
		flightRow(4, jan(20), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "14:00"),
		flightRow(5, jan(22), []string{"FZ570"}, []string{"CMB-DXB"}, "06:00", "12:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 4)
	assert.Empty(t, warnings)

	assert.Equal(t, duties[0].PairID, duties[1].PairID)
	assert.Equal(t, duties[2].PairID, duties[3].PairID)
	assert.NotEqual(t, duties[0].PairID, duties[2].PairID)
}

func TestClassify_LayoverPrefersConsecutiveFlightNumber(t *testing.T) {
	// GIVEN: Two inverse-sector candidates; the nearer one carries an
	//        unrelated flight number, the later one the consecutive number
	// WHEN: Pairing
	// THEN: The outbound takes the consecutive leg; the nearer candidate is
	//       left unpaired

	rows := []roster.RawScheduleRow{
		flightRow(2, jan(5), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "14:00"),
		flightRow(3, jan(7), []string{"FZ888"}, []string{"CMB-DXB"}, "06:00", "12:00"),
		flightRow(4, jan(9), []string{"FZ570"}, []string{"CMB-DXB"}, "06:00", "12:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 3)

	assert.NotEmpty(t, duties[0].PairID)
	assert.Equal(t, duties[0].PairID, duties[2].PairID)
	assert.Empty(t, duties[1].PairID)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "no inbound leg")
}

func TestClassify_UnpairedLayoverHalfGetsWarningAndZeroRest(t *testing.T) {
	rows := []roster.RawScheduleRow{
		flightRow(2, jan(10), []string{"FZ569"}, []string{"DXB-CMB"}, "08:00", "14:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 1)
	assert.Equal(t, duty.TypeLayover, duties[0].Type)
	assert.Empty(t, duties[0].PairID)
	assert.True(t, duties[0].RestHours.IsZero())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "no inbound leg")
}

func TestClassify_CrossDayOutboundShiftsRestWindow(t *testing.T) {
	// GIVEN: An outbound leg debriefing past midnight (23:30 -> 05:45)
	// WHEN: Pairing with an inbound report on the 13th at 06:00
	// THEN: Rest runs from 05:45 on the 11th, not the 10th

	rows := []roster.RawScheduleRow{
		flightRow(2, jan(10), []string{"FZ981"}, []string{"DXB-PRG"}, "23:30", "05:45"),
		flightRow(3, jan(13), []string{"FZ982"}, []string{"PRG-DXB"}, "06:00", "12:00"),
	}

	duties, warnings := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 2)
	assert.Empty(t, warnings)

	out := duties[0]
	assert.True(t, out.CrossDay)
	assert.True(t, out.DutyHours.Equal(decimal.RequireFromString("6.25")), "hours %s", out.DutyHours)
	// 05:45 on the 11th until 06:00 on the 13th = 48.25 hours.
	assert.True(t, out.RestHours.Equal(decimal.RequireFromString("48.25")), "rest %s", out.RestHours)
}

func TestClassify_ResultSortedByDate(t *testing.T) {
	rows := []roster.RawScheduleRow{
		codeRow(4, jan(20), "OFF"),
		codeRow(2, jan(3), "SBY"),
		codeRow(3, jan(10), "OFF"),
	}

	duties, _ := roster.Classify(classifyUser, rows, time.January, 2025)
	require.Len(t, duties, 3)
	assert.True(t, duties[0].Date.Before(duties[1].Date))
	assert.True(t, duties[1].Date.Before(duties[2].Date))
}
