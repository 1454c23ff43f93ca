/*
classify.go - Duty classification

PURPOSE:
  Maps the month's RawScheduleRow sequence into typed duty.Duty records.
  This is where the ambiguity of roster exports gets resolved: code rows vs
  flight rows, turnarounds vs layover halves, cross-day debriefs.

ALGORITHM:
  1. Resolve each row: flight rows (any sector present) beat duty codes on
     the same date; codes fill only dates with no flight rows.
  2. Two sectors with a report/debrief pair on one day -> turnaround.
     One sector with a report time -> layover half.
  3. Layover pairing: each outbound half is matched to a subsequent half
     carrying the inverse sector, preferring the consecutive flight number
     and falling back to the nearest. Rest hours run from the outbound
     debrief to the inbound report, both halves share a PairID.
  4. Cross-day: a debrief reading earlier than its report means next-day
     debrief; 24h is added before computing duty hours.

FAILURE SEMANTICS:
  Nothing here aborts the month. Every unparseable or ambiguous row becomes
  a Warning and classification continues.

SEE ALSO:
  - duty/codes.go: The duty-code vocabulary
  - parser.go: Where the rows come from
*/
package roster

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
)

// Classify turns the parsed rows into the ordered duty list for one crew
// member month. Rows dated outside the target month are skipped with a
// warning. Warnings never abort classification.
func Classify(userID crew.ID, rows []RawScheduleRow, month time.Month, year int) ([]duty.Duty, []Warning) {
	var warnings []Warning
	warn := func(row RawScheduleRow, format string, args ...any) {
		warnings = append(warnings, Warning{Line: row.Line, Date: row.Date, Message: fmt.Sprintf(format, args...)})
	}

	// Pass 1: resolve rows per date. Flight rows are authoritative; duty
	// codes only claim dates with no flight row.
	flightRows := make(map[string]RawScheduleRow)
	codeRows := make(map[string]RawScheduleRow)
	var dateOrder []string

	for _, row := range rows {
		if row.Date.IsZero() {
			warn(row, "unrecognized date cell, row skipped")
			continue
		}
		if !row.Date.InMonth(month, year) {
			warn(row, "date outside target month %d/%d, row skipped", month, year)
			continue
		}
		key := row.Date.String()

		if row.HasFlights() {
			if existing, dup := flightRows[key]; dup {
				warn(row, "second flight row for date already covered by line %d, row skipped", existing.Line)
				continue
			}
			flightRows[key] = row
			dateOrder = appendUnique(dateOrder, key)
			continue
		}

		if _, covered := flightRows[key]; covered {
			continue // flight rows win
		}
		if _, dup := codeRows[key]; dup {
			warn(row, "duplicate duty row for date, row skipped")
			continue
		}
		codeRows[key] = row
		dateOrder = appendUnique(dateOrder, key)
	}
	sort.Strings(dateOrder) // ISO dates sort chronologically

	// Pass 2: build duties; collect layover halves for pairing.
	var duties []duty.Duty
	var halves []layoverHalf

	for _, key := range dateOrder {
		if row, ok := flightRows[key]; ok {
			d, half, err := classifyFlightRow(userID, row)
			if err != nil {
				warn(row, "%v", err)
				continue
			}
			if half != nil {
				halves = append(halves, *half)
				continue
			}
			duties = append(duties, d)
			continue
		}

		row := codeRows[key]
		dutyType, ok := duty.TypeForCode(row.DutyCode)
		if !ok {
			warn(row, "unrecognized duty code %q", row.DutyCode)
			continue
		}
		duties = append(duties, newDuty(userID, row.Date, dutyType, nil, nil, duty.ClockTime{}, duty.ClockTime{}, false))
	}

	// Pass 3: pair layover halves.
	paired, pairWarnings := pairLayovers(userID, halves)
	duties = append(duties, paired...)
	warnings = append(warnings, pairWarnings...)

	sort.Slice(duties, func(i, j int) bool { return duties[i].Date.Before(duties[j].Date) })
	return duties, warnings
}

// =============================================================================
// FLIGHT ROW CLASSIFICATION
// =============================================================================

type layoverHalf struct {
	row          RawScheduleRow
	sector       duty.Sector
	flightNumber string
	report       duty.ClockTime
	debrief      duty.ClockTime
	crossDay     bool
}

func classifyFlightRow(userID crew.ID, row RawScheduleRow) (duty.Duty, *layoverHalf, error) {
	report, err := duty.ParseClockTime(row.ReportTime)
	if err != nil {
		return duty.Duty{}, nil, fmt.Errorf("flight row has no usable report time (%q)", row.ReportTime)
	}
	debrief, err := duty.ParseClockTime(row.DebriefTime)
	if err != nil {
		return duty.Duty{}, nil, fmt.Errorf("flight row has no usable debrief time (%q)", row.DebriefTime)
	}
	if debrief == report {
		// Equal clock readings leave the duration unresolvable: zero hours or
		// a full day, with no way to tell which.
		return duty.Duty{}, nil, fmt.Errorf("report and debrief both read %s, row skipped", report)
	}
	crossDay := debrief.Before(report)

	sectors := make([]duty.Sector, 0, len(row.Sectors))
	for _, s := range row.Sectors {
		sec, err := duty.ParseSector(s)
		if err != nil {
			return duty.Duty{}, nil, fmt.Errorf("unparseable sector %q", s)
		}
		sectors = append(sectors, sec)
	}

	if len(sectors) == 1 {
		var flightNumber string
		if len(row.FlightNumbers) > 0 {
			flightNumber = row.FlightNumbers[0]
		}
		return duty.Duty{}, &layoverHalf{
			row:          row,
			sector:       sectors[0],
			flightNumber: flightNumber,
			report:       report,
			debrief:      debrief,
			crossDay:     crossDay,
		}, nil
	}

	if len(row.FlightNumbers) != len(sectors) {
		return duty.Duty{}, nil, fmt.Errorf("flight numbers (%d) do not match sectors (%d)", len(row.FlightNumbers), len(sectors))
	}
	return newDuty(userID, row.Date, duty.TypeTurnaround, row.FlightNumbers, sectors, report, debrief, crossDay), nil, nil
}

// =============================================================================
// LAYOVER PAIRING
// =============================================================================

// pairLayovers matches outbound halves to a subsequent half flying the
// inverse sector. A half carrying the consecutive flight number wins over a
// merely nearer one; otherwise the nearest inverse match is taken. Halves
// arrive in date order.
func pairLayovers(userID crew.ID, halves []layoverHalf) ([]duty.Duty, []Warning) {
	var duties []duty.Duty
	var warnings []Warning
	used := make([]bool, len(halves))

	for i := range halves {
		if used[i] {
			continue
		}
		out := halves[i]

		matched := -1
		for j := i + 1; j < len(halves); j++ {
			if used[j] || halves[j].sector != out.sector.Inverse() || !halves[j].row.Date.After(out.row.Date) {
				continue
			}
			if consecutiveFlightNumber(out.flightNumber, halves[j].flightNumber) {
				matched = j
				break
			}
			if matched < 0 {
				matched = j
			}
		}

		if matched < 0 {
			used[i] = true
			warnings = append(warnings, Warning{
				Line:    out.row.Line,
				Date:    out.row.Date,
				Message: fmt.Sprintf("no inbound leg found for layover sector %s; rest hours not credited", out.sector),
			})
			duties = append(duties, buildLayoverDuty(userID, out, "", duty.Date{}, layoverHalf{}))
			continue
		}

		in := halves[matched]
		used[i] = true
		used[matched] = true

		pairID := uuid.NewString()
		duties = append(duties,
			buildLayoverDuty(userID, out, pairID, in.row.Date, in),
			buildLayoverDuty(userID, in, pairID, duty.Date{}, layoverHalf{}),
		)
	}
	return duties, warnings
}

func buildLayoverDuty(userID crew.ID, half layoverHalf, pairID string, inboundDate duty.Date, inbound layoverHalf) duty.Duty {
	var flightNumbers []string
	if half.flightNumber != "" {
		flightNumbers = []string{half.flightNumber}
	}
	d := newDuty(userID, half.row.Date, duty.TypeLayover, flightNumbers, []duty.Sector{half.sector}, half.report, half.debrief, half.crossDay)
	d.PairID = pairID

	// Rest hours accrue on the outbound half only: debrief of the outbound
	// leg until report of the inbound leg.
	if !inboundDate.IsZero() {
		debriefDate := half.row.Date
		if half.crossDay {
			debriefDate = debriefDate.AddDays(1)
		}
		d.RestHours = duty.RestHours(debriefDate, half.debrief, inboundDate, inbound.report)
	}
	return d
}

// =============================================================================
// HELPERS
// =============================================================================

func newDuty(userID crew.ID, date duty.Date, t duty.Type, flightNumbers []string, sectors []duty.Sector, report, debrief duty.ClockTime, crossDay bool) duty.Duty {
	d := duty.Duty{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          date,
		Type:          t,
		FlightNumbers: flightNumbers,
		Sectors:       sectors,
		ReportTime:    report,
		DebriefTime:   debrief,
		CrossDay:      crossDay,
		Source:        duty.SourceUpload,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if t.HasFlights() {
		d.DutyHours = duty.DutyHours(report, debrief, crossDay)
	}
	return d
}

// consecutiveFlightNumber reports whether in is numbered directly after out
// (FZ569 -> FZ570). Rotation legs are numbered in sequence, so a consecutive
// inbound is a stronger match than a merely nearer one.
func consecutiveFlightNumber(out, in string) bool {
	outPrefix, outNum, ok := splitFlightNumber(out)
	if !ok {
		return false
	}
	inPrefix, inNum, ok := splitFlightNumber(in)
	return ok && outPrefix == inPrefix && inNum == outNum+1
}

func splitFlightNumber(s string) (prefix string, number int, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return "", 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], n, true
}

func appendUnique(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}
