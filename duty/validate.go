/*
validate.go - Manual entry validation

PURPOSE:
  Crew members can key duties in by hand instead of uploading a roster. Every
  field of a manual entry is validated here before a Duty is built. All
  validation functions are total: they never panic and always return a
  structured result with a human-readable message.

VALIDATION LIBRARY:
  Field-shape checks (date layout, 24h time layout, flight number and sector
  patterns) run through go-playground/validator with two custom rules:
    flightno  airline prefix + numeric suffix, e.g. FZ123
    sector    two 3-letter airport codes, e.g. DXB-CMB
  Cross-field rules (cardinality per duty type, sector chaining, time
  sequencing) are plain functions on top.

CARDINALITY RULES:
  turnaround  exactly 2 flight numbers, 2 sectors forming a round trip
  layover     exactly 1 flight number, 1 sector
  others      no flight numbers, no sectors

SEE ALSO:
  - types.go: Duty invariants enforced after construction
  - upload/manual.go: The service consuming these validators
*/
package duty

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result is the outcome of a single validation check.
type Result struct {
	Valid   bool
	Field   string
	Message string
}

func ok(field string) Result { return Result{Valid: true, Field: field} }

func invalid(field, format string, args ...any) Result {
	return Result{Valid: false, Field: field, Message: fmt.Sprintf(format, args...)}
}

// EntryValidation is the composed outcome for a whole manual entry.
type EntryValidation struct {
	Valid  bool
	Errors []Result
}

// =============================================================================
// MANUAL ENTRY - User-supplied fields before validation
// =============================================================================

type ManualEntry struct {
	Date          string   `validate:"required,datetime=2006-01-02"`
	DutyType      Type     `validate:"required"`
	FlightNumbers []string `validate:"dive,flightno"`
	Sectors       []string `validate:"dive,sector"`
	ReportTime    string   `validate:"omitempty,datetime=15:04"`
	DebriefTime   string   `validate:"omitempty,datetime=15:04"`
	CrossDay      bool
}

var (
	flightNumberRe = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,4}$`)
	sectorRe       = regexp.MustCompile(`^[A-Z]{3}-[A-Z]{3}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for blank tags; safe to ignore here.
	_ = v.RegisterValidation("flightno", func(fl validator.FieldLevel) bool {
		return flightNumberRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("sector", func(fl validator.FieldLevel) bool {
		return sectorRe.MatchString(fl.Field().String())
	})
	return v
}

// =============================================================================
// FIELD VALIDATORS - Each is total and returns a structured Result
// =============================================================================

// ValidateDate checks that the value is a real calendar date no later than
// today. Today itself is allowed: crew log duties at the end of the day.
func ValidateDate(value string) Result {
	if err := validate.Var(value, "required,datetime=2006-01-02"); err != nil {
		return invalid("date", "date must be a valid date in YYYY-MM-DD format")
	}
	d, err := ParseDate(value)
	if err != nil {
		return invalid("date", "date must be a valid calendar date")
	}
	if d.After(Today()) {
		return invalid("date", "date cannot be in the future")
	}
	return ok("date")
}

// ValidateFlightNumber checks the airline-prefix + numeric-suffix pattern.
func ValidateFlightNumber(value string) Result {
	if err := validate.Var(value, "required,flightno"); err != nil {
		return invalid("flight_number", "flight number %q must be an airline prefix followed by digits (e.g. FZ123)", value)
	}
	return ok("flight_number")
}

// ValidateFlightNumbers checks each number, rejects duplicates within the
// duty, and enforces the per-type cardinality.
func ValidateFlightNumbers(dutyType Type, numbers []string) Result {
	want := flightCardinality(dutyType)
	if len(numbers) != want {
		return invalid("flight_numbers", "%s requires exactly %d flight number(s), got %d", dutyType, want, len(numbers))
	}
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		if r := ValidateFlightNumber(n); !r.Valid {
			return r
		}
		upper := strings.ToUpper(n)
		if seen[upper] {
			return invalid("flight_numbers", "duplicate flight number %q", n)
		}
		seen[upper] = true
	}
	return ok("flight_numbers")
}

// ValidateSectorString checks the ORIGIN-DEST airport pair pattern.
func ValidateSectorString(value string) Result {
	if err := validate.Var(value, "required,sector"); err != nil {
		return invalid("sector", "sector %q must be two 3-letter airport codes (e.g. DXB-CMB)", value)
	}
	return ok("sector")
}

// ValidateSectors checks each sector, the per-type cardinality, and for
// turnarounds that the legs chain into a round trip: each leg departs where
// the previous one landed and the last leg returns to the first origin.
func ValidateSectors(dutyType Type, sectorStrings []string) Result {
	want := flightCardinality(dutyType)
	if len(sectorStrings) != want {
		return invalid("sectors", "%s requires exactly %d sector(s), got %d", dutyType, want, len(sectorStrings))
	}

	sectors := make([]Sector, 0, len(sectorStrings))
	for _, s := range sectorStrings {
		if r := ValidateSectorString(s); !r.Valid {
			return r
		}
		sec, err := ParseSector(s)
		if err != nil {
			return invalid("sectors", "sector %q is malformed", s)
		}
		sectors = append(sectors, sec)
	}

	if dutyType == TypeTurnaround {
		for i := 1; i < len(sectors); i++ {
			if sectors[i].Origin != sectors[i-1].Destination {
				return invalid("sectors", "sector %s does not depart from %s", sectors[i], sectors[i-1].Destination)
			}
		}
		if sectors[len(sectors)-1].Destination != sectors[0].Origin {
			return invalid("sectors", "turnaround must return to %s", sectors[0].Origin)
		}
	}
	return ok("sectors")
}

// ValidateTime checks the 24-hour HH:MM format.
func ValidateTime(field, value string) Result {
	if err := validate.Var(value, "required,datetime=15:04"); err != nil {
		return invalid(field, "%s must be a 24-hour time in HH:MM format", field)
	}
	return ok(field)
}

// ValidateTimeSequence checks that the debrief follows the report. With
// crossDay false the debrief must be strictly later the same day; with
// crossDay true the debrief is next-day and any clock value yields a
// positive duration, but the pair must not be equal.
func ValidateTimeSequence(reportValue, debriefValue string, crossDay bool) Result {
	if r := ValidateTime("report_time", reportValue); !r.Valid {
		return r
	}
	if r := ValidateTime("debrief_time", debriefValue); !r.Valid {
		return r
	}
	report, _ := ParseClockTime(reportValue)
	debrief, _ := ParseClockTime(debriefValue)

	if !crossDay && debrief.Minutes <= report.Minutes {
		return invalid("debrief_time", "debrief time must be after report time (set cross-day if the duty ended after midnight)")
	}
	if DutyMinutes(report, debrief, crossDay) <= 0 {
		return invalid("debrief_time", "duty duration must be positive")
	}
	return ok("debrief_time")
}

// =============================================================================
// WHOLE-ENTRY VALIDATION
// =============================================================================

// ValidateEntry composes all field validators and enforces the duty-type
// specific required-field sets. It collects every failure rather than
// stopping at the first so the caller can surface them all at once.
func ValidateEntry(entry ManualEntry) EntryValidation {
	var failures []Result

	collect := func(r Result) {
		if !r.Valid {
			failures = append(failures, r)
		}
	}

	collect(ValidateDate(entry.Date))

	if !knownType(entry.DutyType) {
		collect(invalid("duty_type", "unknown duty type %q", string(entry.DutyType)))
		return EntryValidation{Valid: false, Errors: failures}
	}

	collect(ValidateFlightNumbers(entry.DutyType, entry.FlightNumbers))
	collect(ValidateSectors(entry.DutyType, entry.Sectors))

	if entry.DutyType.RequiresTimes() {
		collect(ValidateTimeSequence(entry.ReportTime, entry.DebriefTime, entry.CrossDay))
	} else if entry.ReportTime != "" || entry.DebriefTime != "" {
		// Standby entries may carry a reporting window; leave and off days
		// must not carry times at all.
		if entry.DutyType.IsStandby() {
			collect(ValidateTimeSequence(entry.ReportTime, entry.DebriefTime, entry.CrossDay))
		} else {
			collect(invalid("report_time", "%s duties do not take report/debrief times", entry.DutyType))
		}
	}

	return EntryValidation{Valid: len(failures) == 0, Errors: failures}
}

func flightCardinality(t Type) int {
	switch t {
	case TypeTurnaround:
		return 2
	case TypeLayover:
		return 1
	default:
		return 0
	}
}

func knownType(t Type) bool {
	switch t {
	case TypeTurnaround, TypeLayover, TypeStandbyAirport, TypeStandbyHome,
		TypeRecurrentTraining, TypeBusinessPromotion, TypeDayOff, TypeAnnualLeave:
		return true
	}
	return false
}
