/*
Package duty defines the canonical duty record and its validation rules.

PURPOSE:
  Everything downstream of parsing - classification, calculation, persistence -
  speaks in terms of the Duty type defined here. Whether a record came from an
  uploaded roster or a manual form, it ends up in the same shape.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: the duty taxonomy (turnaround, layover, standby variants, ...)
  - Sector: an origin-destination airport pair
  - Duty: the canonical unit, one per crew member per calendar date
  - Pairing: a layover spanning two dates is two Duty rows sharing a PairID

INVARIANTS:
  - Flight-bearing types carry >= 1 flight number and >= 1 sector;
    non-flight types carry none.
  - Debrief strictly after report once cross-day wrap-around is resolved.
  - At most one Duty per date, except layover halves on adjacent dates.

SEE ALSO:
  - codes.go: Roster code vocabulary mapped to Type
  - validate.go: Manual entry validation
  - roster/classify.go: How raw roster rows become Duties
*/
package duty

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crewpay/crew"
)

// =============================================================================
// DUTY TYPE - The taxonomy
// =============================================================================

type Type string

const (
	TypeTurnaround        Type = "turnaround"
	TypeLayover           Type = "layover"
	TypeStandbyAirport    Type = "standby_airport"
	TypeStandbyHome       Type = "standby_home"
	TypeRecurrentTraining Type = "recurrent_training"
	TypeBusinessPromotion Type = "business_promotion"
	TypeDayOff            Type = "day_off"
	TypeAnnualLeave       Type = "annual_leave"
)

// HasFlights reports whether the type carries flight numbers and sectors.
func (t Type) HasFlights() bool {
	return t == TypeTurnaround || t == TypeLayover
}

// IsStandby reports whether the type earns standby hour credit.
func (t Type) IsStandby() bool {
	return t == TypeStandbyAirport || t == TypeStandbyHome
}

// RequiresTimes reports whether report/debrief times are mandatory.
func (t Type) RequiresTimes() bool {
	return t.HasFlights()
}

// =============================================================================
// SECTOR - Origin-destination pair
// =============================================================================

type Sector struct {
	Origin      string // 3-letter airport code
	Destination string // 3-letter airport code
}

// ParseSector parses "DXB-CMB" style sector strings.
func ParseSector(s string) (Sector, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return Sector{}, fmt.Errorf("invalid sector %q", s)
	}
	return Sector{
		Origin:      strings.ToUpper(parts[0]),
		Destination: strings.ToUpper(parts[1]),
	}, nil
}

// Inverse returns the sector flown in the opposite direction.
func (s Sector) Inverse() Sector {
	return Sector{Origin: s.Destination, Destination: s.Origin}
}

func (s Sector) String() string { return s.Origin + "-" + s.Destination }

// =============================================================================
// SOURCE - Where a duty record came from
// =============================================================================

type Source string

const (
	SourceUpload Source = "upload"
	SourceManual Source = "manual"
)

// =============================================================================
// DUTY - The canonical unit
// =============================================================================

type Duty struct {
	ID            string
	UserID        crew.ID
	Date          Date
	Type          Type
	FlightNumbers []string
	Sectors       []Sector
	ReportTime    ClockTime
	DebriefTime   ClockTime
	CrossDay      bool // debrief falls on Date+1
	DutyHours     decimal.Decimal
	RestHours     decimal.Decimal // layovers: until the inbound report
	Source        Source

	// PairID links the two halves of a layover spanning a date boundary.
	// Both rows carry the same PairID and are deleted together.
	PairID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrInvariantViolation is returned by CheckInvariants for malformed duties.
var ErrInvariantViolation = errors.New("duty invariant violation")

// CheckInvariants verifies the structural rules that hold for every persisted
// Duty regardless of source.
func (d Duty) CheckInvariants() error {
	if d.Type.HasFlights() {
		if len(d.FlightNumbers) == 0 || len(d.Sectors) == 0 {
			return fmt.Errorf("%w: %s duty on %s has no flights", ErrInvariantViolation, d.Type, d.Date)
		}
		if DutyMinutes(d.ReportTime, d.DebriefTime, d.CrossDay) <= 0 {
			return fmt.Errorf("%w: %s duty on %s has non-positive duration", ErrInvariantViolation, d.Type, d.Date)
		}
	} else if len(d.FlightNumbers) > 0 || len(d.Sectors) > 0 {
		return fmt.Errorf("%w: %s duty on %s must not carry flights", ErrInvariantViolation, d.Type, d.Date)
	}
	return nil
}
