package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
)

// =============================================================================
// MANUAL ENTRY SERVICE - single-record path producing the same Duty shape
// =============================================================================

// ManualService handles manually keyed duty records. Each add or remove
// rewrites the month's duty set and recalculates the month, so manual and
// uploaded records flow through the identical calculation path.
type ManualService struct {
	store     payroll.Store
	directory crew.Directory
	resolver  *rates.Resolver
	log       logrus.FieldLogger
}

// NewManualService builds the manual-entry service. logger may be nil.
func NewManualService(store payroll.Store, directory crew.Directory, resolver *rates.Resolver, logger logrus.FieldLogger) *ManualService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ManualService{store: store, directory: directory, resolver: resolver, log: logger}
}

// ManualResult reports the outcome of a manual add.
type ManualResult struct {
	Success     bool
	Errors      []string
	Duty        *duty.Duty
	Calculation *payroll.MonthlyCalculation
}

// Add validates the entry, builds the canonical Duty, merges it into the
// month (one duty per date) and recalculates. Validation failures come back
// inside the result; the error return is for persistence/configuration
// failures only.
func (s *ManualService) Add(ctx context.Context, userID crew.ID, entry duty.ManualEntry) (ManualResult, error) {
	if v := duty.ValidateEntry(entry); !v.Valid {
		errs := make([]string, len(v.Errors))
		for i, r := range v.Errors {
			errs[i] = fmt.Sprintf("%s: %s", r.Field, r.Message)
		}
		return ManualResult{Success: false, Errors: errs}, nil
	}

	d, err := buildDuty(userID, entry)
	if err != nil {
		return ManualResult{Success: false, Errors: []string{err.Error()}}, nil
	}

	month, year := d.Date.Month(), d.Date.Year()
	existing, err := s.store.ListDuties(ctx, userID, month, year)
	if err != nil {
		return ManualResult{}, fmt.Errorf("list duties: %w", err)
	}
	for _, e := range existing {
		if e.Date.Equal(d.Date) {
			return ManualResult{Success: false, Errors: []string{
				fmt.Sprintf("%v on %s (%s)", ErrDateOccupied, d.Date, e.Type),
			}}, nil
		}
	}

	updated := append(existing, d)
	calc, err := s.replaceAndRecalculate(ctx, userID, month, year, updated)
	if err != nil {
		return ManualResult{}, err
	}

	s.log.WithFields(logrus.Fields{"user": userID, "date": d.Date.String(), "type": d.Type}).
		Info("manual duty added")
	return ManualResult{Success: true, Duty: &d, Calculation: calc}, nil
}

// Remove deletes the duty on the given date and recalculates the month.
// If the duty is half of a layover pair, both halves are removed: pair
// members are owned jointly and deleted together.
func (s *ManualService) Remove(ctx context.Context, userID crew.ID, date duty.Date) error {
	month, year := date.Month(), date.Year()
	existing, err := s.store.ListDuties(ctx, userID, month, year)
	if err != nil {
		return fmt.Errorf("list duties: %w", err)
	}

	var pairID string
	found := false
	for _, e := range existing {
		if e.Date.Equal(date) {
			found = true
			pairID = e.PairID
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDutyNotFound, date)
	}

	var kept []duty.Duty
	for _, e := range existing {
		if e.Date.Equal(date) {
			continue
		}
		if pairID != "" && e.PairID == pairID {
			continue // the other half of the layover pair
		}
		kept = append(kept, e)
	}

	_, err = s.replaceAndRecalculate(ctx, userID, month, year, kept)
	return err
}

func (s *ManualService) replaceAndRecalculate(ctx context.Context, userID crew.ID, month time.Month, year int, duties []duty.Duty) (*payroll.MonthlyCalculation, error) {
	profile, err := s.directory.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	table, err := s.resolver.ResolveMonth(profile.Position, month, year)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceDuties(ctx, userID, month, year, duties); err != nil {
		return nil, fmt.Errorf("replace duties: %w", err)
	}
	calc := payroll.Calculate(userID, month, year, duties, table)
	if err := s.store.UpsertMonthlyCalculation(ctx, calc); err != nil {
		return nil, fmt.Errorf("store calculation: %w", err)
	}
	return &calc, nil
}

// buildDuty converts a validated manual entry into the canonical Duty.
func buildDuty(userID crew.ID, entry duty.ManualEntry) (duty.Duty, error) {
	date, err := duty.ParseDate(entry.Date)
	if err != nil {
		return duty.Duty{}, fmt.Errorf("date: %w", err)
	}

	d := duty.Duty{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Type:      entry.DutyType,
		CrossDay:  entry.CrossDay,
		Source:    duty.SourceManual,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	d.FlightNumbers = append([]string(nil), entry.FlightNumbers...)
	for _, s := range entry.Sectors {
		sec, err := duty.ParseSector(s)
		if err != nil {
			return duty.Duty{}, err
		}
		d.Sectors = append(d.Sectors, sec)
	}

	if entry.ReportTime != "" && entry.DebriefTime != "" {
		report, err := duty.ParseClockTime(entry.ReportTime)
		if err != nil {
			return duty.Duty{}, fmt.Errorf("report time: %w", err)
		}
		debrief, err := duty.ParseClockTime(entry.DebriefTime)
		if err != nil {
			return duty.Duty{}, fmt.Errorf("debrief time: %w", err)
		}
		d.ReportTime = report
		d.DebriefTime = debrief
		if d.Type.HasFlights() {
			d.DutyHours = duty.DutyHours(report, debrief, entry.CrossDay)
		}
	}

	if err := d.CheckInvariants(); err != nil {
		return duty.Duty{}, err
	}
	return d, nil
}
