// Package memory provides in-memory Store and Directory implementations for
// tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type monthKey struct {
	UserID crew.ID
	Month  time.Month
	Year   int
}

// Store implements payroll.Store in memory.
type Store struct {
	mu           sync.RWMutex
	duties       map[monthKey][]duty.Duty
	calculations map[monthKey]payroll.MonthlyCalculation

	// FailReplace and FailUpsert inject faults for orchestration tests.
	FailReplace error
	FailUpsert  error
}

func NewStore() *Store {
	return &Store{
		duties:       make(map[monthKey][]duty.Duty),
		calculations: make(map[monthKey]payroll.MonthlyCalculation),
	}
}

func (s *Store) ListDuties(_ context.Context, userID crew.ID, month time.Month, year int) ([]duty.Duty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.duties[monthKey{UserID: userID, Month: month, Year: year}]
	out := make([]duty.Duty, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ReplaceDuties(_ context.Context, userID crew.ID, month time.Month, year int, duties []duty.Duty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReplace != nil {
		return s.FailReplace
	}

	k := monthKey{UserID: userID, Month: month, Year: year}
	replacement := make([]duty.Duty, len(duties))
	copy(replacement, duties)
	s.duties[k] = replacement
	return nil
}

func (s *Store) UpsertMonthlyCalculation(_ context.Context, calc payroll.MonthlyCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpsert != nil {
		return s.FailUpsert
	}

	s.calculations[monthKey{UserID: calc.UserID, Month: calc.Month, Year: calc.Year}] = calc
	return nil
}

func (s *Store) GetMonthlyCalculation(_ context.Context, userID crew.ID, month time.Month, year int) (payroll.MonthlyCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.calculations[monthKey{UserID: userID, Month: month, Year: year}]
	if !ok {
		return payroll.MonthlyCalculation{}, fmt.Errorf("%w: %s %d/%d", payroll.ErrCalculationNotFound, userID, month, year)
	}
	return c, nil
}

func (s *Store) ListAllMonthlyCalculations(_ context.Context, userID crew.ID) ([]payroll.MonthlyCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []payroll.MonthlyCalculation
	for k, c := range s.calculations {
		if k.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// =============================================================================
// MEMORY DIRECTORY
// =============================================================================

// Directory implements crew.Directory in memory.
type Directory struct {
	mu       sync.RWMutex
	profiles map[crew.ID]crew.Profile
}

func NewDirectory(profiles ...crew.Profile) *Directory {
	d := &Directory{profiles: make(map[crew.ID]crew.Profile)}
	for _, p := range profiles {
		d.profiles[p.ID] = p
	}
	return d
}

func (d *Directory) Profile(_ context.Context, id crew.ID) (crew.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return crew.Profile{}, fmt.Errorf("%w: %s", crew.ErrProfileNotFound, id)
	}
	return p, nil
}

func (d *Directory) SetPosition(_ context.Context, id crew.ID, position crew.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", crew.ErrProfileNotFound, id)
	}
	p.Position = position
	d.profiles[id] = p
	return nil
}
