/*
store.go - Persistence collaborator contract

PURPOSE:
  The engine consumes storage through this narrow interface; the storage
  technology behind it is out of scope. All operations are scoped by crew
  member - there is no cross-member access path.

REPLACEMENT SEMANTICS:
  ReplaceDuties is delete-then-insert for one (user, month, year) and must be
  a single transaction boundary where the store supports transactions: no
  reader should durably observe the intermediate zero-duty state. Monthly
  calculations are upserted wholesale, keyed by (user, month, year).

IMPLEMENTATIONS:
  - store/sqlite: production store, real transactions
  - store/memory: tests and development

SEE ALSO:
  - upload/orchestrator.go: The main consumer
  - upload/recalc.go: Bulk consumer during recalculation
*/
package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
)

// ErrCalculationNotFound is returned when a month has no stored calculation.
var ErrCalculationNotFound = errors.New("monthly calculation not found")

// Store is the persistence collaborator consumed by the engine.
type Store interface {
	// ListDuties returns the duties for a crew member month, ordered by date.
	ListDuties(ctx context.Context, userID crew.ID, month time.Month, year int) ([]duty.Duty, error)

	// ReplaceDuties atomically replaces the duty set for a crew member month.
	ReplaceDuties(ctx context.Context, userID crew.ID, month time.Month, year int, duties []duty.Duty) error

	// UpsertMonthlyCalculation stores or overwrites the calculation for its
	// (user, month, year) key.
	UpsertMonthlyCalculation(ctx context.Context, calc MonthlyCalculation) error

	// GetMonthlyCalculation returns the stored calculation for one month, or
	// ErrCalculationNotFound.
	GetMonthlyCalculation(ctx context.Context, userID crew.ID, month time.Month, year int) (MonthlyCalculation, error)

	// ListAllMonthlyCalculations returns every stored calculation for a crew
	// member, ordered by (year, month).
	ListAllMonthlyCalculations(ctx context.Context, userID crew.ID) ([]MonthlyCalculation, error)
}
