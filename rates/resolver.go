package rates

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoRateTable is returned when no table covers the target date. This is a
// configuration error and must never be silently defaulted.
var ErrNoRateTable = errors.New("no rate table covers the target date")

// NoRateTableError carries the lookup that failed.
type NoRateTableError struct {
	Position crew.Position
	Target   duty.Date
}

func (e *NoRateTableError) Error() string {
	return fmt.Sprintf("no rate table for position %s effective on %s", e.Position, e.Target)
}

func (e *NoRateTableError) Unwrap() error { return ErrNoRateTable }

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver answers "which rate table applies to this position on this date".
// Tables are kept per position, ordered by effective start date.
type Resolver struct {
	byPosition map[crew.Position][]Table
}

// NewResolver builds a resolver over the given tables.
func NewResolver(tables []Table) *Resolver {
	byPosition := make(map[crew.Position][]Table)
	for _, t := range tables {
		byPosition[t.Position] = append(byPosition[t.Position], t)
	}
	for pos := range byPosition {
		ts := byPosition[pos]
		sort.Slice(ts, func(i, j int) bool {
			return ts[i].EffectiveFrom.Before(ts[j].EffectiveFrom)
		})
		byPosition[pos] = ts
	}
	return &Resolver{byPosition: byPosition}
}

// NewBuiltinResolver builds a resolver over the shipped tables.
func NewBuiltinResolver() *Resolver { return NewResolver(Builtin()) }

// ResolveAt returns the table with the latest EffectiveFrom <= target for the
// position (most-recent-applicable rule).
func (r *Resolver) ResolveAt(position crew.Position, target duty.Date) (Table, error) {
	tables := r.byPosition[position]

	var found *Table
	for i := range tables {
		if tables[i].EffectiveFrom.BeforeOrEqual(target) {
			found = &tables[i]
		} else {
			break
		}
	}
	if found == nil {
		return Table{}, &NoRateTableError{Position: position, Target: target}
	}
	return *found, nil
}

// ResolveMonth resolves against the first day of the given month. Monthly
// calculations are pinned to the table in force when the month starts.
func (r *Resolver) ResolveMonth(position crew.Position, month time.Month, year int) (Table, error) {
	return r.ResolveAt(position, duty.StartOfMonth(year, month))
}
