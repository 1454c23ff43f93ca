/*
recalc.go - Position-change recalculation engine

PURPOSE:
  When a crew member's position changes (CCM -> SCCM), every historical month
  is priced against the wrong rate table. This engine re-runs the calculation
  engine over the already-persisted duty set of each month that has a stored
  MonthlyCalculation, resolving rates against the new position.

EXECUTION MODEL:
  Best-effort bulk fan-out, not a multi-month transaction. Months are
  independent units: each one is recalculated and persisted on its own,
  concurrently up to the configured fan-out limit. A failure on one month is
  logged and reported but never blocks the others.

SEE ALSO:
  - payroll/calculation.go: The engine being re-invoked
  - rates/resolver.go: Per-month rate re-resolution
*/
package upload

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
)

// Recalculator re-runs monthly calculations after a position change.
type Recalculator struct {
	store    payroll.Store
	resolver *rates.Resolver
	fanOut   int
	log      logrus.FieldLogger
}

// NewRecalculator builds a recalculator. fanOut <= 0 uses DefaultRecalcFanOut.
func NewRecalculator(store payroll.Store, resolver *rates.Resolver, fanOut int, logger logrus.FieldLogger) *Recalculator {
	if fanOut <= 0 {
		fanOut = DefaultRecalcFanOut
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recalculator{store: store, resolver: resolver, fanOut: fanOut, log: logger}
}

// MonthResult reports the outcome for a single recalculated month.
type MonthResult struct {
	Month   time.Month
	Year    int
	Success bool
	Err     string
}

// Report is the partial-failure report for a recalculation run.
type Report struct {
	Recalculated []MonthResult
}

// Failed returns the number of months that could not be recalculated.
func (r Report) Failed() int {
	n := 0
	for _, m := range r.Recalculated {
		if !m.Success {
			n++
		}
	}
	return n
}

// RecalculateAll re-runs every stored month for the member under the new
// position. Months run concurrently, bounded by the fan-out limit; results
// are collected per month regardless of individual failures.
func (r *Recalculator) RecalculateAll(ctx context.Context, userID crew.ID, position crew.Position) (Report, error) {
	calcs, err := r.store.ListAllMonthlyCalculations(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	results := make([]MonthResult, len(calcs))
	sem := make(chan struct{}, r.fanOut)
	var wg sync.WaitGroup

	for i, calc := range calcs {
		wg.Add(1)
		go func(i int, month time.Month, year int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = r.recalculateMonth(ctx, userID, position, month, year)
		}(i, calc.Month, calc.Year)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Year != results[j].Year {
			return results[i].Year < results[j].Year
		}
		return results[i].Month < results[j].Month
	})

	report := Report{Recalculated: results}
	r.log.WithFields(logrus.Fields{
		"user":     userID,
		"position": position,
		"months":   len(results),
		"failed":   report.Failed(),
	}).Info("recalculation run complete")
	return report, nil
}

// RecalculateMonth recomputes a single month from its persisted duties.
// Also the recovery path when an upload stored duties but failed to store
// the calculation.
func (r *Recalculator) RecalculateMonth(ctx context.Context, userID crew.ID, position crew.Position, month time.Month, year int) MonthResult {
	return r.recalculateMonth(ctx, userID, position, month, year)
}

func (r *Recalculator) recalculateMonth(ctx context.Context, userID crew.ID, position crew.Position, month time.Month, year int) MonthResult {
	result := MonthResult{Month: month, Year: year}

	table, err := r.resolver.ResolveMonth(position, month, year)
	if err != nil {
		result.Err = err.Error()
		r.log.WithError(err).WithFields(logrus.Fields{"user": userID, "month": int(month), "year": year}).
			Warn("recalculation skipped: no rate table")
		return result
	}

	duties, err := r.store.ListDuties(ctx, userID, month, year)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	calc := payroll.Calculate(userID, month, year, duties, table)
	if err := r.store.UpsertMonthlyCalculation(ctx, calc); err != nil {
		result.Err = err.Error()
		return result
	}

	result.Success = true
	return result
}
