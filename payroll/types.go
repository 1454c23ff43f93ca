/*
Package payroll computes the monthly pay breakdown from a month's duties.

PURPOSE:
  Given the full Duty set for a (crew member, month, year) and the resolved
  rate table, produce the MonthlyCalculation: fixed pay, the three variable
  pay components, totals. A MonthlyCalculation is always derived - it is
  recomputed and replaced wholesale, never edited.

PAY MODEL:
  fixed     = basic salary + housing allowance + transport allowance
  flight    = sum(duty hours x hourly rate) over flight-bearing duties
  per-diem  = sum(rest hours x per-diem rate) over layovers only
  standby   = standby count x credited standby hours x hourly rate
  total     = fixed + flight + per-diem + standby

ROUNDING:
  Half-up to 2 decimal places, applied once per aggregate at the end.
  Rounding per duty would compound the error across a month.

SEE ALSO:
  - calculation.go: The engine
  - store.go: Persistence collaborator contract
  - rates/resolver.go: Where the Table comes from
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/rates"
)

// MonthlyCalculation is the derived pay breakdown for one crew member month.
// Keyed by (UserID, Month, Year); recomputed, never mutated.
type MonthlyCalculation struct {
	ID     string
	UserID crew.ID
	Month  time.Month
	Year   int

	// Rates holds the table snapshot the figures were computed from, so a
	// stored calculation stays explicable after later rate revisions.
	Rates rates.Table

	FixedPay   decimal.Decimal
	FlightPay  decimal.Decimal
	PerDiemPay decimal.Decimal
	StandbyPay decimal.Decimal
	TotalPay   decimal.Decimal

	TotalDutyHours decimal.Decimal
	FlightCount    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VariablePay returns the sum of the duty-dependent components.
func (m MonthlyCalculation) VariablePay() decimal.Decimal {
	return m.FlightPay.Add(m.PerDiemPay).Add(m.StandbyPay)
}
