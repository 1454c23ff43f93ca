/*
Package rates resolves the pay-rate table applicable to a position on a date.

PURPOSE:
  Pay parameters change over time: the airline revises hourly rates, per-diem
  rates and allowances, sometimes retroactively. Each revision is a new
  immutable Table with its own effective start date. The Resolver picks the
  table whose effective range covers a target date.

RESOLUTION RULE:
  Most-recent-applicable: among all tables for a position with
  EffectiveFrom <= target, the one with the latest EffectiveFrom wins.
  If no table covers the date the resolver returns NoRateTableError - never a
  default. A silently defaulted rate table produces wrong pay.

KEY CONCEPTS:
  - Table: the versioned pay parameters for one position + date range
  - Resolver: in-memory ordered lookup over registered tables
  - Builtin(): the shipped CCM/SCCM tables

SEE ALSO:
  - payroll/calculation.go: Consumes the resolved Table
  - upload/recalc.go: Re-resolves after a position change
*/
package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
)

// =============================================================================
// TABLE - Immutable pay parameters for a position and effective range
// =============================================================================

type Table struct {
	Position      crew.Position
	EffectiveFrom duty.Date

	BasicSalary        decimal.Decimal // AED/month, flat
	HousingAllowance   decimal.Decimal // AED/month, flat
	TransportAllowance decimal.Decimal // AED/month, flat
	HourlyRate         decimal.Decimal // AED per duty hour
	PerDiemRate        decimal.Decimal // AED per layover rest hour
	StandbyHours       decimal.Decimal // credited duty hours per standby day
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Builtin returns the shipped rate tables. The mid-2025 revision raised the
// variable rates for both positions; the 2020 tables remain applicable to
// months before the revision.
func Builtin() []Table {
	return []Table{
		{
			Position:           crew.PositionCCM,
			EffectiveFrom:      duty.NewDate(2020, time.January, 1),
			BasicSalary:        dec("3275"),
			HousingAllowance:   dec("2000"),
			TransportAllowance: dec("400"),
			HourlyRate:         dec("50.90"),
			PerDiemRate:        dec("4.30"),
			StandbyHours:       dec("4"),
		},
		{
			Position:           crew.PositionSCCM,
			EffectiveFrom:      duty.NewDate(2020, time.January, 1),
			BasicSalary:        dec("4450"),
			HousingAllowance:   dec("2500"),
			TransportAllowance: dec("500"),
			HourlyRate:         dec("61.55"),
			PerDiemRate:        dec("4.30"),
			StandbyHours:       dec("4"),
		},
		{
			Position:           crew.PositionCCM,
			EffectiveFrom:      duty.NewDate(2025, time.June, 1),
			BasicSalary:        dec("3275"),
			HousingAllowance:   dec("2000"),
			TransportAllowance: dec("400"),
			HourlyRate:         dec("55.00"),
			PerDiemRate:        dec("5.00"),
			StandbyHours:       dec("4"),
		},
		{
			Position:           crew.PositionSCCM,
			EffectiveFrom:      duty.NewDate(2025, time.June, 1),
			BasicSalary:        dec("4450"),
			HousingAllowance:   dec("2500"),
			TransportAllowance: dec("500"),
			HourlyRate:         dec("66.00"),
			PerDiemRate:        dec("5.00"),
			StandbyHours:       dec("4"),
		},
	}
}
