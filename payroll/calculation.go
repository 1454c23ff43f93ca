package payroll

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/rates"
)

// =============================================================================
// CALCULATION ENGINE
// =============================================================================

// Calculate derives the MonthlyCalculation for a month's duties under the
// given rate table. Pure function of its inputs apart from the generated ID
// and timestamps: the same duties and table always yield the same figures.
func Calculate(userID crew.ID, month time.Month, year int, duties []duty.Duty, table rates.Table) MonthlyCalculation {
	fixed := table.BasicSalary.Add(table.HousingAllowance).Add(table.TransportAllowance)

	flightPay := decimal.Zero
	perDiemPay := decimal.Zero
	totalHours := decimal.Zero
	flightCount := 0
	standbyCount := 0

	for _, d := range duties {
		switch {
		case d.Type.HasFlights():
			hours := d.DutyHours
			if hours.IsZero() {
				hours = duty.DutyHours(d.ReportTime, d.DebriefTime, d.CrossDay)
			}
			flightPay = flightPay.Add(hours.Mul(table.HourlyRate))
			totalHours = totalHours.Add(hours)
			flightCount += len(d.FlightNumbers)

			// Per-diem accrues on layover rest time only; turnarounds have
			// no rest component.
			if d.Type == duty.TypeLayover && d.RestHours.IsPositive() {
				perDiemPay = perDiemPay.Add(d.RestHours.Mul(table.PerDiemRate))
			}

		case d.Type.IsStandby():
			standbyCount++
			totalHours = totalHours.Add(table.StandbyHours)
		}
	}

	standbyPay := decimal.NewFromInt(int64(standbyCount)).
		Mul(table.StandbyHours).
		Mul(table.HourlyRate)

	// Round each aggregate exactly once. decimal.Round is half-up for the
	// positive amounts handled here.
	fixed = fixed.Round(2)
	flightPay = flightPay.Round(2)
	perDiemPay = perDiemPay.Round(2)
	standbyPay = standbyPay.Round(2)

	now := time.Now().UTC()
	return MonthlyCalculation{
		ID:             uuid.NewString(),
		UserID:         userID,
		Month:          month,
		Year:           year,
		Rates:          table,
		FixedPay:       fixed,
		FlightPay:      flightPay,
		PerDiemPay:     perDiemPay,
		StandbyPay:     standbyPay,
		TotalPay:       fixed.Add(flightPay).Add(perDiemPay).Add(standbyPay).Round(2),
		TotalDutyHours: totalHours,
		FlightCount:    flightCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
