/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY FORMATTING:
  All monetary figures are serialized as fixed two-decimal strings
  ("4794.09"), never as floats. Clients must not do arithmetic on them.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: MonthlyCalculation source type
*/
package api

import (
	"time"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/upload"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ProfileDTO represents a crew member in API responses.
type ProfileDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Airline     string `json:"airline"`
	Position    string `json:"position"`
	Nationality string `json:"nationality,omitempty"`
}

// CreateProfileRequest is the request to register a crew member.
type CreateProfileRequest struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Airline     string `json:"airline"`
	Position    string `json:"position"`
	Nationality string `json:"nationality"`
}

// ChangePositionRequest is the request to change a crew member's position.
type ChangePositionRequest struct {
	Position string `json:"position"`
}

// DutyDTO represents a single duty record.
type DutyDTO struct {
	ID            string   `json:"id"`
	Date          string   `json:"date"`
	Type          string   `json:"type"`
	FlightNumbers []string `json:"flight_numbers,omitempty"`
	Sectors       []string `json:"sectors,omitempty"`
	ReportTime    string   `json:"report_time,omitempty"`
	DebriefTime   string   `json:"debrief_time,omitempty"`
	CrossDay      bool     `json:"cross_day,omitempty"`
	DutyHours     string   `json:"duty_hours"`
	RestHours     string   `json:"rest_hours"`
	Source        string   `json:"source"`
	PairID        string   `json:"pair_id,omitempty"`
}

// ManualEntryRequest is the request body for a manually keyed duty.
type ManualEntryRequest struct {
	Date          string   `json:"date"`
	DutyType      string   `json:"duty_type"`
	FlightNumbers []string `json:"flight_numbers,omitempty"`
	Sectors       []string `json:"sectors,omitempty"`
	ReportTime    string   `json:"report_time,omitempty"`
	DebriefTime   string   `json:"debrief_time,omitempty"`
	CrossDay      bool     `json:"cross_day,omitempty"`
}

// CalculationDTO represents a stored monthly calculation.
type CalculationDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Month          int    `json:"month"`
	Year           int    `json:"year"`
	Position       string `json:"position"`
	FixedPay       string `json:"fixed_pay"`
	FlightPay      string `json:"flight_pay"`
	PerDiemPay     string `json:"per_diem_pay"`
	StandbyPay     string `json:"standby_pay"`
	TotalPay       string `json:"total_pay"`
	TotalDutyHours string `json:"total_duty_hours"`
	FlightCount    int    `json:"flight_count"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// UploadResultDTO is the outcome of a roster upload, confirm or cancel.
type UploadResultDTO struct {
	UploadID      string          `json:"upload_id,omitempty"`
	Success       bool            `json:"success"`
	State         string          `json:"state"`
	DutyCount     int             `json:"duty_count,omitempty"`
	ExistingCount int             `json:"existing_count,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	Calculation   *CalculationDTO `json:"calculation,omitempty"`
}

// RecalcReportDTO is the partial-failure report of a position change.
type RecalcReportDTO struct {
	Position     string           `json:"position"`
	Months       int              `json:"months"`
	Failed       int              `json:"failed"`
	Recalculated []MonthResultDTO `json:"recalculated"`
}

// MonthResultDTO reports one recalculated month.
type MonthResultDTO struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProfileDTO(p crew.Profile) ProfileDTO {
	return ProfileDTO{
		ID:          string(p.ID),
		Email:       p.Email,
		Airline:     p.Airline,
		Position:    string(p.Position),
		Nationality: p.Nationality,
	}
}

func toDutyDTO(d duty.Duty) DutyDTO {
	dto := DutyDTO{
		ID:            d.ID,
		Date:          d.Date.String(),
		Type:          string(d.Type),
		FlightNumbers: d.FlightNumbers,
		CrossDay:      d.CrossDay,
		DutyHours:     d.DutyHours.StringFixed(2),
		RestHours:     d.RestHours.StringFixed(2),
		Source:        string(d.Source),
		PairID:        d.PairID,
	}
	for _, s := range d.Sectors {
		dto.Sectors = append(dto.Sectors, s.String())
	}
	if d.Type.RequiresTimes() || d.ReportTime.Minutes != 0 || d.DebriefTime.Minutes != 0 {
		dto.ReportTime = d.ReportTime.String()
		dto.DebriefTime = d.DebriefTime.String()
	}
	return dto
}

func toCalculationDTO(c payroll.MonthlyCalculation) CalculationDTO {
	return CalculationDTO{
		ID:             c.ID,
		UserID:         string(c.UserID),
		Month:          int(c.Month),
		Year:           c.Year,
		Position:       string(c.Rates.Position),
		FixedPay:       c.FixedPay.StringFixed(2),
		FlightPay:      c.FlightPay.StringFixed(2),
		PerDiemPay:     c.PerDiemPay.StringFixed(2),
		StandbyPay:     c.StandbyPay.StringFixed(2),
		TotalPay:       c.TotalPay.StringFixed(2),
		TotalDutyHours: c.TotalDutyHours.StringFixed(2),
		FlightCount:    c.FlightCount,
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
}

func toUploadResultDTO(uploadID string, res upload.Result) UploadResultDTO {
	dto := UploadResultDTO{
		UploadID:      uploadID,
		Success:       res.Success,
		State:         string(res.State),
		DutyCount:     res.DutyCount,
		ExistingCount: res.ExistingCount,
		Errors:        res.Errors,
		Warnings:      res.Warnings,
	}
	if res.Calculation != nil {
		calc := toCalculationDTO(*res.Calculation)
		dto.Calculation = &calc
	}
	return dto
}
