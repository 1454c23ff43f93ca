/*
handlers.go - HTTP API handlers for the crew payroll system

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Crew:
    GET    /api/crew/{id}                Get crew profile
    POST   /api/crew                     Register crew member
    PUT    /api/crew/{id}/position       Change position + recalculate history
    GET    /api/crew/{id}/duties         List duties for a month
    POST   /api/crew/{id}/duties         Add manual duty entry
    DELETE /api/crew/{id}/duties/{date}  Remove a duty (and its pair half)
    GET    /api/crew/{id}/calculation    Get one month's calculation
    GET    /api/crew/{id}/calculations   List stored monthly calculations

  Uploads:
    POST   /api/crew/{id}/roster         Upload roster file for a month
    POST   /api/uploads/{id}/confirm     Confirm replacement of existing data
    POST   /api/uploads/{id}/cancel      Abandon a pending upload

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (orchestrator, manual service, recalculator)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unsupported file format
  - 404: Profile, duty or upload not found
  - 409: Existing data requires confirmation; date already occupied
  - 422: Roster parsed but produced no usable duties
  - 500: Internal errors

PENDING UPLOADS:
  An upload that stops in awaiting_confirmation is held in memory keyed by
  a generated upload ID. The client confirms or cancels by ID. Pending
  uploads do not survive a restart; stored data is untouched until confirm.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - upload/orchestrator.go: The state machine behind the upload endpoints
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
	"github.com/warp/crewpay/roster"
	"github.com/warp/crewpay/store/sqlite"
	"github.com/warp/crewpay/upload"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Resolver     *rates.Resolver
	Orchestrator *upload.Orchestrator
	Manual       *upload.ManualService
	Recalc       *upload.Recalculator

	log logrus.FieldLogger

	// Uploads paused in awaiting_confirmation, keyed by upload ID.
	mu      sync.Mutex
	pending map[string]*upload.Upload
}

// NewHandler wires the handler with the store and the upload services.
func NewHandler(store *sqlite.Store, cfg upload.Config, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	resolver := rates.NewBuiltinResolver()
	return &Handler{
		Store:        store,
		Resolver:     resolver,
		Orchestrator: upload.NewOrchestrator(store, store, resolver, cfg, logger),
		Manual:       upload.NewManualService(store, store, resolver, logger),
		Recalc:       upload.NewRecalculator(store, resolver, cfg.RecalcFanOut, logger),
		log:          logger,
		pending:      make(map[string]*upload.Upload),
	}
}

// =============================================================================
// CREW HANDLERS
// =============================================================================

// GetProfile returns a single crew profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))

	profile, err := h.Store.Profile(r.Context(), id)
	if errors.Is(err, crew.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "Crew member not found", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// CreateProfile registers a crew member.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}
	position, err := crew.ParsePosition(req.Position)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	profile := crew.Profile{
		ID:          crew.ID(req.ID),
		Email:       req.Email,
		Airline:     req.Airline,
		Position:    position,
		Nationality: req.Nationality,
	}
	if err := h.Store.CreateProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProfileDTO(profile))
}

// ChangePosition updates the member's position and re-runs every stored
// month under the new rates. The response carries the per-month report;
// individual month failures do not fail the request.
func (h *Handler) ChangePosition(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))

	var req ChangePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	position, err := crew.ParsePosition(req.Position)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	if err := h.Store.SetPosition(r.Context(), id, position); err != nil {
		if errors.Is(err, crew.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "Crew member not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update position", err)
		return
	}

	report, err := h.Recalc.RecalculateAll(r.Context(), id, position)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Position updated but recalculation failed", err)
		return
	}

	dto := RecalcReportDTO{
		Position: string(position),
		Months:   len(report.Recalculated),
		Failed:   report.Failed(),
	}
	for _, m := range report.Recalculated {
		dto.Recalculated = append(dto.Recalculated, MonthResultDTO{
			Month:   int(m.Month),
			Year:    m.Year,
			Success: m.Success,
			Error:   m.Err,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListDuties returns the member's duties for ?month=&year=.
func (h *Handler) ListDuties(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))
	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month/year", err)
		return
	}

	duties, err := h.Store.ListDuties(r.Context(), id, month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list duties", err)
		return
	}

	dtos := make([]DutyDTO, len(duties))
	for i, d := range duties {
		dtos[i] = toDutyDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddManualDuty validates and stores a manually keyed duty, then
// recalculates the month.
func (h *Handler) AddManualDuty(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))

	var req ManualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry := duty.ManualEntry{
		Date:          req.Date,
		DutyType:      duty.Type(req.DutyType),
		FlightNumbers: req.FlightNumbers,
		Sectors:       req.Sectors,
		ReportTime:    req.ReportTime,
		DebriefTime:   req.DebriefTime,
		CrossDay:      req.CrossDay,
	}

	result, err := h.Manual.Add(r.Context(), id, entry)
	if err != nil {
		if errors.Is(err, crew.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "Crew member not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to add duty", err)
		return
	}
	if !result.Success {
		status := http.StatusBadRequest
		for _, msg := range result.Errors {
			if containsOccupied(msg) {
				status = http.StatusConflict
			}
		}
		writeJSON(w, status, map[string]any{"success": false, "errors": result.Errors})
		return
	}

	resp := map[string]any{"success": true, "duty": toDutyDTO(*result.Duty)}
	if result.Calculation != nil {
		resp["calculation"] = toCalculationDTO(*result.Calculation)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// RemoveDuty deletes the duty on the path date; a layover pair is removed
// as a whole.
func (h *Handler) RemoveDuty(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))

	date, err := duty.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.Manual.Remove(r.Context(), id, date); err != nil {
		if errors.Is(err, upload.ErrDutyNotFound) {
			writeError(w, http.StatusNotFound, "Duty not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to remove duty", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCalculation returns the stored calculation for ?month=&year=.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))
	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month/year", err)
		return
	}

	calc, err := h.Store.GetMonthlyCalculation(r.Context(), id, month, year)
	if errors.Is(err, payroll.ErrCalculationNotFound) {
		writeError(w, http.StatusNotFound, "No calculation for this month", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation", err)
		return
	}

	writeJSON(w, http.StatusOK, toCalculationDTO(calc))
}

// ListCalculations returns every stored monthly calculation for the member.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))

	calcs, err := h.Store.ListAllMonthlyCalculations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(calcs))
	for i, c := range calcs {
		dtos[i] = toCalculationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// UPLOAD HANDLERS
// =============================================================================

// UploadRoster accepts a multipart roster file for ?month=&year=. If the
// target month already holds duties the response is 409 with the upload ID
// to confirm or cancel against; stored data is untouched until confirmed.
func (h *Handler) UploadRoster(w http.ResponseWriter, r *http.Request) {
	id := crew.ID(chi.URLParam(r, "id"))
	month, year, err := monthYearParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month/year", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing roster file", err)
		return
	}
	defer file.Close()

	contentType, err := roster.ContentTypeForFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unsupported file format", err)
		return
	}

	up := h.Orchestrator.NewUpload(id, month, year, nil)
	result, err := up.Run(r.Context(), file, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Upload failed", err)
		return
	}

	switch result.State {
	case upload.StateAwaitingConfirmation:
		uploadID := uuid.NewString()
		h.mu.Lock()
		h.pending[uploadID] = up
		h.mu.Unlock()
		writeJSON(w, http.StatusConflict, toUploadResultDTO(uploadID, result))
	case upload.StateDone:
		writeJSON(w, http.StatusOK, toUploadResultDTO("", result))
	default:
		writeJSON(w, http.StatusUnprocessableEntity, toUploadResultDTO("", result))
	}
}

// ConfirmUpload replaces the month's existing duties with the pending
// classified set and recalculates.
func (h *Handler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "id")

	h.mu.Lock()
	up, ok := h.pending[uploadID]
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Upload not found", nil)
		return
	}

	result, err := up.Confirm(r.Context())
	if errors.Is(err, upload.ErrNotAwaitingConfirmation) {
		writeError(w, http.StatusConflict, "Upload is not awaiting confirmation", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Confirmation failed", err)
		return
	}

	h.mu.Lock()
	delete(h.pending, uploadID)
	h.mu.Unlock()

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toUploadResultDTO("", result))
}

// CancelUpload abandons a pending upload; stored data is untouched.
func (h *Handler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "id")

	h.mu.Lock()
	up, ok := h.pending[uploadID]
	if ok {
		delete(h.pending, uploadID)
	}
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Upload not found", nil)
		return
	}

	result := up.Cancel()
	writeJSON(w, http.StatusOK, toUploadResultDTO("", result))
}

// =============================================================================
// HELPERS
// =============================================================================

func monthYearParams(r *http.Request) (time.Month, int, error) {
	monthStr := r.URL.Query().Get("month")
	yearStr := r.URL.Query().Get("year")

	m, err := strconv.Atoi(monthStr)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("month must be 1-12, got %q", monthStr)
	}
	y, err := strconv.Atoi(yearStr)
	if err != nil || y < 2000 || y > 2100 {
		return 0, 0, fmt.Errorf("year must be a four-digit year, got %q", yearStr)
	}
	return time.Month(m), y, nil
}

func containsOccupied(msg string) bool {
	return strings.HasPrefix(msg, upload.ErrDateOccupied.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

var _ payroll.Store = (*sqlite.Store)(nil)
var _ crew.Directory = (*sqlite.Store)(nil)
