package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
	"github.com/warp/crewpay/roster"
)

// =============================================================================
// CONFIGURATION - explicit, passed at construction; no ambient state
// =============================================================================

// Config carries the orchestrator's tunables.
type Config struct {
	// MaxFileBytes caps roster uploads. Zero means DefaultMaxFileBytes.
	MaxFileBytes int64

	// RecalcFanOut bounds concurrent per-month recalculations.
	// Zero means DefaultRecalcFanOut.
	RecalcFanOut int
}

const (
	DefaultMaxFileBytes = int64(4 << 20) // rosters are small; 4 MiB is generous
	DefaultRecalcFanOut = 4
)

func (c Config) maxFileBytes() int64 {
	if c.MaxFileBytes > 0 {
		return c.MaxFileBytes
	}
	return DefaultMaxFileBytes
}

func (c Config) recalcFanOut() int {
	if c.RecalcFanOut > 0 {
		return c.RecalcFanOut
	}
	return DefaultRecalcFanOut
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator wires the pipeline components together. One orchestrator
// serves many uploads; each upload is its own state machine.
type Orchestrator struct {
	store     payroll.Store
	directory crew.Directory
	resolver  *rates.Resolver
	cfg       Config
	log       logrus.FieldLogger
}

// NewOrchestrator builds an orchestrator. logger may be nil.
func NewOrchestrator(store payroll.Store, directory crew.Directory, resolver *rates.Resolver, cfg Config, logger logrus.FieldLogger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		store:     store,
		directory: directory,
		resolver:  resolver,
		cfg:       cfg,
		log:       logger,
	}
}

// Result is the structured outcome of an upload run, confirm or cancel.
type Result struct {
	Success       bool
	State         State
	DutyCount     int
	ExistingCount int
	Errors        []string
	Warnings      []string
	Calculation   *payroll.MonthlyCalculation
}

// Upload is one logical unit of work: parse -> classify -> check-existing ->
// (confirm) -> calculate -> persist. Safe for use from multiple goroutines,
// though the flow is caller-driven and sequential by design.
type Upload struct {
	mu sync.Mutex

	orc        *Orchestrator
	userID     crew.ID
	month      time.Month
	year       int
	onProgress ProgressFunc

	state    State
	pending  []duty.Duty // classified set waiting for confirmation/persist
	warnings []roster.Warning
	table    rates.Table
	existing int
}

// NewUpload opens an upload targeting one crew member month.
func (o *Orchestrator) NewUpload(userID crew.ID, month time.Month, year int, onProgress ProgressFunc) *Upload {
	return &Upload{
		orc:        o,
		userID:     userID,
		month:      month,
		year:       year,
		onProgress: onProgress,
		state:      StateSelectingTargetPeriod,
	}
}

func (u *Upload) setState(state State, format string, args ...any) {
	u.state = state
	if u.onProgress != nil {
		u.onProgress(Progress{State: state, Message: fmt.Sprintf(format, args...)})
	}
}

// State returns the current state of the upload.
func (u *Upload) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Run executes the upload through checking_existing. If the target month is
// empty it continues straight through calculation and persistence; if duties
// already exist it stops in awaiting_confirmation and reports the existing
// count, leaving stored data untouched.
//
// Fatal errors (malformed file, unsupported format, missing rate table)
// abort before any persistence and are returned inside the Result; the
// error return is reserved for misuse of the state machine.
func (u *Upload) Run(ctx context.Context, file io.Reader, contentType roster.ContentType) (Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateSelectingTargetPeriod {
		return Result{}, fmt.Errorf("%w: upload already started", ErrUploadClosed)
	}

	log := u.orc.log.WithFields(logrus.Fields{
		"user":  u.userID,
		"month": int(u.month),
		"year":  u.year,
	})

	// Parse. Reading one byte past the cap distinguishes an oversized file
	// from one that fits exactly; truncating would classify a partial month.
	u.setState(StateParsing, "parsing roster file")
	maxBytes := u.orc.cfg.maxFileBytes()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		log.WithError(err).Warn("roster read failed")
		return u.fail("read: %v", err), nil
	}
	if int64(len(data)) > maxBytes {
		log.WithField("limit", maxBytes).Warn("roster file too large")
		return u.fail("roster file exceeds the %d byte limit", maxBytes), nil
	}
	rows, err := roster.Parse(bytes.NewReader(data), contentType)
	if err != nil {
		log.WithError(err).Warn("roster parse failed")
		return u.fail("parse: %v", err), nil
	}

	// Classify.
	u.setState(StateClassifying, "classifying %d schedule rows", len(rows))
	duties, warnings := roster.Classify(u.userID, rows, u.month, u.year)
	u.warnings = warnings
	if len(duties) == 0 {
		return u.fail("no duties for %d/%d found in file", u.month, u.year), nil
	}

	// Resolve rates up front: a missing table is fatal and must abort before
	// anything is deleted or written.
	profile, err := u.orc.directory.Profile(ctx, u.userID)
	if err != nil {
		return u.fail("identity: %v", err), nil
	}
	table, err := u.orc.resolver.ResolveMonth(profile.Position, u.month, u.year)
	if err != nil {
		log.WithError(err).Error("rate resolution failed")
		return u.fail("%v", err), nil
	}
	u.table = table
	u.pending = duties

	// Check for existing data before touching anything.
	u.setState(StateCheckingExisting, "checking for existing duties")
	existing, err := u.orc.store.ListDuties(ctx, u.userID, u.month, u.year)
	if err != nil {
		return u.fail("persistence: %v", err), nil
	}
	u.existing = len(existing)

	if u.existing > 0 {
		u.setState(StateAwaitingConfirmation, "%d existing duties for %d/%d; confirmation required", u.existing, u.month, u.year)
		return Result{
			Success:       false,
			State:         StateAwaitingConfirmation,
			DutyCount:     len(u.pending),
			ExistingCount: u.existing,
			Warnings:      warningStrings(u.warnings),
		}, nil
	}

	return u.completeLocked(ctx, log), nil
}

// Confirm resumes an upload paused in awaiting_confirmation: the existing
// duties for the month are replaced by the classified set and the month is
// recalculated. Replace + calculate + persist form one logical unit.
func (u *Upload) Confirm(ctx context.Context) (Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StateAwaitingConfirmation {
		return Result{}, ErrNotAwaitingConfirmation
	}

	log := u.orc.log.WithFields(logrus.Fields{
		"user":  u.userID,
		"month": int(u.month),
		"year":  u.year,
	})
	log.WithField("replaced", u.existing).Info("replacement confirmed")

	return u.completeLocked(ctx, log), nil
}

// Cancel abandons the upload without touching stored data. The upload
// returns to selecting_target_period and may be restarted with a new Run.
func (u *Upload) Cancel() Result {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.pending = nil
	u.warnings = nil
	u.existing = 0
	u.setState(StateSelectingTargetPeriod, "upload cancelled")
	return Result{Success: false, State: StateSelectingTargetPeriod}
}

// completeLocked runs calculate + persist. Caller holds u.mu.
func (u *Upload) completeLocked(ctx context.Context, log logrus.FieldLogger) Result {
	u.setState(StateCalculating, "calculating pay for %d duties", len(u.pending))
	calc := payroll.Calculate(u.userID, u.month, u.year, u.pending, u.table)

	u.setState(StatePersisting, "persisting duties and calculation")
	if err := u.orc.store.ReplaceDuties(ctx, u.userID, u.month, u.year, u.pending); err != nil {
		log.WithError(err).Error("duty replacement failed")
		return u.fail("persistence: %v", err)
	}
	if err := u.orc.store.UpsertMonthlyCalculation(ctx, calc); err != nil {
		// Duties are already persisted; the month is recoverable by
		// re-running calculation from the stored duties (see Recalculator),
		// never by re-parsing the file.
		log.WithError(err).Error("calculation persist failed; duties stored")
		return u.fail("persistence: calculation not stored: %v", err)
	}

	u.setState(StateDone, "stored %d duties, total pay %s", len(u.pending), calc.TotalPay.StringFixed(2))
	log.WithFields(logrus.Fields{
		"duties": len(u.pending),
		"total":  calc.TotalPay.StringFixed(2),
	}).Info("upload complete")

	return Result{
		Success:     true,
		State:       StateDone,
		DutyCount:   len(u.pending),
		Warnings:    warningStrings(u.warnings),
		Calculation: &calc,
	}
}

func (u *Upload) fail(format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	u.setState(StateFailed, "%s", msg)
	return Result{
		Success:  false,
		State:    StateFailed,
		Errors:   []string{msg},
		Warnings: warningStrings(u.warnings),
	}
}

func warningStrings(warnings []roster.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
