/*
Package upload coordinates roster uploads, month replacement, manual entries
and position-change recalculation.

PURPOSE:
  This is the orchestration layer: it owns no pay logic of its own, it drives
  parser, classifier, rate resolver and calculation engine in the right order
  and talks to the persistence collaborator. One Upload value represents one
  logical unit of work from file bytes to stored MonthlyCalculation.

STATE MACHINE (per upload):
  selecting_target_period -> parsing -> classifying -> checking_existing
      -> { awaiting_confirmation | calculating } -> persisting -> done | failed

  awaiting_confirmation is the one genuine suspension point: when the target
  month already holds duties, the upload pauses until the caller confirms the
  replacement or cancels. Until confirmation nothing has been written.

PROGRESS:
  Callers receive {state, message} updates through a ProgressFunc, invoked
  synchronously in-process. There is no delivery contract beyond that.

SEE ALSO:
  - orchestrator.go: The upload flow
  - manual.go: The manual-entry path producing the same Duty shape
  - recalc.go: Position-change recalculation fan-out
*/
package upload

import "errors"

// =============================================================================
// STATES
// =============================================================================

// State names one step of the upload state machine. States only ever advance
// within a run; cancel returns to selecting_target_period.
type State string

const (
	StateSelectingTargetPeriod State = "selecting_target_period"
	StateParsing               State = "parsing"
	StateClassifying           State = "classifying"
	StateCheckingExisting      State = "checking_existing"
	StateAwaitingConfirmation  State = "awaiting_confirmation"
	StateCalculating           State = "calculating"
	StatePersisting            State = "persisting"
	StateDone                  State = "done"
	StateFailed                State = "failed"
)

// Progress is one status update, renderable by a caller without polling
// orchestrator internals.
type Progress struct {
	State   State
	Message string
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotAwaitingConfirmation is returned when Confirm is called in any
	// state other than awaiting_confirmation.
	ErrNotAwaitingConfirmation = errors.New("upload is not awaiting confirmation")

	// ErrUploadClosed is returned when a finished or failed upload is reused.
	ErrUploadClosed = errors.New("upload already completed")

	// ErrDateOccupied is returned by the manual-entry path when the date
	// already holds a duty.
	ErrDateOccupied = errors.New("a duty already exists on this date")

	// ErrDutyNotFound is returned when removing a duty that does not exist.
	ErrDutyNotFound = errors.New("duty not found")
)
