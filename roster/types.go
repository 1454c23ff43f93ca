/*
Package roster turns airline roster exports into classified duty records.

PURPOSE:
  Airlines hand crew a tabular schedule - one row (or a small group of rows)
  per calendar day, with duty codes, flight numbers, sectors and times in
  loosely delimited free text. This package parses the bytes into
  RawScheduleRow values (parser.go) and classifies them into typed Duty
  records (classify.go).

PIPELINE:
  bytes -> readRows (csv / xlsx / xls) -> Parse -> []RawScheduleRow
        -> Classify -> []duty.Duty + []Warning

FAILURE SEMANTICS:
  Parsing fails hard: a file without a recognizable header structure is a
  MalformedFileError, an unaccepted file type is an UnsupportedFormatError.
  Classification never fails hard: bad rows become accumulated Warnings and
  the rest of the month still classifies.

SEE ALSO:
  - parser.go: Tabular file reading and row extraction
  - classify.go: Duty typing, layover pairing, cross-day handling
*/
package roster

import (
	"errors"
	"fmt"

	"github.com/warp/crewpay/duty"
)

// =============================================================================
// RAW SCHEDULE ROW - One line of the source file, pre-classification
// =============================================================================

// RawScheduleRow is the transient shape between file parsing and duty
// classification. It is discarded once the month is classified.
type RawScheduleRow struct {
	Line          int // 1-based line in the source file, for error reporting
	Date          duty.Date
	DutyCode      string   // free-text duty code cell, may be empty
	FlightNumbers []string // tokens like FZ123
	Sectors       []string // tokens like DXB-CMB
	ReportTime    string   // raw time token, validated during classification
	DebriefTime   string
}

// HasFlights reports whether the row carries sector data, which makes it
// authoritative over any duty code on the same date.
func (r RawScheduleRow) HasFlights() bool { return len(r.Sectors) > 0 }

// =============================================================================
// WARNINGS - Soft, accumulated classification problems
// =============================================================================

// Warning records a row that could not be classified. Warnings are surfaced
// alongside the classified duties; they never abort the month.
type Warning struct {
	Line    int
	Date    duty.Date
	Message string
}

func (w Warning) String() string {
	if w.Date.IsZero() {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return fmt.Sprintf("line %d (%s): %s", w.Line, w.Date, w.Message)
}

// =============================================================================
// ERRORS - Fatal parse failures
// =============================================================================

var (
	// ErrMalformedFile is returned when the file has no recognizable
	// header/column structure.
	ErrMalformedFile = errors.New("malformed roster file")

	// ErrUnsupportedFormat is returned for file types outside the accepted set.
	ErrUnsupportedFormat = errors.New("unsupported roster format")
)

// MalformedFileError carries detail about why the file could not be read.
type MalformedFileError struct {
	Reason string
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("malformed roster file: %s", e.Reason)
}

func (e *MalformedFileError) Unwrap() error { return ErrMalformedFile }

// UnsupportedFormatError carries the rejected content type.
type UnsupportedFormatError struct {
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported roster format %q (accepted: csv, xlsx, xls)", e.ContentType)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
