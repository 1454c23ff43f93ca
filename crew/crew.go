/*
Package crew holds crew member identity: who a duty belongs to and which
pay position applies to them.

PURPOSE:
  The payroll engine itself never stores users. It consumes identity through
  the Directory interface defined here, keeping authentication and profile
  management outside the core (they are collaborators, not components).

KEY CONCEPTS:
  - ID: type-safe crew member identifier
  - Position: pay grade (CCM or SCCM) that selects the rate table
  - Profile: the subset of identity the engine needs
  - Directory: read/update access to profiles

POSITION CHANGES:
  A position change invalidates every historical monthly calculation for the
  member. The component that updates the position calls the recalculation
  engine directly (upload.Recalculator) - there is no broadcast mechanism.

SEE ALSO:
  - rates/resolver.go: Position selects the rate table
  - upload/recalc.go: Recalculation on position change
*/
package crew

import (
	"context"
	"errors"
	"fmt"
)

// ID identifies a crew member. Type-safe to avoid mixing with other string IDs.
type ID string

// Position is the pay grade. It is the only identity attribute that affects pay.
type Position string

const (
	PositionCCM  Position = "CCM"  // Cabin Crew Member
	PositionSCCM Position = "SCCM" // Senior Cabin Crew Member
)

// ErrUnknownPosition is returned when a position string is not in the vocabulary.
var ErrUnknownPosition = errors.New("unknown position")

// ErrProfileNotFound is returned when a crew member does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// ParsePosition validates and converts a position string.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionCCM, PositionSCCM:
		return Position(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPosition, s)
	}
}

// Profile is the identity slice the payroll engine consumes.
type Profile struct {
	ID          ID
	Email       string
	Airline     string
	Position    Position
	Nationality string
}

// Directory supplies crew identity to the engine.
type Directory interface {
	// Profile returns the profile for a crew member.
	Profile(ctx context.Context, id ID) (Profile, error)

	// SetPosition updates the pay position for a crew member.
	// Callers are responsible for triggering recalculation afterwards.
	SetPosition(ctx context.Context, id ID, position Position) error
}
