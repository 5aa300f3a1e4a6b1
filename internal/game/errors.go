package game

import (
	"errors"
	"fmt"

	"grand-strategy/internal/world"
)

// Kind classifies an error for the caller.
type Kind int

const (
	// KindInput means the caller supplied invalid or inconsistent arguments.
	// Nothing was mutated.
	KindInput Kind = iota + 1
	// KindLogic means an internal invariant was violated.
	KindLogic
	// KindNonFatal means there was nothing to do.
	KindNonFatal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLogic:
		return "logic"
	case KindNonFatal:
		return "non-fatal"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Game errors
var (
	ErrUnknownNation           = errors.New("unknown nation")
	ErrUnknownTerritory        = world.ErrUnknownTerritory
	ErrUnreachable             = world.ErrUnreachable
	ErrUnknownBuilding         = errors.New("unknown building")
	ErrUnknownUnit             = errors.New("unknown unit")
	ErrUnknownForce            = errors.New("unknown force")
	ErrNotOwned                = errors.New("territory not owned by nation")
	ErrInsufficientResources   = errors.New("insufficient resources")
	ErrInsufficientBureaucracy = errors.New("insufficient bureaucracy")
	ErrInsufficientManpower    = errors.New("insufficient manpower")
	ErrInsufficientNodes       = errors.New("insufficient resource nodes")
	ErrTerritoryMaximum        = errors.New("territory maximum reached")
	ErrPrerequisite            = errors.New("prerequisite not met")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidDate             = errors.New("invalid date")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrNameTaken               = errors.New("name already in use")
	ErrIncompatible            = errors.New("incompatible for combination")
	ErrEngaged                 = errors.New("force is engaged")
	ErrDoubleClaim             = errors.New("territory claimed by more than one nation")
	ErrCorruptState            = errors.New("corrupt game state")
	ErrNothingToDo             = errors.New("nothing to do")
)

func inputf(sentinel error, format string, args ...any) error {
	return &Error{Kind: KindInput, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

func logicf(sentinel error, format string, args ...any) error {
	return &Error{Kind: KindLogic, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

func nonFatalf(format string, args ...any) error {
	return &Error{Kind: KindNonFatal, Err: fmt.Errorf("%w: %s", ErrNothingToDo, fmt.Sprintf(format, args...))}
}

// asInput classifies an error from a lower layer as an input error.
func asInput(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInput, Err: err}
}

// KindOf returns the kind of err, or 0 if it is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsInput reports whether err is an input error.
func IsInput(err error) bool { return KindOf(err) == KindInput }

// IsLogic reports whether err is a logic error.
func IsLogic(err error) bool { return KindOf(err) == KindLogic }

// IsNonFatal reports whether err is informational only.
func IsNonFatal(err error) bool { return KindOf(err) == KindNonFatal }
