package game

import (
	"strings"
)

// StatusKind is the state of a building, unit or force.
type StatusKind int

const (
	StatusActive StatusKind = iota
	StatusInactive
	StatusMoving
	StatusBattling
	StatusConstructing
)

// Status is a tagged union; Until is only meaningful while constructing.
type Status struct {
	Kind  StatusKind
	Until Date
}

// Active returns the Active status.
func Active() Status { return Status{Kind: StatusActive} }

// Inactive returns the Inactive status.
func Inactive() Status { return Status{Kind: StatusInactive} }

// Constructing returns a status that completes on the given date.
func Constructing(until Date) Status {
	return Status{Kind: StatusConstructing, Until: until}
}

// IsActive reports whether the status is Active.
func (s Status) IsActive() bool { return s.Kind == StatusActive }

// IsConstructing reports whether the status is Constructing.
func (s Status) IsConstructing() bool { return s.Kind == StatusConstructing }

// Done reports whether construction is complete by the given date.
func (s Status) Done(now Date) bool {
	return s.Kind == StatusConstructing && !now.Before(s.Until)
}

// String returns the status name, e.g. "Constructing:3/1205".
func (s Status) String() string {
	switch s.Kind {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	case StatusMoving:
		return "Moving"
	case StatusBattling:
		return "Battling"
	case StatusConstructing:
		return "Constructing:" + s.Until.String()
	default:
		return "Unknown"
	}
}

// ParseStatus parses a status string.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Active":
		return Active(), nil
	case "Inactive":
		return Inactive(), nil
	case "Moving":
		return Status{Kind: StatusMoving}, nil
	case "Battling":
		return Status{Kind: StatusBattling}, nil
	}
	if date, ok := strings.CutPrefix(s, "Constructing:"); ok {
		d, err := ParseDate(date)
		if err != nil {
			return Status{}, inputf(ErrInvalidStatus, "%q: %v", s, err)
		}
		return Constructing(d), nil
	}
	return Status{}, inputf(ErrInvalidStatus, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
