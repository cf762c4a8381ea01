package modules

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a module operation receives an absent input.
var ErrInvalidArgument = errors.New("invalid argument")

// Status is the coarse lifecycle indicator of a module.
type Status int

const (
	StatusIdle Status = iota
	StatusActive
	// StatusError is reserved. No operation produces it yet.
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:   "idle",
	StatusActive: "active",
	StatusError:  "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown module status %d", int(s))
	}
	return []byte(s.String()), nil
}

func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return StatusIdle, fmt.Errorf("unknown module status %q", name)
}
