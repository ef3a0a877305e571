package shell

import (
	"errors"
	"fmt"
)

// Errors returned by shell operations.
var (
	// ErrEmptyLine is returned for a blank input line.
	ErrEmptyLine = errors.New("empty line")

	// ErrNoSuchVariable indicates a get or unset of an unknown variable.
	ErrNoSuchVariable = errors.New("no such variable")

	// ErrNoSuchCommand indicates help for an unknown command.
	ErrNoSuchCommand = errors.New("no such command")

	// ErrNotElevated indicates a command that needs an elevated session.
	ErrNotElevated = errors.New("permission denied: session is not elevated")

	// ErrNoReloader indicates reload with nothing to reload.
	ErrNoReloader = errors.New("nothing to reload")
)

// PanicError is returned when a command panics and panic recovery is on.
type PanicError struct {
	Command string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command %s panicked: %v", e.Command, e.Value)
}
