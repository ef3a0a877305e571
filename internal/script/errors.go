package script

import (
	"errors"
	"fmt"
)

// Errors for script operations.
var (
	// ErrEngineClosed is returned when using a closed engine.
	ErrEngineClosed = errors.New("script engine is closed")

	// ErrCommandExists is returned when a script declares a command that
	// is already registered by something else.
	ErrCommandExists = errors.New("command already registered")
)

// ScriptError reports a failure inside a Lua script.
type ScriptError struct {
	Path    string
	Command string
	Err     error
}

func (e *ScriptError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("script %s: command %s: %v", e.Path, e.Command, e.Err)
	}
	return fmt.Sprintf("script %s: %v", e.Path, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }
