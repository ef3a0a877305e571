// Package hook provides prioritized pre/post execution hooks for the shell.
package hook

import (
	"time"

	"github.com/google/uuid"
)

// Invocation describes one command line about to run.
type Invocation struct {
	ID      uuid.UUID
	Line    string
	Command string // first word of Line
	Session string
	// Elevated mirrors the session's permission flag.
	Elevated bool
	Started  time.Time
}

// Outcome is what a finished invocation produced.
type Outcome struct {
	Code     int
	Deferred int
	Duration time.Duration
	Err      error
}

// Hook is the base interface for all execution hooks.
type Hook interface {
	// Name returns a unique identifier for this hook.
	Name() string

	// Priority returns the hook priority.
	// Higher values run first for pre-hooks, last for post-hooks.
	Priority() int
}

// PreExecuteHook runs before a line is dispatched. A non-nil error
// cancels the invocation.
type PreExecuteHook interface {
	Hook
	PreExecute(inv *Invocation) error
}

// PostExecuteHook runs after a line has been dispatched and drained,
// whether or not it failed.
type PostExecuteHook interface {
	Hook
	PostExecute(inv *Invocation, out *Outcome)
}

// PreExecuteFunc wraps a function as a PreExecuteHook.
type PreExecuteFunc struct {
	name     string
	priority int
	fn       func(inv *Invocation) error
}

// NewPreExecuteFunc creates a new PreExecuteFunc hook.
func NewPreExecuteFunc(name string, priority int, fn func(inv *Invocation) error) *PreExecuteFunc {
	return &PreExecuteFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PreExecuteFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PreExecuteFunc) Priority() int { return f.priority }

// PreExecute implements PreExecuteHook.
func (f *PreExecuteFunc) PreExecute(inv *Invocation) error {
	if f.fn == nil {
		return nil
	}
	return f.fn(inv)
}

// PostExecuteFunc wraps a function as a PostExecuteHook.
type PostExecuteFunc struct {
	name     string
	priority int
	fn       func(inv *Invocation, out *Outcome)
}

// NewPostExecuteFunc creates a new PostExecuteFunc hook.
func NewPostExecuteFunc(name string, priority int, fn func(inv *Invocation, out *Outcome)) *PostExecuteFunc {
	return &PostExecuteFunc{name: name, priority: priority, fn: fn}
}

// Name implements Hook.
func (f *PostExecuteFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PostExecuteFunc) Priority() int { return f.priority }

// PostExecute implements PostExecuteHook.
func (f *PostExecuteFunc) PostExecute(inv *Invocation, out *Outcome) {
	if f.fn != nil {
		f.fn(inv, out)
	}
}
