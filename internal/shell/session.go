package shell

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Session is the source every shell command runs against.
//
// Sessions derived with As or Elevate share the ID, output and variables
// of the session they came from.
type Session struct {
	ID       uuid.UUID
	Name     string
	Elevated bool
	Out      io.Writer

	vars *Vars
}

// NewSession creates a session writing to out.
func NewSession(name string, out io.Writer) *Session {
	if out == nil {
		out = io.Discard
	}
	return &Session{
		ID:   uuid.New(),
		Name: name,
		Out:  out,
		vars: NewVars(),
	}
}

// Vars returns the session variables.
func (s *Session) Vars() *Vars {
	return s.vars
}

// As returns a copy of the session acting under another name.
func (s *Session) As(name string) *Session {
	cp := *s
	cp.Name = name
	return &cp
}

// Elevate returns a copy of the session with elevated permissions.
func (s *Session) Elevate() *Session {
	cp := *s
	cp.Elevated = true
	return &cp
}

// Printf writes formatted output to the session.
func (s *Session) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Describe prints who the session is.
func (s *Session) Describe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	role := "user"
	if s.Elevated {
		role = "elevated"
	}
	s.Printf("%s (%s) session %s\n", s.Name, role, s.ID)
	return nil
}

// Vars is a concurrency-safe set of string variables.
type Vars struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewVars creates an empty variable set.
func NewVars() *Vars {
	return &Vars{m: make(map[string]string)}
}

// Get returns the value of name.
func (v *Vars) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[name]
	return val, ok
}

// Set assigns name.
func (v *Vars) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[name] = value
}

// Delete removes name and reports whether it existed.
func (v *Vars) Delete(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.m[name]
	delete(v.m, name)
	return ok
}

// Names returns the variable names in sorted order.
func (v *Vars) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Sorted(maps.Keys(v.m))
}

// Expand replaces $name and ${name} with variable values. Unknown
// variables expand to nothing.
func (v *Vars) Expand(s string) string {
	return os.Expand(s, func(name string) string {
		val, _ := v.Get(name)
		return val
	})
}
