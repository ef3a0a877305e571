// Package shell runs command lines against sessions.
//
// A Shell owns a deferred dispatcher preloaded with builtin commands.
// Execute parses and dispatches one line, then drains the work the
// matched commands deferred, surrounded by pre/post hooks, panic recovery
// and per-command metrics.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cmdbridge/internal/config"
	"github.com/dshills/cmdbridge/internal/deferred"
	"github.com/dshills/cmdbridge/internal/grammar"
	"github.com/dshills/cmdbridge/internal/logging"
	"github.com/dshills/cmdbridge/internal/shell/hook"
)

// Dispatcher is the dispatcher type commands are registered on.
type Dispatcher = deferred.SuspendDispatcher[*Session]

// Result describes one executed line.
type Result struct {
	InvocationID uuid.UUID
	// Code is the dispatch result: the number of successful command
	// executions, counting each fork branch.
	Code int
	// Deferred is the number of actions the line queued.
	Deferred int
	Duration time.Duration
}

// Shell executes command lines.
type Shell struct {
	cfg        config.ShellConfig
	dispatcher *Dispatcher
	hooks      *hook.Manager
	history    *hook.HistoryHook
	metrics    *Metrics
	logger     *logging.Logger

	mu       sync.RWMutex
	reloader func(ctx context.Context) error
}

// New creates a shell with the builtin commands registered.
func New(cfg config.ShellConfig, logger *logging.Logger) *Shell {
	if logger == nil {
		logger = logging.NullLogger
	}
	logger = logger.WithComponent("shell")

	s := &Shell{
		cfg:        cfg,
		dispatcher: deferred.NewDispatcher[*Session](),
		hooks:      hook.NewManager(),
		history:    hook.NewHistoryHook(cfg.HistorySize),
		logger:     logger,
	}
	if cfg.Metrics {
		s.metrics = NewMetrics()
	}

	s.hooks.Register(hook.NewAuditHook(logger))
	s.hooks.Register(s.history)
	s.registerBuiltins()

	return s
}

// Dispatcher returns the dispatcher so callers can register commands.
func (s *Shell) Dispatcher() *Dispatcher { return s.dispatcher }

// Hooks returns the hook manager.
func (s *Shell) Hooks() *hook.Manager { return s.hooks }

// History returns the recorded invocations.
func (s *Shell) History() []hook.Entry { return s.history.Entries() }

// Metrics returns the metrics collector, or nil when metrics are off.
func (s *Shell) Metrics() *Metrics { return s.metrics }

// SetReloader sets what the reload command runs.
func (s *Shell) SetReloader(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloader = fn
}

// NewSession creates a session with the shell's default permissions.
func (s *Shell) NewSession(name string, out io.Writer) *Session {
	sess := NewSession(name, out)
	sess.Elevated = s.cfg.Elevated
	return sess
}

// Execute runs one line for session. Deferred work is drained before
// Execute returns; a drain failure is returned alongside the dispatch
// result.
func (s *Shell) Execute(ctx context.Context, session *Session, line string) (Result, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{}, ErrEmptyLine
	}

	inv := &hook.Invocation{
		ID:       uuid.New(),
		Line:     line,
		Command:  commandName(line),
		Session:  session.Name,
		Elevated: session.Elevated,
		Started:  time.Now(),
	}
	res := Result{InvocationID: inv.ID}

	if err := s.hooks.RunPre(inv); err != nil {
		return res, err
	}

	if timeout := s.cfg.DrainTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bridge := deferred.Bridged(session)
	code, err := s.run(ctx, inv, bridge)
	if errors.Is(err, grammar.ErrUnknownCommand) {
		err = s.unknownCommand(inv.Command, bridge, err)
	}

	res.Code = code
	res.Deferred = bridge.Queue().Len()
	res.Duration = time.Since(inv.Started)

	s.hooks.RunPost(inv, &hook.Outcome{
		Code:     res.Code,
		Deferred: res.Deferred,
		Duration: res.Duration,
		Err:      err,
	})
	if s.metrics != nil {
		s.metrics.Record(inv.Command, res.Duration, err != nil)
	}

	if err != nil {
		return res, fmt.Errorf("%s: %w", inv.Command, err)
	}
	return res, nil
}

// run dispatches and drains with panic recovery.
func (s *Shell) run(ctx context.Context, inv *hook.Invocation, bridge *deferred.Bridge[*Session]) (code int, err error) {
	if s.cfg.RecoverPanics {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 4096)
				n := runtime.Stack(stack, false)

				err = &PanicError{Command: inv.Command, Value: r, Stack: stack[:n]}
				s.logger.Error("command %s panicked: %v\n%s", inv.Command, r, stack[:n])

				if s.metrics != nil {
					s.metrics.RecordPanic(inv.Command)
				}
			}
		}()
	}

	return deferred.ExecuteBridge(ctx, s.dispatcher, inv.Line, bridge)
}

// unknownCommand adds suggestions drawn from the commands bridge may use.
func (s *Shell) unknownCommand(name string, bridge *deferred.Bridge[*Session], err error) error {
	usable := s.dispatcher.SmartUsage(s.dispatcher.Root(), bridge)
	if _, ok := usable[name]; ok {
		return err
	}
	return &UnknownCommandError{
		Name:        name,
		Suggestions: Suggest(name, slices.Collect(maps.Keys(usable)), maxSuggestions),
		Err:         err,
	}
}

func commandName(line string) string {
	name, _, _ := strings.Cut(line, " ")
	return name
}
