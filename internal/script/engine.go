package script

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/config"
	"github.com/dshills/cmdbridge/internal/logging"
	"github.com/dshills/cmdbridge/internal/shell"
)

// Engine loads Lua command scripts into a shell dispatcher.
type Engine struct {
	dispatcher *shell.Dispatcher
	cfg        config.ScriptsConfig
	logger     *logging.Logger

	mu       sync.Mutex
	paths    []string
	runtime  *runtime
	commands []string
	closed   bool
}

// NewEngine creates an engine that registers commands on d. Nothing is
// loaded until Load or Reload.
func NewEngine(d *shell.Dispatcher, cfg config.ScriptsConfig, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Engine{
		dispatcher: d,
		cfg:        cfg,
		logger:     logger.WithComponent("script"),
		paths:      slices.Clone(cfg.Paths),
	}
}

// Load replaces the script set with paths and loads it.
func (e *Engine) Load(paths ...string) error {
	e.mu.Lock()
	e.paths = slices.Clone(paths)
	e.mu.Unlock()
	return e.Reload(context.Background())
}

// Paths returns the loaded script files.
func (e *Engine) Paths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.paths)
}

// Reload re-runs every script in a fresh Lua state and swaps the
// declared commands in. If any script fails the previous commands stay
// registered.
func (e *Engine) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	paths := slices.Clone(e.paths)
	e.mu.Unlock()

	rt := newRuntime(e.cfg.Timeout.Duration, e.logger)
	if err := rt.load(paths); err != nil {
		rt.close()
		e.logger.Warn("script load failed: %v", err)
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		rt.close()
		return ErrEngineClosed
	}
	for _, d := range rt.decls {
		if slices.Contains(e.commands, d.name) {
			continue
		}
		if e.dispatcher.FindNode(d.name) != nil {
			e.mu.Unlock()
			rt.close()
			return fmt.Errorf("%w: %s (%s)", ErrCommandExists, d.name, d.path)
		}
	}

	for _, name := range e.commands {
		e.dispatcher.Unregister(name)
	}
	names := make([]string, 0, len(rt.decls))
	for _, d := range rt.decls {
		command.Register(e.dispatcher, d.name, rt.configure(d))
		names = append(names, d.name)
	}
	old := e.runtime
	e.runtime = rt
	e.commands = names
	e.mu.Unlock()

	if old != nil {
		old.close()
	}
	e.logger.WithField("commands", len(names)).Info("loaded %d script(s)", len(paths))
	return nil
}

// Commands returns the names of the script commands, sorted.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(slices.Values(e.commands))
}

// Close unregisters the script commands and releases the Lua state.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, name := range e.commands {
		e.dispatcher.Unregister(name)
	}
	e.commands = nil
	rt := e.runtime
	e.runtime = nil
	e.mu.Unlock()

	if rt != nil {
		rt.close()
	}
	return nil
}
