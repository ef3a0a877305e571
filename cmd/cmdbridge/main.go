// Package main is the entry point for the cmdbridge shell.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/dshills/cmdbridge/internal/config"
	"github.com/dshills/cmdbridge/internal/logging"
	"github.com/dshills/cmdbridge/internal/script"
	"github.com/dshills/cmdbridge/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	Scripts    []string
	LogLevel   string
	Commands   []string
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	cfg.Scripts.Paths = scriptPaths(cfg.Scripts.Paths, opts.Scripts)

	logger := newLogger(cfg.Logging)
	defer logger.Close()
	logging.Set(logger)

	sh := shell.New(cfg.Shell, logger)

	engine := script.NewEngine(sh.Dispatcher(), cfg.Scripts, logger)
	defer engine.Close()
	if len(cfg.Scripts.Paths) > 0 {
		if err := engine.Load(cfg.Scripts.Paths...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	sh.SetReloader(engine.Reload)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scripts.Watch {
		watcher, err := watch(ctx, opts.ConfigPath, opts.Scripts, cfg, engine, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to watch files: %v\n", err)
			return 1
		}
		defer watcher.Close()
	}

	session := sh.NewSession(currentUser(), os.Stdout)

	// One-shot mode: run the -e commands and exit
	if len(opts.Commands) > 0 {
		for _, line := range opts.Commands {
			if _, err := sh.Execute(ctx, session, line); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
		}
		return 0
	}

	prompt := ""
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		prompt = cfg.Shell.Prompt
	}
	if err := repl(ctx, sh, session, os.Stdin, prompt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// repl executes lines from in until EOF or cancellation. Command errors
// are printed and do not stop the loop.
func repl(ctx context.Context, sh *shell.Shell, session *shell.Session, in io.Reader, prompt string) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(session.Out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(session.Out)
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			switch strings.TrimSpace(line) {
			case "":
				continue
			case "exit", "quit":
				return nil
			}
			if _, err := sh.Execute(ctx, session, line); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

// scriptPaths returns the configured script paths followed by the ones
// given on the command line.
func scriptPaths(configured, extra []string) []string {
	return append(slices.Clone(configured), extra...)
}

// watch reloads scripts when a script file changes, and reapplies the
// configuration when the config file changes. extra holds the script
// paths given on the command line, which survive config reloads.
func watch(ctx context.Context, configPath string, extra []string, cfg *config.Config, engine *script.Engine, logger *logging.Logger) (*config.Watcher, error) {
	var w *config.Watcher
	handler := func(ev config.Event) {
		if ctx.Err() != nil {
			return
		}
		if configPath != "" && ev.Path == absPath(configPath) {
			next, err := config.Load(configPath)
			if err != nil {
				logger.Warn("config reload failed: %v", err)
				return
			}
			logger.SetLevel(logging.ParseLevel(next.Logging.Level))
			paths := scriptPaths(next.Scripts.Paths, extra)
			if !slices.Equal(paths, cfg.Scripts.Paths) {
				for _, p := range paths {
					if err := w.Watch(p); err != nil {
						logger.Warn("watch %s: %v", p, err)
					}
				}
				cfg.Scripts.Paths = paths
				if err := engine.Load(paths...); err != nil {
					logger.Warn("script reload failed: %v", err)
				}
			}
			logger.Info("configuration reloaded")
			return
		}
		logger.WithField("op", ev.Op.String()).Info("script changed: %s", ev.Path)
		if err := engine.Reload(ctx); err != nil {
			logger.Warn("script reload failed: %v", err)
		}
	}

	w, err := config.NewWatcher(handler, config.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	paths := engine.Paths()
	if configPath != "" {
		paths = append(paths, configPath)
	}
	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

func newLogger(cfg config.LoggingConfig) *logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Level)
	lc.File = cfg.File
	lc.JSON = cfg.JSON
	lc.NoColor = cfg.NoColor || !isatty.IsTerminal(os.Stderr.Fd())
	return logging.New(lc)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "user"
}

func parseFlags() options {
	var opts options
	var scripts, commands stringList
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.Var(&scripts, "script", "Lua command script to load (repeatable)")
	flag.Var(&scripts, "s", "Lua command script to load (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Var(&commands, "e", "Execute a command line and exit (repeatable)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cmdbridge - command shell with deferred execution\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cmdbridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cmdbridge                          Start an interactive shell\n")
		fmt.Fprintf(os.Stderr, "  cmdbridge -s greet.lua             Load a command script\n")
		fmt.Fprintf(os.Stderr, "  cmdbridge -e 'echo hi' -e help     Run commands and exit\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("cmdbridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	opts.Scripts = scripts
	opts.Commands = commands
	return opts
}
