// Package logging provides the leveled, field-carrying logger shared by the
// shell, the script engine and the binary.
package logging

import (
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the severity of a log message.
type Level int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures a Logger.
type Config struct {
	// Level is the minimum level written.
	Level Level
	// Output receives console or JSON lines. Defaults to os.Stderr.
	Output io.Writer
	// App is attached to every entry as the "app" field.
	App string
	// JSON writes Output as JSON lines instead of the console format.
	JSON bool
	// NoColor disables ANSI colors in the console format.
	NoColor bool

	// File, when set, additionally writes JSON lines to a rotated file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Output:     os.Stderr,
		App:        "cmdbridge",
		MaxSizeMB:  64,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

// Logger is a leveled logger with sticky fields. Derived loggers share
// the underlying writers but not the level.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	level    Level
	fields   map[string]any
	disabled bool
	closer   io.Closer
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var console io.Writer = cfg.Output
	if !cfg.JSON {
		console = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	writers := []io.Writer{console}
	var closer io.Closer
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, file)
		closer = file
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if cfg.App != "" {
		ctx = ctx.Str("app", cfg.App)
	}
	return &Logger{
		zl:     ctx.Logger(),
		level:  cfg.Level,
		fields: make(map[string]any),
		closer: closer,
	}
}

// WithField returns a logger with key set on every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields returns a logger with fields set on every entry.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)

	return &Logger{
		zl:       l.zl.With().Fields(fields).Logger(),
		level:    l.level,
		fields:   merged,
		disabled: l.disabled,
	}
}

// WithComponent returns a logger with the component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// Fields returns a copy of the sticky fields.
func (l *Logger) Fields() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.fields)
}

// SetLevel sets the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Disable suppresses all output.
func (l *Logger) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = true
}

// Enable resumes output.
func (l *Logger) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = false
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Debug logs a debug message. args format msg printf-style.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...any) {
	l.mu.Lock()
	if l.disabled || level < l.level {
		l.mu.Unlock()
		return
	}
	zl := l.zl
	l.mu.Unlock()

	e := zl.WithLevel(level.zerolog())
	if len(args) > 0 {
		e.Msgf(msg, args...)
		return
	}
	e.Msg(msg)
}

// NullLogger discards everything.
var NullLogger = &Logger{zl: zerolog.Nop(), disabled: true}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
	defaultMu     sync.RWMutex
)

// Get returns the process-wide logger, creating a default one on first use.
func Get() *Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultLogger == nil {
			defaultLogger = New(DefaultConfig())
		}
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Set replaces the process-wide logger.
func Set(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
