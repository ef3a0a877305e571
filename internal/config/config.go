package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the complete cmdbridge configuration.
type Config struct {
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Shell   ShellConfig   `toml:"shell" yaml:"shell"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level   string `toml:"level" yaml:"level"`
	File    string `toml:"file" yaml:"file"`
	JSON    bool   `toml:"json" yaml:"json"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

// ShellConfig configures command execution.
type ShellConfig struct {
	Prompt string `toml:"prompt" yaml:"prompt"`
	// RecoverPanics converts a panicking command into an error result.
	RecoverPanics bool `toml:"recover_panics" yaml:"recover_panics"`
	// Metrics enables per-command execution statistics.
	Metrics bool `toml:"metrics" yaml:"metrics"`
	// DrainTimeout bounds the deferred work of a single line. Zero means
	// no limit.
	DrainTimeout Duration `toml:"drain_timeout" yaml:"drain_timeout"`
	// Elevated starts sessions with elevated permissions.
	Elevated bool `toml:"elevated" yaml:"elevated"`
	// HistorySize is the number of executed lines kept for "history".
	HistorySize int `toml:"history_size" yaml:"history_size"`
}

// ScriptsConfig configures Lua command scripts.
type ScriptsConfig struct {
	Paths []string `toml:"paths" yaml:"paths"`
	// Watch reloads scripts when they change on disk.
	Watch bool `toml:"watch" yaml:"watch"`
	// Timeout bounds a single script callback. Zero means no limit.
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// Duration is a time.Duration that reads and writes as "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Shell: ShellConfig{
			Prompt:        "> ",
			RecoverPanics: true,
			Metrics:       true,
			DrainTimeout:  Duration{30 * time.Second},
			HistorySize:   100,
		},
		Scripts: ScriptsConfig{
			Timeout: Duration{5 * time.Second},
		},
	}
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, &ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %s", strings.Join(logLevels, ", ")),
			Value:   c.Logging.Level,
		})
	}
	if c.Shell.DrainTimeout.Duration < 0 {
		errs = append(errs, &ValidationError{
			Path:    "shell.drain_timeout",
			Message: "must not be negative",
			Value:   c.Shell.DrainTimeout,
		})
	}
	if c.Shell.HistorySize < 0 {
		errs = append(errs, &ValidationError{
			Path:    "shell.history_size",
			Message: "must not be negative",
			Value:   c.Shell.HistorySize,
		})
	}
	if c.Scripts.Timeout.Duration < 0 {
		errs = append(errs, &ValidationError{
			Path:    "scripts.timeout",
			Message: "must not be negative",
			Value:   c.Scripts.Timeout,
		})
	}
	for i, p := range c.Scripts.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, &ValidationError{
				Path:    fmt.Sprintf("scripts.paths[%d]", i),
				Message: "must not be empty",
				Value:   p,
			})
		}
	}
	return errors.Join(errs...)
}
