package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable cmdbridge reads.
const EnvPrefix = "CMDBRIDGE_"

type envBinding struct {
	name string
	set  func(c *Config, value string) error
}

// envBindings maps variables to settings. Order matters only for error
// reporting.
var envBindings = []envBinding{
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FILE", func(c *Config, v string) error { c.Logging.File = v; return nil }},
	{"LOG_JSON", boolSetter(func(c *Config) *bool { return &c.Logging.JSON })},
	{"LOG_NO_COLOR", boolSetter(func(c *Config) *bool { return &c.Logging.NoColor })},
	{"PROMPT", func(c *Config, v string) error { c.Shell.Prompt = v; return nil }},
	{"RECOVER_PANICS", boolSetter(func(c *Config) *bool { return &c.Shell.RecoverPanics })},
	{"METRICS", boolSetter(func(c *Config) *bool { return &c.Shell.Metrics })},
	{"ELEVATED", boolSetter(func(c *Config) *bool { return &c.Shell.Elevated })},
	{"DRAIN_TIMEOUT", durationSetter(func(c *Config) *Duration { return &c.Shell.DrainTimeout })},
	{"HISTORY_SIZE", func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		c.Shell.HistorySize = n
		return nil
	}},
	{"SCRIPTS", func(c *Config, v string) error {
		c.Scripts.Paths = filepath.SplitList(v)
		return nil
	}},
	{"SCRIPTS_WATCH", boolSetter(func(c *Config) *bool { return &c.Scripts.Watch })},
	{"SCRIPT_TIMEOUT", durationSetter(func(c *Config) *Duration { return &c.Scripts.Timeout })},
}

// ApplyEnv overrides cfg from CMDBRIDGE_* environment variables. Empty
// values are treated as set.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return &EnvError{Name: name, Value: v, Err: err}
		}
	}
	return nil
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		field(c).Duration = d
		return nil
	}
}

type boolError string

func (e boolError) Error() string { return "not a boolean: " + string(e) }

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	default:
		return false, boolError(s)
	}
}
