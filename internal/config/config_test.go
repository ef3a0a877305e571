package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/dshills/cmdbridge/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "cmdbridge.toml", `
[logging]
level = "debug"
json = true

[shell]
drain_timeout = "2s"

[scripts]
paths = ["a.lua", "b.lua"]
`)
	t.Setenv("CMDBRIDGE_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env to win, got level %q", cfg.Logging.Level)
	}
	if !cfg.Logging.JSON {
		t.Error("expected json from file")
	}
	if cfg.Shell.DrainTimeout.Duration != 2*time.Second {
		t.Errorf("expected 2s drain timeout, got %v", cfg.Shell.DrainTimeout)
	}
	if cfg.Shell.Prompt != "> " {
		t.Errorf("expected default prompt to survive, got %q", cfg.Shell.Prompt)
	}
	if !slices.Equal(cfg.Scripts.Paths, []string{"a.lua", "b.lua"}) {
		t.Errorf("unexpected script paths %v", cfg.Scripts.Paths)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "cmdbridge.yaml", `
shell:
  prompt: "$ "
  recover_panics: false
scripts:
  watch: true
  timeout: 250ms
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Shell.Prompt != "$ " || cfg.Shell.RecoverPanics {
		t.Errorf("unexpected shell config %+v", cfg.Shell)
	}
	if !cfg.Scripts.Watch || cfg.Scripts.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("unexpected scripts config %+v", cfg.Scripts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected defaults, got %+v", cfg.Logging)
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml syntax", "bad.toml", "[logging]\nlevel = \n"},
		{"toml unknown key", "unknown.toml", "[logging]\nverbosity = 3\n"},
		{"yaml syntax", "bad.yaml", "logging:\n  level: [debug\n"},
		{"yaml unknown key", "unknown.yaml", "logging:\n  verbosity: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.file, tt.content))
			var perr *config.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Path == "" || perr.Err == nil {
				t.Errorf("expected path and cause, got %+v", perr)
			}
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := config.Load(writeFile(t, "cmdbridge.ini", "level=debug"))
	if !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "loud"
	cfg.Scripts.Paths = []string{"ok.lua", " "}

	err := cfg.Validate()
	if !errors.Is(err, config.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	var verr *config.ValidationError
	if !errors.As(err, &verr) || verr.Path != "logging.level" {
		t.Errorf("expected logging.level to be reported first, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CMDBRIDGE_METRICS", "off")
	t.Setenv("CMDBRIDGE_SCRIPTS", "x.lua"+string(os.PathListSeparator)+"y.lua")
	t.Setenv("CMDBRIDGE_DRAIN_TIMEOUT", "1m")

	cfg := config.Default()
	if err := config.ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Shell.Metrics {
		t.Error("expected metrics disabled")
	}
	if !slices.Equal(cfg.Scripts.Paths, []string{"x.lua", "y.lua"}) {
		t.Errorf("unexpected paths %v", cfg.Scripts.Paths)
	}
	if cfg.Shell.DrainTimeout.Duration != time.Minute {
		t.Errorf("expected 1m, got %v", cfg.Shell.DrainTimeout)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("CMDBRIDGE_ELEVATED", "maybe")

	err := config.ApplyEnv(config.Default())
	var eerr *config.EnvError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EnvError, got %v", err)
	}
	if eerr.Name != "CMDBRIDGE_ELEVATED" || eerr.Value != "maybe" {
		t.Errorf("unexpected error fields %+v", eerr)
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, name := range []string{"out.toml", "out.yaml"} {
		cfg := config.Default()
		cfg.Shell.DrainTimeout.Duration = 90 * time.Second

		data, err := config.Encode(name, cfg)
		if err != nil {
			t.Fatalf("%s: Encode failed: %v", name, err)
		}
		got := &config.Config{}
		if err := config.Decode(name, data, got); err != nil {
			t.Fatalf("%s: Decode failed: %v", name, err)
		}
		if got.Shell.DrainTimeout.Duration != 90*time.Second {
			t.Errorf("%s: expected 1m30s, got %v", name, got.Shell.DrainTimeout)
		}
	}
}
