package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration: defaults, then the file at
// path (if any), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes the file at path over cfg. Keys absent from the file
// keep their current values. A missing file is not an error. The format
// is chosen by extension: .toml, .yaml or .yml.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(path, data, cfg)
}

// Decode parses data as the format implied by name's extension over cfg.
func Decode(name string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return decodeTOML(name, data, cfg)
	case ".yaml", ".yml":
		return decodeYAML(name, data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func decodeTOML(name string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: name, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(name string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		perr := &ParseError{Path: name, Message: err.Error(), Err: err}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			perr.Line, _ = strconv.Atoi(m[1])
		}
		return perr
	}
	return nil
}

// Encode writes cfg in the format implied by name's extension.
func Encode(name string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return toml.Marshal(cfg)
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}
