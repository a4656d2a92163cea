// Package config loads the tempo configuration file.
//
// The file is YAML with strict field checking:
//
//	database: tempo.db
//	dataset: Common
//	schema: ./schema
//	cutoff: 2003-05-01T10:00:00.000Zaabbcc1234000001
//	read_only: false
//	log_level: info
//	prefetch: 4
//
// Relative database and schema paths are resolved against the directory of
// the configuration file. Command-line flags override file values.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/tid"
)

// Defaults.
const (
	DefaultDatabase = "tempo.db"
	DefaultLogLevel = "info"
)

// Config holds the settings shared by every command.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// Dataset is the name of the dataset commands operate on.
	Dataset string `yaml:"dataset"`

	// Schema is the directory of CUE record schemas.
	Schema string `yaml:"schema,omitempty"`

	// Cutoff, if set, opens a read-only historical view as of this id.
	Cutoff string `yaml:"cutoff,omitempty"`

	ReadOnly bool   `yaml:"read_only,omitempty"`
	LogLevel string `yaml:"log_level"`

	// Prefetch is the number of datasets read concurrently during
	// resolution. Zero reads sequentially.
	Prefetch int `yaml:"prefetch,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: DefaultDatabase,
		Dataset:  dataset.CommonName,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the configuration file at path over the defaults.
// Returns an error if the file doesn't exist, is malformed, or contains
// unknown fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Database = resolve(base, cfg.Database)
	cfg.Schema = resolve(base, cfg.Schema)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func resolve(base, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative, got %d", c.Prefetch)
	}
	if _, err := c.CutoffID(); err != nil {
		return err
	}
	return nil
}

// CutoffID parses Cutoff. Returns nil when no cutoff is set.
func (c *Config) CutoffID() (*tid.ID, error) {
	if c.Cutoff == "" {
		return nil, nil
	}
	id, err := tid.Parse(c.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("cutoff: %w", err)
	}
	return &id, nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// SourceOptions returns the dataset source options the configuration
// implies.
func (c *Config) SourceOptions() ([]dataset.Option, error) {
	var opts []dataset.Option
	cutoff, err := c.CutoffID()
	if err != nil {
		return nil, err
	}
	if cutoff != nil {
		opts = append(opts, dataset.WithCutoff(*cutoff))
	}
	if c.ReadOnly {
		opts = append(opts, dataset.WithReadOnly())
	}
	if c.Prefetch > 0 {
		opts = append(opts, dataset.WithPrefetch(c.Prefetch))
	}
	return opts, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
