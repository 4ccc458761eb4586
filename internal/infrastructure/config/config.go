package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

// File is the config file name inside the workspace directory.
const File = "config.yaml"

// Storage backends.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Config holds workspace settings read from .chronoplan/config.yaml.
type Config struct {
	// Horizon is the default planning window length for new plans.
	Horizon           time.Duration `yaml:"horizon"`
	Backend           string        `yaml:"backend"`
	SimulationTimeout time.Duration `yaml:"simulation_timeout"`
	DeleteStrategy    string        `yaml:"delete_strategy"`
	LogLevel          string        `yaml:"log_level"`
	TypesFile         string        `yaml:"types_file"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Horizon:           7 * 24 * time.Hour,
		Backend:           BackendYAML,
		SimulationTimeout: 30 * time.Second,
		DeleteStrategy:    string(planning.StrategyError),
		LogLevel:          "info",
		TypesFile:         storage.TypesFile,
	}
}

// Load reads the config for the workspace at root, filling unset fields with
// defaults. A missing file yields Default().
func Load(root string) (*Config, error) {
	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(File)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(File)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %s", c.Horizon)
	}
	switch c.Backend {
	case BackendYAML, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendYAML, BackendSQLite)
	}
	if c.SimulationTimeout < 0 {
		return fmt.Errorf("simulation_timeout cannot be negative")
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Strategy returns the configured default deleted-anchor strategy.
func (c *Config) Strategy() (planning.DeletedAnchorStrategy, error) {
	return planning.ParseDeletedAnchorStrategy(c.DeleteStrategy)
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
