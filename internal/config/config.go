// Package config loads laborguide settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const appName = "laborguide"

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Environment variables that override file values.
const (
	EnvStore       = "LABORGUIDE_STORE"
	EnvDB          = "LABORGUIDE_DB"
	EnvStateFile   = "LABORGUIDE_STATE_FILE"
	EnvLogLevel    = "LABORGUIDE_LOG_LEVEL"
	EnvMetricsAddr = "LABORGUIDE_METRICS_ADDR"
)

// #region types
type Config struct {
	Store       string `yaml:"store"`
	DBPath      string `yaml:"db_path"`
	StatePath   string `yaml:"state_path"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsAddr string `yaml:"metrics_addr"`

	RetainedPlacentaMinutes int `yaml:"retained_placenta_minutes"`
}

// #endregion types

// #region defaults

// DefaultPath is the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Default returns the configuration used when no file or override is present.
func Default() Config {
	return Config{
		Store:                   StoreSQLite,
		DBPath:                  filepath.Join(xdg.DataHome, appName, "laborguide.db"),
		StatePath:               filepath.Join(xdg.StateHome, appName, "labor_state.json"),
		LogLevel:                "info",
		LogFile:                 filepath.Join(xdg.StateHome, appName, "laborguide.log"),
		RetainedPlacentaMinutes: 60,
	}
}

// #endregion defaults

// #region load

// Load reads path from fs over the defaults, then applies environment
// overrides read through getenv. A missing file is not an error.
func Load(fs afero.Fs, path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.Store = envOr(getenv, EnvStore, cfg.Store)
	cfg.DBPath = envOr(getenv, EnvDB, cfg.DBPath)
	cfg.StatePath = envOr(getenv, EnvStateFile, cfg.StatePath)
	cfg.LogLevel = envOr(getenv, EnvLogLevel, cfg.LogLevel)
	cfg.MetricsAddr = envOr(getenv, EnvMetricsAddr, cfg.MetricsAddr)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend names, paths and the log level.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("config: sqlite store needs db_path")
		}
	case StoreFile:
		if c.StatePath == "" {
			return errors.New("config: file store needs state_path")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q (want sqlite, file or memory)", c.Store)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RetainedPlacentaMinutes <= 0 {
		return fmt.Errorf("config: retained_placenta_minutes must be positive, got %d", c.RetainedPlacentaMinutes)
	}
	return nil
}

// Level returns the parsed log level; Validate has already accepted it.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel accepts debug, info, warn or error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", s)
	}
	return l, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load
