// Package config loads canvasd settings from a YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverMemory   = "memory"
)

// Config is the top-level canvasd configuration.
type Config struct {
	Listen string       `yaml:"listen"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Canvas CanvasConfig `yaml:"canvas"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	BadgerPath  string `yaml:"badger_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// CanvasConfig tunes gesture handling.
type CanvasConfig struct {
	ClickThreshold time.Duration `yaml:"click_threshold"`
	MinZoom        float64       `yaml:"min_zoom"`
	MaxZoom        float64       `yaml:"max_zoom"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen: ":3000",
		Store:  StoreConfig{Driver: DriverMemory, BadgerPath: "data/canvas"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Canvas: CanvasConfig{
			ClickThreshold: 200 * time.Millisecond,
			MinZoom:        0.2,
			MaxZoom:        5.0,
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and fills
// unset fields with defaults.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnv(os.Getenv)
	c = c.withDefaults()
	return c, c.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
		if c.Store.Driver == "" {
			c.Store.Driver = DriverPostgres
		}
	}
	if v := getenv("CANVAS_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := getenv("CANVAS_LISTEN"); v != "" {
		c.Listen = v
	}
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Store.BadgerPath == "" {
		c.Store.BadgerPath = d.Store.BadgerPath
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Canvas.ClickThreshold <= 0 {
		c.Canvas.ClickThreshold = d.Canvas.ClickThreshold
	}
	if c.Canvas.MinZoom <= 0 {
		c.Canvas.MinZoom = d.Canvas.MinZoom
	}
	if c.Canvas.MaxZoom <= 0 {
		c.Canvas.MaxZoom = d.Canvas.MaxZoom
	}
	return c
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: store driver %q needs DATABASE_URL", c.Store.Driver)
		}
	case DriverBadger, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Canvas.MinZoom > c.Canvas.MaxZoom {
		return fmt.Errorf("config: min_zoom %v exceeds max_zoom %v", c.Canvas.MinZoom, c.Canvas.MaxZoom)
	}
	return nil
}

// Logger builds the process logger described by the log section.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
