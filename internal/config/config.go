// Package config loads process configuration from an optional .env file,
// an optional TOML or YAML file and SINGULARITY_* environment variables, in
// that order. Out-of-range values are clamped rather than rejected.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/talgya/singularity/internal/world"
)

// Tuning holds the three knobs the simulation re-reads every tick.
type Tuning struct {
	Aggression    float64 `toml:"aggression" yaml:"aggression" json:"aggression"`             // Scales tendril max speed
	GravityPull   float64 `toml:"gravity_pull" yaml:"gravity_pull" json:"gravity_pull"`       // Scales orbit pull strength
	MovementSpeed float64 `toml:"movement_speed" yaml:"movement_speed" json:"movement_speed"` // Scales singularity movement
}

// Tuning defaults and ceilings.
const (
	DefaultAggression    = 1.7
	DefaultGravityPull   = 1.5
	DefaultMovementSpeed = 1.95

	MaxAggression    = 10.0
	MaxGravityPull   = 10.0
	MaxMovementSpeed = 20.0
)

// DefaultTuning returns the stock tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Aggression:    DefaultAggression,
		GravityPull:   DefaultGravityPull,
		MovementSpeed: DefaultMovementSpeed,
	}
}

// Sanitize replaces non-positive or NaN values with defaults and caps the
// rest. It never fails.
func (t Tuning) Sanitize() Tuning {
	t.Aggression = sanitize(t.Aggression, DefaultAggression, MaxAggression)
	t.GravityPull = sanitize(t.GravityPull, DefaultGravityPull, MaxGravityPull)
	t.MovementSpeed = sanitize(t.MovementSpeed, DefaultMovementSpeed, MaxMovementSpeed)
	return t
}

func sanitize(v, def, max float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// Config is the full process configuration.
type Config struct {
	Tuning Tuning `toml:"tuning" yaml:"tuning" json:"tuning"`

	Width  float64 `toml:"width" yaml:"width" json:"width"`
	Height float64 `toml:"height" yaml:"height" json:"height"`
	Seed   int64   `toml:"seed" yaml:"seed" json:"seed"` // 0 = draw from entropy
	FPS    int     `toml:"fps" yaml:"fps" json:"fps"`

	DBPath     string `toml:"db_path" yaml:"db_path" json:"db_path"`
	APIPort    int    `toml:"api_port" yaml:"api_port" json:"api_port"`
	AdminKey   string `toml:"-" yaml:"-" json:"-"` // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey   string `toml:"-" yaml:"-" json:"-"` // Bearer token for stream endpoints. Empty = streaming disabled.
	RandomKey  string `toml:"-" yaml:"-" json:"-"` // random.org API key for run seeds. Empty = crypto/rand.
	StatsEvery int    `toml:"stats_every" yaml:"stats_every" json:"stats_every"` // Seconds between persisted stats rows
	LogLevel   string `toml:"log_level" yaml:"log_level" json:"log_level"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Tuning:     DefaultTuning(),
		Width:      800,
		Height:     600,
		FPS:        60,
		DBPath:     "data/singularity.db",
		APIPort:    8080,
		StatsEvery: 10,
		LogLevel:   "info",
	}
}

// Load builds a Config from defaults, .env, the optional file at path and
// the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg.Sanitize(), nil
}

func (c *Config) decodeFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, c)
	case ".toml", "":
		err = toml.Unmarshal(buf, c)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%s parse failed: %w", path, err)
	}
	slog.Debug("config file loaded", "path", path)
	return nil
}

func (c *Config) applyEnv() error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"SINGULARITY_AGGRESSION", &c.Tuning.Aggression},
		{"SINGULARITY_GRAVITY_PULL", &c.Tuning.GravityPull},
		{"SINGULARITY_MOVEMENT_SPEED", &c.Tuning.MovementSpeed},
		{"SINGULARITY_WIDTH", &c.Width},
		{"SINGULARITY_HEIGHT", &c.Height},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = n
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SINGULARITY_FPS", &c.FPS},
		{"SINGULARITY_PORT", &c.APIPort},
		{"SINGULARITY_STATS_EVERY", &c.StatsEvery},
	}
	for _, f := range ints {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = n
		}
	}

	if v := os.Getenv("SINGULARITY_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SINGULARITY_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := os.Getenv("SINGULARITY_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SINGULARITY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.AdminKey = os.Getenv("SINGULARITY_ADMIN_KEY")
	c.RelayKey = os.Getenv("SINGULARITY_RELAY_KEY")
	c.RandomKey = os.Getenv("RANDOM_ORG_API_KEY")
	return nil
}

// Sanitize clamps every field into a usable range.
func (c Config) Sanitize() Config {
	d := Default()
	c.Tuning = c.Tuning.Sanitize()
	if c.Width < 100 {
		c.Width = d.Width
	}
	if c.Height < 100 {
		c.Height = d.Height
	}
	if c.FPS <= 0 || c.FPS > 240 {
		c.FPS = d.FPS
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		c.APIPort = d.APIPort
	}
	if c.StatsEvery <= 0 {
		c.StatsEvery = d.StatsEvery
	}
	return c
}

// Bounds returns the playfield described by the configuration.
func (c Config) Bounds() world.Bounds {
	return world.Bounds{Width: c.Width, Height: c.Height}
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
