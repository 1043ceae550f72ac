// Package config loads matchsim settings from PITCHSIDE_* environment
// variables, with an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/logger"
	"github.com/talgya/pitchside/internal/session"
)

// Prefix is prepended to every environment variable name.
const Prefix = "PITCHSIDE_"

// Config is the full runtime configuration of the matchsim binary.
type Config struct {
	ConfigFile string `env:"CONFIG" yaml:"-"`

	Port        int           `env:"PORT" envDefault:"8080" yaml:"port" validate:"min=1,max=65535"`
	AdminKey    string        `env:"ADMIN_KEY" yaml:"admin_key"`
	CORSOrigins []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:"," yaml:"cors_origins"`
	QuickLimit  int           `env:"QUICK_LIMIT" envDefault:"60" yaml:"quick_limit" validate:"gte=0"` // Quick simulations per client per minute; zero disables
	DBPath      string        `env:"DB_PATH" envDefault:"data/pitchside.db" yaml:"db_path"`
	SaveEvery   time.Duration `env:"SAVE_EVERY" envDefault:"30s" yaml:"save_every" validate:"gte=0"`
	PresetsPath string        `env:"PRESETS_PATH" yaml:"presets_path"`

	Match      MatchConfig       `envPrefix:"MATCH_" yaml:"match"`
	Checkpoint checkpoint.Config `envPrefix:"CHECKPOINT_" yaml:"checkpoint"`
	Weather    WeatherConfig     `envPrefix:"WEATHER_" yaml:"weather"`
	Log        logger.Config     `envPrefix:"LOG_" yaml:"log"`
}

// MatchConfig controls how matches are simulated.
type MatchConfig struct {
	Mode         string        `env:"MODE" envDefault:"detailed" yaml:"mode" validate:"oneof=detailed streaming"`
	Seed         uint64        `env:"SEED" yaml:"seed"` // Zero draws a fresh seed per match
	Speed        float64       `env:"SPEED" envDefault:"1" yaml:"speed" validate:"gte=0.25,lte=8"`
	BaseInterval time.Duration `env:"BASE_INTERVAL" envDefault:"1s" yaml:"base_interval" validate:"gt=0"`
	StartPaused  bool          `env:"START_PAUSED" yaml:"start_paused"`
	Buffer       int           `env:"SUBSCRIBER_BUFFER" envDefault:"64" yaml:"subscriber_buffer" validate:"min=1"`
	AutoStart    bool          `env:"AUTO_START" envDefault:"true" yaml:"auto_start"` // Start a demo fixture on boot
}

// WeatherConfig configures the optional OpenWeatherMap lookup at kickoff.
type WeatherConfig struct {
	APIKey   string `env:"API_KEY" yaml:"api_key"`
	Location string `env:"LOCATION" envDefault:"London,GB" yaml:"location"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return Parse(env.ToMap(os.Environ()))
}

// Parse builds a Config from an explicit environment. When PITCHSIDE_CONFIG
// names a YAML file, values set in that file replace the environment's.
func Parse(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix, Environment: environ})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ConfigFile != "" {
		if err := cfg.overlay(cfg.ConfigFile); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks every bound, including the nested checkpoint config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	return c.Checkpoint.Validate()
}

// Variant maps the configured mode to the event model variant.
func (c Config) Variant() engine.Variant {
	if strings.EqualFold(c.Match.Mode, "streaming") {
		return engine.Streaming
	}
	return engine.Detailed
}

// Session derives the session manager configuration.
func (c Config) Session() session.Config {
	return session.Config{
		Variant: c.Variant(),
		Live: engine.LiveConfig{
			BaseInterval: c.Match.BaseInterval,
			Speed:        c.Match.Speed,
			Buffer:       c.Match.Buffer,
			StartPaused:  c.Match.StartPaused,
		},
		Checkpoints: c.Checkpoint,
		Seed:        c.Match.Seed,
		Buffer:      c.Match.Buffer,
	}
}
