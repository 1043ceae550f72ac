// Package logger builds the zerolog logger used by every component.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config controls log level, output format and static service fields.
type Config struct {
	Level          string `env:"LEVEL" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format         string `env:"FORMAT" yaml:"format" validate:"omitempty,oneof=json console"`
	Env            string `env:"ENV" yaml:"env" validate:"omitempty,oneof=dev staging prod"`
	ServiceName    string `env:"SERVICE_NAME" yaml:"service_name"`
	ServiceVersion string `env:"SERVICE_VERSION" yaml:"service_version"`
	WithCaller     bool   `env:"WITH_CALLER" yaml:"with_caller"`
}

// New returns a logger writing to stdout (json) or stderr (console).
func New(cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(cfg, nil)
}

// NewWithWriter is New with an explicit destination; a nil writer picks the
// default for the configured format.
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	cfg.setDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config validation error: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if w == nil {
		w = os.Stdout
		if cfg.Format == "console" {
			w = os.Stderr
		}
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.ServiceVersion).
		Str("env", cfg.Env).
		Logger()

	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger, nil
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.ServiceName == "" {
		c.ServiceName = "pitchside"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.1.0"
	}
}
