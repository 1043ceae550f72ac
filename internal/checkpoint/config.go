package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/talgya/pitchside/internal/simerr"
)

// Config controls retention and which events trigger automatic checkpoints.
type Config struct {
	MaxCheckpoints int           `json:"maxCheckpoints" yaml:"max_checkpoints" env:"MAX" envDefault:"50" validate:"min=1,max=10000"`
	Retention      time.Duration `json:"retention" yaml:"retention" env:"RETENTION" envDefault:"2h" validate:"gte=0"` // Zero keeps checkpoints regardless of age
	Triggers       Triggers      `json:"triggers" yaml:"triggers" envPrefix:"TRIGGER_"`
}

// Triggers toggles automatic checkpoint creation per event class.
type Triggers struct {
	Goal           bool `json:"goal" yaml:"goal" env:"GOAL" envDefault:"true"`
	Card           bool `json:"card" yaml:"card" env:"CARD" envDefault:"true"`
	HalfTime       bool `json:"halfTime" yaml:"half_time" env:"HALF_TIME" envDefault:"true"`
	FullTime       bool `json:"fullTime" yaml:"full_time" env:"FULL_TIME" envDefault:"true"`
	TacticalChange bool `json:"tacticalChange" yaml:"tactical_change" env:"TACTICAL_CHANGE" envDefault:"false"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		MaxCheckpoints: 50,
		Retention:      2 * time.Hour,
		Triggers: Triggers{
			Goal:     true,
			Card:     true,
			HalfTime: true,
			FullTime: true,
		},
	}
}

var validate = validator.New()

// Validate checks the config bounds.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return simerr.Validation(err.Error())
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field()
	}
	return simerr.Validation(fmt.Sprintf("invalid checkpoint config: %v", err), fields...)
}

// Enabled reports whether t fires automatic checkpoints.
func (tr Triggers) Enabled(t Trigger) bool {
	switch t {
	case TriggerGoal:
		return tr.Goal
	case TriggerCard:
		return tr.Card
	case TriggerHalfTime:
		return tr.HalfTime
	case TriggerFullTime:
		return tr.FullTime
	case TriggerTacticalChange:
		return tr.TacticalChange
	case TriggerMatchStart, TriggerFinal:
		return true
	default:
		return false
	}
}
