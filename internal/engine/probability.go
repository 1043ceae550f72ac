package engine

import (
	"github.com/talgya/pitchside/internal/tactics"
)

// Variant selects the momentum-shift law of the minute model.
type Variant uint8

const (
	Detailed  Variant = iota // Momentum deltas in ±15
	Streaming                // Momentum deltas in ±7.5, used by live sessions
)

// Base per-minute probabilities before phase and tactical scaling.
const (
	BaseShot              = 0.08
	BaseFoul              = 0.04
	BaseCard              = 0.01
	BaseCorner            = 0.02
	BaseInjury            = 0.005
	BaseTackle            = 0.03
	BaseOffside           = 0.01
	BaseMomentumDetailed  = 0.018
	BaseMomentumStreaming = 0.015

	maxProbability = 0.95
)

// Context is the per-minute input to the probability model.
type Context struct {
	Minute       int
	HomeStrength float64
	AwayStrength float64
	HomeTactics  tactics.Setup
	AwayTactics  tactics.Setup
}

// Probabilities are the independent per-category draws for one minute.
// Categories are not mutually exclusive: several may fire in the same minute.
type Probabilities struct {
	Shot     float64 `json:"shot"`
	Foul     float64 `json:"foul"`
	Card     float64 `json:"card"`
	Corner   float64 `json:"corner"`
	Injury   float64 `json:"injury"`
	Tackle   float64 `json:"tackle"`
	Offside  float64 `json:"offside"`
	Momentum float64 `json:"momentum"`
}

// PhaseIntensity is the time-of-match multiplier: livelier at the start and
// the end, quieter through the middle.
func PhaseIntensity(minute int) float64 {
	switch {
	case minute >= 1 && minute <= 15:
		return 1.2
	case minute >= 75:
		return 1.3
	case minute >= 30 && minute <= 60:
		return 0.8
	default:
		return 1.0
	}
}

// ComputeProbabilities derives the minute's category probabilities.
func ComputeProbabilities(ctx Context, v Variant) Probabilities {
	phase := PhaseIntensity(ctx.Minute)
	hm, am := tactics.Modifiers(ctx.HomeTactics), tactics.Modifiers(ctx.AwayTactics)

	meanAttack := (hm.Attacking + am.Attacking) / 2
	meanChance := (hm.ChanceCreation + am.ChanceCreation) / 2
	meanDefend := (hm.Defending + am.Defending) / 2
	meanPress := (tactics.PressingFactor(ctx.HomeTactics) + tactics.PressingFactor(ctx.AwayTactics)) / 2
	meanDirect := (directnessFactor(ctx.HomeTactics) + directnessFactor(ctx.AwayTactics)) / 2

	momentum := BaseMomentumDetailed
	if v == Streaming {
		momentum = BaseMomentumStreaming
	}

	return Probabilities{
		Shot:     capP(BaseShot * phase * meanAttack),
		Foul:     capP(BaseFoul * phase * meanPress),
		Card:     capP(BaseCard * phase * meanPress),
		Corner:   capP(BaseCorner * phase * meanChance),
		Injury:   capP(BaseInjury * phase),
		Tackle:   capP(BaseTackle * phase * meanDefend),
		Offside:  capP(BaseOffside * phase * meanDirect),
		Momentum: capP(momentum * phase),
	}
}

// MomentumRange is the half-width of the uniform momentum delta.
func (v Variant) MomentumRange() float64 {
	if v == Streaming {
		return 7.5
	}
	return 15
}

func directnessFactor(s tactics.Setup) float64 {
	return 0.5 + float64(s.Directness)/100
}

func capP(p float64) float64 {
	return max(0, min(maxProbability, p))
}
