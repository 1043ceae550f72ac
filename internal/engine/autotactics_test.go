package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/pitchside/internal/tactics"
)

func TestTriage(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want Situation
	}{
		{"level early", Observation{Minute: 20, Momentum: 50}, Steady},
		{"behind late", Observation{Minute: 70, GoalDiff: -1, Momentum: 50}, Chasing},
		{"behind early", Observation{Minute: 30, GoalDiff: -1, Momentum: 50}, Steady},
		{"ahead late", Observation{Minute: 80, GoalDiff: 2, Momentum: 50}, Protecting},
		{"down a man", Observation{Minute: 40, Momentum: 50, RedCardsFor: 1}, Shorthanded},
		{"pinned back", Observation{Minute: 40, Momentum: 20}, UnderPressure},
		{"dominant late", Observation{Minute: 65, Momentum: 80}, OnTop},
		{"dominant early", Observation{Minute: 25, Momentum: 80}, Steady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Triage(tt.obs))
		})
	}
}

func TestDecide(t *testing.T) {
	base := tactics.Default(tactics.F442)

	d := Decide(Observation{Minute: 70, GoalDiff: -1, Momentum: 50, Setup: base})
	assert.Equal(t, ActionAdjust, d.Action)
	assert.Equal(t, tactics.Attacking, d.Setup.Mentality)
	assert.Equal(t, 60, d.Setup.Pressing)
	assert.Equal(t, 60, d.Setup.Tempo)
	assert.Equal(t, tactics.Balanced, base.Mentality, "input setup untouched")

	d = Decide(Observation{Minute: 85, GoalDiff: 1, Momentum: 50, Setup: base})
	assert.Equal(t, tactics.Defensive, d.Setup.Mentality)
	assert.Equal(t, 40, d.Setup.Tempo)

	parked := base.WithMentality(tactics.UltraDefensive)
	parked.Tempo = 20
	d = Decide(Observation{Minute: 85, GoalDiff: 1, Momentum: 50, Setup: parked})
	assert.Equal(t, ActionNone, d.Action, "already as defensive as protection goes")

	d = Decide(Observation{Minute: 20, Momentum: 50, Setup: base})
	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, Steady, d.Situation)

	maxed := base.WithMentality(tactics.UltraAttacking)
	maxed.Pressing, maxed.Tempo = 95, 95
	d = Decide(Observation{Minute: 88, GoalDiff: -2, Momentum: 50, Setup: maxed})
	assert.Equal(t, ActionNone, d.Action)
}
