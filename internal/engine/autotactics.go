package engine

import (
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/tactics"
)

// AutoTacticsEvery is how often, in minutes, the automatic manager reviews.
const AutoTacticsEvery = 5

// Observation is what the automatic manager sees for one side.
type Observation struct {
	Side            match.Side
	Minute          int
	GoalDiff        int     // Own goals minus opponent goals
	Momentum        float64 // Own momentum reading, 0-100
	RedCardsFor     int
	RedCardsAgainst int
	Setup           tactics.Setup
}

// Observe reads the snapshot from side's point of view.
func Observe(s match.Snapshot, side match.Side) Observation {
	own, opp := s.HomeGoals, s.AwayGoals
	mom := s.Momentum.Home
	if side == match.Away {
		own, opp = opp, own
		mom = s.Momentum.Away
	}
	return Observation{
		Side:            side,
		Minute:          s.Minute,
		GoalDiff:        own - opp,
		Momentum:        mom,
		RedCardsFor:     s.Stats.Side(side).RedCards,
		RedCardsAgainst: s.Stats.Side(side.Opponent()).RedCards,
		Setup:           s.Tactics(side),
	}
}

// Situation is the triaged match state.
type Situation string

const (
	Chasing       Situation = "CHASING"
	Protecting    Situation = "PROTECTING"
	Shorthanded   Situation = "SHORTHANDED"
	UnderPressure Situation = "UNDER_PRESSURE"
	OnTop         Situation = "ON_TOP"
	Steady        Situation = "STEADY"
)

// Triage classifies an observation. Earlier rules win.
func Triage(o Observation) Situation {
	switch {
	case o.GoalDiff < 0 && o.Minute >= 60:
		return Chasing
	case o.GoalDiff > 0 && o.Minute >= 75:
		return Protecting
	case o.RedCardsFor > o.RedCardsAgainst:
		return Shorthanded
	case o.GoalDiff == 0 && o.Momentum < 35:
		return UnderPressure
	case o.GoalDiff == 0 && o.Momentum > 65 && o.Minute >= 60:
		return OnTop
	default:
		return Steady
	}
}

// Action is what the manager chose to do.
type Action string

const (
	ActionNone   Action = "none"
	ActionAdjust Action = "adjust"
)

// Decision is the manager's recommendation.
type Decision struct {
	Action    Action
	Situation Situation
	Rationale string
	Setup     tactics.Setup
}

// Decide maps a situation to at most one incremental adjustment. No
// decision is made when the adjustment would not change anything.
func Decide(o Observation) Decision {
	sit := Triage(o)
	cur := o.Setup
	next := cur.Clone()
	var why string

	switch sit {
	case Chasing:
		next.Mentality = cur.Mentality.Shift(1)
		next.Pressing = raise(cur.Pressing, 90)
		next.Tempo = raise(cur.Tempo, 90)
		why = "chasing the game"
	case Protecting:
		next.Mentality = stepDown(cur.Mentality, tactics.Defensive)
		next.Tempo = lower(cur.Tempo, 30)
		why = "protecting the lead"
	case Shorthanded:
		next.Mentality = stepDown(cur.Mentality, tactics.Defensive)
		next.Width = lower(cur.Width, 30)
		why = "down to fewer players"
	case UnderPressure:
		next.Mentality = stepDown(cur.Mentality, tactics.Defensive)
		next.Pressing = lower(cur.Pressing, 30)
		why = "riding out pressure"
	case OnTop:
		next.Mentality = stepUp(cur.Mentality, tactics.Attacking)
		why = "pressing the advantage"
	}

	if sit == Steady || sameShape(cur, next) {
		return Decision{Action: ActionNone, Situation: sit, Setup: cur}
	}
	return Decision{Action: ActionAdjust, Situation: sit, Rationale: why, Setup: next}
}

// stepDown lowers m one step unless it is already at or below floor.
func stepDown(m, floor tactics.Mentality) tactics.Mentality {
	if m.Level() <= floor.Level() {
		return m
	}
	return m.Shift(-1)
}

func stepUp(m, ceiling tactics.Mentality) tactics.Mentality {
	if m.Level() >= ceiling.Level() {
		return m
	}
	return m.Shift(1)
}

// raise adds 10 without passing ceiling; values already above it stay put.
func raise(v, ceiling int) int {
	return max(v, min(ceiling, v+10))
}

func lower(v, floor int) int {
	return min(v, max(floor, v-10))
}

func sameShape(a, b tactics.Setup) bool {
	return a.Mentality == b.Mentality &&
		a.Pressing == b.Pressing &&
		a.Tempo == b.Tempo &&
		a.Width == b.Width
}
