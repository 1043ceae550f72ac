package engine

import (
	"math"

	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/strength"
	"github.com/talgya/pitchside/internal/tactics"
)

// BaseExpectedGoals is a side's expected goals when evenly matched.
const BaseExpectedGoals = 1.35

// QuickResult is the outcome of a one-shot simulation. It carries no event
// log; the score is drawn directly from expected goals.
type QuickResult struct {
	MatchID      string       `json:"match_id"`
	HomeTeamID   string       `json:"home_team_id"`
	AwayTeamID   string       `json:"away_team_id"`
	HomeGoals    int          `json:"home_goals"`
	AwayGoals    int          `json:"away_goals"`
	HomeExpected float64      `json:"home_expected"`
	AwayExpected float64      `json:"away_expected"`
	Result       match.Result `json:"result"`
	Seed         uint64       `json:"seed"`
}

// ExpectedGoals returns each side's Poisson mean: the base rate scaled by
// strength share (1.0 when even) and own attacking over opponent defending.
func ExpectedGoals(f Fixture) (home, away float64) {
	impact := f.Weather.PerformanceImpact()
	hs := strength.ForTeam(f.Home, true, impact)
	as := strength.ForTeam(f.Away, false, impact)
	hm := tactics.Modifiers(f.setup(match.Home))
	am := tactics.Modifiers(f.setup(match.Away))

	total := hs + as
	home = BaseExpectedGoals * (2 * hs / total) * hm.Attacking / am.Defending
	away = BaseExpectedGoals * (2 * as / total) * am.Attacking / hm.Defending
	return home, away
}

// Quick simulates a whole match in one draw. The same fixture and seed
// always give the same score.
func Quick(f Fixture, seed uint64) (QuickResult, error) {
	if err := f.Validate(); err != nil {
		return QuickResult{}, err
	}
	src := entropy.NewSeeded(seed)
	lh, la := ExpectedGoals(f)
	h, a := poisson(src, lh), poisson(src, la)
	return QuickResult{
		MatchID:      f.MatchID,
		HomeTeamID:   f.Home.ID,
		AwayTeamID:   f.Away.ID,
		HomeGoals:    h,
		AwayGoals:    a,
		HomeExpected: lh,
		AwayExpected: la,
		Result:       match.ResultFromScore(h, a),
		Seed:         seed,
	}, nil
}

// poisson draws from Poisson(lambda) by Knuth's multiplication method.
func poisson(src entropy.Source, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= src.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
