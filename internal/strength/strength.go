// Package strength collapses a team's rating and match-day context into one
// effective strength scalar.
package strength

import "github.com/talgya/pitchside/internal/domain"

const (
	minHomeAdvantage = 1.0
	maxHomeAdvantage = 1.15
	minStrength      = 1e-3
)

// Input is everything the strength model reads.
type Input struct {
	Rating        float64
	Home          bool
	HomeAdvantage float64 // Ignored when Home is false
	WeatherImpact float64
	Chemistry     float64 // 0-100
	Morale        float64 // 0-100
}

// HomeAdvantage derives the home multiplier from stadium capacity, capped to [1.0, 1.15].
func HomeAdvantage(capacity int) float64 {
	adv := 1 + float64(capacity)/1_000_000
	return max(minHomeAdvantage, min(maxHomeAdvantage, adv))
}

// Effective computes
// rating × homeAdvantage × weather × (0.9 + 0.2·chem/100) × (0.95 + 0.1·morale/100).
func Effective(in Input) float64 {
	home := 1.0
	if in.Home {
		home = max(minHomeAdvantage, min(maxHomeAdvantage, in.HomeAdvantage))
	}
	weather := in.WeatherImpact
	if weather <= 0 {
		weather = 1
	}
	chem := clamp100(in.Chemistry)
	morale := clamp100(in.Morale)

	s := in.Rating * home * weather * (0.9 + 0.2*chem/100) * (0.95 + 0.1*morale/100)
	return max(minStrength, s)
}

// ForTeam is Effective for a domain team.
func ForTeam(t domain.Team, home bool, weatherImpact float64) float64 {
	return Effective(Input{
		Rating:        t.Rating,
		Home:          home,
		HomeAdvantage: HomeAdvantage(t.StadiumCapacity),
		WeatherImpact: weatherImpact,
		Chemistry:     t.Chemistry,
		Morale:        t.Morale,
	})
}

func clamp100(v float64) float64 {
	return max(0, min(100, v))
}
