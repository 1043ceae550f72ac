package strength

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/pitchside/internal/domain"
)

func TestEffectiveFormula(t *testing.T) {
	got := Effective(Input{
		Rating:        80,
		Home:          true,
		HomeAdvantage: 1.05,
		WeatherImpact: 0.95,
		Chemistry:     50,
		Morale:        100,
	})
	want := 80 * 1.05 * 0.95 * 1.0 * 1.05
	assert.InDelta(t, want, got, 1e-9)
}

func TestEffectiveIgnoresAdvantageAway(t *testing.T) {
	away := Effective(Input{Rating: 70, HomeAdvantage: 1.15, WeatherImpact: 1, Chemistry: 50, Morale: 50})
	home := Effective(Input{Rating: 70, Home: true, HomeAdvantage: 1.15, WeatherImpact: 1, Chemistry: 50, Morale: 50})
	assert.InDelta(t, 1.15, home/away, 1e-9)
}

func TestEffectiveAlwaysPositive(t *testing.T) {
	assert.Greater(t, Effective(Input{}), 0.0)
	assert.Greater(t, Effective(Input{Rating: -5, WeatherImpact: -1, Chemistry: -40, Morale: 400}), 0.0)
}

func TestHomeAdvantageCapped(t *testing.T) {
	assert.Equal(t, 1.0, HomeAdvantage(0))
	assert.InDelta(t, 1.06, HomeAdvantage(60000), 1e-9)
	assert.Equal(t, 1.15, HomeAdvantage(5_000_000))
	assert.Equal(t, 1.0, HomeAdvantage(-100))
}

func TestForTeam(t *testing.T) {
	team := domain.SampleTeam("tot", "Tottenham", 75, 62000)
	assert.Greater(t, ForTeam(team, true, 1), ForTeam(team, false, 1))
}
