package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
)

func TestQuickIsDeterministic(t *testing.T) {
	f := testFixture()
	a, err := Quick(f, 1234)
	require.NoError(t, err)
	b, err := Quick(f, 1234)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, match.ResultFromScore(a.HomeGoals, a.AwayGoals), a.Result)
}

func TestQuickFavoursStrongerSide(t *testing.T) {
	f := testFixture()
	f.Home = domain.SampleTeam("big", "Big Club", 95, 80000)
	f.Away = domain.SampleTeam("small", "Small Club", 45, 5000)

	lh, la := ExpectedGoals(f)
	assert.Greater(t, lh, la)

	wins, losses := 0, 0
	for seed := uint64(0); seed < 500; seed++ {
		r, err := Quick(f, seed)
		require.NoError(t, err)
		switch r.Result {
		case match.HomeWin:
			wins++
		case match.AwayWin:
			losses++
		}
	}
	assert.Greater(t, wins, 2*losses)
}

func TestExpectedGoalsEvenMatch(t *testing.T) {
	f := testFixture()
	f.Home = domain.SampleTeam("a", "A", 80, 0)
	f.Away = domain.SampleTeam("b", "B", 80, 0)
	lh, la := ExpectedGoals(f)
	assert.InDelta(t, BaseExpectedGoals, lh, 1e-9)
	assert.InDelta(t, BaseExpectedGoals, la, 1e-9)
}

func TestQuickRejectsInvalidFixture(t *testing.T) {
	f := testFixture()
	f.Home.Players = nil
	_, err := Quick(f, 1)
	assert.ErrorIs(t, err, simerr.ErrValidation)
}

func TestPoissonMean(t *testing.T) {
	src := entropy.NewSeeded(99)
	const n = 20000
	sum := 0
	for range n {
		sum += poisson(src, 1.35)
	}
	assert.InDelta(t, 1.35, float64(sum)/n, 0.05)
	assert.Equal(t, 0, poisson(src, 0))
}
