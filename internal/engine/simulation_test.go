package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

func testFixture() Fixture {
	return Fixture{
		MatchID:   "m1",
		Home:      domain.SampleTeam("ars", "Arsenal", 82, 60000),
		Away:      domain.SampleTeam("che", "Chelsea", 78, 40000),
		Weather:   weather.Weather{Condition: weather.Clear, TempC: 14},
		KickoffAt: time.Date(2026, 4, 11, 15, 0, 0, 0, time.UTC),
	}
}

func newSim(t *testing.T, seed uint64) *Simulation {
	t.Helper()
	sim, err := NewSimulation(testFixture(), Detailed, entropy.NewSeeded(seed), zerolog.Nop())
	require.NoError(t, err)
	return sim
}

func countType(events []match.Event, typ match.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestSameSeedSameMatch(t *testing.T) {
	a, err := newSim(t, 42).RunToEnd(nil)
	require.NoError(t, err)
	b, err := newSim(t, 42).RunToEnd(nil)
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot, b.Snapshot)
}

func TestFullMatchInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		sim := newSim(t, seed)
		var minutes []int
		_, err := sim.RunToEnd(func(tk Tick) {
			minutes = append(minutes, tk.Snapshot.Minute)
		})
		require.NoError(t, err)

		s := sim.Snapshot()
		require.NoError(t, s.CheckInvariants(), "seed %d", seed)
		assert.True(t, s.Completed)
		assert.Equal(t, match.PhaseCompleted, s.Phase)
		assert.GreaterOrEqual(t, s.Minute, 90)
		assert.LessOrEqual(t, s.Minute, 95)
		assert.Equal(t, s.FullTimeMinute, s.Minute)
		assert.IsNonDecreasing(t, minutes)

		assert.Equal(t, 2, countType(s.Events, match.EventKickoff))
		assert.Equal(t, 1, countType(s.Events, match.EventHalfTime))
		assert.Equal(t, 1, countType(s.Events, match.EventFullTime))

		last := 0
		seen := map[string]bool{}
		homeGoals, awayGoals := 0, 0
		for _, e := range s.Events {
			assert.GreaterOrEqual(t, e.Minute, last)
			last = e.Minute
			assert.False(t, seen[e.ID], "duplicate event id %s", e.ID)
			seen[e.ID] = true
		}
		for _, p := range s.Performances {
			if p.TeamID == "ars" {
				homeGoals += p.Goals
			} else {
				awayGoals += p.Goals
			}
			assert.GreaterOrEqual(t, p.Rating, 1.0)
			assert.LessOrEqual(t, p.Rating, 10.0)
		}
		assert.Equal(t, s.HomeGoals, homeGoals)
		assert.Equal(t, s.AwayGoals, awayGoals)
		assert.GreaterOrEqual(t, s.Stats.Home.Shots, s.Stats.Home.ShotsOnTarget)
		assert.InDelta(t, 100, s.Stats.Home.Possession+s.Stats.Away.Possession, 1e-9)
	}
}

func TestRunToValidatesMinute(t *testing.T) {
	sim := newSim(t, 7)

	_, err := sim.RunTo(200, nil)
	assert.ErrorIs(t, err, simerr.ErrValidation)
	_, err = sim.RunTo(-1, nil)
	assert.ErrorIs(t, err, simerr.ErrValidation)
	assert.False(t, sim.Snapshot().Started(), "rejected jump must not kick off")

	tk, err := sim.RunTo(30, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, tk.Snapshot.Minute)
	assert.Equal(t, match.PhaseFirstHalf, tk.Snapshot.Phase)

	_, err = sim.RunTo(10, nil)
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	assert.Equal(t, 30, sim.Snapshot().Minute)
}

func TestRunToStopsAtFullTime(t *testing.T) {
	sim := newSim(t, 3)
	tk, err := sim.RunTo(120, nil)
	require.NoError(t, err)
	assert.True(t, tk.Snapshot.Completed)
	assert.LessOrEqual(t, tk.Snapshot.Minute, 95)

	_, err = sim.Step()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
}

func TestHalfTimeTransition(t *testing.T) {
	sim := newSim(t, 11)
	tk, err := sim.RunTo(45, nil)
	require.NoError(t, err)
	assert.Equal(t, match.PhaseHalfTime, tk.Snapshot.Phase)

	tk, err = sim.Step()
	require.NoError(t, err)
	assert.Equal(t, 46, tk.Snapshot.Minute)
	assert.Equal(t, match.PhaseSecondHalf, tk.Snapshot.Phase)
	require.NotEmpty(t, tk.Events)
	assert.Equal(t, match.EventKickoff, tk.Events[0].Type)
}

func TestStartLifecycle(t *testing.T) {
	sim := newSim(t, 1)
	_, err := sim.Step()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	tk, err := sim.Start()
	require.NoError(t, err)
	require.Len(t, tk.Events, 1)
	assert.Equal(t, match.EventKickoff, tk.Events[0].Type)
	assert.Equal(t, 0, tk.Snapshot.Minute)

	_, err = sim.Start()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
}

func TestApplyTactics(t *testing.T) {
	sim := newSim(t, 5)
	_, err := sim.Start()
	require.NoError(t, err)
	before := sim.Snapshot()

	_, err = sim.ApplyTactics("nobody", tactics.Default(tactics.F433), "tactics")
	assert.ErrorIs(t, err, simerr.ErrNotFound)

	bad := tactics.Default(tactics.F442)
	bad.Pressing = 150
	_, err = sim.ApplyTactics("ars", bad, "tactics")
	require.ErrorIs(t, err, simerr.ErrValidation)
	assert.Contains(t, simerr.Fields(err), "pressing")
	assert.Equal(t, before, sim.Snapshot())

	tk, err := sim.ChangeFormation("che", tactics.F532)
	require.NoError(t, err)
	require.Len(t, tk.Events, 1)
	assert.Equal(t, match.EventTacticalChange, tk.Events[0].Type)
	assert.Equal(t, tactics.F532, tk.Snapshot.AwayTactics.Formation)
	assert.Equal(t, before.HomeTactics, tk.Snapshot.HomeTactics)
}

func TestSetPlayerInstructionsRequiresSquadPlayer(t *testing.T) {
	sim := newSim(t, 5)
	in := tactics.Instruction{Role: "get_forward", Pressing: 70, Freedom: 60}

	_, err := sim.SetPlayerInstructions("ars", "che-p09", in)
	assert.ErrorIs(t, err, simerr.ErrNotFound)

	tk, err := sim.SetPlayerInstructions("ars", "ars-p09", in)
	require.NoError(t, err)
	assert.Equal(t, in, tk.Snapshot.HomeTactics.Instructions["ars-p09"])
}

func TestTacticsRejectedAfterFullTime(t *testing.T) {
	sim := newSim(t, 9)
	_, err := sim.RunToEnd(nil)
	require.NoError(t, err)

	_, err = sim.SetMatchIntensity("ars", tactics.IntensityHigh)
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
}

func TestAutomaticTacticsReactToScore(t *testing.T) {
	sim := newSim(t, 21)
	_, err := sim.EnableAutomaticTactics("ars", true)
	require.NoError(t, err)
	_, err = sim.RunTo(59, nil)
	require.NoError(t, err)

	s := sim.Snapshot()
	goal := match.Event{ID: "g-test", Type: match.EventGoal, TeamID: "che",
		Payload: match.GoalPayload{Side: match.Away, HomeScore: s.HomeGoals, AwayScore: s.AwayGoals + 1}}
	for s.HomeGoals >= s.AwayGoals-1 {
		s = s.WithEvent(goal)
	}
	sim.snap = s

	tk, err := sim.Step()
	require.NoError(t, err)
	changes := 0
	for _, e := range tk.Events {
		if e.Type == match.EventTacticalChange && e.TeamID == "ars" {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Greater(t, tk.Snapshot.HomeTactics.Mentality.Level(), tactics.Balanced.Level()-1)
}

func TestResumeSimulationChecksTeams(t *testing.T) {
	sim := newSim(t, 2)
	_, err := sim.RunTo(20, nil)
	require.NoError(t, err)

	f := testFixture()
	f.Away = domain.SampleTeam("tot", "Tottenham", 75, 62000)
	_, err = ResumeSimulation(sim.Snapshot(), f, Streaming, entropy.NewSeeded(1), zerolog.Nop())
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	resumed, err := ResumeSimulation(sim.Snapshot(), testFixture(), Streaming, entropy.NewSeeded(1), zerolog.Nop())
	require.NoError(t, err)
	tk, err := resumed.Step()
	require.NoError(t, err)
	assert.Equal(t, 21, tk.Snapshot.Minute)
}

func TestLineupDropsRedCardsAndSubstitutes(t *testing.T) {
	team := domain.SampleTeam("ars", "Arsenal", 80, 60000)
	s := match.New("m", "ars", "che", weather.Weather{}, time.Time{}, tactics.Default(tactics.F442), tactics.Default(tactics.F442))

	l := lineupOf(team, s)
	assert.Len(t, l.active, 11)
	assert.Len(t, l.bench, 4)

	s = s.Apply(match.Commit{
		Event:        &match.Event{ID: "r", Type: match.EventRedCard, TeamID: "ars", Payload: match.CardPayload{Side: match.Home, Red: true}},
		Stats:        map[match.Side]match.SideStats{match.Home: {RedCards: 1}},
		Performances: []match.PerformanceDelta{{PlayerID: "ars-p02", TeamID: "ars", RedCards: 1}},
	})
	s = s.WithEvent(match.Event{ID: "s", Type: match.EventSubstitution, TeamID: "ars",
		Payload: match.SubstitutionPayload{Side: match.Home, OffID: "ars-p09", OnID: "ars-p15"}})

	l = lineupOf(team, s)
	ids := make([]string, 0, len(l.active))
	for _, p := range l.active {
		ids = append(ids, p.ID)
	}
	assert.Len(t, l.active, 10)
	assert.NotContains(t, ids, "ars-p02")
	assert.NotContains(t, ids, "ars-p09")
	assert.Contains(t, ids, "ars-p15")
	assert.Len(t, l.bench, 3)

	m := NewModel(Detailed, entropy.NewSeeded(1), team, domain.SampleTeam("che", "Chelsea", 80, 0), 1)
	assert.InDelta(t, 0.9*m.Strength(match.New("m", "ars", "che", weather.Weather{}, time.Time{}, tactics.Setup{}, tactics.Setup{}), match.Home),
		m.Strength(s, match.Home), 1e-9)
}

func TestFixtureValidation(t *testing.T) {
	f := testFixture()
	f.Away = f.Home
	_, err := NewSimulation(f, Detailed, entropy.NewSeeded(1), zerolog.Nop())
	assert.ErrorIs(t, err, simerr.ErrValidation)

	f = testFixture()
	bad := tactics.Default(tactics.F442)
	bad.Mentality = "reckless"
	f.HomeTactics = &bad
	_, err = NewSimulation(f, Detailed, entropy.NewSeeded(1), zerolog.Nop())
	assert.ErrorIs(t, err, simerr.ErrValidation)
}
