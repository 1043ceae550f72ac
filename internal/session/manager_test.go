package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

func testFixture() engine.Fixture {
	return engine.Fixture{
		MatchID:   "m1",
		Home:      domain.SampleTeam("ars", "Arsenal", 82, 60000),
		Away:      domain.SampleTeam("che", "Chelsea", 78, 40000),
		Weather:   weather.Weather{Condition: weather.Clear, TempC: 18},
		KickoffAt: time.Date(2026, 5, 2, 17, 30, 0, 0, time.UTC),
	}
}

func newManager(t *testing.T, mutate ...func(*Config)) *Manager {
	t.Helper()
	cfg := Config{
		Variant:     engine.Detailed,
		Live:        engine.LiveConfig{BaseInterval: time.Hour, Speed: 1, StartPaused: true},
		Checkpoints: checkpoint.DefaultConfig(),
		Seed:        42,
		Buffer:      4096,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	m, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(m.Dispose)
	return m
}

func waitFor(t *testing.T, ch <-chan Update, pred func(Update) bool) Update {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			require.True(t, ok, "update stream closed")
			if pred(u) {
				return u
			}
		case <-timeout:
			t.Fatal("timed out waiting for update")
			return Update{}
		}
	}
}

func triggers(cps []checkpoint.Checkpoint) []checkpoint.Trigger {
	out := make([]checkpoint.Trigger, 0, len(cps))
	for _, cp := range cps {
		out = append(out, cp.Trigger)
	}
	return out
}

func TestStartMatchTwiceFails(t *testing.T) {
	m := newManager(t)

	initial, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	assert.Equal(t, match.PhaseNotStarted, initial.Phase)
	assert.Equal(t, tactics.Balanced, initial.HomeTactics.Mentality)
	assert.Equal(t, tactics.Balanced, initial.AwayTactics.Mentality)

	_, err = m.StartMatch(testFixture())
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	cps := m.Checkpoints()
	require.Len(t, cps, 1)
	assert.Equal(t, "Match Start", cps[0].Name)
	assert.Equal(t, checkpoint.TriggerMatchStart, cps[0].Trigger)
	assert.Equal(t, engine.StatePaused, m.Status().State)
}

func TestCommandsWithoutSessionFail(t *testing.T) {
	m := newManager(t)
	assert.ErrorIs(t, m.Pause(), simerr.ErrInvalidState)
	assert.ErrorIs(t, m.ChangeFormation("ars", tactics.F433), simerr.ErrInvalidState)
	_, err := m.EndMatch()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	_, err = m.CreateCheckpoint("x", "")
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	_, err = m.Snapshot()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	assert.Equal(t, engine.StateIdle, m.Status().State)
}

func TestSkipToEndStreamsUpdatesAndCheckpoints(t *testing.T) {
	m := newManager(t)
	_, updates := m.Subscribe()

	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.SkipToEnd())

	var last uint64
	final := waitFor(t, updates, func(u Update) bool {
		assert.Greater(t, u.Meta.Sequence, last)
		last = u.Meta.Sequence
		if u.Event != nil {
			if u.Event.Type == match.EventMomentumShift {
				assert.Nil(t, u.Commentary)
			} else {
				require.NotNil(t, u.Commentary)
				assert.Equal(t, u.Event.ID, u.Commentary.EventID)
			}
		}
		return u.Event != nil && u.Event.Type == match.EventFullTime
	})

	assert.True(t, final.Snapshot.Completed)
	assert.NotEmpty(t, final.Meta.CheckpointID, "full time checkpoint recorded")
	assert.Equal(t, engine.StateCompleted, m.Status().State)

	got := triggers(m.Checkpoints())
	assert.Contains(t, got, checkpoint.TriggerMatchStart)
	assert.Contains(t, got, checkpoint.TriggerHalfTime)
	assert.Contains(t, got, checkpoint.TriggerFullTime)
	assert.NotContains(t, got, checkpoint.TriggerTacticalChange)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	require.NoError(t, snap.CheckInvariants())
	require.NotNil(t, snap.Result)
}

func TestTacticalChangeTriggersCheckpoint(t *testing.T) {
	m := newManager(t, func(c *Config) { c.Checkpoints.Triggers.TacticalChange = true })
	_, updates := m.Subscribe()

	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.ChangeFormation("che", tactics.F352))

	u := waitFor(t, updates, func(u Update) bool {
		return u.Event != nil && u.Event.Type == match.EventTacticalChange
	})
	require.NotEmpty(t, u.Meta.CheckpointID)
	cp, err := m.Checkpoint(u.Meta.CheckpointID)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.TriggerTacticalChange, cp.Trigger)
	assert.Equal(t, tactics.F352, cp.Snapshot.AwayTactics.Formation)

	assert.ErrorIs(t, m.ChangeFormation("liv", tactics.F352), simerr.ErrNotFound)
}

func TestRestoreRewindsToCheckpoint(t *testing.T) {
	m := newManager(t)
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)

	require.NoError(t, m.JumpToMinute(30))
	cp, err := m.CreateCheckpoint("thirty", "before the second half push")
	require.NoError(t, err)
	assert.Equal(t, 30, cp.Minute)

	require.NoError(t, m.JumpToMinute(70))
	_, updates := m.Subscribe()

	snap, err := m.Restore(cp.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.Minute)

	u := waitFor(t, updates, func(u Update) bool { return u.Meta.CheckpointID == cp.ID })
	assert.Equal(t, 30, u.Snapshot.Minute)
	assert.Nil(t, u.Event)

	st := m.Status()
	assert.Equal(t, 30, st.Minute)
	assert.Equal(t, engine.StatePaused, st.State)

	require.NoError(t, m.JumpToMinute(40))
	cur, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 40, cur.Minute)

	_, err = m.Restore("nope")
	assert.ErrorIs(t, err, simerr.ErrNotFound)
}

func TestRestoreMatchStartReplaysKickoff(t *testing.T) {
	m := newManager(t)
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.JumpToMinute(20))

	start := m.Checkpoints()[0]
	require.Equal(t, checkpoint.TriggerMatchStart, start.Trigger)
	_, err = m.Restore(start.ID)
	require.NoError(t, err)

	cur, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0, cur.Minute)
	assert.Equal(t, match.PhaseFirstHalf, cur.Phase)
	require.Len(t, cur.Events, 1)
	assert.Equal(t, match.EventKickoff, cur.Events[0].Type)
}

func TestEndMatchBeforeCompletion(t *testing.T) {
	m := newManager(t)
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.JumpToMinute(25))

	snap, err := m.EndMatch()
	require.NoError(t, err)
	assert.False(t, snap.Completed)
	assert.False(t, m.Active())

	cps := m.Checkpoints()
	final := cps[len(cps)-1]
	assert.Equal(t, checkpoint.TriggerFinal, final.Trigger)
	assert.Equal(t, 25, final.Minute)

	assert.ErrorIs(t, m.Resume(), simerr.ErrInvalidState)
	_, err = m.EndMatch()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	// Checkpoints and the last state stay readable until the next session.
	b, err := m.Export()
	require.NoError(t, err)
	assert.Equal(t, 25, b.State.Minute)

	_, err = m.StartMatch(testFixture())
	require.NoError(t, err)
	assert.Equal(t, []checkpoint.Trigger{checkpoint.TriggerMatchStart}, triggers(m.Checkpoints()))
}

func TestEndMatchAfterCompletionSkipsFinal(t *testing.T) {
	m := newManager(t)
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.SkipToEnd())

	snap, err := m.EndMatch()
	require.NoError(t, err)
	assert.True(t, snap.Completed)
	assert.NotContains(t, triggers(m.Checkpoints()), checkpoint.TriggerFinal)
}

func TestExportImport(t *testing.T) {
	m := newManager(t)
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)
	require.NoError(t, m.JumpToMinute(20))
	_, err = m.CreateCheckpoint("twenty", "")
	require.NoError(t, err)

	exported, err := m.Export()
	require.NoError(t, err)
	data, err := exported.Marshal()
	require.NoError(t, err)

	require.NoError(t, m.JumpToMinute(60))

	got, err := m.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 20, got.State.Minute)
	assert.Equal(t, got.Checkpoints, m.Checkpoints())

	cur, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 20, cur.Minute)
	assert.Equal(t, exported.State.HomeGoals, cur.HomeGoals)
	assert.Equal(t, engine.StatePaused, m.Status().State)

	_, err = m.Import([]byte(`{"state":{}}`))
	assert.ErrorIs(t, err, simerr.ErrFormat)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["state"].(map[string]any)["home_team_id"] = "liv"
	foreign, err := json.Marshal(raw)
	require.NoError(t, err)
	_, err = m.Import(foreign)
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	cur, err = m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 20, cur.Minute, "failed import leaves the session alone")
}

func TestDisposeIsIdempotent(t *testing.T) {
	m := newManager(t)
	_, updates := m.Subscribe()
	_, cps := m.SubscribeCheckpoints()
	_, err := m.StartMatch(testFixture())
	require.NoError(t, err)

	m.Dispose()
	m.Dispose()

	for range updates {
	}
	for range cps {
	}
	_, err = m.StartMatch(testFixture())
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	assert.ErrorIs(t, m.Pause(), simerr.ErrInvalidState)
	assert.Equal(t, engine.StateDisposed, m.Status().State)
	assert.Empty(t, m.Checkpoints())
}
