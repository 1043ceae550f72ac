package checkpoint

import (
	"fmt"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
	"github.com/talgya/pitchside/internal/weather"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("cp-%03d", n)
	}
}

func snapshotAt(minute int) match.Snapshot {
	s := match.New("m1", "ars", "che", weather.Weather{Condition: weather.Cloudy, TempC: 9},
		time.Date(2026, 5, 2, 19, 45, 0, 0, time.UTC),
		tactics.Default(tactics.F442), tactics.Default(tactics.F4231))
	s, _ = s.AdvanceTo(minute, match.PhaseFirstHalf)
	return s
}

func newStore(t *testing.T, cfg Config, clock *fakeClock) (*Store, *match.Snapshot) {
	t.Helper()
	cur := snapshotAt(0)
	s, err := New(cfg, func() match.Snapshot { return cur }, WithClock(clock.Now), WithIDs(sequentialIDs()))
	require.NoError(t, err)
	return s, &cur
}

func TestCreateAndGet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 2, 19, 45, 0, 0, time.UTC)}
	s, cur := newStore(t, DefaultConfig(), clock)

	_, err := s.Create("  ", "")
	assert.ErrorIs(t, err, simerr.ErrValidation)

	*cur = snapshotAt(12)
	cp, err := s.Create("before the press", "pre-change baseline")
	require.NoError(t, err)
	assert.Equal(t, Manual, cp.Origin)
	assert.Equal(t, 12, cp.Minute)
	assert.Equal(t, "m1", cp.MatchID)

	got, err := s.Get(cp.ID)
	require.NoError(t, err)
	assert.Equal(t, cp, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, simerr.ErrNotFound)
	assert.ErrorIs(t, s.Remove("missing"), simerr.ErrNotFound)

	require.NoError(t, s.Remove(cp.ID))
	assert.Equal(t, 0, s.Len())
}

func TestCreateAutomaticRespectsTriggers(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	cfg := DefaultConfig()
	cfg.Triggers.Card = false
	s, _ := newStore(t, cfg, clock)

	cp, ok, err := s.CreateAutomatic(TriggerGoal, snapshotAt(33))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Goal", cp.Name)
	assert.Equal(t, Automatic, cp.Origin)
	assert.Equal(t, 33, cp.Snapshot.Minute)

	_, ok, err = s.CreateAutomatic(TriggerCard, snapshotAt(34))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.CreateAutomatic(TriggerMatchStart, snapshotAt(0))
	require.NoError(t, err)
	assert.True(t, ok, "match start is always recorded")

	_, _, err = s.CreateAutomatic("meteor", snapshotAt(1))
	assert.ErrorIs(t, err, simerr.ErrValidation)
	assert.Equal(t, 2, s.Len())
}

func TestCleanupEvictsManualFirst(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.MaxCheckpoints = 100
	s, _ := newStore(t, cfg, clock)

	for i := range 6 {
		clock.Advance(time.Minute)
		if i%2 == 0 {
			_, err := s.Create(fmt.Sprintf("manual-%d", i), "")
			require.NoError(t, err)
		} else {
			_, _, err := s.CreateAutomatic(TriggerGoal, snapshotAt(i))
			require.NoError(t, err)
		}
	}
	require.Equal(t, 6, s.Len())

	s.mu.Lock()
	s.cfg.MaxCheckpoints = 3
	s.mu.Unlock()
	assert.Equal(t, 3, s.Cleanup())

	left := s.List()
	require.Len(t, left, 3)
	for _, cp := range left {
		assert.Equal(t, Automatic, cp.Origin)
	}

	s.mu.Lock()
	s.cfg.MaxCheckpoints = 1
	s.mu.Unlock()
	s.Cleanup()
	left = s.List()
	require.Len(t, left, 1)
	assert.Equal(t, 5, left[0].Minute, "oldest automatic evicted next")
}

func TestCleanupRetentionThenCap(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.MaxCheckpoints = 4
	cfg.Retention = 30 * time.Minute
	s, _ := newStore(t, cfg, clock)

	for i := range 10 {
		_, _, err := s.CreateAutomatic(TriggerGoal, snapshotAt(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, s.Len(), cfg.MaxCheckpoints)
		clock.Advance(10 * time.Minute)
	}

	// Created at +60..+90; the clock now reads +105.
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 2, s.Cleanup())
	for _, cp := range s.List() {
		assert.False(t, cp.CreatedAt.Before(clock.Now().Add(-cfg.Retention)))
	}
	assert.Equal(t, 2, s.Len())
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCheckpoints = 0
	_, err := New(cfg, nil)
	require.ErrorIs(t, err, simerr.ErrValidation)
	assert.Contains(t, simerr.Fields(err), "MaxCheckpoints")

	s, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = s.Create("x", "")
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
	_, err = s.Export()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
}

func TestSubscribeReceivesCreations(t *testing.T) {
	clock := &fakeClock{t: time.Now().UTC()}
	s, _ := newStore(t, DefaultConfig(), clock)
	_, ch := s.Subscribe()

	cp, err := s.Create("kick", "")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, (<-ch).ID)

	s.Close()
	_, open := <-ch
	assert.False(t, open)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CKPT_MAX", "7")
	t.Setenv("CKPT_RETENTION", "15m")
	t.Setenv("CKPT_TRIGGER_TACTICAL_CHANGE", "true")
	t.Setenv("CKPT_TRIGGER_GOAL", "false")

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "CKPT_"})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 7, cfg.MaxCheckpoints)
	assert.Equal(t, 15*time.Minute, cfg.Retention)
	assert.True(t, cfg.Triggers.TacticalChange)
	assert.False(t, cfg.Triggers.Goal)
	assert.True(t, cfg.Triggers.HalfTime)
}
