package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/tactics"
)

func newLive(t *testing.T, cfg LiveConfig) *Live {
	t.Helper()
	sim, err := NewSimulation(testFixture(), Streaming, entropy.NewSeeded(17), zerolog.Nop())
	require.NoError(t, err)
	l := NewLive(sim, cfg, zerolog.Nop())
	t.Cleanup(l.Dispose)
	return l
}

func TestLiveCommandsBeforeStart(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	assert.Equal(t, StateIdle, l.Status().State)
	err := l.Pause()
	assert.ErrorIs(t, err, simerr.ErrInvalidState)
}

func TestLiveSpeedIsClamped(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	require.NoError(t, l.Start(context.Background()))

	tests := []struct {
		in, want float64
	}{
		{2, 2},
		{100, MaxSpeed},
		{0.01, MinSpeed},
		{-3, MinSpeed},
		{math.NaN(), DefaultSpeed},
		{math.Inf(1), MaxSpeed},
	}
	for _, tt := range tests {
		got, err := l.SetSpeed(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "speed %v", tt.in)
		assert.Equal(t, tt.want, l.Status().Speed)
	}
}

func TestLiveJumpAndSkip(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true, Buffer: 256})
	id, ch := l.Subscribe()
	require.NoError(t, l.Start(context.Background()))

	err := l.JumpToMinute(200)
	assert.ErrorIs(t, err, simerr.ErrValidation)

	require.NoError(t, l.JumpToMinute(30))
	assert.Equal(t, 30, l.Snapshot().Minute)
	assert.Equal(t, StatePaused, l.Status().State)

	err = l.JumpToMinute(10)
	assert.ErrorIs(t, err, simerr.ErrInvalidState)

	var last int
	ticks := 0
	for len(ch) > 0 {
		tk := <-ch
		assert.GreaterOrEqual(t, tk.Snapshot.Minute, last)
		last = tk.Snapshot.Minute
		ticks++
	}
	assert.Equal(t, 31, ticks, "kick-off plus one tick per minute")

	require.NoError(t, l.SkipToEnd())
	snap := l.Snapshot()
	assert.True(t, snap.Completed)
	assert.NoError(t, snap.CheckInvariants())
	assert.Equal(t, StateCompleted, l.Status().State)

	assert.ErrorIs(t, l.Resume(), simerr.ErrInvalidState)
	assert.NoError(t, l.SkipToEnd())
	l.Unsubscribe(id)
}

func TestLiveTacticalCommands(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	require.NoError(t, l.Start(context.Background()))

	assert.ErrorIs(t, l.ChangeFormation("nobody", tactics.F433), simerr.ErrNotFound)
	assert.ErrorIs(t, l.SetMatchIntensity("ars", "frantic"), simerr.ErrValidation)

	require.NoError(t, l.ChangeFormation("ars", tactics.F433))
	require.NoError(t, l.EnableAutomaticTactics("che", true))
	require.NoError(t, l.SetMatchIntensity("che", tactics.IntensityHigh))

	snap := l.Snapshot()
	assert.Equal(t, tactics.F433, snap.HomeTactics.Formation)
	assert.True(t, snap.AwayTactics.Automatic)
	assert.Equal(t, tactics.IntensityHigh, snap.AwayTactics.Intensity)
	assert.Equal(t, 3, countType(snap.Events, match.EventTacticalChange))
}

func TestLiveRunsOnTimer(t *testing.T) {
	l := newLive(t, LiveConfig{BaseInterval: time.Millisecond, Speed: MaxSpeed})
	_, ch := l.Subscribe()
	require.NoError(t, l.Start(context.Background()))

	require.Eventually(t, func() bool {
		return l.Status().State == StateCompleted
	}, 10*time.Second, 5*time.Millisecond)

	snap := l.Snapshot()
	assert.True(t, snap.Completed)
	assert.NoError(t, snap.CheckInvariants())
	assert.NotEmpty(t, ch)
}

func TestLivePauseStopsTicks(t *testing.T) {
	l := newLive(t, LiveConfig{BaseInterval: 10 * time.Millisecond, Speed: DefaultSpeed})
	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Pause())

	m := l.Snapshot().Minute
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, m, l.Snapshot().Minute)
	assert.Equal(t, StatePaused, l.Status().State)
}

func TestLiveDispose(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	_, ch := l.Subscribe()
	require.NoError(t, l.Start(context.Background()))

	l.Dispose()
	l.Dispose()

	assert.Equal(t, StateDisposed, l.Status().State)
	assert.ErrorIs(t, l.Resume(), simerr.ErrInvalidState)
	assert.ErrorIs(t, l.Start(context.Background()), simerr.ErrInvalidState)

	<-ch // kick-off
	_, open := <-ch
	assert.False(t, open)

	select {
	case <-l.Done():
	default:
		t.Fatal("loop still running after dispose")
	}
}

func TestLiveStartTwice(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	require.NoError(t, l.Start(context.Background()))
	assert.ErrorIs(t, l.Start(context.Background()), simerr.ErrInvalidState)
}

func TestLiveStopsWhenContextCancelled(t *testing.T) {
	l := newLive(t, LiveConfig{StartPaused: true})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	cancel()
	<-l.Done()
	assert.ErrorIs(t, l.Pause(), simerr.ErrInvalidState)
}
