package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/domain"
	"github.com/talgya/pitchside/internal/engine"
	"github.com/talgya/pitchside/internal/entropy"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
	"github.com/talgya/pitchside/internal/weather"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pitchside.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func playedMatch(t *testing.T, id string, seed uint64) match.Snapshot {
	t.Helper()
	f := engine.Fixture{
		MatchID:   id,
		Home:      domain.SampleTeam("ars", "Arsenal", 82, 60000),
		Away:      domain.SampleTeam("che", "Chelsea", 78, 40000),
		Weather:   weather.Weather{Condition: weather.Rain, TempC: 11},
		KickoffAt: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
	}
	sim, err := engine.NewSimulation(f, engine.Detailed, entropy.NewSeeded(seed), zerolog.Nop())
	require.NoError(t, err)
	last, err := sim.RunToEnd(nil)
	require.NoError(t, err)
	return last.Snapshot
}

func TestSaveAndLoadMatch(t *testing.T) {
	db := openTemp(t)
	snap := playedMatch(t, "m1", 3)

	require.NoError(t, db.SaveMatch(snap))
	got, err := db.LoadMatch("m1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	events, err := db.MatchEvents("m1")
	require.NoError(t, err)
	require.Len(t, events, len(snap.Events))
	assert.Equal(t, string(match.EventKickoff), events[0].Type)
	assert.Equal(t, snap.Events[len(snap.Events)-1].ID, events[len(events)-1].ID)

	_, err = db.LoadMatch("missing")
	assert.ErrorIs(t, err, simerr.ErrNotFound)
}

func TestSaveMatchReplacesEventLog(t *testing.T) {
	db := openTemp(t)
	snap := playedMatch(t, "m1", 3)
	require.NoError(t, db.SaveMatch(snap))

	early := match.New("m1", "ars", "che", snap.Weather, snap.KickoffAt, snap.HomeTactics, snap.AwayTactics)
	require.NoError(t, db.SaveMatch(early))

	events, err := db.MatchEvents("m1")
	require.NoError(t, err)
	assert.Empty(t, events)

	results, err := db.RecentResults(10)
	require.NoError(t, err)
	assert.Empty(t, results, "the rewound match is no longer complete")
}

func TestRecentResults(t *testing.T) {
	db := openTemp(t)
	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, db.SaveMatch(playedMatch(t, id, uint64(i+1))))
		time.Sleep(2 * time.Millisecond)
	}

	rows, err := db.RecentResults(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m3", rows[0].ID)
	assert.Equal(t, "m2", rows[1].ID)
	assert.True(t, rows[0].Completed)
	assert.NotEmpty(t, rows[0].Result)
}

func TestSaveSessionRoundTripsBundle(t *testing.T) {
	db := openTemp(t)
	snap := playedMatch(t, "m1", 9)

	store, err := checkpoint.New(checkpoint.DefaultConfig(), func() match.Snapshot { return snap })
	require.NoError(t, err)
	_, err = store.Create("final whistle", "")
	require.NoError(t, err)
	b, err := store.Export()
	require.NoError(t, err)

	require.NoError(t, db.SaveSession(b))

	raw, err := db.LoadBundle("m1")
	require.NoError(t, err)
	got, err := checkpoint.DecodeBundle(raw)
	require.NoError(t, err)
	assert.Equal(t, b.State, got.State)
	assert.Equal(t, b.Checkpoints, got.Checkpoints)

	last, err := db.GetMeta("last_match_id")
	require.NoError(t, err)
	assert.Equal(t, "m1", last)

	_, err = db.LoadBundle("m2")
	assert.ErrorIs(t, err, simerr.ErrNotFound)
	_, err = db.GetMeta("nope")
	assert.ErrorIs(t, err, simerr.ErrNotFound)
}
