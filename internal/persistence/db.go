// Package persistence stores match results, event logs and checkpoint
// bundles in SQLite.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/talgya/pitchside/internal/checkpoint"
	"github.com/talgya/pitchside/internal/match"
	"github.com/talgya/pitchside/internal/simerr"
)

// DB wraps a SQLite connection for match persistence.
type DB struct {
	conn *sqlx.DB
	log  zerolog.Logger
}

// Open opens or creates a SQLite database at the given path.
func Open(path string, log zerolog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, log: log}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		home_team_id TEXT NOT NULL,
		away_team_id TEXT NOT NULL,
		home_goals INTEGER NOT NULL,
		away_goals INTEGER NOT NULL,
		minute INTEGER NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS match_events (
		match_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		minute INTEGER NOT NULL,
		type TEXT NOT NULL,
		team_id TEXT NOT NULL DEFAULT '',
		player_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		PRIMARY KEY (match_id, seq)
	);

	CREATE TABLE IF NOT EXISTS checkpoint_bundles (
		match_id TEXT PRIMARY KEY,
		bundle_json TEXT NOT NULL,
		exported_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS match_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_completed ON matches(completed, updated_at);
	CREATE INDEX IF NOT EXISTS idx_match_events_type ON match_events(match_id, type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// MatchRow is the stored summary of one match.
type MatchRow struct {
	ID         string `db:"id" json:"id"`
	HomeTeamID string `db:"home_team_id" json:"home_team_id"`
	AwayTeamID string `db:"away_team_id" json:"away_team_id"`
	HomeGoals  int    `db:"home_goals" json:"home_goals"`
	AwayGoals  int    `db:"away_goals" json:"away_goals"`
	Minute     int    `db:"minute" json:"minute"`
	Result     string `db:"result" json:"result,omitempty"`
	Completed  bool   `db:"completed" json:"completed"`
	UpdatedAt  string `db:"updated_at" json:"updated_at"`
}

// EventRow is one stored log entry.
type EventRow struct {
	Seq         int    `db:"seq" json:"seq"`
	ID          string `db:"id" json:"id"`
	Minute      int    `db:"minute" json:"minute"`
	Type        string `db:"type" json:"type"`
	TeamID      string `db:"team_id" json:"team_id,omitempty"`
	PlayerID    string `db:"player_id" json:"player_id,omitempty"`
	Description string `db:"description" json:"description"`
}

// SaveMatch upserts the match summary and replaces its event log, so a
// rolled-back lineage overwrites what was stored before.
func (db *DB) SaveMatch(s match.Snapshot) error {
	snapJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.ID, err)
	}
	result := ""
	if s.Result != nil {
		result = string(*s.Result)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO matches
		(id, home_team_id, away_team_id, home_goals, away_goals, minute,
		 result, completed, snapshot_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.HomeTeamID, s.AwayTeamID, s.HomeGoals, s.AwayGoals, s.Minute,
		result, s.Completed, string(snapJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", s.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM match_events WHERE match_id = ?", s.ID); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO match_events
		(match_id, seq, id, minute, type, team_id, player_id, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range s.Events {
		if _, err := stmt.Exec(s.ID, i, e.ID, e.Minute, string(e.Type), e.TeamID, e.PlayerID, e.Description); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.log.Debug().Str("match_id", s.ID).Int("minute", s.Minute).Int("events", len(s.Events)).Msg("match saved")
	return nil
}

// LoadMatch returns the last stored snapshot of a match.
func (db *DB) LoadMatch(id string) (match.Snapshot, error) {
	var raw string
	err := db.conn.Get(&raw, "SELECT snapshot_json FROM matches WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return match.Snapshot{}, simerr.NotFound("match", id)
	}
	if err != nil {
		return match.Snapshot{}, err
	}
	var s match.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return match.Snapshot{}, simerr.Format("stored snapshot is malformed", err)
	}
	return s, nil
}

// MatchEvents returns a match's stored event log in order.
func (db *DB) MatchEvents(matchID string) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		`SELECT seq, id, minute, type, team_id, player_id, description
		 FROM match_events WHERE match_id = ? ORDER BY seq`,
		matchID,
	)
	return events, err
}

// RecentResults returns the most recently finished matches.
func (db *DB) RecentResults(limit int) ([]MatchRow, error) {
	var rows []MatchRow
	err := db.conn.Select(&rows,
		`SELECT id, home_team_id, away_team_id, home_goals, away_goals, minute,
		 result, completed, updated_at
		 FROM matches WHERE completed = 1 ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	return rows, err
}

// SaveBundle stores the latest checkpoint bundle for its match.
func (db *DB) SaveBundle(b checkpoint.Bundle) error {
	data, err := b.Marshal()
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO checkpoint_bundles (match_id, bundle_json, exported_at) VALUES (?, ?, ?)",
		b.State.ID, string(data), b.ExportTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", b.State.ID, err)
	}
	return nil
}

// LoadBundle returns the raw bundle JSON stored for a match, ready for
// import.
func (db *DB) LoadBundle(matchID string) ([]byte, error) {
	var raw string
	err := db.conn.Get(&raw, "SELECT bundle_json FROM checkpoint_bundles WHERE match_id = ?", matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, simerr.NotFound("bundle", matchID)
	}
	return []byte(raw), err
}

// SaveMeta stores a key-value pair in match metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO match_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM match_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", simerr.NotFound("meta", key)
	}
	return value, err
}

// SaveSession performs a full save of a session: the match, its bundle and
// the last-match pointer.
func (db *DB) SaveSession(b checkpoint.Bundle) error {
	db.log.Info().Str("match_id", b.State.ID).Int("checkpoints", len(b.Checkpoints)).Msg("saving session")

	if err := db.SaveMatch(b.State); err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	if err := db.SaveBundle(b); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	if err := db.SaveMeta("last_match_id", b.State.ID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	db.log.Info().Str("match_id", b.State.ID).Msg("session saved")
	return nil
}
