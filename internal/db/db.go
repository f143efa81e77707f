// Package db persists sleep sessions and announced wake/sleep transitions
// to sqlite.
package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Session is one continuous tracking run: a device boot, or a replayed
// recording.
type Session struct {
	SessionID  string
	StartedAt  string
	SampleRate int
	Notes      string
}

// Transition is one announced state change within a session.
type Transition struct {
	SessionID   string
	SampleIndex int64
	TimeSeconds float64
	State       uint8
	RecordedAt  string
}

// NewDB opens (creating if needed) the sqlite database at path and ensures
// the base schema exists. Schema evolution beyond the base tables is
// handled by the migrations in internal/db/migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			sample_rate       BIGINT,
			notes             TEXT
		);
		CREATE TABLE IF NOT EXISTS transitions (
			session_id        TEXT,
			sample_index      BIGINT,
			time_s            DOUBLE,
			state             BIGINT,
			recorded_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_transitions_session
			ON transitions(session_id, sample_index);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// BeginSession inserts a new session row and returns its generated ID.
func (db *DB) BeginSession(sampleRate int, notes string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO sessions (session_id, sample_rate, notes) VALUES (?, ?, ?)",
		id, sampleRate, notes,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

// RecordTransition appends one announced state change to a session.
func (db *DB) RecordTransition(sessionID string, sampleIndex int64, timeSeconds float64, state uint8) error {
	_, err := db.Exec(
		"INSERT INTO transitions (session_id, sample_index, time_s, state) VALUES (?, ?, ?, ?)",
		sessionID, sampleIndex, timeSeconds, state,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transition: %w", err)
	}
	return nil
}

// Transitions returns a session's transitions in sample order. A limit at
// or below zero returns all of them.
func (db *DB) Transitions(sessionID string, limit int) ([]Transition, error) {
	query := `
		SELECT session_id, sample_index, time_s, state, recorded_at
		FROM transitions
		WHERE session_id = ?
		ORDER BY sample_index`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.SessionID, &t.SampleIndex, &t.TimeSeconds, &t.State, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// LatestState returns the most recently announced state for a session.
// The second return is false if the session has no transitions yet.
func (db *DB) LatestState(sessionID string) (uint8, bool, error) {
	var state uint8
	err := db.QueryRow(`
		SELECT state FROM transitions
		WHERE session_id = ?
		ORDER BY sample_index DESC
		LIMIT 1`, sessionID).Scan(&state)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return state, true, nil
}

// Sessions lists all sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT session_id, started_at, sample_rate, notes
		FROM sessions
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.SessionID, &s.StartedAt, &s.SampleRate, &s.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
