// Package store keeps match events and final results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store: closed")

const defaultResultLimit = 20

// SQLite implements service.ResultStore.
type SQLite struct {
	db *sql.DB
}

var _ service.ResultStore = (*SQLite)(nil)

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			match_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			play INTEGER NOT NULL,
			turn INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (match_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS events_type ON events(match_id, type);`,
		`CREATE TABLE IF NOT EXISTS results (
			match_id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			seed INTEGER NOT NULL,
			home TEXT NOT NULL,
			away TEXT NOT NULL,
			home_score INTEGER NOT NULL,
			away_score INTEGER NOT NULL,
			winner TEXT NOT NULL,
			tie INTEGER NOT NULL,
			plays INTEGER NOT NULL,
			longest_play INTEGER NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS results_finished ON results(finished_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// RecordEvent stores one event.
func (s *SQLite) RecordEvent(ctx context.Context, matchID string, e engine.Event) error {
	return s.RecordEvents(ctx, matchID, []engine.Event{e})
}

// RecordEvents stores events in one transaction. Events already stored for
// the match (same seq) are skipped, so a replayed match can be recorded
// again safely.
func (s *SQLite) RecordEvents(ctx context.Context, matchID string, events []engine.Event) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO events(match_id, seq, type, play, turn, payload) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("store: event %d payload: %w", e.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, matchID, e.Seq, string(e.Type), e.Play, e.Turn, string(payload)); err != nil {
			return fmt.Errorf("store: insert event %d: %w", e.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// RecordResult stores a finished game. A second result for the same match
// replaces the first.
func (s *SQLite) RecordResult(ctx context.Context, r service.MatchResult) error {
	if s.db == nil {
		return ErrClosed
	}
	finished := r.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO results(
			match_id, config, seed, home, away, home_score, away_score,
			winner, tie, plays, longest_play, finished_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, r.Config, r.Seed, r.Home, r.Away, r.HomeScore, r.AwayScore,
		r.Winner, boolToInt(r.Tie), r.Plays, r.LongestPlay,
		finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert result %s: %w", r.MatchID, err)
	}
	return nil
}

// ListResults returns the latest results, newest first. A limit below one
// means the default of 20.
func (s *SQLite) ListResults(ctx context.Context, limit int) ([]service.MatchResult, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit < 1 {
		limit = defaultResultLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT match_id, config, seed, home, away,
			home_score, away_score, winner, tie, plays, longest_play, finished_at
		FROM results ORDER BY finished_at DESC, match_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	defer rows.Close()

	out := []service.MatchResult{}
	for rows.Next() {
		var (
			r        service.MatchResult
			tie      int
			finished string
		)
		if err := rows.Scan(&r.MatchID, &r.Config, &r.Seed, &r.Home, &r.Away,
			&r.HomeScore, &r.AwayScore, &r.Winner, &tie, &r.Plays, &r.LongestPlay, &finished); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		r.Tie = tie != 0
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("store: result %s: bad finished_at %q", r.MatchID, finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountEvents returns how many events are stored for a match. An empty type
// counts all of them.
func (s *SQLite) CountEvents(ctx context.Context, matchID string, t engine.EventType) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	var err error
	if t == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE match_id = ?`, matchID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE match_id = ? AND type = ?`, matchID, string(t)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("store: count events: %w", err)
	}
	return n, nil
}

// Events returns a match's stored events in sequence order.
func (s *SQLite) Events(ctx context.Context, matchID string) ([]engine.Event, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, type, play, turn, payload FROM events WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("store: events: %w", err)
	}
	defer rows.Close()

	var out []engine.Event
	for rows.Next() {
		var (
			e       engine.Event
			typ     string
			payload string
		)
		if err := rows.Scan(&e.Seq, &typ, &e.Play, &e.Turn, &payload); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		e.Type = engine.EventType(typ)
		if payload != "null" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("store: event %d payload: %w", e.Seq, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
