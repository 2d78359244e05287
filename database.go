package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 200

	// fixed width so ended_at sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// DB wraps the SQLite database holding the match ledger
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// WAL lets the API read while the recorder writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room TEXT NOT NULL,
		private INTEGER NOT NULL DEFAULT 0,
		score_top INTEGER NOT NULL DEFAULT 0,
		score_bottom INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_room ON matches(room);
	CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertMatches writes a batch of results in one transaction
func (db *DB) InsertMatches(results []MatchResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO matches (room, private, score_top, score_bottom, reason, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range results {
		_, err := stmt.Exec(m.Room, m.Private, m.Top, m.Bottom, m.Reason,
			m.StartedAt.UTC().Format(timeLayout), m.EndedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert match %s: %w", m.Room, err)
		}
	}
	return tx.Commit()
}

// RecentMatches returns the newest results first. An empty room returns
// matches from every room.
func (db *DB) RecentMatches(room string, limit int) ([]MatchResult, error) {
	limit = clampLimit(limit)

	query := `SELECT room, private, score_top, score_bottom, reason, started_at, ended_at FROM matches`
	args := []any{}
	if room != "" {
		query += ` WHERE room = ?`
		args = append(args, room)
	}
	query += ` ORDER BY ended_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	result := make([]MatchResult, 0, limit)
	for rows.Next() {
		var m MatchResult
		var started, ended string
		if err := rows.Scan(&m.Room, &m.Private, &m.Top, &m.Bottom, &m.Reason, &started, &ended); err != nil {
			return nil, err
		}
		m.StartedAt, _ = time.Parse(timeLayout, started)
		m.EndedAt, _ = time.Parse(timeLayout, ended)
		result = append(result, m)
	}
	return result, rows.Err()
}

// MatchCount returns the number of recorded matches
func (db *DB) MatchCount() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&n)
	return n, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultMatchLimit
	}
	if limit > maxMatchLimit {
		return maxMatchLimit
	}
	return limit
}
