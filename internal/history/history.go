// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists the page visit log.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDatabaseError wraps storage failures.
	ErrDatabaseError = errors.New("history database error")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("history store is closed")
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema holds the visit log tables. Times are Unix seconds.
const Schema = `
CREATE TABLE IF NOT EXISTS visits (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    chars INTEGER NOT NULL,
    visited_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at);
CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
`

// =============================================================================
// TYPES
// =============================================================================

// Visit is one recorded page load.
type Visit struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Chars     int       `json:"chars"`
	VisitedAt time.Time `json:"visited_at"`
}

// Config holds store settings.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// MaxEntries caps retained visits; older rows are pruned on insert.
	// Zero keeps everything.
	MaxEntries int
}

// Store records and queries page visits.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// =============================================================================
// STORE LIFECYCLE
// =============================================================================

// New opens (or creates) the visit database at cfg.Path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrDatabaseError)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return &Store{db: db, maxEntries: cfg.MaxEntries}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// =============================================================================
// RECORDING
// =============================================================================

// Record logs one page visit and prunes beyond MaxEntries.
func (s *Store) Record(ctx context.Context, url, title string, chars int) (Visit, error) {
	if s.db == nil {
		return Visit{}, ErrClosed
	}

	v := Visit{
		ID:        uuid.NewString(),
		URL:       url,
		Title:     title,
		Chars:     chars,
		VisitedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO visits (id, url, title, chars, visited_at) VALUES (?, ?, ?, ?, ?)",
		v.ID, v.URL, v.Title, v.Chars, v.VisitedAt.Unix(),
	)
	if err != nil {
		return Visit{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if err := s.prune(ctx); err != nil {
		return Visit{}, err
	}

	return v, nil
}

// prune drops everything older than the newest MaxEntries visits. Ties on
// visited_at fall back to insertion order.
func (s *Store) prune(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM visits WHERE id NOT IN (
			SELECT id FROM visits ORDER BY visited_at DESC, rowid DESC LIMIT ?
		)
	`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Recent returns the newest visits, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Visit, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, chars, visited_at
		FROM visits
		ORDER BY visited_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanVisits(rows)
}

// Search returns visits whose URL or title contains the query, most recent
// first. An empty query behaves like Recent.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Visit, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if query == "" {
		return s.Recent(ctx, limit)
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, chars, visited_at
		FROM visits
		WHERE url LIKE ? OR title LIKE ?
		ORDER BY visited_at DESC, rowid DESC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	return scanVisits(rows)
}

// Count returns the number of retained visits.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// Clear removes every visit.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM visits"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

func scanVisits(rows *sql.Rows) ([]Visit, error) {
	var visits []Visit
	for rows.Next() {
		var v Visit
		var ts int64
		if err := rows.Scan(&v.ID, &v.URL, &v.Title, &v.Chars, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		v.VisitedAt = time.Unix(ts, 0).UTC()
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return visits, nil
}
