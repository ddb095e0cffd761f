// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/video360/internal/persistence/sqlite"
)

var migrations = []sqlite.Migration{
	func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS resume_points (
			url TEXT PRIMARY KEY,
			position_ms INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_resume_updated ON resume_points(updated_at_ms);`)
		return err
	},
}

// SQLiteStore persists points in a single table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. An existing file
// that fails quick_check is refused rather than silently overwritten.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err == nil {
		issues, err := sqlite.VerifyIntegrity(ctx, path, "quick")
		if err != nil {
			return nil, fmt.Errorf("resume store: verify %s: %w", path, err)
		}
		if len(issues) > 0 {
			return nil, fmt.Errorf("resume store: %s is corrupt: %s", path, strings.Join(issues, "; "))
		}
	}

	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := sqlite.Migrate(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resume store: migration failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, url string) (Point, error) {
	var pos, dur, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT position_ms, duration_ms, updated_at_ms FROM resume_points WHERE url = ?`, url,
	).Scan(&pos, &dur, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Point{}, ErrNotFound
	}
	if err != nil {
		return Point{}, fmt.Errorf("resume store: get: %w", err)
	}
	return Point{
		URL:       url,
		Position:  time.Duration(pos) * time.Millisecond,
		Duration:  time.Duration(dur) * time.Millisecond,
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p Point) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resume_points (url, position_ms, duration_ms, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			position_ms = excluded.position_ms,
			duration_ms = excluded.duration_ms,
			updated_at_ms = excluded.updated_at_ms`,
		p.URL, p.Position.Milliseconds(), p.Duration.Milliseconds(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("resume store: put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resume_points WHERE url = ?`, url); err != nil {
		return fmt.Errorf("resume store: delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
