// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSchemaTooNew means the file was written by a newer binary.
var ErrSchemaTooNew = errors.New("sqlite: schema version newer than supported")

// Migration upgrades the schema by one version inside a transaction.
type Migration func(ctx context.Context, tx *sql.Tx) error

// Migrate applies migrations[v:] where v is PRAGMA user_version, bumping
// user_version after each step. Migration i produces version i+1.
func Migrate(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("sqlite: read user_version: %w", err)
	}
	target := len(migrations)
	if current > target {
		return current, fmt.Errorf("%w: have %d, support %d", ErrSchemaTooNew, current, target)
	}

	for v := current; v < target; v++ {
		if err := step(ctx, db, v+1, migrations[v]); err != nil {
			return v, err
		}
	}
	return target, nil
}

func step(ctx context.Context, db *sql.DB, version int, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m(ctx, tx); err != nil {
		return fmt.Errorf("sqlite: migration %d: %w", version, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("sqlite: set user_version %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit migration %d: %w", version, err)
	}
	return nil
}
