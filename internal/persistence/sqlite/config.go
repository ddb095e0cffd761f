// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlite opens SQLite databases with the pragmas every store relies on.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Config shapes the pool around a store's access pattern. SQLite serializes
// writers, so extra connections only help concurrent readers under WAL.
type Config struct {
	BusyTimeout time.Duration
	// MaxOpenConns bounds the pool; the idle pool is capped at MaxIdleConns.
	MaxOpenConns int
	MaxIdleConns int
	// ConnMaxIdleTime closes connections that sat unused; zero keeps them.
	ConnMaxIdleTime time.Duration
	// Synchronous is OFF, NORMAL or FULL. NORMAL loses at most the last
	// commits on power loss, never consistency, when the journal is WAL.
	Synchronous string
	ForeignKeys bool
}

// DefaultConfig suits small keyed tables: point reads from several goroutines,
// one upsert at a time, long quiet periods in between.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 5 * time.Minute,
		Synchronous:     "NORMAL",
	}
}

// dsn renders path and pragmas. Pragmas go into the DSN so that every pooled
// connection gets them, not just the first one.
func dsn(path string, cfg Config) string {
	sync := strings.ToUpper(strings.TrimSpace(cfg.Synchronous))
	switch sync {
	case "OFF", "NORMAL", "FULL":
	default:
		sync = "NORMAL"
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", fmt.Sprintf("synchronous(%s)", sync))
	if cfg.ForeignKeys {
		q.Add("_pragma", "foreign_keys(ON)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Open returns a pool with the pragmas of cfg applied to every connection.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	def := DefaultConfig()
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = def.MaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 || cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = min(def.MaxIdleConns, cfg.MaxOpenConns)
	}

	db, err := sql.Open("sqlite", dsn(dbPath, cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return db, nil
}
