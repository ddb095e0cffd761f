// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "resume:"

// BadgerStore keeps points as JSON values keyed by "resume:<url>". Entries
// expire after ttl when ttl > 0.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerStore opens a store at path; an empty path keeps data in memory.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("resume store: open badger: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Get(_ context.Context, url string) (Point, error) {
	var out Point
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPrefix + url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Point{}, ErrNotFound
	}
	if err != nil {
		return Point{}, fmt.Errorf("resume store: get: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Put(_ context.Context, p Point) error {
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(badgerPrefix+p.URL), buf)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("resume store: put: %w", err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, url string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerPrefix + url))
	})
	if err != nil {
		return fmt.Errorf("resume store: delete: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

var _ Store = (*BadgerStore)(nil)
