// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

func (m *MemoryStore) Get(_ context.Context, url string) (Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[url]
	if !ok {
		return Point{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) Put(_ context.Context, p Point) error {
	m.mu.Lock()
	m.points[p.URL] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	delete(m.points, url)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
