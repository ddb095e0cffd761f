// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/log"
)

// OptionsFunc supplies the options for a new view, so that config reloads
// reach views created afterwards.
type OptionsFunc func() Options

// Registry owns the live views of the daemon.
type Registry struct {
	mu       sync.RWMutex
	views    map[string]*View
	options  OptionsFunc
	maxViews int
	closed   bool
	logger   zerolog.Logger
}

// NewRegistry creates a registry. maxViews <= 0 means unlimited.
func NewRegistry(options OptionsFunc, maxViews int) *Registry {
	return &Registry{
		views:    make(map[string]*View),
		options:  options,
		maxViews: maxViews,
		logger:   log.WithComponent("registry"),
	}
}

// Create opens a view with a fresh id.
func (r *Registry) Create() (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.maxViews > 0 && len(r.views) >= r.maxViews {
		return nil, fmt.Errorf("%w (%d)", ErrLimit, r.maxViews)
	}
	id := uuid.NewString()
	v := New(id, r.options())
	r.views[id] = v
	return v, nil
}

// Get looks up a view by id.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Remove disposes the view and forgets it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	v.Dispose()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// IDs returns the ids of every live view in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	return ids
}

// Close disposes every view concurrently and rejects further creates.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, v := range views {
		wg.Add(1)
		go func(v *View) {
			defer wg.Done()
			v.Dispose()
		}(v)
	}
	wg.Wait()
	r.logger.Info().Int("count", len(views)).Str(log.FieldEvent, "registry.closed").Msg("disposed all views")
}
