// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resume remembers where playback of a media URL stopped.
package resume

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("resume point not found")

// Point is the saved playhead for one media URL.
type Point struct {
	URL       string        `json:"url"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Store interface {
	// Get returns ErrNotFound when url has no point.
	Get(ctx context.Context, url string) (Point, error)
	Put(ctx context.Context, p Point) error
	// Delete is a no-op for unknown urls.
	Delete(ctx context.Context, url string) error
	Close() error
}
