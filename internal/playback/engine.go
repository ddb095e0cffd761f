// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"time"
)

// Source identifies the media to load.
type Source struct {
	URL     string
	Headers map[string]string
}

// MediaInfo describes a loaded asset.
type MediaInfo struct {
	Duration   time.Duration
	Width      int
	Height     int
	Codec      string
	Projection string
}

// Status is the engine's readiness report.
type Status struct {
	ReadyToPlay    bool
	LikelyToKeepUp bool
	Playing        bool
	Err            error
}

// Ready reports whether the readiness gate holds.
func (s Status) Ready() bool {
	return s.Err == nil && s.ReadyToPlay && s.LikelyToKeepUp
}

// Engine is the external media backend. Load may block and must honor ctx;
// the remaining methods are called from the owner's goroutine.
type Engine interface {
	Load(ctx context.Context, src Source) (MediaInfo, error)
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	Status() Status
	// OnEnd registers fn for end-of-media notifications, which may arrive on
	// any goroutine.
	OnEnd(fn func()) (unregister func())
	Close() error
}

// EngineFactory creates one engine per session.
type EngineFactory func() Engine
