// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/video360/internal/playback"
	"github.com/ManuGH/video360/internal/telemetry"
)

const tracerName = "github.com/ManuGH/video360/internal/media"

// ClockEngine is a playback.Engine whose playhead follows the wall clock.
// Loading probes the source; decoding happens on demand through a
// FrameGrabber.
type ClockEngine struct {
	prober Prober
	now    func() time.Time

	mu      sync.Mutex
	info    playback.MediaInfo
	loaded  bool
	closed  bool
	playing bool
	base    time.Duration
	anchor  time.Time
	timer   *time.Timer
	gen     uint64
	endFns  map[int]func()
	nextID  int
}

// ClockOption configures a ClockEngine.
type ClockOption func(*ClockEngine)

// WithNow replaces time.Now for position arithmetic.
func WithNow(now func() time.Time) ClockOption {
	return func(e *ClockEngine) { e.now = now }
}

func NewClockEngine(prober Prober, opts ...ClockOption) *ClockEngine {
	e := &ClockEngine{
		prober: prober,
		now:    time.Now,
		endFns: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns an EngineFactory producing clock engines sharing prober.
func Factory(prober Prober, opts ...ClockOption) playback.EngineFactory {
	return func() playback.Engine { return NewClockEngine(prober, opts...) }
}

func (e *ClockEngine) Load(ctx context.Context, src playback.Source) (playback.MediaInfo, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "media.load")
	defer span.End()
	if u, err := url.Parse(src.URL); err == nil {
		span.SetAttributes(telemetry.MediaSourceAttributes(u.Scheme, u.Host)...)
	}

	info, err := e.prober.Probe(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		span.SetAttributes(telemetry.ErrorAttributes("probe")...)
		return playback.MediaInfo{}, err
	}
	if info.Duration <= 0 {
		err := fmt.Errorf("%w: unknown duration", ErrProbeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown duration")
		return playback.MediaInfo{}, err
	}
	span.SetAttributes(telemetry.MediaInfoAttributes(
		info.Duration.Milliseconds(),
		fmt.Sprintf("%dx%d", info.Width, info.Height),
		info.Codec,
	)...)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return playback.MediaInfo{}, ErrClosed
	}
	e.info = info
	e.loaded = true
	return info, nil
}

func (e *ClockEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if e.playing {
		return nil
	}
	if e.base >= e.info.Duration {
		e.base = 0
	}
	e.playing = true
	e.anchor = e.now()
	e.armLocked()
	return nil
}

func (e *ClockEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if !e.playing {
		return nil
	}
	e.base = e.positionLocked()
	e.playing = false
	e.disarmLocked()
	return nil
}

func (e *ClockEngine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.usableLocked(); err != nil {
		return err
	}
	if pos < 0 {
		pos = 0
	}
	if pos > e.info.Duration {
		pos = e.info.Duration
	}
	e.base = pos
	if e.playing {
		e.anchor = e.now()
		e.armLocked()
	}
	return nil
}

func (e *ClockEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *ClockEngine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return 0
	}
	return e.info.Duration
}

func (e *ClockEngine) Status() playback.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return playback.Status{Err: ErrClosed}
	}
	return playback.Status{
		ReadyToPlay:    e.loaded,
		LikelyToKeepUp: e.loaded,
		Playing:        e.playing,
	}
}

func (e *ClockEngine) OnEnd(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.endFns[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.endFns, id)
		e.mu.Unlock()
	}
}

func (e *ClockEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.playing = false
	e.disarmLocked()
	e.endFns = make(map[int]func())
	return nil
}

func (e *ClockEngine) usableLocked() error {
	if e.closed {
		return ErrClosed
	}
	if !e.loaded {
		return ErrNotLoaded
	}
	return nil
}

func (e *ClockEngine) positionLocked() time.Duration {
	pos := e.base
	if e.playing {
		pos += e.now().Sub(e.anchor)
	}
	if e.loaded && pos > e.info.Duration {
		pos = e.info.Duration
	}
	return pos
}

// armLocked schedules the end-of-media notification for the current playhead.
func (e *ClockEngine) armLocked() {
	e.disarmLocked()
	gen := e.gen
	remaining := e.info.Duration - e.base
	e.timer = time.AfterFunc(remaining, func() { e.fireEnd(gen) })
}

func (e *ClockEngine) disarmLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *ClockEngine) fireEnd(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || !e.playing || e.closed {
		e.mu.Unlock()
		return
	}
	e.playing = false
	e.base = e.info.Duration
	e.timer = nil
	fns := make([]func(), 0, len(e.endFns))
	for _, fn := range e.endFns {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var _ playback.Engine = (*ClockEngine)(nil)
