// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/video360/internal/playback"
)

// ErrEngineClosed is returned by a closed FakeEngine.
var ErrEngineClosed = errors.New("fake engine closed")

// FakeEngine is a scriptable playback.Engine. Loads complete immediately
// unless HoldLoad was called.
type FakeEngine struct {
	mu sync.Mutex

	info    playback.MediaInfo
	loadErr error
	hold    chan struct{}

	loaded   bool
	position time.Duration
	ready    bool
	keepUp   bool
	playing  bool
	closed   bool
	playErr  error
	statErr  error

	endFns map[int]func()
	nextID int
	calls  []string

	loadCalled chan struct{}
	loadOnce   sync.Once
}

func NewFakeEngine(info playback.MediaInfo) *FakeEngine {
	return &FakeEngine{
		info:       info,
		ready:      true,
		keepUp:     true,
		endFns:     make(map[int]func()),
		loadCalled: make(chan struct{}),
	}
}

// Factory returns an EngineFactory that records every engine it creates.
func Factory(info playback.MediaInfo, created *[]*FakeEngine, configure ...func(*FakeEngine)) playback.EngineFactory {
	var mu sync.Mutex
	return func() playback.Engine {
		e := NewFakeEngine(info)
		for _, fn := range configure {
			fn(e)
		}
		mu.Lock()
		*created = append(*created, e)
		mu.Unlock()
		return e
	}
}

// HoldLoad makes Load block until ReleaseLoad or context cancellation.
func (e *FakeEngine) HoldLoad() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hold == nil {
		e.hold = make(chan struct{})
	}
}

func (e *FakeEngine) ReleaseLoad() {
	e.mu.Lock()
	h := e.hold
	e.mu.Unlock()
	if h != nil {
		close(h)
	}
}

// LoadCalled is closed once Load has been entered.
func (e *FakeEngine) LoadCalled() <-chan struct{} {
	return e.loadCalled
}

func (e *FakeEngine) FailLoad(err error) {
	e.mu.Lock()
	e.loadErr = err
	e.mu.Unlock()
}

// SetReadiness scripts the readiness gate inputs.
func (e *FakeEngine) SetReadiness(ready, keepUp bool) {
	e.mu.Lock()
	e.ready, e.keepUp = ready, keepUp
	e.mu.Unlock()
}

func (e *FakeEngine) FailPlay(err error) {
	e.mu.Lock()
	e.playErr = err
	e.mu.Unlock()
}

// FailStatus makes Status report err, as a decoder that broke mid-stream would.
func (e *FakeEngine) FailStatus(err error) {
	e.mu.Lock()
	e.statErr = err
	e.mu.Unlock()
}

// SetPosition moves the playhead without recording a seek.
func (e *FakeEngine) SetPosition(pos time.Duration) {
	e.mu.Lock()
	e.position = pos
	e.mu.Unlock()
}

// FinishPlayback moves to the end and fires end-of-media callbacks.
func (e *FakeEngine) FinishPlayback() {
	e.mu.Lock()
	e.position = e.info.Duration
	e.playing = false
	fns := make([]func(), 0, len(e.endFns))
	for _, fn := range e.endFns {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (e *FakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *FakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *FakeEngine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// EndListeners counts registered end-of-media callbacks.
func (e *FakeEngine) EndListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.endFns)
}

func (e *FakeEngine) Load(ctx context.Context, _ playback.Source) (playback.MediaInfo, error) {
	e.loadOnce.Do(func() { close(e.loadCalled) })
	e.mu.Lock()
	e.calls = append(e.calls, "load")
	hold := e.hold
	e.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return playback.MediaInfo{}, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return playback.MediaInfo{}, e.loadErr
	}
	e.loaded = true
	return e.info, nil
}

func (e *FakeEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "play")
	if e.closed {
		return ErrEngineClosed
	}
	if e.playErr != nil {
		return e.playErr
	}
	e.playing = true
	return nil
}

func (e *FakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "pause")
	if e.closed {
		return ErrEngineClosed
	}
	e.playing = false
	return nil
}

func (e *FakeEngine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "seek:"+pos.String())
	if e.closed {
		return ErrEngineClosed
	}
	e.position = pos
	return nil
}

func (e *FakeEngine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *FakeEngine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return 0
	}
	return e.info.Duration
}

func (e *FakeEngine) Status() playback.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return playback.Status{Err: ErrEngineClosed}
	}
	if e.statErr != nil {
		return playback.Status{Err: e.statErr}
	}
	return playback.Status{
		ReadyToPlay:    e.loaded && e.ready,
		LikelyToKeepUp: e.loaded && e.keepUp,
		Playing:        e.playing,
	}
}

func (e *FakeEngine) OnEnd(fn func()) func() {
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

func (e *FakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "close")
	e.closed = true
	e.playing = false
	return nil
}

var _ playback.Engine = (*FakeEngine)(nil)
