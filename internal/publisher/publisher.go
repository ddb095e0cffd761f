// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package publisher samples playback and camera state at a fixed cadence.
package publisher

import (
	"time"

	"github.com/ManuGH/video360/internal/metrics"
	"github.com/ManuGH/video360/internal/sched"
)

// DefaultInterval is the 10 Hz publishing cadence.
const DefaultInterval = 100 * time.Millisecond

// Snapshot is the state relayed to the subscriber per tick.
type Snapshot struct {
	Position     time.Duration
	Duration     time.Duration
	Playing      bool
	CompassAngle float64
}

func (s Snapshot) PositionMillis() int64 { return s.Position.Milliseconds() }
func (s Snapshot) DurationMillis() int64 { return s.Duration.Milliseconds() }

// Sampler reads the current state. It runs on the scheduler goroutine.
type Sampler func() Snapshot

// Sink receives a snapshot and reports false when it had to drop it.
type Sink func(Snapshot) bool

// Publisher emits snapshots while started. Start and Stop must be called from
// the scheduler goroutine.
type Publisher struct {
	sched    sched.Scheduler
	interval time.Duration
	sample   Sampler
	sink     Sink
	cancel   func()
}

func New(s sched.Scheduler, interval time.Duration, sample Sampler, sink Sink) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Publisher{sched: s, interval: interval, sample: sample, sink: sink}
}

// Start begins ticking. Calling Start on a running publisher is a no-op.
func (p *Publisher) Start() {
	if p.cancel != nil {
		return
	}
	p.cancel = p.sched.Every(p.interval, p.tick)
}

// Stop cancels the ticker; no snapshot is emitted after it returns.
func (p *Publisher) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
}

func (p *Publisher) Running() bool {
	return p.cancel != nil
}

func (p *Publisher) tick() {
	if p.cancel == nil {
		return
	}
	if p.sink(p.sample()) {
		metrics.IncSnapshotEmitted()
		return
	}
	metrics.IncSnapshotDropped()
}
