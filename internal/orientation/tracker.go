// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orientation

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/metrics"
)

// Orientation is a smoothed device attitude in radians.
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Config tunes fusion and smoothing.
type Config struct {
	// SmoothingTimeConstant is τ in α = 1 − exp(−dt/τ). Zero disables smoothing.
	SmoothingTimeConstant time.Duration
	// GyroWeight is the complementary filter weight of the integrated gyro
	// against the gravity tilt estimate.
	GyroWeight float64
	// MaxSampleGap caps dt between consecutive samples.
	MaxSampleGap time.Duration
}

func DefaultConfig() Config {
	return Config{
		SmoothingTimeConstant: 8 * time.Millisecond,
		GyroWeight:            0.98,
		MaxSampleGap:          100 * time.Millisecond,
	}
}

// Tracker fuses samples from a Source into a smoothed orientation. The source
// runs only while at least one Subscription is open.
type Tracker struct {
	cfg    Config
	src    Source
	logger zerolog.Logger

	mu        sync.Mutex
	running   bool
	subs      map[*Subscription]struct{}
	fused     Quaternion
	smoothed  Quaternion
	last      time.Time
	hasSample bool
}

func NewTracker(src Source, cfg Config) *Tracker {
	if cfg.MaxSampleGap <= 0 {
		cfg.MaxSampleGap = DefaultConfig().MaxSampleGap
	}
	if cfg.GyroWeight < 0 || cfg.GyroWeight > 1 {
		cfg.GyroWeight = DefaultConfig().GyroWeight
	}
	return &Tracker{
		cfg:      cfg,
		src:      src,
		logger:   log.WithComponent("orientation"),
		subs:     make(map[*Subscription]struct{}),
		fused:    Identity(),
		smoothed: Identity(),
	}
}

// Subscription delivers the latest orientation. Slow readers only ever see the
// most recent value.
type Subscription struct {
	t      *Tracker
	ch     chan Orientation
	closed bool
}

// C returns the update channel. It is closed by Close.
func (s *Subscription) C() <-chan Orientation {
	return s.ch
}

// Close detaches the subscription; closing the last one stops the source.
func (s *Subscription) Close() {
	s.t.unsubscribe(s)
}

// Subscribe registers a subscriber, starting the source for the first one.
func (t *Tracker) Subscribe() (*Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		t.hasSample = false
		if err := t.src.Start(t.handle); err != nil {
			return nil, fmt.Errorf("start orientation source: %w", err)
		}
		t.running = true
		t.logger.Debug().Str(log.FieldEvent, "orientation.started").Msg("orientation source started")
	}
	sub := &Subscription{t: t, ch: make(chan Orientation, 1)}
	t.subs[sub] = struct{}{}
	return sub, nil
}

func (t *Tracker) unsubscribe(s *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(t.subs, s)
	close(s.ch)

	if len(t.subs) == 0 && t.running {
		t.running = false
		t.src.Stop()
		t.logger.Debug().Str(log.FieldEvent, "orientation.stopped").Msg("orientation source stopped")
	}
}

// Running reports whether the source is started.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Current returns the smoothed orientation.
func (t *Tracker) Current() Orientation {
	t.mu.Lock()
	q := t.smoothed
	t.mu.Unlock()
	yaw, pitch, roll := q.Euler()
	return Orientation{Yaw: yaw, Pitch: pitch, Roll: roll}
}

// CurrentOrientation returns the smoothed yaw, pitch and roll.
func (t *Tracker) CurrentOrientation() (yaw, pitch, roll float64) {
	o := t.Current()
	return o.Yaw, o.Pitch, o.Roll
}

func (t *Tracker) handle(s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	if t.hasSample && !s.Timestamp.After(t.last) {
		return
	}
	metrics.IncMotionSample(s.Kind())

	if !t.hasSample {
		t.hasSample = true
		t.last = s.Timestamp
		t.fused = t.measure(t.fused, s, 0)
		t.smoothed = t.fused
		t.broadcastLocked()
		return
	}

	dt := s.Timestamp.Sub(t.last)
	if dt > t.cfg.MaxSampleGap {
		dt = t.cfg.MaxSampleGap
	}
	t.last = s.Timestamp

	t.fused = t.measure(t.fused, s, dt.Seconds())
	t.smoothed = Slerp(t.smoothed, t.fused, t.alpha(dt))
	t.broadcastLocked()
}

// alpha is the exponential smoothing factor for a step of dt.
func (t *Tracker) alpha(dt time.Duration) float64 {
	tau := t.cfg.SmoothingTimeConstant
	if tau <= 0 {
		return 1
	}
	return 1 - math.Exp(-dt.Seconds()/tau.Seconds())
}

func (t *Tracker) measure(prev Quaternion, s Sample, dt float64) Quaternion {
	if s.Attitude != nil {
		return s.Attitude.Normalize()
	}
	q := prev.Integrate(s.RotationRate, dt)
	g := s.Gravity
	n := g.Len()
	if n == 0 {
		return q
	}
	yaw, pitch, roll := q.Euler()
	accPitch := math.Asin(clamp(g.Z/n, -1, 1))
	accRoll := math.Atan2(-g.X/n, -g.Y/n)
	w := t.cfg.GyroWeight
	pitch = w*pitch + (1-w)*accPitch
	roll = roll + (1-w)*WrapPi(accRoll-roll)
	return FromEuler(yaw, pitch, roll)
}

func (t *Tracker) broadcastLocked() {
	yaw, pitch, roll := t.smoothed.Euler()
	o := Orientation{Yaw: yaw, Pitch: pitch, Roll: roll}
	for sub := range t.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- o
	}
}
