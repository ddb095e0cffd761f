// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orientation

import (
	"errors"
	"sync"
	"time"
)

// ErrSourceRunning is returned by Start on a source that already has a handler.
var ErrSourceRunning = errors.New("orientation: source already running")

// Sample is one device-motion reading. When Attitude is set it is used as the
// measurement; otherwise RotationRate is integrated and Gravity corrects tilt.
type Sample struct {
	Timestamp    time.Time   `json:"timestamp"`
	Attitude     *Quaternion `json:"attitude,omitempty"`
	RotationRate Vec3        `json:"rotationRate"`
	Gravity      Vec3        `json:"gravity"`
}

// Kind names the measurement path taken for s.
func (s Sample) Kind() string {
	switch {
	case s.Attitude != nil:
		return "attitude"
	case s.Gravity.Len() > 0:
		return "gravity"
	default:
		return "gyro"
	}
}

// Source produces samples at sensor rate once started.
type Source interface {
	Start(handler func(Sample)) error
	Stop()
}

// PushSource is a Source fed by callers through Push.
type PushSource struct {
	mu      sync.RWMutex
	handler func(Sample)
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (p *PushSource) Start(handler func(Sample)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		return ErrSourceRunning
	}
	p.handler = handler
	return nil
}

func (p *PushSource) Stop() {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
}

// Running reports whether a handler is attached.
func (p *PushSource) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.handler != nil
}

// Push delivers s to the handler. It returns false when the source is stopped
// and the sample was dropped.
func (p *PushSource) Push(s Sample) bool {
	p.mu.RLock()
	h := p.handler
	p.mu.RUnlock()
	if h == nil {
		return false
	}
	h(s)
	return true
}
