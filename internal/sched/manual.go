// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sched

import (
	"sync"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until the test
// calls RunPending or Advance, and callbacks run on the calling goroutine.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	queue   []func()
	timers  []*manualTimer
	stopped bool
}

type manualTimer struct {
	due       time.Time
	interval  time.Duration
	fn        func()
	cancelled bool
}

// NewManual returns a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the scheduler's virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.queue = append(m.queue, fn)
	return true
}

func (m *Manual) TryPost(fn func()) bool {
	return m.Post(fn)
}

func (m *Manual) Every(interval time.Duration, fn func()) func() {
	return m.add(interval, interval, fn)
}

func (m *Manual) After(d time.Duration, fn func()) func() {
	return m.add(d, 0, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{due: m.now.Add(delay), interval: interval, fn: fn}
	if m.stopped {
		t.cancelled = true
	} else {
		m.timers = append(m.timers, t)
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.cancelled = true
	}
}

// ActiveTimers counts timers that have not been cancelled or fired.
func (m *Manual) ActiveTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// RunPending runs posted callbacks, including ones posted while running, and
// returns how many ran.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return ran
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
		ran++
	}
}

// Advance moves the virtual clock forward by d, firing due timers in order and
// draining posted callbacks after each one.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			m.RunPending()
			return
		}
		m.now = next.due
		if next.interval > 0 {
			next.due = next.due.Add(next.interval)
		} else {
			next.cancelled = true
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
		m.RunPending()
	}
}

func (m *Manual) nextDueLocked(limit time.Time) *manualTimer {
	var next *manualTimer
	live := m.timers[:0]
	for _, t := range m.timers {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if t.due.After(limit) {
			continue
		}
		if next == nil || t.due.Before(next.due) {
			next = t
		}
	}
	m.timers = live
	return next
}

// Stop drops queued callbacks and cancels every timer.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.queue = nil
	for _, t := range m.timers {
		t.cancelled = true
	}
}

var _ Scheduler = (*Manual)(nil)
