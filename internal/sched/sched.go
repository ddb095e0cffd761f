// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sched provides the single-writer coordination loop that serializes
// every mutation of a view's state, plus a manual scheduler for tests.
package sched

import "time"

// Scheduler runs callbacks on one coordination goroutine.
// Implementations guarantee that callbacks never run concurrently with each other.
type Scheduler interface {
	// Post enqueues fn, blocking while the queue is full. It reports false if the
	// scheduler is stopped and fn will never run.
	Post(fn func()) bool

	// TryPost enqueues fn without blocking. It reports false if fn was dropped.
	TryPost(fn func()) bool

	// Every runs fn at a fixed interval until cancel is called. Ticks that find the
	// queue full are dropped. After cancel returns (on the coordination goroutine)
	// fn is guaranteed not to run again.
	Every(interval time.Duration, fn func()) (cancel func())

	// After runs fn once after d unless cancelled first.
	After(d time.Duration, fn func()) (cancel func())
}
