// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/video360/internal/metrics"
)

const defaultQueueSize = 64

// Loop is a Scheduler backed by a dedicated goroutine.
type Loop struct {
	name string
	ops  chan func()
	quit chan struct{}
	done chan struct{}

	startOnce sync.Once
	mu        sync.Mutex
	stopped   bool

	timers sync.WaitGroup
}

// NewLoop creates a stopped loop. queueSize <= 0 selects the default.
func NewLoop(name string, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		name: name,
		ops:  make(chan func(), queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the coordination goroutine. Calling it more than once is a no-op.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.ops:
			// quit wins over queued work.
			select {
			case <-l.quit:
				return
			default:
			}
			fn()
		}
	}
}

// Stop terminates the loop and waits for the goroutine and all timers to exit.
// Queued callbacks that have not started are dropped. Stop must not be called
// from the coordination goroutine.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	close(l.quit)
	l.mu.Unlock()

	l.Start() // make sure done gets closed even if the loop never ran
	<-l.done
	l.timers.Wait()
}

// Done is closed once the coordination goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case <-l.quit:
		return false
	case l.ops <- fn:
		return true
	}
}

func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.ops <- fn:
		return true
	default:
		metrics.IncLoopDrop(l.name)
		return false
	}
}

// timer is cancelled by closing stop; the cancelled flag is read on the loop so a
// tick that was queued before cancel never executes afterwards.
type timer struct {
	stop      chan struct{}
	once      sync.Once
	cancelled atomic.Bool
}

func (t *timer) cancel() {
	t.cancelled.Store(true)
	t.once.Do(func() { close(t.stop) })
}

func (l *Loop) Every(interval time.Duration, fn func()) func() {
	t := &timer{stop: make(chan struct{})}
	l.timers.Add(1)
	go func() {
		defer l.timers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-l.quit:
				return
			case <-t.stop:
				return
			case <-ticker.C:
				l.TryPost(func() {
					if t.cancelled.Load() {
						return
					}
					fn()
				})
			}
		}
	}()
	return t.cancel
}

func (l *Loop) After(d time.Duration, fn func()) func() {
	t := &timer{stop: make(chan struct{})}
	l.timers.Add(1)
	go func() {
		defer l.timers.Done()
		tm := time.NewTimer(d)
		defer tm.Stop()
		select {
		case <-l.quit:
		case <-t.stop:
		case <-tm.C:
			l.Post(func() {
				if t.cancelled.Load() {
					return
				}
				fn()
			})
		}
	}()
	return t.cancel
}

var _ Scheduler = (*Loop)(nil)
