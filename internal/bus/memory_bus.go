// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// MemoryBus is an in-process pub/sub. Subscribers that stop reading lose
// lossy messages and eventually block blocking publishers until ctx is done.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

const dropLogEvery = 100

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(DefaultBuffer)
}

func NewMemoryBusWithBuffer(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: buffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func recordDrop(topic, reason string) {
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 0 {
		log.L().Warn().
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped messages")
	}
}

func (b *MemoryBus) snapshot(topic string) []*memSub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*memSub(nil), b.subs[topic]...)
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	for _, s := range b.snapshot(topic) {
		if err := s.send(ctx, msg); err != nil {
			if errors.Is(err, errSubClosed) {
				continue
			}
			recordDrop(topic, publishDropReason(err))
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	return nil
}

func (b *MemoryBus) TryPublish(topic string, msg Message) bool {
	all := true
	for _, s := range b.snapshot(topic) {
		if !s.trySend(msg) {
			recordDrop(topic, "full")
			all = false
		}
	}
	return all
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.buffer), done: make(chan struct{})}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	return s, nil
}

// Subscribers counts open subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

var errSubClosed = errors.New("subscriber closed")

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message

	// mu guards ch against sends racing with Close.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) send(ctx context.Context, msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSubClosed
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return errSubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) trySend(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		// Unblock pending senders before taking the write lock.
		close(s.done)

		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
