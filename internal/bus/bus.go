// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus carries view events from the coordination goroutine to stream
// subscribers.
package bus

import "context"

// Message is any event payload.
type Message any

// Subscriber receives messages for one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}

type Bus interface {
	// Publish delivers msg to every subscriber, blocking until each accepts
	// it or ctx is done.
	Publish(ctx context.Context, topic string, msg Message) error
	// TryPublish delivers msg to subscribers with free buffer space and
	// drops it for the rest. It reports whether every subscriber got it.
	TryPublish(topic string, msg Message) bool
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
