// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"time"
)

// Policy decides what a finished session leaves behind.
type Policy struct {
	// MinPosition ignores sessions that barely started.
	MinPosition time.Duration
	// EndMargin treats positions this close to the end as finished.
	EndMargin time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MinPosition: time.Second, EndMargin: 2 * time.Second}
}

// Action is the store operation a session close maps to.
type Action int

const (
	ActionNone Action = iota
	ActionPut
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionPut:
		return "put"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// Decide maps a closed session to a store action.
func (p Policy) Decide(position, duration time.Duration, ended bool) Action {
	if duration <= 0 {
		return ActionNone
	}
	if ended || position >= duration-p.EndMargin {
		return ActionDelete
	}
	if position < p.MinPosition {
		return ActionNone
	}
	return ActionPut
}

// Record applies the policy for a closed session.
func (p Policy) Record(ctx context.Context, s Store, url string, position, duration time.Duration, ended bool, now time.Time) (Action, error) {
	action := p.Decide(position, duration, ended)
	switch action {
	case ActionPut:
		return action, s.Put(ctx, Point{URL: url, Position: position, Duration: duration, UpdatedAt: now})
	case ActionDelete:
		return action, s.Delete(ctx, url)
	default:
		return action, nil
	}
}
