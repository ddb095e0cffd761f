// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string
	TTL     time.Duration
	Redis   RedisConfig
}

// Open creates a Store for the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(ctx, opts.Path)
	case "badger":
		return OpenBadgerStore(opts.Path, opts.TTL)
	case "redis":
		rc := opts.Redis
		if rc.TTL == 0 {
			rc.TTL = opts.TTL
		}
		return NewRedisStore(ctx, rc)
	default:
		return nil, fmt.Errorf("unknown resume backend: %s", opts.Backend)
	}
}
