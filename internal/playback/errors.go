// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import "errors"

var (
	ErrNoSession         = errors.New("no active playback session")
	ErrDisposed          = errors.New("playback disposed")
	ErrInvalidSource     = errors.New("invalid media source")
	ErrMediaLoad         = errors.New("media load failed")
	ErrIllegalTransition = errors.New("illegal playback transition")
	ErrPlayAbandoned     = errors.New("queued play abandoned")
)
