// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package camera

import "errors"

var (
	// ErrOutOfBounds rejects a pan point outside [0, width] × [0, height].
	ErrOutOfBounds = errors.New("pan point outside viewport")
	// ErrInvalidViewport rejects non-positive or non-finite viewport sizes.
	ErrInvalidViewport = errors.New("invalid viewport size")
)
