// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "errors"

var (
	ErrProbeFailed   = errors.New("ffprobe failed")
	ErrNoVideoStream = errors.New("no video stream")
	ErrGrabFailed    = errors.New("frame grab failed")
	ErrNotLoaded     = errors.New("media not loaded")
	ErrClosed        = errors.New("engine closed")
)
