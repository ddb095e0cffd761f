// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/media"
	"github.com/ManuGH/video360/internal/playback"
)

// Kind classifies a command failure.
type Kind string

const (
	KindInvalidArgument  Kind = "InvalidArgument"
	KindOutOfBounds      Kind = "OutOfBounds"
	KindNotReady         Kind = "NotReady"
	KindNoSession        Kind = "NoSession"
	KindDisposed         Kind = "Disposed"
	KindMediaLoadFailure Kind = "MediaLoadFailure"
	KindNotImplemented   Kind = "NotImplemented"
	KindInternal         Kind = "Internal"
)

// MsgMissingArgument is reported for absent or mistyped command arguments.
const MsgMissingArgument = "Missing argument"

var (
	ErrNotFound = errors.New("view not found")
	ErrLimit    = errors.New("view limit reached")
	ErrClosed   = errors.New("registry closed")
)

// Failure is the error returned by Invoke. Code carries the method name.
type Failure struct {
	Code    string
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Code, f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func missingArgument(method string) *Failure {
	return &Failure{Code: method, Kind: KindInvalidArgument, Message: MsgMissingArgument}
}

// failureFor classifies err for method. A nil err yields nil.
func failureFor(method string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	kind := KindInternal
	switch {
	case errors.Is(err, camera.ErrOutOfBounds):
		kind = KindOutOfBounds
	case errors.Is(err, camera.ErrInvalidViewport), errors.Is(err, playback.ErrInvalidSource):
		kind = KindInvalidArgument
	case errors.Is(err, playback.ErrNoSession):
		kind = KindNoSession
	case errors.Is(err, playback.ErrDisposed):
		kind = KindDisposed
	case errors.Is(err, playback.ErrMediaLoad), errors.Is(err, media.ErrProbeFailed), errors.Is(err, media.ErrGrabFailed):
		kind = KindMediaLoadFailure
	case errors.Is(err, media.ErrNotLoaded):
		kind = KindNotReady
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindNotReady
	}
	return &Failure{Code: method, Kind: kind, Message: err.Error(), Err: err}
}
