// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/media"
	"github.com/ManuGH/video360/internal/metrics"
	"github.com/ManuGH/video360/internal/playback"
)

const (
	methodFrame    = "frame"
	maxFrameWidth  = 3840
	maxFrameHeight = 2160
)

// Frame renders what the camera currently sees of the frame at the playhead.
// Grabbing and rendering happen off the loop; only a snapshot is taken on it.
func (v *View) Frame(ctx context.Context) (*image.RGBA, error) {
	if v.opts.Grabber == nil || v.opts.Renderer == nil {
		return nil, &Failure{Code: methodFrame, Kind: KindNotImplemented, Message: "frame rendering not configured"}
	}
	if v.disposed.Load() {
		return nil, failureFor(methodFrame, playback.ErrDisposed)
	}

	var (
		src   playback.Source
		pos   time.Duration
		cam   camera.Snapshot
		ready bool
	)
	if err := v.do(ctx, methodFrame, func() error {
		if _, ok := v.machine.MediaInfo(); !ok {
			if v.machine.State() == playback.StateIdle {
				return playback.ErrNoSession
			}
			return media.ErrNotLoaded
		}
		src, _ = v.machine.Source()
		pos, _, _ = v.machine.Sample()
		cam = v.cam.Snapshot()
		ready = true
		return nil
	}); err != nil || !ready {
		metrics.IncFrameRendered(metrics.OutcomeRejected)
		return nil, err
	}

	frame, err := v.opts.Grabber.Grab(ctx, src, pos)
	if err != nil {
		metrics.IncFrameRendered(metrics.OutcomeFailed)
		v.logger.Warn().Err(err).Str(log.FieldEvent, "view.frame_grab_failed").Msg("frame grab failed")
		return nil, failureFor(methodFrame, err)
	}

	w, h := frameSize(cam.Width, cam.Height)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := v.opts.Renderer.RenderScaled(dst, frame, cam); err != nil {
		metrics.IncFrameRendered(metrics.OutcomeFailed)
		return nil, failureFor(methodFrame, err)
	}
	metrics.IncFrameRendered(metrics.OutcomeOK)
	return dst, nil
}

// frameSize rounds the viewport to pixels, scaled down to fit the output cap.
func frameSize(width, height float64) (int, int) {
	s := math.Min(1, math.Min(maxFrameWidth/width, maxFrameHeight/height))
	w := int(math.Max(1, math.Round(width*s)))
	h := int(math.Max(1, math.Round(height*s)))
	return w, h
}
