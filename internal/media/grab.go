// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"time"

	"github.com/ManuGH/video360/internal/playback"
)

// FrameGrabber decodes a single frame at a position.
type FrameGrabber interface {
	Grab(ctx context.Context, src playback.Source, at time.Duration) (image.Image, error)
}

// FFmpegGrabber extracts frames by piping one PNG out of ffmpeg.
type FFmpegGrabber struct {
	Binary  string
	Timeout time.Duration
	run     runFunc
}

func NewFFmpegGrabber(binary string, timeout time.Duration) *FFmpegGrabber {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegGrabber{Binary: binary, Timeout: timeout, run: execRun}
}

func grabArgs(src playback.Source, at time.Duration) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, headerArgs(src.Headers)...)
	args = append(args,
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", src.URL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	return args
}

func (g *FFmpegGrabber) Grab(ctx context.Context, src playback.Source, at time.Duration) (image.Image, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	if at < 0 {
		at = 0
	}
	stdout, stderr, err := g.run(ctx, g.Binary, grabArgs(src, at)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGrabFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %w (stderr: %s)", ErrGrabFailed, err, truncate(stderr))
	}
	img, err := png.Decode(bytes.NewReader(stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: decode png: %w", ErrGrabFailed, err)
	}
	return img, nil
}
