// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/playback"
)

// Prober describes a media source.
type Prober interface {
	Probe(ctx context.Context, src playback.Source) (playback.MediaInfo, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, src playback.Source) (playback.MediaInfo, error)

func (f ProberFunc) Probe(ctx context.Context, src playback.Source) (playback.MediaInfo, error) {
	return f(ctx, src)
}

// FFProbe runs ffprobe against the source URL.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
	Logger  zerolog.Logger
	run     runFunc
}

func NewFFProbe(binary string, timeout time.Duration, logger zerolog.Logger) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{Binary: binary, Timeout: timeout, Logger: logger, run: execRun}
}

func (p *FFProbe) Probe(ctx context.Context, src playback.Source) (playback.MediaInfo, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	args := []string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams"}
	args = append(args, headerArgs(src.Headers)...)
	args = append(args, src.URL)

	stdout, stderr, err := p.run(ctx, p.Binary, args...)
	info, parseErr := ParseProbeOutput(stdout)
	if parseErr == nil {
		if err != nil {
			// Partial files exit non-zero but still describe the streams.
			p.Logger.Warn().Err(err).Str("stderr", truncate(stderr)).Msg("ffprobe non-zero exit but JSON accepted")
		}
		return info, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return playback.MediaInfo{}, fmt.Errorf("%w: %w", ErrProbeFailed, ctxErr)
	}
	if err != nil {
		return playback.MediaInfo{}, fmt.Errorf("%w: %w (stderr: %s)", ErrProbeFailed, err, truncate(stderr))
	}
	return playback.MediaInfo{}, parseErr
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		Duration     string `json:"duration,omitempty"`
		SideDataList []struct {
			SideDataType string `json:"side_data_type"`
			Projection   string `json:"projection,omitempty"`
		} `json:"side_data_list,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// ParseProbeOutput extracts the first video stream from ffprobe JSON.
func ParseProbeOutput(out []byte) (playback.MediaInfo, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return playback.MediaInfo{}, fmt.Errorf("%w: json decode: %w", ErrProbeFailed, err)
	}

	var info playback.MediaInfo
	found := false
	for _, s := range data.Streams {
		if s.CodecType != "video" || s.CodecName == "" {
			continue
		}
		found = true
		info.Codec = s.CodecName
		info.Width = s.Width
		info.Height = s.Height
		info.Duration = parseSeconds(s.Duration)
		for _, sd := range s.SideDataList {
			if strings.EqualFold(sd.SideDataType, "Spherical Mapping") && sd.Projection != "" {
				info.Projection = strings.ToLower(sd.Projection)
			}
		}
		break
	}
	if !found {
		return playback.MediaInfo{}, ErrNoVideoStream
	}
	if info.Duration == 0 {
		info.Duration = parseSeconds(data.Format.Duration)
	}
	if info.Projection == "" && info.Height > 0 && info.Width == 2*info.Height {
		info.Projection = "equirectangular"
	}
	return info, nil
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
