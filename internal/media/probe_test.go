// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/video360/internal/playback"
)

const probeJSON = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "codec_name": "hevc", "width": 5760, "height": 2880, "duration": "42.500",
     "side_data_list": [{"side_data_type": "Spherical Mapping", "projection": "equirectangular"}]}
  ],
  "format": {"duration": "43.000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseProbeOutput(t *testing.T) {
	info, err := ParseProbeOutput([]byte(probeJSON))
	require.NoError(t, err)
	assert.Equal(t, playback.MediaInfo{
		Duration:   42500 * time.Millisecond,
		Width:      5760,
		Height:     2880,
		Codec:      "hevc",
		Projection: "equirectangular",
	}, info)
}

func TestParseProbeOutput_FallbacksAndErrors(t *testing.T) {
	info, err := ParseProbeOutput([]byte(`{"streams":[{"codec_type":"video","codec_name":"h264","width":4096,"height":2048}],"format":{"duration":"10.0"}}`))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, info.Duration, "format duration used when the stream has none")
	assert.Equal(t, "equirectangular", info.Projection, "2:1 frames are assumed equirectangular")

	_, err = ParseProbeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{}}`))
	assert.ErrorIs(t, err, ErrNoVideoStream)

	_, err = ParseProbeOutput([]byte(`not json`))
	assert.ErrorIs(t, err, ErrProbeFailed)
}

func TestFFProbe_PassesHeadersAndURL(t *testing.T) {
	p := NewFFProbe("/usr/bin/ffprobe", time.Second, zerolog.Nop())
	var gotName string
	var gotArgs []string
	p.run = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte(probeJSON), nil, nil
	}

	_, err := p.Probe(context.Background(), playback.Source{
		URL:     "https://cdn.example.com/a.mp4",
		Headers: map[string]string{"X-Token": "abc", "Authorization": "Bearer t\r\nInjected: 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffprobe", gotName)
	assert.Equal(t, "https://cdn.example.com/a.mp4", gotArgs[len(gotArgs)-1])
	assert.Contains(t, gotArgs, "-headers")
	assert.Contains(t, gotArgs, "Authorization: Bearer tInjected: 1\r\nX-Token: abc\r\n")
}

func TestFFProbe_NonZeroExitWithValidJSON(t *testing.T) {
	p := NewFFProbe("", 0, zerolog.Nop())
	p.run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		return []byte(probeJSON), []byte("truncated moov"), errors.New("exit status 1")
	}
	info, err := p.Probe(context.Background(), playback.Source{URL: "file:///tmp/a.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "hevc", info.Codec)
}

func TestFFProbe_Failure(t *testing.T) {
	p := NewFFProbe("", 0, zerolog.Nop())
	p.run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, []byte("Connection refused"), errors.New("exit status 1")
	}
	_, err := p.Probe(context.Background(), playback.Source{URL: "http://127.0.0.1:1/a.mp4"})
	require.ErrorIs(t, err, ErrProbeFailed)
	assert.Contains(t, err.Error(), "Connection refused")
}

func TestFFProbe_Timeout(t *testing.T) {
	p := NewFFProbe("", 10*time.Millisecond, zerolog.Nop())
	p.run = func(ctx context.Context, _ string, _ ...string) ([]byte, []byte, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	_, err := p.Probe(context.Background(), playback.Source{URL: "http://example.com/a.mp4"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
