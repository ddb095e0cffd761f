// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/video360/internal/playback"
)

func staticProber(info playback.MediaInfo, err error) Prober {
	return ProberFunc(func(ctx context.Context, _ playback.Source) (playback.MediaInfo, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return playback.MediaInfo{}, ctxErr
		}
		return info, err
	})
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func loadedEngine(t *testing.T, dur time.Duration, opts ...ClockOption) *ClockEngine {
	t.Helper()
	e := NewClockEngine(staticProber(playback.MediaInfo{Duration: dur, Width: 2, Height: 1}, nil), opts...)
	_, err := e.Load(context.Background(), playback.Source{URL: "https://cdn.example.com/a.mp4"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestClockEngine_NotLoaded(t *testing.T) {
	e := NewClockEngine(staticProber(playback.MediaInfo{}, nil))
	assert.ErrorIs(t, e.Play(), ErrNotLoaded)
	assert.False(t, e.Status().ReadyToPlay)
	assert.Equal(t, time.Duration(0), e.Duration())
}

func TestClockEngine_LoadErrors(t *testing.T) {
	boom := errors.New("unreachable")
	e := NewClockEngine(staticProber(playback.MediaInfo{}, boom))
	_, err := e.Load(context.Background(), playback.Source{URL: "http://x/a.mp4"})
	require.ErrorIs(t, err, boom)

	e = NewClockEngine(staticProber(playback.MediaInfo{Width: 2, Height: 1}, nil))
	_, err = e.Load(context.Background(), playback.Source{URL: "http://x/a.mp4"})
	require.ErrorIs(t, err, ErrProbeFailed, "zero duration cannot be played")
}

func TestClockEngine_PositionFollowsClock(t *testing.T) {
	clk := &stepClock{t: time.Unix(1_700_000_000, 0)}
	e := loadedEngine(t, time.Hour, WithNow(clk.now))

	require.NoError(t, e.Play())
	clk.advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, e.Position())

	require.NoError(t, e.Pause())
	clk.advance(10 * time.Second)
	assert.Equal(t, 3*time.Second, e.Position())

	require.NoError(t, e.Seek(10*time.Minute))
	assert.Equal(t, 10*time.Minute, e.Position())
	require.NoError(t, e.Seek(2*time.Hour))
	assert.Equal(t, time.Hour, e.Position())
	require.NoError(t, e.Seek(-time.Second))
	assert.Equal(t, time.Duration(0), e.Position())

	st := e.Status()
	assert.True(t, st.Ready())
	assert.False(t, st.Playing)
}

func TestClockEngine_FiresEndOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := loadedEngine(t, 30*time.Millisecond)
	ended := make(chan struct{}, 4)
	e.OnEnd(func() { ended <- struct{}{} })

	require.NoError(t, e.Play())
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end of media not reported")
	}
	assert.Equal(t, 30*time.Millisecond, e.Position())
	assert.False(t, e.Status().Playing)

	select {
	case <-ended:
		t.Fatal("end reported twice")
	case <-time.After(50 * time.Millisecond):
	}

	// Playing again from the end restarts.
	require.NoError(t, e.Play())
	assert.Less(t, e.Position(), 30*time.Millisecond)
	require.NoError(t, e.Pause())
}

func TestClockEngine_PauseAndCloseCancelEnd(t *testing.T) {
	e := loadedEngine(t, 20*time.Millisecond)
	var calls int
	var mu sync.Mutex
	unregister := e.OnEnd(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.NoError(t, e.Play())
	require.NoError(t, e.Pause())
	time.Sleep(40 * time.Millisecond)

	unregister()
	require.NoError(t, e.Play())
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, e.Close())
	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()
	assert.ErrorIs(t, e.Status().Err, ErrClosed)
	assert.ErrorIs(t, e.Play(), ErrClosed)
}
