// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/orientation"
	"github.com/ManuGH/video360/internal/playback"
	"github.com/ManuGH/video360/internal/playback/testkit"
	"github.com/ManuGH/video360/internal/render"
	"github.com/ManuGH/video360/internal/resume"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testURL = "https://media.example.com/tour.mp4"

var testInfo = playback.MediaInfo{Duration: 20 * time.Second, Width: 3840, Height: 1920, Projection: "equirectangular"}

type engineLog struct {
	mu   sync.Mutex
	list []*testkit.FakeEngine
}

func (l *engineLog) factory(configure ...func(*testkit.FakeEngine)) playback.EngineFactory {
	return func() playback.Engine {
		e := testkit.NewFakeEngine(testInfo)
		for _, fn := range configure {
			fn(e)
		}
		l.mu.Lock()
		l.list = append(l.list, e)
		l.mu.Unlock()
		return e
	}
}

func (l *engineLog) last(t *testing.T) *testkit.FakeEngine {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.list)
	return l.list[len(l.list)-1]
}

type solidGrabber struct{ c color.RGBA }

func (g solidGrabber) Grab(context.Context, playback.Source, time.Duration) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = g.c.R, g.c.G, g.c.B, g.c.A
	}
	return img, nil
}

type fixture struct {
	t       *testing.T
	view    *View
	bus     *bus.MemoryBus
	sub     bus.Subscriber
	engines *engineLog
}

func newFixture(t *testing.T, mutate func(*Options), configure ...func(*testkit.FakeEngine)) *fixture {
	t.Helper()
	f := &fixture{t: t, bus: bus.NewMemoryBusWithBuffer(256), engines: &engineLog{}}
	opts := Options{
		Playback:        playback.Config{ReadinessPollInterval: 5 * time.Millisecond, LoadTimeout: time.Second},
		PublishInterval: 5 * time.Millisecond,
		Camera:          camera.DefaultConfig(),
		Orientation:     orientation.DefaultConfig(),
		Engines:         f.engines.factory(configure...),
		Bus:             f.bus,
		Logger:          zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.view = New("view-1", opts)
	sub, err := f.bus.Subscribe(context.Background(), f.view.Topic())
	require.NoError(t, err)
	f.sub = sub
	t.Cleanup(func() {
		f.view.Dispose()
		_ = f.sub.Close()
	})
	return f
}

func (f *fixture) invoke(method string, args Args) error {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := f.view.Invoke(ctx, method, args)
	return err
}

func (f *fixture) initArgs(url string, autoplay bool) Args {
	return Args{
		"url":        url,
		"headers":    map[string]any{"Authorization": "Bearer x"},
		"isAutoPlay": autoplay,
		"isRepeat":   false,
		"width":      400.0,
		"height":     200.0,
	}
}

func (f *fixture) status() Status {
	f.t.Helper()
	st, err := f.view.Status(context.Background())
	require.NoError(f.t, err)
	return st
}

func (f *fixture) waitState(state playback.State) {
	f.t.Helper()
	require.Eventually(f.t, func() bool {
		return f.status().State == state.String()
	}, 2*time.Second, time.Millisecond, "want state %s", state)
}

// waitEvent returns the first event named name that satisfies match.
func (f *fixture) waitEvent(name string, match func(Event) bool) Event {
	f.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-f.sub.C():
			ev, ok := msg.(Event)
			if ok && ev.Name == name && (match == nil || match(ev)) {
				return ev
			}
		case <-timeout:
			f.t.Fatalf("no %s event", name)
			return Event{}
		}
	}
}

func failureKind(t *testing.T, err error) Kind {
	t.Helper()
	var fl *Failure
	require.True(t, errors.As(err, &fl), "want *Failure, got %v", err)
	return fl.Kind
}

func TestInvoke_InitAndPlayPublishesUpdateTime(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	f.waitState(playback.StateReady)
	require.NoError(t, f.invoke(MethodPlay, nil))
	f.waitState(playback.StatePlaying)

	ev := f.waitEvent(EventUpdateTime, func(ev Event) bool {
		return ev.Data.(UpdateTime).IsPlaying
	})
	ut := ev.Data.(UpdateTime)
	assert.Equal(t, int64(20_000), ut.Total)
	assert.InDelta(t, 0, ut.CompassAngle, 1e-9)
}

func TestInvoke_AutoplayWaitsForReadiness(t *testing.T) {
	f := newFixture(t, nil, func(e *testkit.FakeEngine) { e.SetReadiness(false, false) })

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, true)))
	f.waitState(playback.StateReady)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, playback.StateReady.String(), f.status().State)

	f.engines.last(t).SetReadiness(true, true)
	f.waitState(playback.StatePlaying)
}

func TestInvoke_MissingArgument(t *testing.T) {
	f := newFixture(t, nil)

	args := f.initArgs(testURL, false)
	delete(args, "isRepeat")
	err := f.invoke(MethodInit, args)

	var fl *Failure
	require.ErrorAs(t, err, &fl)
	assert.Equal(t, MethodInit, fl.Code)
	assert.Equal(t, KindInvalidArgument, fl.Kind)
	assert.Equal(t, MsgMissingArgument, fl.Message)

	err = f.invoke(MethodJumpTo, Args{"millisecond": "soon", "autoplay": false})
	assert.Equal(t, KindInvalidArgument, failureKind(t, err))
}

func TestInvoke_InvalidSourceAndViewport(t *testing.T) {
	f := newFixture(t, nil)

	err := f.invoke(MethodInit, f.initArgs("not a url", false))
	assert.Equal(t, KindInvalidArgument, failureKind(t, err))

	args := f.initArgs(testURL, false)
	args["width"] = 0.0
	err = f.invoke(MethodInit, args)
	assert.Equal(t, KindInvalidArgument, failureKind(t, err))
	assert.Equal(t, playback.StateIdle.String(), f.status().State)
}

func TestInvoke_UnknownMethod(t *testing.T) {
	f := newFixture(t, nil)
	err := f.invoke("zoom", nil)
	assert.Equal(t, KindNotImplemented, failureKind(t, err))
}

func TestInvoke_NoSession(t *testing.T) {
	f := newFixture(t, nil)
	for _, m := range []string{MethodPlay, MethodStop} {
		assert.Equal(t, KindNoSession, failureKind(t, f.invoke(m, nil)), m)
	}
	err := f.invoke(MethodJumpTo, Args{"millisecond": 1000.0, "autoplay": false})
	assert.Equal(t, KindNoSession, failureKind(t, err))
}

func TestInvoke_PanOutOfBoundsLeavesCamera(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))

	err := f.invoke(MethodOnPanUpdate, Args{"isStart": true, "x": 500.0, "y": 10.0})
	assert.Equal(t, KindOutOfBounds, failureKind(t, err))

	cam := f.status().Camera
	assert.InDelta(t, math.Pi, cam.Yaw, 1e-12)
	assert.False(t, cam.Panning)
}

func TestInvoke_PanEmitsCompassAngle(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))

	require.NoError(t, f.invoke(MethodOnPanUpdate, Args{"isStart": true, "x": 200.0, "y": 100.0}))
	require.NoError(t, f.invoke(MethodOnPanUpdate, Args{"isStart": false, "x": 100.0, "y": 100.0}))

	want := camera.CompassAngle(math.Pi + 100*camera.DefaultConfig().PanSensitivity)
	ev := f.waitEvent(EventUpdateCompassAngle, func(ev Event) bool {
		return math.Abs(ev.Data.(UpdateCompassAngle).CompassAngle-want) < 1e-9
	})
	assert.NotNil(t, ev.Data)

	require.NoError(t, f.invoke(MethodOnPanEnd, nil))
	assert.False(t, f.status().Camera.Panning)

	require.NoError(t, f.invoke(MethodCenterCamera, nil))
	assert.InDelta(t, 0, f.status().Camera.CompassAngle, 1e-12)
}

func TestPanIdleTimeoutEndsPan(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.PanIdleTimeout = 10 * time.Millisecond })
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))

	require.NoError(t, f.invoke(MethodOnPanUpdate, Args{"isStart": true, "x": 10.0, "y": 10.0}))
	assert.True(t, f.status().Camera.Panning)
	assert.Eventually(t, func() bool { return !f.status().Camera.Panning }, time.Second, 2*time.Millisecond)
}

func TestLoadFailurePublishesLoadError(t *testing.T) {
	f := newFixture(t, nil, func(e *testkit.FakeEngine) { e.FailLoad(errors.New("403 forbidden")) })

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, true)))
	ev := f.waitEvent(EventLoadError, nil)
	le := ev.Data.(LoadError)
	assert.Equal(t, testURL, le.URL)
	assert.Contains(t, le.Message, "403 forbidden")
	f.waitState(playback.StateIdle)
}

func TestMotionRequiresTracking(t *testing.T) {
	f := newFixture(t, nil)
	sample := orientation.Sample{Timestamp: time.Now(), Gravity: orientation.Vec3{Y: -1}}

	assert.False(t, f.view.PushMotion(sample))
	require.NoError(t, f.invoke(MethodSetOrientationTracking, Args{"enabled": true}))
	assert.True(t, f.view.PushMotion(sample))
	assert.True(t, f.status().Camera.TrackingEnabled)

	require.NoError(t, f.invoke(MethodSetOrientationTracking, Args{"enabled": false}))
	assert.False(t, f.view.PushMotion(sample))
}

func TestResumePointRoundTrip(t *testing.T) {
	store := resume.NewMemoryStore()
	f := newFixture(t, func(o *Options) { o.Resume = store })

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	f.waitState(playback.StateReady)
	f.engines.last(t).SetPosition(7 * time.Second)

	// re-init tears the first session down and records its position
	require.NoError(t, f.invoke(MethodInit, f.initArgs("https://media.example.com/other.mp4", false)))
	require.Eventually(t, func() bool {
		p, err := store.Get(context.Background(), testURL)
		return err == nil && p.Position == 7*time.Second
	}, time.Second, time.Millisecond)

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	f.waitState(playback.StateReady)
	assert.Contains(t, f.engines.last(t).Calls(), "seek:7s")
}

func TestFrame(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Grabber = solidGrabber{c: color.RGBA{R: 200, A: 255}}
		o.Renderer = render.New(render.DefaultConfig())
	})

	_, err := f.view.Frame(context.Background())
	assert.Equal(t, KindNoSession, failureKind(t, err))

	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	f.waitState(playback.StateReady)

	img, err := f.view.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), img.Bounds())
	assert.Equal(t, color.RGBA{R: 200, A: 255}, img.RGBAAt(200, 100))
}

func TestFrame_NotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.view.Frame(context.Background())
	assert.Equal(t, KindNotImplemented, failureKind(t, err))
}

func TestDispose(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, true)))
	require.NoError(t, f.invoke(MethodSetOrientationTracking, Args{"enabled": true}))
	f.waitState(playback.StatePlaying)
	engine := f.engines.last(t)
	require.True(t, f.view.tracker.Running())

	require.NoError(t, f.invoke(MethodDispose, nil))
	require.NoError(t, f.invoke(MethodDispose, nil))
	assert.True(t, f.view.Disposed())
	assert.True(t, engine.Closed())
	assert.Equal(t, 0, engine.EndListeners())
	assert.False(t, f.view.tracker.Running(), "orientation source stopped")

	assert.Equal(t, KindDisposed, failureKind(t, f.invoke(MethodPlay, nil)))
	assert.False(t, f.view.PushMotion(orientation.Sample{Timestamp: time.Now()}))

	// late engine callbacks must not reach the disposed session
	engine.FinishPlayback()

	// drain, then make sure nothing else arrives
	for len(f.sub.C()) > 0 {
		<-f.sub.C()
	}
	select {
	case msg := <-f.sub.C():
		t.Fatalf("event after dispose: %#v", msg)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDispose_ReleasesSessionAndRecordsResumePoint(t *testing.T) {
	for i := 0; i < 20; i++ {
		store := resume.NewMemoryStore()
		f := newFixture(t, func(o *Options) { o.Resume = store })
		require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, true)))
		f.waitState(playback.StatePlaying)
		engine := f.engines.last(t)
		engine.SetPosition(7 * time.Second)

		f.view.Dispose()

		require.True(t, engine.Closed(), "run %d", i)
		assert.Equal(t, 0, engine.EndListeners(), "run %d", i)
		select {
		case <-f.view.Done():
		default:
			t.Fatalf("run %d: loop still running after Dispose", i)
		}
		p, err := store.Get(context.Background(), testURL)
		require.NoError(t, err, "run %d: resume point written before Dispose returns", i)
		assert.Equal(t, 7*time.Second, p.Position)
	}
}

func TestDispose_DuringLoadDoesNotWaitForTimeout(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Playback.LoadTimeout = time.Minute }, (*testkit.FakeEngine).HoldLoad)
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	<-f.engines.last(t).LoadCalled()

	start := time.Now()
	f.view.Dispose()
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, f.engines.last(t).Closed())
}

func TestInvoke_HugeSeekSaturates(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, false)))
	f.waitState(playback.StateReady)

	require.NoError(t, f.invoke(MethodJumpTo, Args{"millisecond": 1e13, "autoplay": false}))
	assert.Equal(t, int64(20_000), f.status().Position, "past the end clamps to the duration")

	require.NoError(t, f.invoke(MethodJumpTo, Args{"millisecond": -1e13, "autoplay": false}))
	assert.Equal(t, int64(0), f.status().Position)

	require.NoError(t, f.invoke(MethodJumpTo, Args{"millisecond": 10_000.0, "autoplay": false}))
	require.NoError(t, f.invoke(MethodSeekTo, Args{"millisecond": 1e300, "autoplay": false}))
	assert.Equal(t, int64(20_000), f.status().Position)

	require.NoError(t, f.invoke(MethodSeekTo, Args{"millisecond": -1e300, "autoplay": false}))
	assert.Equal(t, int64(0), f.status().Position)
}

func TestEngineFailurePublishesPlayError(t *testing.T) {
	f := newFixture(t, nil, func(e *testkit.FakeEngine) { e.SetReadiness(false, false) })
	require.NoError(t, f.invoke(MethodInit, f.initArgs(testURL, true)))
	f.waitState(playback.StateReady)

	f.engines.last(t).FailStatus(errors.New("decoder reset"))
	ev := f.waitEvent(EventPlayError, nil)
	pe := ev.Data.(LoadError)
	assert.Equal(t, testURL, pe.URL)
	assert.Contains(t, pe.Message, "decoder reset")
	assert.Equal(t, playback.StateReady.String(), f.status().State)
}

func TestFrameSize(t *testing.T) {
	w, h := frameSize(400, 200)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)

	w, h = frameSize(7680, 4320)
	assert.Equal(t, 3840, w)
	assert.Equal(t, 2160, h)
}

func TestAngularDistance(t *testing.T) {
	assert.InDelta(t, 0.2, angularDistance(0.1, 2*math.Pi-0.1), 1e-12)
	assert.InDelta(t, math.Pi, angularDistance(0, math.Pi), 1e-12)
}
