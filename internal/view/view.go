// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package view hosts one 360° video view: a playback session, its camera and
// the orientation tracker, all driven from a single coordination loop.
package view

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/media"
	"github.com/ManuGH/video360/internal/metrics"
	"github.com/ManuGH/video360/internal/orientation"
	"github.com/ManuGH/video360/internal/playback"
	"github.com/ManuGH/video360/internal/publisher"
	"github.com/ManuGH/video360/internal/render"
	"github.com/ManuGH/video360/internal/resume"
	"github.com/ManuGH/video360/internal/sched"
)

const (
	defaultCompassEventRate = 30
	defaultCompassEpsilon   = 1e-3
	resumeWriteTimeout      = 5 * time.Second
)

// Options wire a view to its collaborators. Engines and Bus are required.
type Options struct {
	Playback        playback.Config
	PublishInterval time.Duration
	Camera          camera.Config
	// PanIdleTimeout ends a pan when no update arrives for this long.
	PanIdleTimeout time.Duration
	Orientation    orientation.Config
	// CompassEventRate caps updateCompassAngle events per second.
	CompassEventRate float64
	// CompassEpsilon is the smallest angle change (radians) worth an event.
	CompassEpsilon float64

	Engines  playback.EngineFactory
	Grabber  media.FrameGrabber
	Renderer *render.Renderer

	// Resume is optional; nil disables resume points.
	Resume       resume.Store
	ResumePolicy resume.Policy

	Bus    bus.Bus
	Logger zerolog.Logger
}

// View is safe for concurrent use. All state mutation happens on its loop.
type View struct {
	id     string
	opts   Options
	logger zerolog.Logger
	topic  string

	loop    *sched.Loop
	cam     *camera.Controller
	machine *playback.Machine
	pub     *publisher.Publisher
	motion  *orientation.PushSource
	tracker *orientation.Tracker

	// Owned by the loop.
	trackSub        *orientation.Subscription
	compass         *rate.Limiter
	lastCompass     float64
	compassSent     bool
	compassTrailing func()
	panIdleCancel   func()

	disposeOnce sync.Once
	disposed    atomic.Bool
	bg          sync.WaitGroup
}

// New creates and starts a view.
func New(id string, opts Options) *View {
	if opts.CompassEventRate <= 0 {
		opts.CompassEventRate = defaultCompassEventRate
	}
	if opts.CompassEpsilon <= 0 {
		opts.CompassEpsilon = defaultCompassEpsilon
	}
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = publisher.DefaultInterval
	}
	if opts.ResumePolicy == (resume.Policy{}) {
		opts.ResumePolicy = resume.DefaultPolicy()
	}

	v := &View{
		id:     id,
		opts:   opts,
		topic:  Topic(id),
		loop:   sched.NewLoop("view", 0),
		cam:    camera.NewController(opts.Camera),
		motion: orientation.NewPushSource(),
	}
	v.logger = opts.Logger.With().
		Str(log.FieldComponent, "view").
		Str(log.FieldViewID, id).
		Logger()
	v.compass = rate.NewLimiter(rate.Limit(opts.CompassEventRate), 1)
	v.tracker = orientation.NewTracker(v.motion, opts.Orientation)
	v.machine = playback.NewMachine(opts.Playback, v.loop, opts.Engines, playback.Hooks{
		OnStateChange:   v.onStateChange,
		OnLoadError:     v.onLoadError,
		OnPlayError:     v.onPlayError,
		OnSessionClosed: v.onSessionClosed,
	}, v.logger)
	v.pub = publisher.New(v.loop, opts.PublishInterval, v.sample, v.emitTime)

	v.loop.Start()
	if opts.Camera.TrackingEnabled {
		v.loop.Post(func() {
			if err := v.setTracking(true); err != nil {
				v.logger.Warn().Err(err).Msg("orientation tracking unavailable")
			}
		})
	}

	metrics.ViewOpened()
	v.logger.Info().Str(log.FieldEvent, "view.opened").Msg("view opened")
	return v
}

func (v *View) ID() string { return v.id }

// Topic is the bus topic this view publishes events on.
func (v *View) Topic() string { return v.topic }

// Disposed reports whether Dispose has run.
func (v *View) Disposed() bool { return v.disposed.Load() }

// Done is closed once the view's loop has stopped.
func (v *View) Done() <-chan struct{} { return v.loop.Done() }

// Invoke runs a command of the method table and returns its result. Failures
// are *Failure values.
func (v *View) Invoke(ctx context.Context, method string, args Args) (any, error) {
	result, err := v.invoke(ctx, method, args)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
		var f *Failure
		if errors.As(err, &f) {
			switch f.Kind {
			case KindInvalidArgument, KindOutOfBounds, KindNotImplemented, KindNoSession, KindDisposed:
				outcome = metrics.OutcomeRejected
			}
		}
	}
	metrics.IncCommand(method, outcome, IsKnownMethod(method))
	return result, err
}

func (v *View) invoke(ctx context.Context, method string, args Args) (any, error) {
	if !IsKnownMethod(method) {
		return nil, &Failure{Code: method, Kind: KindNotImplemented, Message: "method not implemented"}
	}
	if method == MethodDispose {
		v.Dispose()
		return nil, nil
	}
	if v.disposed.Load() {
		return nil, failureFor(method, playback.ErrDisposed)
	}

	switch method {
	case MethodInit:
		p, ok := parseInit(args)
		if !ok {
			return nil, missingArgument(method)
		}
		if !(p.width > 0 && p.height > 0) {
			return nil, failureFor(method, camera.ErrInvalidViewport)
		}
		src := playback.Source{URL: p.url, Headers: p.headers}
		opts := playback.Options{Autoplay: p.autoplay, Loop: p.repeat, StartAt: v.resumePosition(ctx, p.url)}
		return nil, v.do(ctx, method, func() error {
			if err := v.machine.Init(src, opts); err != nil {
				return err
			}
			return v.cam.Resize(p.width, p.height)
		})

	case MethodPlay:
		return nil, v.do(ctx, method, v.machine.Play)

	case MethodStop:
		return nil, v.do(ctx, method, v.machine.Stop)

	case MethodReset:
		autoplay, ok := args.Bool("autoplay")
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.machine.Reset(autoplay) })

	case MethodJumpTo:
		p, ok := parseSeek(args)
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.machine.JumpTo(p.at, p.autoplay) })

	case MethodSeekTo:
		p, ok := parseSeek(args)
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.machine.SeekTo(p.at, p.autoplay) })

	case MethodOnPanUpdate:
		p, ok := parsePan(args)
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.pan(p) })

	case MethodOnPanEnd:
		return nil, v.do(ctx, method, func() error {
			v.endPan()
			return nil
		})

	case MethodResize:
		w, h, ok := parseSize(args)
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.cam.Resize(w, h) })

	case MethodCenterCamera:
		return nil, v.do(ctx, method, func() error {
			v.cam.Recenter()
			v.maybeEmitCompass()
			return nil
		})

	case MethodSetOrientationTracking:
		enabled, ok := args.Bool("enabled")
		if !ok {
			return nil, missingArgument(method)
		}
		return nil, v.do(ctx, method, func() error { return v.setTracking(enabled) })
	}
	return nil, &Failure{Code: method, Kind: KindNotImplemented, Message: "method not implemented"}
}

// do runs fn on the loop and waits for its result.
func (v *View) do(ctx context.Context, method string, fn func() error) error {
	res := make(chan error, 1)
	if !v.loop.Post(func() { res <- fn() }) {
		return failureFor(method, playback.ErrDisposed)
	}
	select {
	case err := <-res:
		return failureFor(method, err)
	case <-ctx.Done():
		return failureFor(method, ctx.Err())
	case <-v.loop.Done():
		select {
		case err := <-res:
			return failureFor(method, err)
		default:
			return failureFor(method, playback.ErrDisposed)
		}
	}
}

// PushMotion feeds a device motion sample to the tracker. It reports false
// when tracking is off and the sample was dropped.
func (v *View) PushMotion(s orientation.Sample) bool {
	if v.disposed.Load() {
		return false
	}
	return v.motion.Push(s)
}

// Status is a point-in-time description of the view.
type Status struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	SessionID string          `json:"sessionId,omitempty"`
	Position  int64           `json:"positionMillis"`
	Duration  int64           `json:"durationMillis"`
	Playing   bool            `json:"isPlaying"`
	Camera    camera.Snapshot `json:"camera"`
}

func (v *View) Status(ctx context.Context) (Status, error) {
	var st Status
	err := v.do(ctx, "status", func() error {
		pos, dur, playing := v.machine.Sample()
		st = Status{
			ID:        v.id,
			State:     v.machine.State().String(),
			SessionID: v.machine.SessionID(),
			Position:  pos.Milliseconds(),
			Duration:  dur.Milliseconds(),
			Playing:   playing,
			Camera:    v.cam.Snapshot(),
		}
		return nil
	})
	return st, err
}

// Dispose tears the view down. After it returns no timer, sensor or engine
// callback touches the view and nothing more is published. Idempotent.
func (v *View) Dispose() {
	v.disposeOnce.Do(func() {
		v.disposed.Store(true)
		// Teardown runs on the loop and must finish before the loop stops;
		// Stop drops work that is still queued.
		torn := make(chan struct{})
		posted := v.loop.Post(func() {
			defer close(torn)
			v.teardown()
		})
		ran := false
		if posted {
			select {
			case <-torn:
				ran = true
			case <-v.loop.Done():
			}
		}
		v.loop.Stop()
		if !ran {
			// The loop is gone, so running here cannot race with it.
			v.teardown()
		}
		v.machine.Wait()
		v.bg.Wait()
		metrics.ViewClosed()
		v.logger.Info().Str(log.FieldEvent, "view.disposed").Msg("view disposed")
	})
}

// teardown releases everything the loop owns. Closing the tracker
// subscription ends forwardOrientation.
func (v *View) teardown() {
	v.cancelPanIdle()
	if v.compassTrailing != nil {
		v.compassTrailing()
		v.compassTrailing = nil
	}
	if v.trackSub != nil {
		v.trackSub.Close()
		v.trackSub = nil
	}
	v.pub.Stop()
	v.machine.Dispose()
}

func (v *View) pan(p panArgs) error {
	pt := camera.Point{X: p.x, Y: p.y}
	var err error
	if p.start {
		err = v.cam.BeginPan(pt)
	} else {
		err = v.cam.UpdatePan(pt)
	}
	if errors.Is(err, camera.ErrOutOfBounds) {
		metrics.IncPanRejected()
		snap := v.cam.Snapshot()
		v.logger.Debug().
			Float64("x", p.x).
			Float64("y", p.y).
			Float64("width", snap.Width).
			Float64("height", snap.Height).
			Msg("pan outside viewport")
		return err
	}
	if err != nil {
		return err
	}
	v.armPanIdle()
	v.maybeEmitCompass()
	return nil
}

func (v *View) endPan() {
	v.cancelPanIdle()
	v.cam.EndPan()
}

func (v *View) armPanIdle() {
	if v.opts.PanIdleTimeout <= 0 {
		return
	}
	v.cancelPanIdle()
	v.panIdleCancel = v.loop.After(v.opts.PanIdleTimeout, func() {
		v.panIdleCancel = nil
		if v.cam.Panning() {
			v.logger.Debug().Str(log.FieldEvent, "view.pan_idle").Msg("ending idle pan")
			v.cam.EndPan()
		}
	})
}

func (v *View) cancelPanIdle() {
	if v.panIdleCancel != nil {
		v.panIdleCancel()
		v.panIdleCancel = nil
	}
}

func (v *View) setTracking(enabled bool) error {
	if enabled && v.trackSub == nil {
		sub, err := v.tracker.Subscribe()
		if err != nil {
			return err
		}
		v.trackSub = sub
		v.bg.Add(1)
		go v.forwardOrientation(sub)
	}
	if !enabled && v.trackSub != nil {
		v.trackSub.Close()
		v.trackSub = nil
	}
	v.cam.SetOrientationTrackingEnabled(enabled)
	return nil
}

// forwardOrientation relays tracker output onto the loop until sub closes.
func (v *View) forwardOrientation(sub *orientation.Subscription) {
	defer v.bg.Done()
	for o := range sub.C() {
		v.loop.TryPost(func() {
			if v.trackSub != sub {
				return
			}
			if v.cam.ApplyOrientation(o) {
				v.maybeEmitCompass()
			}
		})
	}
}

func (v *View) maybeEmitCompass() {
	angle := v.cam.Snapshot().CompassAngle
	if v.compassSent && angularDistance(angle, v.lastCompass) < v.opts.CompassEpsilon {
		return
	}
	if !v.compass.Allow() {
		// Rate limited: retry once the next token is due so the final
		// angle of a gesture is never lost.
		if v.compassTrailing == nil {
			wait := time.Duration(float64(time.Second) / v.opts.CompassEventRate)
			v.compassTrailing = v.loop.After(wait, func() {
				v.compassTrailing = nil
				v.maybeEmitCompass()
			})
		}
		return
	}
	v.lastCompass, v.compassSent = angle, true
	v.publish(EventUpdateCompassAngle, UpdateCompassAngle{CompassAngle: angle})
}

func angularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	return math.Min(d, 2*math.Pi-d)
}

func (v *View) sample() publisher.Snapshot {
	pos, dur, playing := v.machine.Sample()
	return publisher.Snapshot{
		Position:     pos,
		Duration:     dur,
		Playing:      playing,
		CompassAngle: v.cam.Snapshot().CompassAngle,
	}
}

func (v *View) emitTime(s publisher.Snapshot) bool {
	return v.publish(EventUpdateTime, UpdateTime{
		Duration:     s.PositionMillis(),
		Total:        s.DurationMillis(),
		IsPlaying:    s.Playing,
		CompassAngle: s.CompassAngle,
	})
}

func (v *View) publish(name string, data any) bool {
	return v.opts.Bus.TryPublish(v.topic, Event{Name: name, Data: data})
}

func (v *View) onStateChange(_, to playback.State) {
	switch {
	case to.IsTerminal() || to == playback.StateIdle:
		v.pub.Stop()
	default:
		v.pub.Start()
	}
}

func (v *View) onLoadError(src playback.Source, err error) {
	v.publish(EventLoadError, LoadError{URL: src.URL, Message: err.Error()})
}

func (v *View) onPlayError(src playback.Source, err error) {
	v.publish(EventPlayError, LoadError{URL: src.URL, Message: err.Error()})
}

func (v *View) resumePosition(ctx context.Context, url string) time.Duration {
	if v.opts.Resume == nil {
		return 0
	}
	p, err := v.opts.Resume.Get(ctx, url)
	if err != nil {
		if !errors.Is(err, resume.ErrNotFound) {
			v.logger.Warn().Err(err).Str(log.FieldEvent, "resume.lookup_failed").Msg("resume lookup failed")
		}
		return 0
	}
	v.logger.Debug().
		Str(log.FieldEvent, "resume.found").
		Int64(log.FieldPosition, p.Position.Milliseconds()).
		Msg("resuming from saved position")
	return p.Position
}

// onSessionClosed persists the resume point off the loop.
func (v *View) onSessionClosed(s playback.Summary) {
	store := v.opts.Resume
	if store == nil {
		return
	}
	policy := v.opts.ResumePolicy
	v.bg.Add(1)
	go func() {
		defer v.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), resumeWriteTimeout)
		defer cancel()
		action, err := policy.Record(ctx, store, s.Source.URL, s.Position, s.Duration, s.Ended, time.Now().UTC())
		if err != nil {
			v.logger.Warn().Err(err).
				Str(log.FieldEvent, "resume.write_failed").
				Str(log.FieldSessionID, s.SessionID).
				Msg("failed to record resume point")
			return
		}
		v.logger.Debug().
			Str(log.FieldEvent, "resume.recorded").
			Str(log.FieldSessionID, s.SessionID).
			Str("action", action.String()).
			Int64(log.FieldPosition, s.Position.Milliseconds()).
			Msg("resume point recorded")
	}()
}
