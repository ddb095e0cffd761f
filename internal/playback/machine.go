// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/metrics"
	"github.com/ManuGH/video360/internal/sched"
)

type Config struct {
	// ReadinessPollInterval is the cadence of the pending play watch.
	ReadinessPollInterval time.Duration
	// LoadTimeout bounds Engine.Load.
	LoadTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReadinessPollInterval: 500 * time.Millisecond,
		LoadTimeout:           30 * time.Second,
	}
}

// Options are the per-session flags of an init request.
type Options struct {
	Autoplay bool
	Loop     bool
	// StartAt seeks once the asset is ready.
	StartAt time.Duration
}

// Summary describes a session at teardown.
type Summary struct {
	SessionID string
	Source    Source
	Position  time.Duration
	Duration  time.Duration
	Ended     bool
}

// Hooks observe the machine. They run on the owner's goroutine.
type Hooks struct {
	OnStateChange func(from, to State)
	OnLoadError   func(src Source, err error)
	// OnPlayError reports a queued play request that was dropped because the
	// engine failed before the readiness gate opened.
	OnPlayError     func(src Source, err error)
	OnSessionClosed func(Summary)
}

type session struct {
	id     string
	src    Source
	opts   Options
	engine Engine
	info   MediaInfo
	loaded bool

	loadCancel  context.CancelFunc
	unregEnd    func()
	watchCancel func()
	wantPlay    bool
	pendingSeek *time.Duration
}

// Machine is the playback control state machine. Every method must be called
// from the scheduler's goroutine; engine callbacks are marshalled onto it.
type Machine struct {
	cfg       Config
	sched     sched.Scheduler
	newEngine EngineFactory
	hooks     Hooks
	logger    zerolog.Logger

	state State
	sess  *session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMachine(cfg Config, s sched.Scheduler, factory EngineFactory, hooks Hooks, logger zerolog.Logger) *Machine {
	def := DefaultConfig()
	if cfg.ReadinessPollInterval <= 0 {
		cfg.ReadinessPollInterval = def.ReadinessPollInterval
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = def.LoadTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		cfg:       cfg,
		sched:     s,
		newEngine: factory,
		hooks:     hooks,
		logger:    logger.With().Str(log.FieldComponent, "playback").Logger(),
		state:     StateIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *Machine) State() State { return m.state }

// SessionID returns the active session id, or "".
func (m *Machine) SessionID() string {
	if m.sess == nil {
		return ""
	}
	return m.sess.id
}

// Source returns the active session's source.
func (m *Machine) Source() (Source, bool) {
	if m.sess == nil {
		return Source{}, false
	}
	return m.sess.src, true
}

// MediaInfo returns the loaded asset description.
func (m *Machine) MediaInfo() (MediaInfo, bool) {
	if m.sess == nil || !m.sess.loaded {
		return MediaInfo{}, false
	}
	return m.sess.info, true
}

// Sample reads the values published per tick. Position never exceeds a
// known duration.
func (m *Machine) Sample() (position, duration time.Duration, playing bool) {
	if m.sess == nil || !m.sess.loaded {
		return 0, 0, false
	}
	e := m.sess.engine
	position, duration = e.Position(), e.Duration()
	if position < 0 {
		position = 0
	}
	if duration > 0 && position > duration {
		position = duration
	}
	return position, duration, m.state == StatePlaying
}

// PendingPlay reports whether a play request waits on the readiness gate.
func (m *Machine) PendingPlay() bool {
	return m.sess != nil && m.sess.watchCancel != nil
}

// Init tears down any current session and starts loading src.
func (m *Machine) Init(src Source, opts Options) error {
	if m.state == StateDisposed {
		return ErrDisposed
	}
	if err := validateSource(src); err != nil {
		return err
	}
	if m.sess != nil {
		m.closeSession()
	}

	sess := &session{
		id:     uuid.NewString(),
		src:    src,
		opts:   opts,
		engine: m.newEngine(),
	}
	if opts.StartAt > 0 {
		at := opts.StartAt
		sess.pendingSeek = &at
	}
	m.sess = sess
	if err := m.transition(EvInit); err != nil {
		return err
	}
	m.logger.Info().
		Str(log.FieldEvent, "playback.init").
		Str(log.FieldSessionID, sess.id).
		Str(log.FieldURL, redactURL(src.URL)).
		Bool("autoplay", opts.Autoplay).
		Bool("loop", opts.Loop).
		Msg("session initializing")

	if opts.Autoplay {
		m.requestPlay()
	}
	m.startLoad(sess)
	return nil
}

func (m *Machine) startLoad(sess *session) {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.LoadTimeout)
	sess.loadCancel = cancel
	engine := sess.engine
	src := sess.src

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		start := time.Now()
		info, err := engine.Load(ctx, src)
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.ObserveMediaLoad(outcome, time.Since(start).Seconds())
		m.sched.Post(func() { m.onLoaded(sess, info, err) })
	}()
}

func (m *Machine) onLoaded(sess *session, info MediaInfo, err error) {
	if sess != m.sess || m.state != StateInitializing {
		return
	}
	if err != nil {
		loadErr := fmt.Errorf("%w: %w", ErrMediaLoad, err)
		m.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "playback.load_failed").
			Str(log.FieldSessionID, sess.id).
			Str(log.FieldURL, redactURL(sess.src.URL)).
			Msg("media load failed")
		m.closeSession()
		if terr := m.transition(EvLoadFailed); terr != nil {
			return
		}
		if m.hooks.OnLoadError != nil {
			m.hooks.OnLoadError(sess.src, loadErr)
		}
		return
	}

	sess.info = info
	sess.loaded = true
	sess.unregEnd = sess.engine.OnEnd(func() {
		m.sched.Post(func() { m.onEnd(sess) })
	})
	if err := m.transition(EvLoaded); err != nil {
		return
	}
	m.logger.Info().
		Str(log.FieldEvent, "playback.ready").
		Str(log.FieldSessionID, sess.id).
		Int64(log.FieldDuration, info.Duration.Milliseconds()).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", info.Width, info.Height)).
		Msg("media ready")

	if sess.pendingSeek != nil {
		pos := *sess.pendingSeek
		sess.pendingSeek = nil
		m.seek(pos)
	}
	if sess.wantPlay {
		m.pollReadiness(sess)
	}
}

// Play requests Playing behind the readiness gate. From Ended it restarts
// from the beginning.
func (m *Machine) Play() error {
	if err := m.requireSession(); err != nil {
		return err
	}
	switch m.state {
	case StatePlaying:
		return nil
	case StateEnded:
		if err := m.sess.engine.Seek(0); err != nil {
			m.logger.Warn().Err(err).Str(log.FieldSessionID, m.sess.id).Msg("restart seek failed")
		}
	}
	m.requestPlay()
	return nil
}

// Stop pauses playback and withdraws any pending play request.
func (m *Machine) Stop() error {
	if err := m.requireSession(); err != nil {
		return err
	}
	m.cancelWatch()
	if m.state != StatePlaying {
		return nil
	}
	if err := m.sess.engine.Pause(); err != nil {
		return fmt.Errorf("pause engine: %w", err)
	}
	return m.transition(EvPause)
}

// JumpTo seeks to pos clamped to [0, duration]. Seeking out of Ended pauses.
func (m *Machine) JumpTo(pos time.Duration, autoplay bool) error {
	if err := m.requireSession(); err != nil {
		return err
	}
	if m.state == StateInitializing {
		if pos < 0 {
			pos = 0
		}
		m.sess.pendingSeek = &pos
	} else if err := m.seek(pos); err != nil {
		return err
	}
	if autoplay {
		m.requestPlay()
	}
	return nil
}

// SeekTo seeks relative to the current position.
func (m *Machine) SeekTo(delta time.Duration, autoplay bool) error {
	if err := m.requireSession(); err != nil {
		return err
	}
	var base time.Duration
	if m.state == StateInitializing {
		if m.sess.pendingSeek != nil {
			base = *m.sess.pendingSeek
		}
	} else {
		base = m.sess.engine.Position()
	}
	return m.JumpTo(addClamped(base, delta), autoplay)
}

// addClamped adds without wrapping around the Duration range.
func addClamped(a, b time.Duration) time.Duration {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	}
	return sum
}

// Reset jumps to the beginning.
func (m *Machine) Reset(autoplay bool) error {
	return m.JumpTo(0, autoplay)
}

// Dispose releases the session and makes the machine terminal. Idempotent.
func (m *Machine) Dispose() {
	if m.state == StateDisposed {
		return
	}
	if m.sess != nil {
		m.closeSession()
	}
	m.cancel()
	_ = m.transition(EvDispose)
}

// Wait blocks until background loads have returned. Call it after the
// scheduler has stopped.
func (m *Machine) Wait() {
	m.wg.Wait()
}

func (m *Machine) seek(pos time.Duration) error {
	sess := m.sess
	dur := sess.engine.Duration()
	if pos < 0 {
		pos = 0
	}
	if dur > 0 && pos > dur {
		pos = dur
	}
	if err := sess.engine.Seek(pos); err != nil {
		return fmt.Errorf("seek to %s: %w", pos, err)
	}
	if m.state == StateEnded {
		return m.transition(EvSeek)
	}
	return nil
}

func (m *Machine) onEnd(sess *session) {
	if sess != m.sess {
		return
	}
	if m.state != StatePlaying && m.state != StatePaused {
		return
	}
	m.cancelWatch()
	if err := m.transition(EvEnd); err != nil {
		return
	}
	if sess.opts.Loop {
		m.logger.Debug().Str(log.FieldEvent, "playback.loop").Str(log.FieldSessionID, sess.id).Msg("restarting looped media")
		_ = m.JumpTo(0, true)
	}
}

func (m *Machine) requestPlay() {
	sess := m.sess
	sess.wantPlay = true
	if m.state.HasMedia() && sess.engine.Status().Ready() {
		m.start()
		return
	}
	if sess.watchCancel == nil {
		sess.watchCancel = m.sched.Every(m.cfg.ReadinessPollInterval, func() { m.pollReadiness(sess) })
	}
}

func (m *Machine) pollReadiness(sess *session) {
	if sess != m.sess || !sess.wantPlay {
		return
	}
	if m.state == StatePlaying {
		m.cancelWatch()
		return
	}
	if !m.state.HasMedia() {
		metrics.IncReadinessPoll("waiting")
		return
	}
	st := sess.engine.Status()
	switch {
	case st.Err != nil:
		metrics.IncReadinessPoll("failed")
		m.logger.Warn().Err(st.Err).Str(log.FieldSessionID, sess.id).Msg("engine failed while waiting to play")
		m.cancelWatch()
		if m.hooks.OnPlayError != nil {
			m.hooks.OnPlayError(sess.src, fmt.Errorf("%w: %w", ErrPlayAbandoned, st.Err))
		}
	case st.Ready():
		metrics.IncReadinessPoll("ready")
		m.start()
	default:
		metrics.IncReadinessPoll("waiting")
		if sess.watchCancel == nil {
			sess.watchCancel = m.sched.Every(m.cfg.ReadinessPollInterval, func() { m.pollReadiness(sess) })
		}
	}
}

func (m *Machine) start() {
	sess := m.sess
	if err := sess.engine.Play(); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldSessionID, sess.id).Msg("engine play failed")
		return
	}
	m.cancelWatch()
	if m.state != StatePlaying {
		_ = m.transition(EvStart)
	}
}

func (m *Machine) cancelWatch() {
	if m.sess == nil {
		return
	}
	m.sess.wantPlay = false
	if m.sess.watchCancel != nil {
		m.sess.watchCancel()
		m.sess.watchCancel = nil
	}
}

// closeSession releases every resource the session owns.
func (m *Machine) closeSession() {
	sess := m.sess
	m.cancelWatch()
	if sess.loadCancel != nil {
		sess.loadCancel()
	}
	if sess.unregEnd != nil {
		sess.unregEnd()
		sess.unregEnd = nil
	}

	var summary *Summary
	if sess.loaded {
		pos, dur, _ := m.Sample()
		summary = &Summary{
			SessionID: sess.id,
			Source:    sess.src,
			Position:  pos,
			Duration:  dur,
			Ended:     m.state == StateEnded,
		}
	}
	if err := sess.engine.Close(); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldSessionID, sess.id).Msg("engine close failed")
	}
	m.sess = nil
	m.logger.Debug().Str(log.FieldEvent, "playback.session_closed").Str(log.FieldSessionID, sess.id).Msg("session closed")

	if summary != nil && m.hooks.OnSessionClosed != nil {
		m.hooks.OnSessionClosed(*summary)
	}
}

func (m *Machine) requireSession() error {
	if m.state == StateDisposed {
		return ErrDisposed
	}
	if m.sess == nil {
		return ErrNoSession
	}
	return nil
}

func (m *Machine) transition(ev EventKind) error {
	from := m.state
	decision, ok := DecisionFor(from, ev)
	if !ok || !decision.Allowed {
		m.logger.Error().
			Str(log.FieldEvent, "playback.illegal_transition").
			Str(log.FieldOldState, from.String()).
			Str("trigger", string(ev)).
			Str("reason", decision.Reason).
			Msg("illegal playback transition")
		return fmt.Errorf("%w: %s on %s (%s)", ErrIllegalTransition, ev, from, decision.Reason)
	}
	tr, ok := TransitionFor(from, ev)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	m.state = tr.To
	metrics.IncStateTransition(from.String(), tr.To.String())
	m.logger.Debug().
		Str(log.FieldEvent, "playback.transition").
		Str(log.FieldOldState, from.String()).
		Str(log.FieldNewState, tr.To.String()).
		Str("trigger", string(ev)).
		Msg("playback state changed")
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(from, tr.To)
	}
	return nil
}

func validateSource(src Source) error {
	if src.URL == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidSource)
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: missing scheme", ErrInvalidSource)
	}
	return nil
}

// redactURL drops credentials and the query string before logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
