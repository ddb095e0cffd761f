// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

var (
	activeViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video360_active_views",
		Help: "Number of live (not disposed) views",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_commands_total",
		Help: "Commands dispatched to views by method and outcome",
	}, []string{"method", "outcome"})

	stateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_playback_state_transitions_total",
		Help: "Playback state machine transitions",
	}, []string{"from", "to"})

	snapshotsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video360_snapshots_emitted_total",
		Help: "Playback snapshots delivered to the host",
	})

	snapshotsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video360_snapshots_dropped_total",
		Help: "Playback snapshots dropped because the subscriber was not keeping up",
	})

	readinessPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_readiness_polls_total",
		Help: "Readiness watch polls by result",
	}, []string{"result"})

	mediaLoadSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "video360_media_load_seconds",
		Help:    "Time spent loading a media source",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}, []string{"outcome"})

	panRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video360_pan_rejected_total",
		Help: "Pan updates rejected because the point was outside the viewport",
	})

	motionSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_motion_samples_total",
		Help: "Orientation samples received by kind",
	}, []string{"kind"})

	framesRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "video360_frames_rendered_total",
		Help: "Viewport frames rendered by outcome",
	}, []string{"outcome"})
)

// ViewOpened increments the active view gauge.
func ViewOpened() { activeViews.Inc() }

// ViewClosed decrements the active view gauge.
func ViewClosed() { activeViews.Dec() }

// IncCommand counts a dispatched command. Unknown methods are folded to keep
// label cardinality bounded.
func IncCommand(method, outcome string, known bool) {
	if !known {
		method = "unknown"
	}
	commandsTotal.WithLabelValues(orUnknown(method), orUnknown(outcome)).Inc()
}

// IncStateTransition counts a playback state change.
func IncStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

func IncSnapshotEmitted() { snapshotsEmittedTotal.Inc() }

func IncSnapshotDropped() { snapshotsDroppedTotal.Inc() }

// IncReadinessPoll records one readiness poll; result is "waiting", "ready" or "failed".
func IncReadinessPoll(result string) {
	readinessPollsTotal.WithLabelValues(orUnknown(result)).Inc()
}

// ObserveMediaLoad records how long a load took.
func ObserveMediaLoad(outcome string, seconds float64) {
	mediaLoadSeconds.WithLabelValues(orUnknown(outcome)).Observe(seconds)
}

func IncPanRejected() { panRejectedTotal.Inc() }

// IncMotionSample counts an orientation sample ("attitude", "gyro", "gravity").
func IncMotionSample(kind string) {
	motionSamplesTotal.WithLabelValues(orUnknown(kind)).Inc()
}

func IncFrameRendered(outcome string) {
	framesRenderedTotal.WithLabelValues(orUnknown(outcome)).Inc()
}
