// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1_700_000_000, 0)

func attitude(yaw, pitch, roll float64) *Quaternion {
	q := FromEuler(yaw, pitch, roll)
	return &q
}

func TestTracker_LifecycleFollowsSubscribers(t *testing.T) {
	src := NewPushSource()
	tr := NewTracker(src, DefaultConfig())

	assert.False(t, tr.Running())
	assert.False(t, src.Push(Sample{Timestamp: t0}), "samples before start are dropped")

	a, err := tr.Subscribe()
	require.NoError(t, err)
	b, err := tr.Subscribe()
	require.NoError(t, err)
	assert.True(t, tr.Running())
	assert.True(t, src.Running())

	a.Close()
	assert.True(t, tr.Running(), "one subscriber left")
	a.Close() // idempotent

	b.Close()
	assert.False(t, tr.Running())
	assert.False(t, src.Running())
	assert.False(t, src.Push(Sample{Timestamp: t0.Add(time.Second)}))

	_, ok := <-b.C()
	assert.False(t, ok, "channel closed on Close")

	c, err := tr.Subscribe()
	require.NoError(t, err, "restart after full stop")
	c.Close()
}

func TestTracker_SubscribeFailsWhenSourceBusy(t *testing.T) {
	src := NewPushSource()
	require.NoError(t, src.Start(func(Sample) {}))

	tr := NewTracker(src, DefaultConfig())
	_, err := tr.Subscribe()
	require.ErrorIs(t, err, ErrSourceRunning)
	assert.False(t, tr.Running())
}

func TestTracker_SmoothingConverges(t *testing.T) {
	src := NewPushSource()
	tr := NewTracker(src, DefaultConfig())
	sub, err := tr.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	src.Push(Sample{Timestamp: t0, Attitude: attitude(0, 0, 0)})

	// One 16ms step already covers most of the distance (α ≈ 0.86).
	src.Push(Sample{Timestamp: t0.Add(16 * time.Millisecond), Attitude: attitude(1, 0.2, 0)})
	yaw, _, _ := tr.CurrentOrientation()
	assert.Greater(t, yaw, 0.8)
	assert.Less(t, yaw, 1.0)

	ts := t0.Add(16 * time.Millisecond)
	for i := 0; i < 20; i++ {
		ts = ts.Add(4 * time.Millisecond)
		src.Push(Sample{Timestamp: ts, Attitude: attitude(1, 0.2, 0)})
	}
	o := tr.Current()
	assert.InDelta(t, 1.0, o.Yaw, 1e-3)
	assert.InDelta(t, 0.2, o.Pitch, 1e-3)

	select {
	case got := <-sub.C():
		assert.InDelta(t, o.Yaw, got.Yaw, 1e-12, "subscriber sees the latest value")
	default:
		t.Fatal("expected a pending update")
	}
}

func TestTracker_IgnoresNonMonotonicSamples(t *testing.T) {
	src := NewPushSource()
	cfg := DefaultConfig()
	cfg.SmoothingTimeConstant = 0
	tr := NewTracker(src, cfg)
	sub, err := tr.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	src.Push(Sample{Timestamp: t0, Attitude: attitude(0.5, 0, 0)})
	src.Push(Sample{Timestamp: t0, Attitude: attitude(1.5, 0, 0)})
	src.Push(Sample{Timestamp: t0.Add(-time.Millisecond), Attitude: attitude(2.5, 0, 0)})

	yaw, _, _ := tr.CurrentOrientation()
	assert.InDelta(t, 0.5, yaw, 1e-9)
}

func TestTracker_GyroIntegrationCapsGap(t *testing.T) {
	src := NewPushSource()
	cfg := DefaultConfig()
	cfg.SmoothingTimeConstant = 0
	tr := NewTracker(src, cfg)
	sub, err := tr.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	ts := t0
	for i := 0; i < 10; i++ {
		src.Push(Sample{Timestamp: ts, RotationRate: Vec3{Y: 1}})
		ts = ts.Add(10 * time.Millisecond)
	}
	yaw, _, _ := tr.CurrentOrientation()
	assert.InDelta(t, 0.09, yaw, 1e-9)

	// A five second stall only integrates MaxSampleGap.
	src.Push(Sample{Timestamp: ts.Add(5 * time.Second), RotationRate: Vec3{Y: 1}})
	yaw, _, _ = tr.CurrentOrientation()
	assert.InDelta(t, 0.19, yaw, 1e-9)
}

func TestTracker_GravityCorrectsTilt(t *testing.T) {
	src := NewPushSource()
	cfg := DefaultConfig()
	cfg.SmoothingTimeConstant = 0
	cfg.GyroWeight = 0.9
	tr := NewTracker(src, cfg)
	sub, err := tr.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	const target = 0.3
	g := Vec3{Y: -math.Cos(target), Z: math.Sin(target)}
	ts := t0
	for i := 0; i < 200; i++ {
		src.Push(Sample{Timestamp: ts, Gravity: g})
		ts = ts.Add(5 * time.Millisecond)
	}
	_, pitch, roll := tr.CurrentOrientation()
	assert.InDelta(t, target, pitch, 1e-6)
	assert.InDelta(t, 0, roll, 1e-6)
}

func TestSampleKind(t *testing.T) {
	assert.Equal(t, "attitude", Sample{Attitude: attitude(0, 0, 0)}.Kind())
	assert.Equal(t, "gravity", Sample{Gravity: Vec3{Y: -1}}.Kind())
	assert.Equal(t, "gyro", Sample{RotationRate: Vec3{X: 1}}.Kind())
}
