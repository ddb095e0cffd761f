// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package camera

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ManuGH/video360/internal/orientation"
)

const (
	// FrontYaw is the authored forward direction of equirectangular assets.
	FrontYaw = math.Pi

	maxPitch = math.Pi / 2
	twoPi    = 2 * math.Pi
)

// Point is a viewport coordinate in points, origin top-left.
type Point struct {
	X float64
	Y float64
}

type Config struct {
	// PanSensitivity converts pan distance into radians per point.
	PanSensitivity float64
	// BlendDuration is the ramp over which tracker input regains full weight
	// after a pan ends or tracking is enabled.
	BlendDuration time.Duration
	// TrackingEnabled is the initial orientation tracking toggle.
	TrackingEnabled bool
}

func DefaultConfig() Config {
	return Config{
		PanSensitivity: 0.005,
		BlendDuration:  250 * time.Millisecond,
	}
}

// Snapshot is an immutable copy of the camera state.
type Snapshot struct {
	Yaw             float64
	Pitch           float64
	Panning         bool
	ManualOverride  bool
	TrackingEnabled bool
	Width           float64
	Height          float64
	CompassAngle    float64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for blend timing.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the camera orientation. Mutating methods must be called
// from a single goroutine; Snapshot may be read from anywhere.
type Controller struct {
	cfg Config
	now func() time.Time

	yaw, pitch float64
	width      float64
	height     float64

	panning  bool
	override bool
	refPoint Point
	refYaw   float64
	refPitch float64

	tracking   bool
	blendStart time.Time
	lastOrient orientation.Orientation
	hasOrient  bool

	snap atomic.Pointer[Snapshot]
}

func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.PanSensitivity <= 0 {
		cfg.PanSensitivity = DefaultConfig().PanSensitivity
	}
	c := &Controller{
		cfg:      cfg,
		now:      time.Now,
		yaw:      FrontYaw,
		tracking: cfg.TrackingEnabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish()
	return c
}

// Snapshot returns the last published state without locking.
func (c *Controller) Snapshot() Snapshot {
	return *c.snap.Load()
}

// BeginPan records the reference point and enters manual override.
func (c *Controller) BeginPan(p Point) error {
	if !c.inBounds(p) {
		return fmt.Errorf("begin pan at (%g, %g) in %gx%g: %w", p.X, p.Y, c.width, c.height, ErrOutOfBounds)
	}
	c.panning = true
	c.override = true
	c.refPoint = p
	c.refYaw = c.yaw
	c.refPitch = c.pitch
	c.hasOrient = false
	c.publish()
	return nil
}

// UpdatePan rotates the camera by the distance from the reference point.
// Without a preceding BeginPan the point becomes the reference.
func (c *Controller) UpdatePan(p Point) error {
	if !c.panning {
		return c.BeginPan(p)
	}
	if !c.inBounds(p) {
		return fmt.Errorf("update pan at (%g, %g) in %gx%g: %w", p.X, p.Y, c.width, c.height, ErrOutOfBounds)
	}
	dx := p.X - c.refPoint.X
	dy := p.Y - c.refPoint.Y
	c.yaw = normalizeYaw(c.refYaw - dx*c.cfg.PanSensitivity)
	c.pitch = clampPitch(c.refPitch + dy*c.cfg.PanSensitivity)
	c.publish()
	return nil
}

// EndPan leaves manual override; tracker input fades back in.
func (c *Controller) EndPan() {
	if !c.panning && !c.override {
		return
	}
	c.panning = false
	c.override = false
	c.startBlend()
	c.publish()
}

// Panning reports whether a pan gesture is active.
func (c *Controller) Panning() bool {
	return c.panning
}

// Recenter faces the authored front with a level horizon.
func (c *Controller) Recenter() {
	c.yaw = FrontYaw
	c.pitch = 0
	c.publish()
}

// Resize updates the viewport. Orientation is unchanged.
func (c *Controller) Resize(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("resize to %gx%g: %w", width, height, ErrInvalidViewport)
	}
	c.width = width
	c.height = height
	c.publish()
	return nil
}

// SetOrientationTrackingEnabled toggles tracker influence. Enabling starts a
// fresh blend so the camera never snaps to the device attitude.
func (c *Controller) SetOrientationTrackingEnabled(enabled bool) {
	if c.tracking == enabled {
		return
	}
	c.tracking = enabled
	if enabled {
		c.startBlend()
	}
	c.publish()
}

// TrackingEnabled reports the tracking toggle.
func (c *Controller) TrackingEnabled() bool {
	return c.tracking
}

// ApplyOrientation integrates the change since the previous tracker update.
// It reports whether the camera moved.
func (c *Controller) ApplyOrientation(o orientation.Orientation) bool {
	if !c.tracking || c.override {
		c.hasOrient = false
		return false
	}
	if !c.hasOrient {
		c.lastOrient = o
		c.hasOrient = true
		return false
	}
	w := c.blendWeight()
	dYaw := orientation.WrapPi(o.Yaw - c.lastOrient.Yaw)
	dPitch := o.Pitch - c.lastOrient.Pitch
	c.lastOrient = o
	if w == 0 || (dYaw == 0 && dPitch == 0) {
		return false
	}
	c.yaw = normalizeYaw(c.yaw + w*dYaw)
	c.pitch = clampPitch(c.pitch + w*dPitch)
	c.publish()
	return true
}

func (c *Controller) startBlend() {
	c.blendStart = c.now()
	c.hasOrient = false
}

func (c *Controller) blendWeight() float64 {
	if c.blendStart.IsZero() || c.cfg.BlendDuration <= 0 {
		return 1
	}
	elapsed := c.now().Sub(c.blendStart)
	if elapsed >= c.cfg.BlendDuration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(c.cfg.BlendDuration)
}

func (c *Controller) inBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= c.width && p.Y <= c.height
}

func (c *Controller) publish() {
	c.snap.Store(&Snapshot{
		Yaw:             c.yaw,
		Pitch:           c.pitch,
		Panning:         c.panning,
		ManualOverride:  c.override,
		TrackingEnabled: c.tracking,
		Width:           c.width,
		Height:          c.height,
		CompassAngle:    CompassAngle(c.yaw),
	})
}

// CompassAngle is the heading of yaw relative to the front, in [0, 2π).
func CompassAngle(yaw float64) float64 {
	return normalizeYaw(yaw - FrontYaw)
}

func normalizeYaw(y float64) float64 {
	y = math.Mod(y, twoPi)
	if y < 0 {
		y += twoPi
	}
	if y >= twoPi {
		y = 0
	}
	return y
}

func clampPitch(p float64) float64 {
	return math.Max(-maxPitch, math.Min(maxPitch, p))
}
