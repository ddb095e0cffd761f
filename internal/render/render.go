// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package render projects equirectangular frames through the camera.
package render

import (
	"errors"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ManuGH/video360/internal/camera"
)

var (
	ErrEmptyFrame    = errors.New("render: empty frame")
	ErrEmptyViewport = errors.New("render: empty viewport")
)

type Config struct {
	// FieldOfView is the vertical field of view in degrees.
	FieldOfView float64
	// MaxWidth and MaxHeight cap the internal resolution of RenderScaled.
	MaxWidth  int
	MaxHeight int
}

func DefaultConfig() Config {
	return Config{FieldOfView: 75, MaxWidth: 1280, MaxHeight: 720}
}

// Renderer is stateless and safe for concurrent use.
type Renderer struct {
	cfg     Config
	tanHalf float64
}

func New(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.FieldOfView <= 0 || cfg.FieldOfView >= 180 {
		cfg.FieldOfView = def.FieldOfView
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = def.MaxWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = def.MaxHeight
	}
	return &Renderer{
		cfg:     cfg,
		tanHalf: math.Tan(cfg.FieldOfView * math.Pi / 360),
	}
}

type vec struct{ x, y, z float64 }

func (a vec) add(b vec) vec       { return vec{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec) scale(s float64) vec { return vec{a.x * s, a.y * s, a.z * s} }

func (a vec) cross(b vec) vec {
	return vec{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x}
}

func (a vec) norm() vec {
	l := math.Sqrt(a.x*a.x + a.y*a.y + a.z*a.z)
	if l == 0 {
		return a
	}
	return a.scale(1 / l)
}

// basis returns forward, right and up for a camera orientation.
func basis(yaw, pitch float64) (f, r, u vec) {
	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)
	f = vec{sy * cp, sp, cy * cp}
	r = vec{cy, 0, -sy}
	u = f.cross(r)
	return f, r, u
}

// Render fills dst with the view of frame seen from cam.
func (r *Renderer) Render(dst draw.Image, frame image.Image, cam camera.Snapshot) error {
	db := dst.Bounds()
	if db.Empty() {
		return ErrEmptyViewport
	}
	src := toRGBA(frame)
	if src == nil {
		return ErrEmptyFrame
	}

	w, h := float64(db.Dx()), float64(db.Dy())
	aspect := w / h
	f, right, up := basis(cam.Yaw, cam.Pitch)

	out, direct := dst.(*image.RGBA)
	for py := 0; py < db.Dy(); py++ {
		ny := (1 - 2*(float64(py)+0.5)/h) * r.tanHalf
		for px := 0; px < db.Dx(); px++ {
			nx := (2*(float64(px)+0.5)/w - 1) * r.tanHalf * aspect
			d := f.add(right.scale(nx)).add(up.scale(ny)).norm()
			c := sample(src, d)
			if direct {
				i := out.PixOffset(db.Min.X+px, db.Min.Y+py)
				out.Pix[i+0], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c[0], c[1], c[2], c[3]
				continue
			}
			dst.Set(db.Min.X+px, db.Min.Y+py, rgba(c))
		}
	}
	return nil
}

// RenderScaled renders at no more than the configured internal resolution and
// scales the result into dst.
func (r *Renderer) RenderScaled(dst draw.Image, frame image.Image, cam camera.Snapshot) error {
	db := dst.Bounds()
	if db.Empty() {
		return ErrEmptyViewport
	}
	iw, ih := fit(db.Dx(), db.Dy(), r.cfg.MaxWidth, r.cfg.MaxHeight)
	if iw == db.Dx() && ih == db.Dy() {
		return r.Render(dst, frame, cam)
	}
	tmp := image.NewRGBA(image.Rect(0, 0, iw, ih))
	if err := r.Render(tmp, frame, cam); err != nil {
		return err
	}
	xdraw.BiLinear.Scale(dst, db, tmp, tmp.Bounds(), xdraw.Src, nil)
	return nil
}

// fit scales w×h down to fit maxW×maxH, keeping the aspect ratio.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	s := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := int(math.Max(1, math.Round(float64(w)*s)))
	fh := int(math.Max(1, math.Round(float64(h)*s)))
	return fw, fh
}

// texcoord maps a view direction to equirectangular coordinates in [0, 1).
// Longitude π (yaw π) lands in the middle of the frame.
func texcoord(d vec) (u, v float64) {
	lon := math.Atan2(d.x, d.z)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	u = lon / (2 * math.Pi)
	v = 0.5 - math.Asin(math.Max(-1, math.Min(1, d.y)))/math.Pi
	return u, v
}
