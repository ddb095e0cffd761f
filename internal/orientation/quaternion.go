// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orientation

import "math"

// Vec3 is a device-frame vector (rotation rate in rad/s, gravity in g).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Len returns the Euclidean length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Quaternion is a unit rotation. Euler angles use the Y-X-Z order: yaw about
// the vertical axis, then pitch, then roll.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Identity is the zero rotation.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// FromEuler builds a rotation from yaw, pitch and roll in radians.
func FromEuler(yaw, pitch, roll float64) Quaternion {
	c1, s1 := math.Cos(pitch/2), math.Sin(pitch/2)
	c2, s2 := math.Cos(yaw/2), math.Sin(yaw/2)
	c3, s3 := math.Cos(roll/2), math.Sin(roll/2)
	return Quaternion{
		W: c1*c2*c3 + s1*s2*s3,
		X: s1*c2*c3 + c1*s2*s3,
		Y: c1*s2*c3 - s1*c2*s3,
		Z: c1*c2*s3 - s1*s2*c3,
	}
}

// FromAxisAngle rotates by angle radians around axis. A zero axis yields Identity.
func FromAxisAngle(axis Vec3, angle float64) Quaternion {
	n := axis.Len()
	if n == 0 {
		return Identity()
	}
	s := math.Sin(angle/2) / n
	return Quaternion{W: math.Cos(angle / 2), X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s}
}

// Mul returns q*r (apply r, then q).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Dot is the 4D dot product.
func (q Quaternion) Dot(r Quaternion) float64 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

// Normalize scales q to unit length. The zero quaternion becomes Identity.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.Dot(q))
	if n == 0 || math.IsNaN(n) {
		return Identity()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Integrate advances q by a body-frame angular rate over dt seconds.
func (q Quaternion) Integrate(rate Vec3, dt float64) Quaternion {
	w := rate.Len()
	if w == 0 || dt <= 0 {
		return q
	}
	return q.Mul(FromAxisAngle(rate, w*dt)).Normalize()
}

// Slerp interpolates from a to b along the shortest arc; t is clamped to [0, 1].
func Slerp(a, b Quaternion, t float64) Quaternion {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	cos := a.Dot(b)
	if cos < 0 {
		b = Quaternion{W: -b.W, X: -b.X, Y: -b.Y, Z: -b.Z}
		cos = -cos
	}
	if cos > 0.9995 {
		return Quaternion{
			W: a.W + t*(b.W-a.W),
			X: a.X + t*(b.X-a.X),
			Y: a.Y + t*(b.Y-a.Y),
			Z: a.Z + t*(b.Z-a.Z),
		}.Normalize()
	}
	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Quaternion{
		W: wa*a.W + wb*b.W,
		X: wa*a.X + wb*b.X,
		Y: wa*a.Y + wb*b.Y,
		Z: wa*a.Z + wb*b.Z,
	}
}

// Euler decomposes q into yaw, pitch and roll (Y-X-Z order).
func (q Quaternion) Euler() (yaw, pitch, roll float64) {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	m11 := 1 - 2*(y*y+z*z)
	m13 := 2 * (x*z + w*y)
	m21 := 2 * (x*y + w*z)
	m22 := 1 - 2*(x*x+z*z)
	m23 := 2 * (y*z - w*x)
	m31 := 2 * (x*z - w*y)
	m33 := 1 - 2*(x*x+y*y)

	pitch = math.Asin(-clamp(m23, -1, 1))
	if math.Abs(m23) < 0.9999999 {
		yaw = math.Atan2(m13, m33)
		roll = math.Atan2(m21, m22)
	} else {
		yaw = math.Atan2(-m31, m11)
	}
	return yaw, pitch, roll
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WrapPi maps an angle into (-π, π].
func WrapPi(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
