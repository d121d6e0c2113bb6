// Package spatialmath provides the rotation and pose primitives used by the
// odometry pipeline: an Angle type with cached trigonometry, and the two
// fixed-axis rotation operators the upstream IMU and LiDAR frames require.
package spatialmath

import "math"

// Angle is a radian measure with its sine and cosine cached at construction
// time. Every rotation operator in this package consumes the cached values
// instead of recomputing trig, since the same angle is reused across many
// points within a single sweep.
type Angle struct {
	rad float64
	sin float64
	cos float64
}

// NewAngle returns an Angle for the given radian measure, eagerly computing
// and caching its sine and cosine.
func NewAngle(rad float64) Angle {
	return Angle{rad: rad, sin: math.Sin(rad), cos: math.Cos(rad)}
}

// Rad returns the underlying radian measure.
func (a Angle) Rad() float64 { return a.rad }

// Sin returns the cached sine.
func (a Angle) Sin() float64 { return a.sin }

// Cos returns the cached cosine.
func (a Angle) Cos() float64 { return a.cos }

// Neg returns the angle negated; sin flips sign, cos is unchanged.
func (a Angle) Neg() Angle {
	return Angle{rad: -a.rad, sin: -a.sin, cos: a.cos}
}

// Scale returns the angle obtained by scaling the radian measure by s,
// recomputing the cached trig (this is NOT a scaling of sin/cos).
func (a Angle) Scale(s float64) Angle {
	return NewAngle(s * a.rad)
}

// Add returns the angle obtained by adding delta radians to a.
func (a Angle) Add(delta float64) Angle {
	return NewAngle(a.rad + delta)
}

// IsFinite reports whether the angle's radian measure is finite.
func (a Angle) IsFinite() bool {
	return !math.IsNaN(a.rad) && !math.IsInf(a.rad, 0)
}
