// Package pointcloud defines the feature point and feature cloud types the
// odometry pipeline consumes, and a spatial index used to find matching
// points between consecutive sweeps.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// FeaturePoint is a single LiDAR return with an intensity field that
// double-encodes the beam ring id (integer part) and the point's relative
// time within the sweep (fractional part, 0 at sweep start, 1 at sweep
// end). This is a wire-level contract with the upstream feature extractor
// and must be preserved exactly.
type FeaturePoint struct {
	Position  r3.Vector
	Intensity float64
}

// NewFeaturePoint builds a FeaturePoint from a position, beam ring id and
// relative time within the sweep.
func NewFeaturePoint(pos r3.Vector, ring int, relTime float64) FeaturePoint {
	return FeaturePoint{Position: pos, Intensity: float64(ring) + relTime}
}

// Ring returns the beam index encoded in the integer part of Intensity.
func (p FeaturePoint) Ring() int {
	return int(math.Floor(p.Intensity))
}

// RelTime returns the fractional sweep-relative time encoded in Intensity,
// in [0, 1). A relative time of exactly 1 cannot be encoded: it carries
// into the integer ring part.
func (p FeaturePoint) RelTime() float64 {
	return p.Intensity - math.Floor(p.Intensity)
}

// WithPosition returns a copy of p with its position replaced; the
// intensity (ring + relTime) is preserved.
func (p FeaturePoint) WithPosition(pos r3.Vector) FeaturePoint {
	p.Position = pos
	return p
}

// WithoutRelTime returns a copy of p with the fractional relative-time
// component stripped from Intensity, leaving only the integer ring. Used
// when a point has been fully de-skewed to the sweep-end frame.
func (p FeaturePoint) WithoutRelTime() FeaturePoint {
	p.Intensity = math.Floor(p.Intensity)
	return p
}

// IsFinite reports whether the point's position components are all finite.
func (p FeaturePoint) IsFinite() bool {
	return isFiniteFloat(p.Position.X) && isFiniteFloat(p.Position.Y) && isFiniteFloat(p.Position.Z)
}

func isFiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SquaredDistance returns the squared Euclidean distance between two
// points' positions.
func SquaredDistance(a, b FeaturePoint) float64 {
	return a.Position.Sub(b.Position).Norm2()
}
