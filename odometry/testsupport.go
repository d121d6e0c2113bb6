package odometry

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// ringCount is the beam count used by the synthetic sweep generator below;
// it has no bearing on production use, only on building self-consistent
// scenario fixtures that exercise the ring-adjacency rules.
const ringCount = 16

// syntheticEdgeCloud builds n corner points spread across ringCount rings,
// each a distinct point along a local edge direction so that point-to-line
// matching against the same set (optionally displaced) has a well-defined
// answer.
func syntheticEdgeCloud(n int, origin r3.Vector) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, n)
	for i := 0; i < n; i++ {
		ring := i % ringCount
		t := float64(i) * 0.1
		pos := r3.Vector{X: origin.X + t, Y: origin.Y, Z: origin.Z + float64(ring)*0.05}
		out[i] = pointcloud.NewFeaturePoint(pos, ring, 0)
	}
	return out
}

// syntheticPlanarCloud builds n surface points on the z=planeZ plane
// (offset from origin), spread across ringCount rings and a small grid in
// x/y, giving the planar correspondence builder same-ring and
// different-ring candidates to choose from.
func syntheticPlanarCloud(n int, origin r3.Vector, planeZ float64) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, n)
	side := int(math.Sqrt(float64(n))) + 1
	for i := 0; i < n; i++ {
		ring := i % ringCount
		gx := float64(i%side) * 0.2
		gy := float64(i/side) * 0.2
		pos := r3.Vector{X: origin.X + gx, Y: origin.Y + gy, Z: origin.Z + planeZ}
		out[i] = pointcloud.NewFeaturePoint(pos, ring, 0)
	}
	return out
}

// displaceCloud returns a copy of cloud with every point's position offset
// by delta and relTime set uniformly, simulating a rigidly-translated
// sweep with no intra-sweep distortion.
func displaceCloud(cloud pointcloud.FeatureCloud, delta r3.Vector) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, len(cloud))
	for i, p := range cloud {
		pos := p.Position
		pos.X += delta.X
		pos.Y += delta.Y
		pos.Z += delta.Z
		out[i] = pointcloud.NewFeaturePoint(pos, p.Ring(), 0)
	}
	return out
}

// rotateCloud returns a copy of cloud with every point rotated about the
// sensor origin by the given ZXY Euler triple.
func rotateCloud(cloud pointcloud.FeatureCloud, rot spatialmath.EulerZXY) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, len(cloud))
	for i, p := range cloud {
		pos := spatialmath.RotateZXY(p.Position, rot.RotZ, rot.RotX, rot.RotY)
		out[i] = pointcloud.NewFeaturePoint(pos, p.Ring(), 0)
	}
	return out
}

// withRelTime returns a copy of cloud with every point's relative-time
// fraction set to relTime, position and ring untouched. The helpers above
// all hardcode relTime 0, under which toStart is an identity regardless of
// the transform estimate; scenarios that need residuals to actually move
// with the transform (e.g. tracking convergence across iterations) start
// from one of those helpers and then apply this.
func withRelTime(cloud pointcloud.FeatureCloud, relTime float64) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, len(cloud))
	for i, p := range cloud {
		out[i] = pointcloud.NewFeaturePoint(p.Position, p.Ring(), relTime)
	}
	return out
}

// cornerPlaneCloud builds a flat 4x4 grid of points on a single
// axis-aligned plane (normalAxis: 0=x, 1=y, 2=z is the constant
// coordinate), offset by originOffset. Each row of 4 points shares one
// ring, giving 4 consecutive rings starting at ringBase, so the planar
// correspondence builder finds both same-ring and different-ring
// candidates around every nearest hit.
func cornerPlaneCloud(normalAxis int, originOffset r3.Vector, ringBase int) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, 0, 16)
	ring := ringBase
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			u := float64(i) * 0.5
			v := float64(j) * 0.5
			var pos r3.Vector
			switch normalAxis {
			case 0:
				pos = r3.Vector{X: originOffset.X, Y: originOffset.Y + u, Z: originOffset.Z + v}
			case 1:
				pos = r3.Vector{X: originOffset.X + u, Y: originOffset.Y, Z: originOffset.Z + v}
			default:
				pos = r3.Vector{X: originOffset.X + u, Y: originOffset.Y + v, Z: originOffset.Z}
			}
			out = append(out, pointcloud.NewFeaturePoint(pos, ring, 0))
		}
		ring++
	}
	return out
}

// cornerSceneSurface builds a "corner" fixture out of three orthogonal
// planes, one normal to each axis, spatially separated by 20 units so
// nearest-neighbor search never confuses one plane's points for another's.
// Unlike a single plane, this configuration fully observes all six degrees
// of freedom (see the single-plane degeneracy scenario for the contrast).
func cornerSceneSurface() pointcloud.FeatureCloud {
	var out pointcloud.FeatureCloud
	out = append(out, cornerPlaneCloud(0, r3.Vector{X: 0, Y: 0, Z: 0}, 0)...)
	out = append(out, cornerPlaneCloud(1, r3.Vector{X: 20, Y: 0, Z: 0}, 20)...)
	out = append(out, cornerPlaneCloud(2, r3.Vector{X: 40, Y: 0, Z: 0}, 40)...)
	return out
}
