package odometry

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// weightCutoff is the robust-weight floor below which a correspondence is
// dropped for the current iteration.
const weightCutoff = 0.1

// robustWeightScale is the linear-decay coefficient in the (non-Huber,
// non-Cauchy) robust weight formula; preserved as the reference tuning
// constant, not re-derived.
const robustWeightScale = 1.8

// rhsScale under-relaxes every Gauss-Newton update; there is no explicit
// Levenberg damping term, so convergence behavior is tied to this constant.
const rhsScale = -0.05

// edgeResidual computes the point-to-line distance from query to the line
// through a and b, and the unit gradient of that distance with respect to
// query.
func edgeResidual(query, a, b r3.Vector) (grad r3.Vector, dist float64) {
	m11 := (query.X-a.X)*(query.Y-b.Y) - (query.X-b.X)*(query.Y-a.Y)
	m12 := (query.X-a.X)*(query.Z-b.Z) - (query.X-b.X)*(query.Z-a.Z)
	m13 := (query.Y-a.Y)*(query.Z-b.Z) - (query.Y-b.Y)*(query.Z-a.Z)

	numerator := math.Sqrt(m11*m11 + m12*m12 + m13*m13)
	denominator := a.Sub(b).Norm()
	if numerator == 0 || denominator == 0 {
		return r3.Vector{}, 0
	}

	la := ((a.Y-b.Y)*m11 + (a.Z-b.Z)*m12) / numerator / denominator
	lb := -((a.X-b.X)*m11 - (a.Z-b.Z)*m13) / numerator / denominator
	lc := -((a.X-b.X)*m12 + (a.Y-b.Y)*m13) / numerator / denominator

	return r3.Vector{X: la, Y: lb, Z: lc}, numerator / denominator
}

// planarResidual computes the point-to-plane distance from query to the
// plane through a, b, c, and the plane's unit normal (the gradient of that
// distance with respect to query).
func planarResidual(query, a, b, c r3.Vector) (normal r3.Vector, dist float64) {
	pa := (b.Y-a.Y)*(c.Z-a.Z) - (c.Y-a.Y)*(b.Z-a.Z)
	pb := (b.Z-a.Z)*(c.X-a.X) - (c.Z-a.Z)*(b.X-a.X)
	pc := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	pd := -(pa*a.X + pb*a.Y + pc*a.Z)

	norm := math.Sqrt(pa*pa + pb*pb + pc*pc)
	if norm == 0 {
		return r3.Vector{}, 0
	}
	pa, pb, pc, pd = pa/norm, pb/norm, pc/norm, pd/norm

	d := pa*query.X + pb*query.Y + pc*query.Z + pd
	return r3.Vector{X: pa, Y: pb, Z: pc}, d
}

// edgeWeight and planeWeight implement the robust weighting rule: full
// weight for the first 5 iterations, then a linear decay in the residual
// magnitude that can go negative for large outliers (callers gate on
// weightCutoff, not on this function clamping the result).
func edgeWeight(iter int, d float64) float64 {
	if iter < 5 {
		return 1
	}
	return 1 - robustWeightScale*math.Abs(d)
}

func planeWeight(iter int, d float64, query r3.Vector) float64 {
	if iter < 5 {
		return 1
	}
	return 1 - robustWeightScale*math.Abs(d)/math.Sqrt(query.Norm())
}

// selectedResidual is one row destined for the normal equations: the
// original (pre-toStart) query point, the weighted gradient/normal, and
// the weighted residual.
type selectedResidual struct {
	original r3.Vector
	coeff    r3.Vector
	weighted float64
}

// selectEdgeResiduals evaluates the cached edge correspondences against the
// current transform estimate and keeps the ones that pass the robust-weight
// gate.
func selectEdgeResiduals(iter int, sharp pointcloud.FeatureCloud, cache []edgeMatch, lastCorner pointcloud.FeatureCloud, transform spatialmath.Transform6DoF) []selectedResidual {
	var out []selectedResidual
	for i, p := range sharp {
		m := cache[i]
		if m.AIdx < 0 || m.BIdx < 0 {
			continue
		}
		query := toStart(p, transform).Position
		grad, d := edgeResidual(query, lastCorner[m.AIdx].Position, lastCorner[m.BIdx].Position)

		s := edgeWeight(iter, d)
		if s <= weightCutoff || d == 0 {
			continue
		}
		out = append(out, selectedResidual{
			original: p.Position,
			coeff:    r3.Vector{X: s * grad.X, Y: s * grad.Y, Z: s * grad.Z},
			weighted: s * d,
		})
	}
	return out
}

// selectPlanarResiduals is the planar analogue of selectEdgeResiduals.
func selectPlanarResiduals(iter int, flat pointcloud.FeatureCloud, cache []planarMatch, lastSurface pointcloud.FeatureCloud, transform spatialmath.Transform6DoF) []selectedResidual {
	var out []selectedResidual
	for i, p := range flat {
		m := cache[i]
		if m.AIdx < 0 || m.BIdx < 0 || m.CIdx < 0 {
			continue
		}
		query := toStart(p, transform).Position
		normal, d := planarResidual(query, lastSurface[m.AIdx].Position, lastSurface[m.BIdx].Position, lastSurface[m.CIdx].Position)

		s := planeWeight(iter, d, query)
		if s <= weightCutoff || d == 0 {
			continue
		}
		out = append(out, selectedResidual{
			original: p.Position,
			coeff:    r3.Vector{X: s * normal.X, Y: s * normal.Y, Z: s * normal.Z},
			weighted: s * d,
		})
	}
	return out
}

// jacobianRow computes the six partials (arx, ary, arz, atx, aty, atz) of
// the weighted residual with respect to the 6-DoF increment, evaluated at
// the current transform and the original (pre-toStart) query point. This
// is the fixed ZXY-convention closed form; ary deliberately omits the
// coeff.y term (the corresponding partial vanishes symbolically under this
// rotation order).
func jacobianRow(pointOri r3.Vector, transform spatialmath.Transform6DoF, coeff r3.Vector) [6]float64 {
	srx, crx := transform.Rot.RotX.Sin(), transform.Rot.RotX.Cos()
	sry, cry := transform.Rot.RotY.Sin(), transform.Rot.RotY.Cos()
	srz, crz := transform.Rot.RotZ.Sin(), transform.Rot.RotZ.Cos()
	tx, ty, tz := transform.Pos.X, transform.Pos.Y, transform.Pos.Z
	px, py, pz := pointOri.X, pointOri.Y, pointOri.Z

	arx := (-crx*sry*srz*px+crx*crz*sry*py+srx*sry*pz+
		tx*crx*sry*srz-ty*crx*crz*sry-tz*srx*sry)*coeff.X +
		(srx*srz*px-crz*srx*py+crx*pz+
			ty*crz*srx-tz*crx-tx*srx*srz)*coeff.Y +
		(crx*cry*srz*px-crx*cry*crz*py-cry*srx*pz+
			tz*cry*srx+ty*crx*cry*crz-tx*crx*cry*srz)*coeff.Z

	ary := ((-crz*sry-cry*srx*srz)*px+
		(cry*crz*srx-sry*srz)*py-crx*cry*pz+
		tx*(crz*sry+cry*srx*srz)+ty*(sry*srz-cry*crz*srx)+
		tz*crx*cry)*coeff.X +
		((cry*crz-srx*sry*srz)*px+
			(cry*srz+crz*srx*sry)*py-crx*sry*pz+
			tz*crx*sry-ty*(cry*srz+crz*srx*sry)-
			tx*(cry*crz-srx*sry*srz))*coeff.Z

	arz := ((-cry*srz-crz*srx*sry)*px+(cry*crz-srx*sry*srz)*py+
		tx*(cry*srz+crz*srx*sry)-ty*(cry*crz-srx*sry*srz))*coeff.X +
		(-crx*crz*px-crx*srz*py+
			ty*crx*srz+tx*crx*crz)*coeff.Y +
		((cry*crz*srx-sry*srz)*px+(crz*sry+cry*srx*srz)*py+
			tx*(sry*srz-cry*crz*srx)-ty*(crz*sry+cry*srx*srz))*coeff.Z

	atx := -(cry*crz-srx*sry*srz)*coeff.X + crx*srz*coeff.Y -
		(crz*sry+cry*srx*srz)*coeff.Z

	aty := -(cry*srz+crz*srx*sry)*coeff.X - crx*crz*coeff.Y -
		(sry*srz-cry*crz*srx)*coeff.Z

	atz := crx*sry*coeff.X - srx*coeff.Y - crx*cry*coeff.Z

	return [6]float64{arx, ary, arz, atx, aty, atz}
}

// buildNormalEquations assembles the N×6 Jacobian and N×1 residual vector
// for the current transform estimate from the selected edge and planar
// residuals.
func buildNormalEquations(transform spatialmath.Transform6DoF, edges, planes []selectedResidual) (*mat.Dense, *mat.VecDense, int) {
	n := len(edges) + len(planes)
	if n == 0 {
		return nil, nil, 0
	}

	a := mat.NewDense(n, 6, nil)
	b := mat.NewVecDense(n, nil)

	row := 0
	fill := func(r selectedResidual) {
		j := jacobianRow(r.original, transform, r.coeff)
		for k := 0; k < 6; k++ {
			a.Set(row, k, j[k])
		}
		b.SetVec(row, rhsScale*r.weighted)
		row++
	}
	for _, r := range edges {
		fill(r)
	}
	for _, r := range planes {
		fill(r)
	}

	return a, b, n
}
