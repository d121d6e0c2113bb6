package odometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// minCorrespondences is the floor on selected edge+planar pairs below
// which an iteration is skipped rather than attempted.
const minCorrespondences = 10

// degeneracyEigenThreshold gates which eigenvalues of the normal matrix
// are considered unobservable; fixed across all six DoF.
const degeneracyEigenThreshold = 10.0

// correspondenceRefreshPeriod amortizes the k-d tree search cost: a full
// neighbor search runs only every Nth iteration.
const correspondenceRefreshPeriod = 5

func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// solveResult is the outcome of one sweep's Gauss-Newton optimization.
type solveResult struct {
	transform  spatialmath.Transform6DoF
	iterations int
	converged  bool
}

// degeneracyProjection is the cached projection matrix P used to zero out
// updates along unobservable directions of the normal matrix. Computed
// once, at the first iteration of a sweep, and reused for every later
// iteration of that same sweep.
type degeneracyProjection struct {
	matrix *mat.Dense
	active bool
}

// solverInputs bundles everything the Gauss-Newton loop needs to read but
// never mutates beyond the transform estimate itself.
type solverInputs struct {
	sharp, flat  pointcloud.FeatureCloud
	cornerIndex  *pointcloud.KDTree
	lastCorner   pointcloud.FeatureCloud
	surfaceIndex *pointcloud.KDTree
	lastSurface  pointcloud.FeatureCloud
}

// runGaussNewton drives the bounded iteration loop described for a single
// sweep: correspondence refresh every 5th iteration, residual assembly,
// QR-solved normal equations, one-time degeneracy projection, additive
// update with sanitization, and Δ-threshold convergence.
func runGaussNewton(cfg Config, initial spatialmath.Transform6DoF, in solverInputs) solveResult {
	transform := initial
	cache := newCorrespondenceCache()
	var proj degeneracyProjection

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if iter%correspondenceRefreshPeriod == 0 {
			cache.rebuild(in.sharp, in.flat, transform, in.cornerIndex, in.lastCorner, in.surfaceIndex, in.lastSurface)
		}

		edges := selectEdgeResiduals(iter, in.sharp, cache.edge, in.lastCorner, transform)
		planes := selectPlanarResiduals(iter, in.flat, cache.planar, in.lastSurface, transform)
		if len(edges)+len(planes) < minCorrespondences {
			continue
		}

		a, b, n := buildNormalEquations(transform, edges, planes)
		if n == 0 {
			continue
		}

		x, ata, ok := solveNormalEquations(a, b)
		if !ok {
			continue
		}

		if iter == 0 {
			proj = computeDegeneracyProjection(ata)
		}
		if proj.active {
			x = applyDegeneracyProjection(proj.matrix, x)
		}

		drx, dry, drz := x.AtVec(0), x.AtVec(1), x.AtVec(2)
		dtx, dty, dtz := x.AtVec(3), x.AtVec(4), x.AtVec(5)
		transform.AddIncrement(drx, dry, drz, dtx, dty, dtz)

		deltaR := floats.Norm([]float64{radToDeg(drx), radToDeg(dry), radToDeg(drz)}, 2)
		deltaT := floats.Norm([]float64{dtx * 100, dty * 100, dtz * 100}, 2)

		if deltaR < cfg.DeltaRAbort && deltaT < cfg.DeltaTAbort {
			return solveResult{transform: transform, iterations: iter + 1, converged: true}
		}
	}

	return solveResult{transform: transform, iterations: iter, converged: false}
}

// solveNormalEquations forms AᵀA·x = Aᵀb and solves it via Householder QR
// (gonum's mat.QR, which does not pivot columns). When AᵀA is singular or
// ill-conditioned the solve reports failure (ok is false) and no x is
// returned, so rank-deficient systems are not solved. It also returns AᵀA
// itself, since the degeneracy check at iteration 0 needs its
// eigendecomposition.
func solveNormalEquations(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, *mat.Dense, bool) {
	var ata mat.Dense
	ata.Mul(a.T(), a)

	var atb mat.VecDense
	atb.MulVec(a.T(), b)

	var qr mat.QR
	qr.Factorize(&ata)

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, &atb); err != nil {
		return nil, nil, false
	}
	return &x, &ata, true
}

// computeDegeneracyProjection eigendecomposes the (symmetric) normal
// matrix, zeroes the row of the eigenvector matrix corresponding to every
// eigenvalue below degeneracyEigenThreshold (eigenvalues come back
// ascending, so the scan stops at the first one that clears the
// threshold), and returns P = V⁻¹·V′.
func computeDegeneracyProjection(ata *mat.Dense) degeneracyProjection {
	n, _ := ata.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, ata.At(i, j))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return degeneracyProjection{}
	}
	values := eig.Values(nil)

	var v mat.Dense
	eig.VectorsTo(&v)

	vPrime := mat.DenseCopyOf(&v)
	degenerate := false
	for i := 0; i < n; i++ {
		if values[i] < degeneracyEigenThreshold {
			for j := 0; j < n; j++ {
				vPrime.Set(i, j, 0)
			}
			degenerate = true
		} else {
			break
		}
	}
	if !degenerate {
		return degeneracyProjection{}
	}

	var vInv mat.Dense
	if err := vInv.Inverse(&v); err != nil {
		return degeneracyProjection{}
	}

	p := mat.NewDense(n, n, nil)
	p.Mul(&vInv, vPrime)
	return degeneracyProjection{matrix: p, active: true}
}

// applyDegeneracyProjection replaces x with P·x, projecting the update
// onto the subspace the geometry can actually observe.
func applyDegeneracyProjection(p *mat.Dense, x *mat.VecDense) *mat.VecDense {
	var projected mat.VecDense
	projected.MulVec(p, x)
	return &projected
}
