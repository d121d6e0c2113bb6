package odometry

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

func zeroIMUPoints() []r3.Vector {
	return []r3.Vector{{}, {}, {}, {}}
}

func TestColdStartInitializesFromIMUWithoutTouchingTransform(t *testing.T) {
	logger := golog.NewTestLogger(t)
	o := NewLaserOdometry(Config{}, logger)

	o.UpdateCornerPointsLessSharp(syntheticEdgeCloud(12, r3.Vector{}))
	o.UpdateSurfPointsLessFlat(syntheticPlanarCloud(110, r3.Vector{}, 0))
	o.UpdateIMU([]r3.Vector{
		{X: 0.05, Y: 0.1, Z: 0.02}, // start attitude: pitch, yaw, roll
		{X: 0.05, Y: 0.1, Z: 0.02}, // end attitude
		{},                         // shiftFromStart
		{},                         // veloFromStart
	})

	o.Process()

	test.That(t, o.FrameCount(), test.ShouldEqual, 0)
	test.That(t, o.TransformSum().Rot.RotX.Rad(), test.ShouldAlmostEqual, 0.05, 1e-9)
	test.That(t, o.TransformSum().Rot.RotZ.Rad(), test.ShouldAlmostEqual, 0.02, 1e-9)
	test.That(t, o.TransformSum().Rot.RotY.Rad(), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, o.TransformSum().Pos.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, o.Transform().Rot.RotX.Rad(), test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, len(o.LastCornerCloud()), test.ShouldEqual, 12)
	test.That(t, len(o.LastSurfaceCloud()), test.ShouldEqual, 110)
}

func isFiniteTransformComponent(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func TestProcessAfterColdStartProducesFiniteTransform(t *testing.T) {
	logger := golog.NewTestLogger(t)
	o := NewLaserOdometry(Config{MaxIterations: 5}, logger)

	base := syntheticEdgeCloud(12, r3.Vector{})
	basePlanar := syntheticPlanarCloud(110, r3.Vector{}, 0)

	o.UpdateCornerPointsLessSharp(base.Clone())
	o.UpdateSurfPointsLessFlat(basePlanar.Clone())
	o.UpdateIMU(zeroIMUPoints())
	o.Process() // cold start only

	displaced := displaceCloud(base, r3.Vector{X: 1})
	displacedPlanar := displaceCloud(basePlanar, r3.Vector{X: 1})

	o.UpdateCornerPointsSharp(displaced)
	o.UpdateSurfPointsFlat(displacedPlanar)
	o.UpdateCornerPointsLessSharp(displaced.Clone())
	o.UpdateSurfPointsLessFlat(displacedPlanar.Clone())
	o.UpdateIMU(zeroIMUPoints())
	o.Process()

	test.That(t, o.FrameCount(), test.ShouldEqual, 1)

	tr := o.Transform()
	test.That(t, isFiniteTransformComponent(tr.Rot.RotX.Rad()), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Rot.RotY.Rad()), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Rot.RotZ.Rad()), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Pos.X), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Pos.Y), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Pos.Z), test.ShouldBeTrue)

	sum := o.TransformSum()
	test.That(t, isFiniteTransformComponent(sum.Pos.X), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(sum.Pos.Y), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(sum.Pos.Z), test.ShouldBeTrue)
}

func TestWeightCutoffDropsLargeOutlierCorrespondenceFromIterationFive(t *testing.T) {
	lastCorner := pointcloud.FeatureCloud{
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 0}, 0, 0),
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 1}, 1, 0),
	}
	sharp := pointcloud.FeatureCloud{
		pointcloud.NewFeaturePoint(r3.Vector{X: 10, Y: 0, Z: 0.5}, 5, 0), // 10m off the A-B line: an outlier
	}
	cache := []edgeMatch{{AIdx: 0, BIdx: 1}}

	keptEarly := selectEdgeResiduals(0, sharp, cache, lastCorner, spatialmath.ZeroTransform6DoF())
	test.That(t, len(keptEarly), test.ShouldEqual, 1)

	keptLate := selectEdgeResiduals(5, sharp, cache, lastCorner, spatialmath.ZeroTransform6DoF())
	test.That(t, len(keptLate), test.ShouldEqual, 0)
}

func TestPureTranslationScenarioMovesTowardGroundTruth(t *testing.T) {
	// Ground truth: sensor moved (1, 0, 0) between sweeps, no rotation.
	// rhsScale under-relaxes every update to 0.05 of the raw Gauss-Newton
	// step, so a 1m offset only closes part of the way in 5 iterations;
	// this checks correct-direction progress, not full convergence.
	lastSurface := cornerSceneSurface()
	query := withRelTime(displaceCloud(lastSurface, r3.Vector{X: 1}), 0.99)

	cfg := Config{ScanPeriod: 0.1, MaxIterations: 5, DeltaTAbort: 0.1, DeltaRAbort: 0.1}
	result := runGaussNewton(cfg, spatialmath.ZeroTransform6DoF(), solverInputs{
		sharp:        pointcloud.FeatureCloud{},
		flat:         query,
		cornerIndex:  pointcloud.NewKDTree(nil),
		lastCorner:   pointcloud.FeatureCloud{},
		surfaceIndex: pointcloud.NewKDTree(lastSurface),
		lastSurface:  lastSurface,
	})

	tr := result.transform
	test.That(t, tr.Pos.X, test.ShouldBeGreaterThan, 0.02)
	test.That(t, tr.Pos.X, test.ShouldBeLessThan, 1.0)
	test.That(t, math.Abs(tr.Pos.Y), test.ShouldBeLessThan, 0.3)
	test.That(t, math.Abs(tr.Pos.Z), test.ShouldBeLessThan, 0.3)
	test.That(t, math.Abs(tr.Rot.RotX.Rad()), test.ShouldBeLessThan, 0.3)
	test.That(t, math.Abs(tr.Rot.RotY.Rad()), test.ShouldBeLessThan, 0.3)
	test.That(t, math.Abs(tr.Rot.RotZ.Rad()), test.ShouldBeLessThan, 0.3)
}

func TestConvergenceAbortTerminatesWellBeforeMaxIterations(t *testing.T) {
	// A near-identity offset (1mm) with maxIterations set far above what
	// is needed: the solver must stop via the delta-threshold check, not
	// by exhausting the iteration budget. A truly zero offset can't be
	// used here because selectPlanarResiduals drops any correspondence
	// whose residual is exactly 0.
	lastSurface := cornerSceneSurface()
	query := displaceCloud(lastSurface, r3.Vector{X: 0.001})

	cfg := Config{ScanPeriod: 0.1, MaxIterations: 100, DeltaTAbort: 0.1, DeltaRAbort: 0.1}
	result := runGaussNewton(cfg, spatialmath.ZeroTransform6DoF(), solverInputs{
		sharp:        pointcloud.FeatureCloud{},
		flat:         query,
		cornerIndex:  pointcloud.NewKDTree(nil),
		lastCorner:   pointcloud.FeatureCloud{},
		surfaceIndex: pointcloud.NewKDTree(lastSurface),
		lastSurface:  lastSurface,
	})

	test.That(t, result.converged, test.ShouldBeTrue)
	test.That(t, result.iterations, test.ShouldBeLessThanOrEqualTo, 10)
}

func TestDegeneratePlanarSceneKeepsTransformBounded(t *testing.T) {
	// All features lie on the single z=0 plane: translation along X or Y
	// and rotation about Z are unobservable from a flat plane alone. The
	// eigen-threshold must catch this and keep the solve from diverging,
	// even though it cannot fully resolve the true offset.
	lastSurface := syntheticPlanarCloud(110, r3.Vector{}, 0)
	query := withRelTime(displaceCloud(lastSurface, r3.Vector{X: 0.3, Y: 0.3, Z: 0.1}), 0.99)

	cfg := Config{ScanPeriod: 0.1, MaxIterations: 10, DeltaTAbort: 0.1, DeltaRAbort: 0.1}
	result := runGaussNewton(cfg, spatialmath.ZeroTransform6DoF(), solverInputs{
		sharp:        pointcloud.FeatureCloud{},
		flat:         query,
		cornerIndex:  pointcloud.NewKDTree(nil),
		lastCorner:   pointcloud.FeatureCloud{},
		surfaceIndex: pointcloud.NewKDTree(lastSurface),
		lastSurface:  lastSurface,
	})

	tr := result.transform
	test.That(t, isFiniteTransformComponent(tr.Pos.X), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Pos.Y), test.ShouldBeTrue)
	test.That(t, isFiniteTransformComponent(tr.Pos.Z), test.ShouldBeTrue)
	norm := math.Sqrt(tr.Pos.X*tr.Pos.X + tr.Pos.Y*tr.Pos.Y + tr.Pos.Z*tr.Pos.Z)
	test.That(t, norm, test.ShouldBeLessThan, 5.0)
}

func TestRingWindowScenarioSelectsOnlyWithinPlusMinusTwo(t *testing.T) {
	// A corner at ring 5 with candidates at rings 3, 4, 6, 7, 8 (and 5
	// itself for A): the selected B must come from {3, 4, 6, 7}, never
	// ring 5 (same ring as A) or ring 8 (outside the +/-2 window).
	cloud := pointcloud.FeatureCloud{
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: -0.02}, 3, 0),
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: -0.01}, 4, 0),
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 0}, 5, 0), // nearest to query -> A
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 0.01}, 6, 0),
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 0.02}, 7, 0),
		pointcloud.NewFeaturePoint(r3.Vector{X: 0, Y: 0, Z: 0.03}, 8, 0),
	}
	idx := pointcloud.NewKDTree(cloud)

	m := findEdgeCorrespondence(r3.Vector{X: 0, Y: 0, Z: 0}, idx, cloud)

	test.That(t, m.AIdx, test.ShouldEqual, 2)
	test.That(t, m.BIdx, test.ShouldNotEqual, -1)
	test.That(t, m.BIdx, test.ShouldNotEqual, 2) // not ring 5 (A itself)
	test.That(t, cloud[m.BIdx].Ring(), test.ShouldNotEqual, 8)
}
