// Package odometry implements the scan-to-scan laser odometry estimator:
// distortion correction, edge/planar correspondence, Gauss-Newton
// solving with degeneracy projection, and IMU-corrected pose
// accumulation, orchestrated one sweep at a time by LaserOdometry.
package odometry

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/baoxianzhang/loam-note/imu"
	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// LaserOdometry drives one sweep of scan-to-scan laser odometry at a time.
// It owns the four current-sweep feature buffers, the carried-forward
// "last" clouds and their k-d trees, the incremental and accumulated
// world transforms, and the IMU packet most recently supplied. None of
// this state is safe for concurrent access; see the single-threaded
// process model.
type LaserOdometry struct {
	cfg    Config
	logger golog.Logger

	buffers   pointcloud.Buffers
	imuPacket imu.Packet

	cornerIndex  *pointcloud.KDTree
	surfaceIndex *pointcloud.KDTree

	transform    spatialmath.Transform6DoF
	transformSum spatialmath.Transform6DoF

	initialized bool
	frameCount  int
}

// NewLaserOdometry constructs a LaserOdometry with the given tuning
// constants and logger. Zero-valued fields in cfg fall back to
// DefaultConfig's values.
func NewLaserOdometry(cfg Config, logger golog.Logger) *LaserOdometry {
	return &LaserOdometry{
		cfg:          cfg.withDefaults(),
		logger:       logger,
		imuPacket:    imu.Zero(),
		cornerIndex:  pointcloud.NewKDTree(nil),
		surfaceIndex: pointcloud.NewKDTree(nil),
		transform:    spatialmath.ZeroTransform6DoF(),
		transformSum: spatialmath.ZeroTransform6DoF(),
	}
}

// UpdateCornerPointsSharp sets the current sweep's sharp-edge query cloud.
func (o *LaserOdometry) UpdateCornerPointsSharp(cloud pointcloud.FeatureCloud) {
	o.buffers.CornerSharp = cloud
}

// UpdateCornerPointsLessSharp sets the current sweep's less-sharp corner
// cloud, the superset carried forward as next sweep's matching target.
func (o *LaserOdometry) UpdateCornerPointsLessSharp(cloud pointcloud.FeatureCloud) {
	o.buffers.CornerLessSharp = cloud
}

// UpdateSurfPointsFlat sets the current sweep's flat-surface query cloud.
func (o *LaserOdometry) UpdateSurfPointsFlat(cloud pointcloud.FeatureCloud) {
	o.buffers.SurfFlat = cloud
}

// UpdateSurfPointsLessFlat sets the current sweep's less-flat surface
// cloud, the superset carried forward as next sweep's matching target.
func (o *LaserOdometry) UpdateSurfPointsLessFlat(cloud pointcloud.FeatureCloud) {
	o.buffers.SurfLessFlat = cloud
}

// UpdateIMU sets the current sweep's IMU hint from the fixed four-point
// packet (startEuler, endEuler, shiftFromStart, velocityFromStart).
func (o *LaserOdometry) UpdateIMU(points []r3.Vector) {
	o.imuPacket = imu.FromPoints(points)
}

// Process runs one sweep end-to-end. The first call only initializes:
// it installs the less-sharp/less-flat clouds as the "last" clouds,
// builds the spatial index over them, seeds transformSum's pitch and
// roll from the IMU start attitude, and returns without touching
// transform. Every later call runs the Gauss-Newton pipeline (skipped,
// leaving transform at the initial guess, when the carried-forward "last"
// clouds are too small to match against) and accumulates the result into
// the world pose.
func (o *LaserOdometry) Process() {
	if !o.initialized {
		o.buffers.SwapInLessClouds()
		o.cornerIndex = pointcloud.NewKDTree(o.buffers.LastCorner)
		o.surfaceIndex = pointcloud.NewKDTree(o.buffers.LastSurface)
		o.transformSum.Rot.RotX = o.imuPacket.Pitch()
		o.transformSum.Rot.RotZ = o.imuPacket.Roll()
		o.initialized = true
		o.logger.Debugw("laser odometry initialized")
		return
	}

	guess := o.initialGuess()

	var result solveResult
	if o.buffers.MeetsRebuildThreshold() {
		result = runGaussNewton(o.cfg, guess, solverInputs{
			sharp:        o.buffers.CornerSharp,
			flat:         o.buffers.SurfFlat,
			cornerIndex:  o.cornerIndex,
			lastCorner:   o.buffers.LastCorner,
			surfaceIndex: o.surfaceIndex,
			lastSurface:  o.buffers.LastSurface,
		})
	} else {
		// Too few points carried forward from the last sweep to trust
		// feature matching: keep the previous k-d tree, skip the whole
		// optimization, and fall through to IMU-only correction.
		o.logger.Debugw("skipping optimization: insufficient last-cloud size",
			"frame", o.frameCount,
			"lastCorner", len(o.buffers.LastCorner),
			"lastSurface", len(o.buffers.LastSurface),
		)
		result = solveResult{transform: guess}
	}
	o.transform = result.transform

	o.transformSum = accumulateWorldPose(o.transformSum, o.transform, o.imuPacket)

	endOfSweepBuffers(&o.buffers, o.transform, o.imuPacket)
	if o.buffers.MeetsRebuildThreshold() {
		o.cornerIndex = pointcloud.NewKDTree(o.buffers.LastCorner)
		o.surfaceIndex = pointcloud.NewKDTree(o.buffers.LastSurface)
	}

	o.frameCount++
	o.logger.Debugw("processed sweep",
		"frame", o.frameCount,
		"iterations", result.iterations,
		"converged", result.converged,
	)
}

// initialGuess seeds each sweep's Gauss-Newton loop with the previous
// sweep's converged transform, minus the IMU-observed velocity-induced
// translation over one scan period: the constant-velocity component of
// the prior motion is assumed carried by the new sweep's own feature
// matching, leaving only acceleration-induced drift as the seed.
func (o *LaserOdometry) initialGuess() spatialmath.Transform6DoF {
	guess := o.transform
	guess.Pos.X -= o.imuPacket.VeloFromStart.X * o.cfg.ScanPeriod
	guess.Pos.Y -= o.imuPacket.VeloFromStart.Y * o.cfg.ScanPeriod
	guess.Pos.Z -= o.imuPacket.VeloFromStart.Z * o.cfg.ScanPeriod
	return guess
}

// TransformSum returns the accumulated world pose as of the last Process call.
func (o *LaserOdometry) TransformSum() spatialmath.Transform6DoF { return o.transformSum }

// Transform returns the last inter-sweep increment.
func (o *LaserOdometry) Transform() spatialmath.Transform6DoF { return o.transform }

// LastCornerCloud returns the corner cloud projected to sweep-end.
func (o *LaserOdometry) LastCornerCloud() pointcloud.FeatureCloud { return o.buffers.LastCorner }

// LastSurfaceCloud returns the surface cloud projected to sweep-end.
func (o *LaserOdometry) LastSurfaceCloud() pointcloud.FeatureCloud { return o.buffers.LastSurface }

// FrameCount returns the number of sweeps optimized since construction.
// The initializing Process call that only installs the first "last"
// clouds does not count.
func (o *LaserOdometry) FrameCount() int { return o.frameCount }
