package odometry

import (
	"github.com/baoxianzhang/loam-note/imu"
	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// imuYGain is the sensor-specific empirical correction applied to the
// incremental transform before it is folded into the world pose: the same
// 1.05x factor is used on the vertical rotation axis and on the z
// translation.
// Preserve verbatim; do not retune without retuning the convergence
// thresholds, since they interact with the solver's step damping.
const imuYGain = 1.05

// accumulateWorldPose composes the converged per-sweep increment into the
// running world pose: rotation first (accumulateRotation with the negated,
// gain-scaled increment), then translation (rotate the gain-scaled
// increment translation into the new world attitude and subtract it),
// then an IMU attitude correction via pluginIMURotation.
func accumulateWorldPose(transformSum spatialmath.Transform6DoF, transform spatialmath.Transform6DoF, pkt imu.Packet) spatialmath.Transform6DoF {
	worldRot := spatialmath.AccumulateRotation(transformSum.Rot, spatialmath.EulerZXY{
		RotX: transform.Rot.RotX.Neg(),
		RotY: transform.Rot.RotY.Scale(-imuYGain),
		RotZ: transform.Rot.RotZ.Neg(),
	})

	v := transform.Pos
	v.X -= pkt.ShiftFromStart.X
	v.Y -= pkt.ShiftFromStart.Y
	v.Z = transform.Pos.Z*imuYGain - pkt.ShiftFromStart.Z
	v = spatialmath.RotateZXY(v, worldRot.RotZ, worldRot.RotX, worldRot.RotY)

	worldPos := transformSum.Pos.Sub(v)

	correctedRot := spatialmath.PluginIMURotation(worldRot, pkt.StartAttitude, pkt.EndAttitude)

	return spatialmath.Transform6DoF{Rot: correctedRot, Pos: worldPos}
}

// endOfSweepBuffers projects the less-sharp/less-flat clouds to the
// sweep-end frame and swaps them into the "last" slots that the next
// sweep's correspondence builder will match against.
func endOfSweepBuffers(buffers *pointcloud.Buffers, transform spatialmath.Transform6DoF, pkt imu.Packet) {
	buffers.CornerLessSharp = toEnd(buffers.CornerLessSharp, transform, pkt)
	buffers.SurfLessFlat = toEnd(buffers.SurfLessFlat, transform, pkt)
	buffers.SwapInLessClouds()
}
