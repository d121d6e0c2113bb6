package odometry

import (
	"github.com/baoxianzhang/loam-note/imu"
	"github.com/baoxianzhang/loam-note/pointcloud"
	"github.com/baoxianzhang/loam-note/spatialmath"
)

// toStart maps a feature point captured at relative time s within the
// current sweep back to the sweep-start frame, under a constant-velocity
// motion model: it attributes fraction s of the current transform estimate
// to the point and undoes it. Intensity (ring + relTime) is left
// untouched; only toEnd strips the time fraction, once the point has no
// further need of it.
func toStart(p pointcloud.FeaturePoint, transform spatialmath.Transform6DoF) pointcloud.FeaturePoint {
	s := p.RelTime()

	pos := p.Position
	pos.X -= s * transform.Pos.X
	pos.Y -= s * transform.Pos.Y
	pos.Z -= s * transform.Pos.Z

	rx := transform.Rot.RotX.Scale(-s)
	ry := transform.Rot.RotY.Scale(-s)
	rz := transform.Rot.RotZ.Scale(-s)

	pos = spatialmath.RotateZXY(pos, rz, rx, ry)
	return p.WithPosition(pos)
}

// toEnd maps every point of cloud, captured during the current sweep under
// transform, to the sweep-end frame and applies the IMU start/end attitude
// correction. Used to project the carried-forward corner/surface clouds
// into the frame the next sweep's matching will be performed in.
func toEnd(cloud pointcloud.FeatureCloud, transform spatialmath.Transform6DoF, pkt imu.Packet) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, len(cloud))
	for i, p := range cloud {
		s := p.RelTime()

		pos := p.Position
		pos.X -= s * transform.Pos.X
		pos.Y -= s * transform.Pos.Y
		pos.Z -= s * transform.Pos.Z

		rx := transform.Rot.RotX.Scale(-s)
		ry := transform.Rot.RotY.Scale(-s)
		rz := transform.Rot.RotZ.Scale(-s)
		pos = spatialmath.RotateZXY(pos, rz, rx, ry)

		pos = spatialmath.RotateYXZ(pos, transform.Rot.RotY, transform.Rot.RotX, transform.Rot.RotZ)

		pos.X += transform.Pos.X - pkt.ShiftFromStart.X
		pos.Y += transform.Pos.Y - pkt.ShiftFromStart.Y
		pos.Z += transform.Pos.Z - pkt.ShiftFromStart.Z

		pos = spatialmath.RotateZXY(pos, pkt.StartAttitude.RotZ, pkt.StartAttitude.RotX, pkt.StartAttitude.RotY)
		pos = spatialmath.RotateYXZ(pos, pkt.EndAttitude.RotY.Neg(), pkt.EndAttitude.RotX.Neg(), pkt.EndAttitude.RotZ.Neg())

		out[i] = p.WithPosition(pos).WithoutRelTime()
	}
	return out
}
