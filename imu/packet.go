// Package imu defines the inertial hint packet consumed once per sweep by
// the odometry orchestrator: start/end attitude and net position/velocity
// drift since sweep start, all produced externally by an IMU pre-
// integration stage.
package imu

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/baoxianzhang/loam-note/spatialmath"
)

// Packet is the four-point IMU hint delivered alongside each sweep's
// feature clouds: start attitude, end attitude, net position drift since
// sweep-start in world frame, and net velocity drift since sweep-start.
type Packet struct {
	StartAttitude  spatialmath.EulerZXY
	EndAttitude    spatialmath.EulerZXY
	ShiftFromStart r3.Vector
	VeloFromStart  r3.Vector
}

// Zero returns an IMU packet with no attitude or drift, useful as a
// placeholder before the first UpdateIMU call.
func Zero() Packet {
	return Packet{
		StartAttitude: spatialmath.EulerZXY{RotX: spatialmath.NewAngle(0), RotY: spatialmath.NewAngle(0), RotZ: spatialmath.NewAngle(0)},
		EndAttitude:   spatialmath.EulerZXY{RotX: spatialmath.NewAngle(0), RotY: spatialmath.NewAngle(0), RotZ: spatialmath.NewAngle(0)},
	}
}

// FromPoints builds a Packet from the four points the upstream IMU pre-
// integration stage emits, in the fixed order (startEuler, endEuler,
// shiftFromStart, velocityFromStart). Each attitude point's (x, y, z)
// carries (pitch, yaw, roll). A packet that is not exactly four points is
// a programming error on the producer's part, not a runtime condition, and
// is reported by panicking with a wrapped error rather than returning one.
func FromPoints(points []r3.Vector) Packet {
	if len(points) != 4 {
		panic(errors.Errorf("imu packet must have exactly 4 points, got %d", len(points)))
	}

	start := points[0]
	end := points[1]

	return Packet{
		StartAttitude: spatialmath.EulerZXY{
			RotX: spatialmath.NewAngle(start.X),
			RotY: spatialmath.NewAngle(start.Y),
			RotZ: spatialmath.NewAngle(start.Z),
		},
		EndAttitude: spatialmath.EulerZXY{
			RotX: spatialmath.NewAngle(end.X),
			RotY: spatialmath.NewAngle(end.Y),
			RotZ: spatialmath.NewAngle(end.Z),
		},
		ShiftFromStart: points[2],
		VeloFromStart:  points[3],
	}
}

// Pitch returns the IMU start pitch (rot_x, in the odometry's ZXY Euler
// convention).
func (p Packet) Pitch() spatialmath.Angle { return p.StartAttitude.RotX }

// Roll returns the IMU start roll (rot_z).
func (p Packet) Roll() spatialmath.Angle { return p.StartAttitude.RotZ }
