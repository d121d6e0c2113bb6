package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func zeroEuler() EulerZXY {
	return EulerZXY{RotX: NewAngle(0), RotY: NewAngle(0), RotZ: NewAngle(0)}
}

func TestRotateZXYThenInverseIsIdentity(t *testing.T) {
	v := r3.Vector{X: 1.2, Y: -0.4, Z: 3.3}
	rx, ry, rz := NewAngle(0.3), NewAngle(-0.2), NewAngle(0.5)

	rotated := RotateZXY(v, rz, rx, ry)
	back := RotateYXZ(rotated, ry.Neg(), rx.Neg(), rz.Neg())

	test.That(t, back.X, test.ShouldAlmostEqual, v.X, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, v.Y, 1e-9)
	test.That(t, back.Z, test.ShouldAlmostEqual, v.Z, 1e-9)
}

func TestRotateYXZThenInverseIsIdentity(t *testing.T) {
	v := r3.Vector{X: -2.1, Y: 0.7, Z: 1.1}
	rx, ry, rz := NewAngle(0.1), NewAngle(0.25), NewAngle(-0.35)

	rotated := RotateYXZ(v, ry, rx, rz)
	back := RotateZXY(rotated, rz.Neg(), rx.Neg(), ry.Neg())

	test.That(t, back.X, test.ShouldAlmostEqual, v.X, 1e-9)
	test.That(t, back.Y, test.ShouldAlmostEqual, v.Y, 1e-9)
	test.That(t, back.Z, test.ShouldAlmostEqual, v.Z, 1e-9)
}

func TestAccumulateRotationWithZeroIncrementIsIdentity(t *testing.T) {
	sum := EulerZXY{RotX: NewAngle(0.12), RotY: NewAngle(-0.34), RotZ: NewAngle(0.56)}
	out := AccumulateRotation(sum, zeroEuler())

	test.That(t, out.RotX.Rad(), test.ShouldAlmostEqual, sum.RotX.Rad(), 1e-6)
	test.That(t, out.RotY.Rad(), test.ShouldAlmostEqual, sum.RotY.Rad(), 1e-6)
	test.That(t, out.RotZ.Rad(), test.ShouldAlmostEqual, sum.RotZ.Rad(), 1e-6)
}

func TestPluginIMURotationWithEqualStartEndIsIdentity(t *testing.T) {
	bc := EulerZXY{RotX: NewAngle(0.05), RotY: NewAngle(0.1), RotZ: NewAngle(-0.02)}
	imu := EulerZXY{RotX: NewAngle(0.2), RotY: NewAngle(-0.1), RotZ: NewAngle(0.3)}

	out := PluginIMURotation(bc, imu, imu)

	test.That(t, out.RotX.Rad(), test.ShouldAlmostEqual, bc.RotX.Rad(), 1e-6)
	test.That(t, out.RotY.Rad(), test.ShouldAlmostEqual, bc.RotY.Rad(), 1e-6)
	test.That(t, out.RotZ.Rad(), test.ShouldAlmostEqual, bc.RotZ.Rad(), 1e-6)
}

func TestClampAsinDoesNotProduceNaNNearBoundary(t *testing.T) {
	test.That(t, math.IsNaN(clampAsin(1.0000000001)), test.ShouldBeFalse)
	test.That(t, math.IsNaN(clampAsin(-1.0000000001)), test.ShouldBeFalse)
}
