package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Transform6DoF is a rigid motion expressed as a ZXY-ordered Euler triple
// plus a translation. It is used both for the incremental sweep-to-sweep
// motion and for the accumulated world pose.
type Transform6DoF struct {
	Rot EulerZXY
	Pos r3.Vector
}

// ZeroTransform6DoF returns the identity transform.
func ZeroTransform6DoF() Transform6DoF {
	return Transform6DoF{
		Rot: EulerZXY{RotX: NewAngle(0), RotY: NewAngle(0), RotZ: NewAngle(0)},
		Pos: r3.Vector{},
	}
}

// AddIncrement adds a 6-vector increment (rx, ry, rz, tx, ty, tz) to the
// transform's angles and position, in place of the additive Gauss-Newton
// update. Non-finite results are reset to zero component-wise, the only
// self-healing path in the solver.
func (t *Transform6DoF) AddIncrement(drx, dry, drz, dtx, dty, dtz float64) {
	t.Rot.RotX = sanitizeAngle(t.Rot.RotX.Add(drx))
	t.Rot.RotY = sanitizeAngle(t.Rot.RotY.Add(dry))
	t.Rot.RotZ = sanitizeAngle(t.Rot.RotZ.Add(drz))
	t.Pos.X = sanitizeFloat(t.Pos.X + dtx)
	t.Pos.Y = sanitizeFloat(t.Pos.Y + dty)
	t.Pos.Z = sanitizeFloat(t.Pos.Z + dtz)
}

func sanitizeAngle(a Angle) Angle {
	if !a.IsFinite() {
		return NewAngle(0)
	}
	return a
}

func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0
	}
	return f
}
