package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// clampAsin guards math.Asin against arguments that drift fractionally
// outside [-1, 1] due to floating point error, which would otherwise
// return NaN and poison the whole rotation chain.
func clampAsin(x float64) float64 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return math.Asin(x)
}

// RotateZXY applies, in order, a rotation about Z, then X, then Y to v and
// returns the result. This is the fixed-axis convention used to de-skew
// points expressed in the sensor's own frame.
func RotateZXY(v r3.Vector, rz, rx, ry Angle) r3.Vector {
	// about Z
	x1 := v.X*rz.Cos() - v.Y*rz.Sin()
	y1 := v.X*rz.Sin() + v.Y*rz.Cos()
	z1 := v.Z

	// about X
	x2 := x1
	y2 := y1*rx.Cos() - z1*rx.Sin()
	z2 := y1*rx.Sin() + z1*rx.Cos()

	// about Y
	x3 := x2*ry.Cos() + z2*ry.Sin()
	y3 := y2
	z3 := -x2*ry.Sin() + z2*ry.Cos()

	return r3.Vector{X: x3, Y: y3, Z: z3}
}

// RotateYXZ applies, in order, a rotation about Y, then X, then Z to v and
// returns the result. This mirrors the upstream IMU attitude convention.
func RotateYXZ(v r3.Vector, ry, rx, rz Angle) r3.Vector {
	// about Y
	x1 := v.X*ry.Cos() + v.Z*ry.Sin()
	y1 := v.Y
	z1 := -v.X*ry.Sin() + v.Z*ry.Cos()

	// about X
	x2 := x1
	y2 := y1*rx.Cos() - z1*rx.Sin()
	z2 := y1*rx.Sin() + z1*rx.Cos()

	// about Z
	x3 := x2*rz.Cos() - y2*rz.Sin()
	y3 := x2*rz.Sin() + y2*rz.Cos()
	z3 := z2

	return r3.Vector{X: x3, Y: y3, Z: z3}
}

// EulerZXY is a ZXY-ordered Euler triple: rotation about X, Y and Z. It is
// the representation accumulateRotation and pluginIMURotation both consume
// and produce.
type EulerZXY struct {
	RotX Angle
	RotY Angle
	RotZ Angle
}

// AccumulateRotation composes two rotations expressed as ZXY-ordered Euler
// triples (sum followed by increment) and re-extracts the ZXY Euler output
// by the closed-form equations equivalent to matrix multiplication followed
// by Euler re-extraction.
func AccumulateRotation(sum, inc EulerZXY) EulerZXY {
	cx, cy, cz := sum.RotX, sum.RotY, sum.RotZ
	lx, ly, lz := inc.RotX, inc.RotY, inc.RotZ

	srx := lx.Cos()*cx.Cos()*ly.Sin()*cz.Sin() -
		cx.Cos()*cz.Cos()*lx.Sin() -
		lx.Cos()*ly.Cos()*cx.Sin()
	ox := NewAngle(clampAsin(-srx))

	srycrx := lx.Sin()*(cy.Cos()*cz.Sin()-cz.Cos()*cx.Sin()*cy.Sin()) +
		lx.Cos()*ly.Sin()*(cy.Cos()*cz.Cos()+cx.Sin()*cy.Sin()*cz.Sin()) +
		lx.Cos()*ly.Cos()*cx.Cos()*cy.Sin()
	crycrx := lx.Cos()*ly.Cos()*cx.Cos()*cy.Cos() -
		lx.Cos()*ly.Sin()*(cz.Cos()*cy.Sin()-cy.Cos()*cx.Sin()*cz.Sin()) -
		lx.Sin()*(cy.Sin()*cz.Sin()+cy.Cos()*cz.Cos()*cx.Sin())
	oy := NewAngle(math.Atan2(srycrx/ox.Cos(), crycrx/ox.Cos()))

	srzcrx := cx.Sin()*(lz.Cos()*ly.Sin()-ly.Cos()*lx.Sin()*lz.Sin()) +
		cx.Cos()*cz.Sin()*(ly.Cos()*lz.Cos()+lx.Sin()*ly.Sin()*lz.Sin()) +
		lx.Cos()*cx.Cos()*cz.Cos()*lz.Sin()
	crzcrx := lx.Cos()*lz.Cos()*cx.Cos()*cz.Cos() -
		cx.Cos()*cz.Sin()*(ly.Cos()*lz.Sin()-lz.Cos()*lx.Sin()*ly.Sin()) -
		cx.Sin()*(ly.Sin()*lz.Sin()+ly.Cos()*lz.Cos()*lx.Sin())
	oz := NewAngle(math.Atan2(srzcrx/ox.Cos(), crzcrx/ox.Cos()))

	return EulerZXY{RotX: ox, RotY: oy, RotZ: oz}
}

// PluginIMURotation composes a current estimated attitude (bc*) with the
// delta between an IMU start attitude (bl*) and IMU end attitude (al*),
// producing an IMU-corrected world attitude. The closed form is the same
// rotation-composition derivation as AccumulateRotation, specialized for
// the IMU correction step.
func PluginIMURotation(bc EulerZXY, imuStart, imuEnd EulerZXY) EulerZXY {
	sbcx, cbcx := bc.RotX.Sin(), bc.RotX.Cos()
	sbcy, cbcy := bc.RotY.Sin(), bc.RotY.Cos()
	sbcz, cbcz := bc.RotZ.Sin(), bc.RotZ.Cos()

	sblx, cblx := imuStart.RotX.Sin(), imuStart.RotX.Cos()
	sbly, cbly := imuStart.RotY.Sin(), imuStart.RotY.Cos()
	sblz, cblz := imuStart.RotZ.Sin(), imuStart.RotZ.Cos()

	salx, calx := imuEnd.RotX.Sin(), imuEnd.RotX.Cos()
	saly, caly := imuEnd.RotY.Sin(), imuEnd.RotY.Cos()
	salz, calz := imuEnd.RotZ.Sin(), imuEnd.RotZ.Cos()

	srx := -sbcx*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly) -
		cbcx*cbcz*(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
			calx*caly*(sbly*sblz+cbly*cblz*sblx)+cblx*cblz*salx) -
		cbcx*sbcz*(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
			calx*saly*(cbly*cblz+sblx*sbly*sblz)+cblx*salx*sblz)
	acx := NewAngle(clampAsin(-srx))

	srycrx := (cbcy*sbcz-cbcz*sbcx*sbcy)*(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
		calx*caly*(sbly*sblz+cbly*cblz*sblx)+cblx*cblz*salx) -
		(cbcy*cbcz+sbcx*sbcy*sbcz)*(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
			calx*saly*(cbly*cblz+sblx*sbly*sblz)+cblx*salx*sblz) +
		cbcx*sbcy*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly)
	crycrx := (cbcz*sbcy-cbcy*sbcx*sbcz)*(calx*caly*(cblz*sbly-cbly*sblx*sblz)-
		calx*saly*(cbly*cblz+sblx*sbly*sblz)+cblx*salx*sblz) -
		(sbcy*sbcz+cbcy*cbcz*sbcx)*(calx*saly*(cbly*sblz-cblz*sblx*sbly)-
			calx*caly*(sbly*sblz+cbly*cblz*sblx)+cblx*cblz*salx) +
		cbcx*cbcy*(salx*sblx+calx*caly*cblx*cbly+calx*cblx*saly*sbly)
	acy := NewAngle(math.Atan2(srycrx/acx.Cos(), crycrx/acx.Cos()))

	srzcrx := sbcx*(cblx*cbly*(calz*saly-caly*salx*salz)-
		cblx*sbly*(caly*calz+salx*saly*salz)+calx*salz*sblx) -
		cbcx*cbcz*((caly*calz+salx*saly*salz)*(cbly*sblz-cblz*sblx*sbly)+
			(calz*saly-caly*salx*salz)*(sbly*sblz+cbly*cblz*sblx)-
			calx*cblx*cblz*salz) +
		cbcx*sbcz*((caly*calz+salx*saly*salz)*(cbly*cblz+sblx*sbly*sblz)+
			(calz*saly-caly*salx*salz)*(cblz*sbly-cbly*sblx*sblz)+
			calx*cblx*salz*sblz)
	crzcrx := sbcx*(cblx*sbly*(caly*salz-calz*salx*saly)-
		cblx*cbly*(saly*salz+caly*calz*salx)+calx*calz*sblx) +
		cbcx*cbcz*((saly*salz+caly*calz*salx)*(sbly*sblz+cbly*cblz*sblx)+
			(caly*salz-calz*salx*saly)*(cbly*sblz-cblz*sblx*sbly)+
			calx*calz*cblx*cblz) -
		cbcx*sbcz*((saly*salz+caly*calz*salx)*(cblz*sbly-cbly*sblx*sblz)+
			(caly*salz-calz*salx*saly)*(cbly*cblz+sblx*sbly*sblz)-
			calx*calz*cblx*sblz)
	acz := NewAngle(math.Atan2(srzcrx/acx.Cos(), crzcrx/acx.Cos()))

	return EulerZXY{RotX: acx, RotY: acy, RotZ: acz}
}
