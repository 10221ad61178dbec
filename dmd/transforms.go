package dmd

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// XYZToMirror converts v from the DMD (x, y, z) frame to the mirror (1, 2, 3) frame of a mirror
// tilted by gamma.
func XYZToMirror(v r3.Vec, gamma float64) r3.Vec {
	c, s := math.Cos(gamma), math.Sin(gamma)
	return r3.Vec{
		X: c/math.Sqrt2*(v.X-v.Y) - s*v.Z,
		Y: (v.X + v.Y) / math.Sqrt2,
		Z: s/math.Sqrt2*(v.X-v.Y) + c*v.Z,
	}
}

// MirrorToXYZ is the inverse of XYZToMirror.
func MirrorToXYZ(v r3.Vec, gamma float64) r3.Vec {
	c, s := math.Cos(gamma), math.Sin(gamma)
	return r3.Vec{
		X: c/math.Sqrt2*v.X + v.Y/math.Sqrt2 + s/math.Sqrt2*v.Z,
		Y: -c/math.Sqrt2*v.X + v.Y/math.Sqrt2 - s/math.Sqrt2*v.Z,
		Z: -s*v.X + c*v.Z,
	}
}

// XYZToMPZ converts v to the (m, p, z) frame, m = (x-y)/sqrt(2), p = (x+y)/sqrt(2).
func XYZToMPZ(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: (v.X - v.Y) / math.Sqrt2,
		Y: (v.X + v.Y) / math.Sqrt2,
		Z: v.Z,
	}
}

// MPZToXYZ is the inverse of XYZToMPZ.
func MPZToXYZ(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: (v.X + v.Y) / math.Sqrt2,
		Y: (v.Y - v.X) / math.Sqrt2,
		Z: v.Z,
	}
}

// AngleToXY converts angle projections along the p and m axes to projections along the
// x and y axes.
func AngleToXY(tp, tm float64) (tx, ty float64) {
	tx = math.Atan((math.Tan(tp) + math.Tan(tm)) / math.Sqrt2)
	ty = math.Atan((math.Tan(tp) - math.Tan(tm)) / math.Sqrt2)
	return tx, ty
}

// AngleToPM converts angle projections along the x and y axes to projections along the
// p and m axes. It inverts AngleToXY for angles in (-pi/2, pi/2).
func AngleToPM(tx, ty float64) (tp, tm float64) {
	tm = math.Atan((math.Tan(tx) - math.Tan(ty)) / math.Sqrt2)
	tp = math.Atan((math.Tan(tx) + math.Tan(ty)) / math.Sqrt2)
	return tp, tm
}

// UnitVector returns the propagation direction parameterized by tx and ty:
//
//	a = |az| (tan(tx), tan(ty), -1)  for mode In
//	b = |bz| (tan(tx), tan(ty),  1)  for mode Out
//
// The sign convention makes the law of reflection read theta_a = theta_b. tx and ty must lie
// strictly inside (-pi/2, pi/2).
func UnitVector(tx, ty float64, mode Mode) r3.Vec {
	return r3.Unit(r3.Vec{X: math.Tan(tx), Y: math.Tan(ty), Z: mode.zSign()})
}

// UVectorToTxTy inverts UnitVector. The angles are recovered with the normalization |1/vz|,
// so the same formula serves incoming and outgoing vectors.
func UVectorToTxTy(v r3.Vec) (tx, ty float64) {
	norm := math.Abs(1 / v.Z)
	return math.Atan(v.X * norm), math.Atan(v.Y * norm)
}

// UVectorToTpTm returns the (p, m) angle projections of v.
func UVectorToTpTm(v r3.Vec) (tp, tm float64) {
	return AngleToPM(UVectorToTxTy(v))
}

// PMToUVector builds a unit vector from (m, p) angle projections.
func PMToUVector(tm, tp float64, mode Mode) r3.Vec {
	tx, ty := AngleToXY(tp, tm)
	return UnitVector(tx, ty, mode)
}

// RotationMatrix returns the matrix rotating points by gamma about the unit axis n.
func RotationMatrix(n r3.Vec, gamma float64) *mat.Dense {
	c, s := math.Cos(gamma), math.Sin(gamma)
	t := 1 - c
	return mat.NewDense(3, 3, []float64{
		n.X*n.X*t + c, n.X*n.Y*t - n.Z*s, n.X*n.Z*t + n.Y*s,
		n.X*n.Y*t + n.Z*s, n.Y*n.Y*t + c, n.Y*n.Z*t - n.X*s,
		n.X*n.Z*t - n.Y*s, n.Y*n.Z*t + n.X*s, n.Z*n.Z*t + c,
	})
}

// SwivelAxis is the diagonal axis about which the mirrors swivel.
var SwivelAxis = r3.Vec{X: 1 / math.Sqrt2, Y: 1 / math.Sqrt2, Z: 0}
