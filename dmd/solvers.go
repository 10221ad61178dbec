package dmd

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SolveBlazeOutput returns the output direction satisfying the blaze condition for input in
// and mirror angle gamma: the reflection of in about the mirror normal.
func SolveBlazeOutput(in r3.Vec, gamma float64) r3.Vec {
	a := XYZToMirror(in, gamma)
	return MirrorToXYZ(r3.Vec{X: a.X, Y: a.Y, Z: -a.Z}, gamma)
}

// SolveBlazeInput returns the input direction blazed into out. Reflection is its own inverse.
func SolveBlazeInput(out r3.Vec, gamma float64) r3.Vec {
	return SolveBlazeOutput(out, gamma)
}

// SolveDiffractionOutput returns the direction into which in is diffracted by the given order,
//
//	b_x = a_x - lambda/dx n_x,  b_y = a_y - lambda/dy n_y,  b_z = sqrt(1 - b_x^2 - b_y^2).
//
// Evanescent orders return NaNVec().
func SolveDiffractionOutput(in r3.Vec, dx, dy, wavelength float64, order Order) r3.Vec {
	bx := in.X - wavelength/dx*float64(order.X)
	by := in.Y - wavelength/dy*float64(order.Y)
	return completeUnit(bx, by, 1)
}

// SolveDiffractionInput returns the input direction diffracted into out by the given order.
// It inverts SolveDiffractionOutput for the same order. Infeasible inputs return NaNVec().
func SolveDiffractionInput(out r3.Vec, dx, dy, wavelength float64, order Order) r3.Vec {
	ax := out.X + wavelength/dx*float64(order.X)
	ay := out.Y + wavelength/dy*float64(order.Y)
	return completeUnit(ax, ay, -1)
}

// completeUnit recovers the z-component with the given sign from the unit norm constraint.
func completeUnit(vx, vy, sign float64) r3.Vec {
	rem := 1 - vx*vx - vy*vy
	if !(rem >= 0) {
		return NaNVec()
	}
	return r3.Vec{X: vx, Y: vy, Z: sign * math.Sqrt(rem)}
}

// CombinedCondition parameterizes all directions satisfying both the blaze condition and the
// grating equation for one mirror angle, wavelength and order (n, -n). The free parameter is
// a2, the input component along (x+y)/sqrt(2), limited to [A2Min, A2Max]. Each a2 has two
// solutions, selected by the sign of a1.
type CombinedCondition struct {
	Gamma float64
	// A3 is the mirror-normal component of the input direction shared by all solutions.
	A3           float64
	A2Min, A2Max float64
}

// SolveCombinedCondition solves the blaze and diffraction conditions simultaneously for mirror
// pitch d. Only orders with Y == -X admit a solution; other orders, and orders whose a3 exceeds
// 1 in magnitude, produce a condition whose solutions are all NaN.
func SolveCombinedCondition(d, gamma, wavelength float64, order Order) CombinedCondition {
	if !order.IsBlazeCompatible() {
		nan := math.NaN()
		return CombinedCondition{Gamma: gamma, A3: nan, A2Min: nan, A2Max: nan}
	}
	a3 := 1 / math.Sqrt2 / math.Sin(gamma) * wavelength / d * float64(order.X)
	lim := math.Sqrt(1 - a3*a3)
	return CombinedCondition{Gamma: gamma, A3: a3, A2Min: -lim, A2Max: lim}
}

func (c CombinedCondition) a1(a2 float64, positive bool) float64 {
	a1 := math.Sqrt(1 - a2*a2 - c.A3*c.A3)
	if !positive {
		a1 = -a1
	}
	return a1
}

// Input returns the input direction for parameter a2 on the branch selected by positive.
func (c CombinedCondition) Input(a2 float64, positive bool) r3.Vec {
	return MirrorToXYZ(r3.Vec{X: c.a1(a2, positive), Y: a2, Z: c.A3}, c.Gamma)
}

// Output returns the output direction paired with Input(a2, positive).
func (c CombinedCondition) Output(a2 float64, positive bool) r3.Vec {
	return MirrorToXYZ(r3.Vec{X: c.a1(a2, positive), Y: a2, Z: -c.A3}, c.Gamma)
}

// Solve1Color1D returns the input and output directions satisfying the blaze and diffraction
// conditions for order (n, -n) with the beams in the plane spanned by the mirror tilt direction
// and the DMD normal (a2 = 0). Index 0 holds the positive branch, index 1 the negative one.
func Solve1Color1D(wavelength, d, gamma float64, n int) (ins, outs [2]r3.Vec) {
	c := SolveCombinedCondition(d, gamma, wavelength, Order{X: n, Y: -n})
	for i, positive := range []bool{true, false} {
		ins[i] = c.Input(0, positive)
		outs[i] = c.Output(0, positive)
	}
	return ins, outs
}

// DiffractionOrderLimits returns the smallest and largest n for which the order (n, -n) has a
// real solution of the combined blaze and diffraction condition. Positive gamma gives
// 1 <= n <= nmax and negative gamma nmin <= n <= -1. A zero (or NaN) mirror angle has no
// blazed orders and returns ErrZeroMirrorAngle.
func DiffractionOrderLimits(wavelength, d, gamma float64) (nmin, nmax int, err error) {
	bound := d / wavelength * math.Sqrt2 * math.Sin(gamma)
	switch {
	case gamma > 0:
		return 1, int(math.Floor(bound)), nil
	case gamma < 0:
		return int(math.Ceil(bound)), -1, nil
	}
	return 0, 0, ErrZeroMirrorAngle
}

// TwoColorSolution holds the two branches of Solve2ColorOnOff.
type TwoColorSolution struct {
	Out   [2]r3.Vec // common output direction
	InOn  [2]r3.Vec // input direction of the ON wavelength
	InOff [2]r3.Vec // input direction of the OFF wavelength
}

// Solve2ColorOnOff finds the output directions at which light of wavelengthOn diffracted by
// the ON mirrors in order (nOn, -nOn) and light of wavelengthOff diffracted by the OFF mirrors
// in order (nOff, -nOff) are both blazed. The OFF angle is taken as -gammaOn. Branches without
// a real root are NaN-filled.
func Solve2ColorOnOff(d, gammaOn, wavelengthOn float64, nOn int, wavelengthOff float64, nOff int) TwoColorSolution {
	sg, cg := math.Sin(gammaOn), math.Cos(gammaOn)
	b3On := -1 / math.Sqrt2 / sg * wavelengthOn / d * float64(nOn)
	b3Off := 1 / math.Sqrt2 / sg * wavelengthOff / d * float64(nOff)

	// Equating the ON and OFF solutions:
	//   b3On + b3Off = 2 cos(gamma) bz
	//   b3On - b3Off = sqrt(2) sin(gamma) (bx - by)
	bz := 0.5 / cg * (b3On + b3Off)
	diff := (b3On - b3Off) / math.Sqrt2 / sg

	// bx^2 + c2 bx + c3 = 0 from the unit norm constraint
	c2 := -diff
	c3 := 0.5 * (bz*bz + diff*diff - 1)
	disc := math.Sqrt(c2*c2 - 4*c3)
	bxs := [2]float64{0.5 * (-c2 + disc), 0.5 * (-c2 - disc)}

	var sol TwoColorSolution
	for i, bx := range bxs {
		b := r3.Vec{X: bx, Y: bx - diff, Z: bz}
		if IsNaNVec(b) {
			sol.Out[i], sol.InOn[i], sol.InOff[i] = NaNVec(), NaNVec(), NaNVec()
			continue
		}
		sol.Out[i] = b
		sol.InOn[i] = SolveBlazeInput(b, gammaOn)
		sol.InOff[i] = SolveBlazeInput(b, -gammaOn)
	}
	return sol
}
