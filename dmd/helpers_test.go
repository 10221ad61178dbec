package dmd_test

import (
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

func assertVecInDelta(t *testing.T, want, got r3.Vec, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, delta, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, delta, msgAndArgs...)
}

func assertComplexInDelta(t *testing.T, want, got complex128, delta float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, real(want), real(got), delta, msgAndArgs...)
	assert.InDelta(t, imag(want), imag(got), delta, msgAndArgs...)
}

// assertComplexRelative checks |want-got| <= rel*|want|.
func assertComplexRelative(t *testing.T, want, got complex128, rel float64, msgAndArgs ...interface{}) {
	t.Helper()
	diff := cmplx.Abs(want - got)
	if scale := cmplx.Abs(want); scale > 0 {
		diff /= scale
	}
	assert.LessOrEqual(t, diff, rel, msgAndArgs...)
}

func randomPattern(rng *rand.Rand, ny, nx int) dmd.Pattern {
	p := make(dmd.Pattern, ny)
	for y := range p {
		p[y] = make([]uint8, nx)
		for x := range p[y] {
			p[y][x] = uint8(rng.Intn(2))
		}
	}
	return p
}

func uniformPattern(ny, nx int, v uint8) dmd.Pattern {
	p := make(dmd.Pattern, ny)
	for y := range p {
		p[y] = make([]uint8, nx)
		for x := range p[y] {
			p[y][x] = v
		}
	}
	return p
}

// testGeometry is the small device used to cross-check the simulators.
func testGeometry() dmd.Geometry {
	return dmd.Geometry{
		Wavelength: 0.5,
		Dx:         1,
		Dy:         1,
		Wx:         0.9,
		Wy:         0.9,
		GammaOn:    0.2,
		GammaOff:   -0.2,
	}
}

// uniform returns a random number in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
