package dmd_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

func TestUnitVectorRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lim := unit.AngleFromDeg(80).Rad()

	for _, mode := range []dmd.Mode{dmd.In, dmd.Out} {
		for i := 0; i < 200; i++ {
			tx := uniform(rng, -lim, lim)
			ty := uniform(rng, -lim, lim)

			v := dmd.UnitVector(tx, ty, mode)
			assert.InDelta(t, 1, r3.Norm(v), 1e-14)
			if mode == dmd.In {
				assert.Less(t, v.Z, 0.0)
			} else {
				assert.Greater(t, v.Z, 0.0)
			}

			gotX, gotY := dmd.UVectorToTxTy(v)
			assert.InDelta(t, tx, gotX, 1e-12, "mode %v", mode)
			assert.InDelta(t, ty, gotY, 1e-12, "mode %v", mode)
		}
	}
}

func TestUnitVectorNormal(t *testing.T) {
	assertVecInDelta(t, r3.Vec{X: 0, Y: 0, Z: -1}, dmd.UnitVector(0, 0, dmd.In), 0)
	assertVecInDelta(t, r3.Vec{X: 0, Y: 0, Z: 1}, dmd.UnitVector(0, 0, dmd.Out), 0)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "in", dmd.In.String())
	assert.Equal(t, "out", dmd.Out.String())
	assert.Panics(t, func() { dmd.UnitVector(0, 0, dmd.Mode(7)) })
}

func TestMirrorFrameRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		v := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		gamma := uniform(rng, -math.Pi, math.Pi)

		m := dmd.XYZToMirror(v, gamma)
		assert.InDelta(t, r3.Norm(v), r3.Norm(m), 1e-12)
		assertVecInDelta(t, v, dmd.MirrorToXYZ(m, gamma), 1e-12)
		assertVecInDelta(t, v, dmd.XYZToMirror(dmd.MirrorToXYZ(v, gamma), gamma), 1e-12)
	}
}

func TestMirrorNormal(t *testing.T) {
	gamma := 0.21
	n := dmd.MirrorToXYZ(r3.Vec{X: 0, Y: 0, Z: 1}, gamma)
	s, c := math.Sin(gamma), math.Cos(gamma)
	assertVecInDelta(t, r3.Vec{X: s / math.Sqrt2, Y: -s / math.Sqrt2, Z: c}, n, 1e-15)

	// the swivel axis is fixed by the rotation
	assertVecInDelta(t, dmd.SwivelAxis, dmd.MirrorToXYZ(r3.Vec{X: 0, Y: 1, Z: 0}, gamma), 1e-15)
}

func TestMPZRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		v := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		assertVecInDelta(t, v, dmd.MPZToXYZ(dmd.XYZToMPZ(v)), 1e-14)
		assertVecInDelta(t, v, dmd.XYZToMPZ(dmd.MPZToXYZ(v)), 1e-14)
	}

	mpz := dmd.XYZToMPZ(r3.Vec{X: 1, Y: 1, Z: 0})
	assertVecInDelta(t, r3.Vec{X: 0, Y: math.Sqrt2, Z: 0}, mpz, 1e-15)
}

func TestAnglePMRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	lim := unit.AngleFromDeg(80).Rad()
	for i := 0; i < 200; i++ {
		tp := uniform(rng, -lim, lim)
		tm := uniform(rng, -lim, lim)

		gotP, gotM := dmd.AngleToPM(dmd.AngleToXY(tp, tm))
		assert.InDelta(t, tp, gotP, 1e-12)
		assert.InDelta(t, tm, gotM, 1e-12)

		v := dmd.PMToUVector(tm, tp, dmd.Out)
		gotP, gotM = dmd.UVectorToTpTm(v)
		assert.InDelta(t, tp, gotP, 1e-12)
		assert.InDelta(t, tm, gotM, 1e-12)
	}
}

func TestRotationMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		gamma := uniform(rng, -1, 1)
		r := dmd.RotationMatrix(dmd.SwivelAxis, gamma)

		// orthogonal
		var rtr mat.Dense
		rtr.Mul(r.T(), r)
		assert.True(t, mat.EqualApprox(&rtr, eye(3), 1e-14))

		// columns 0 and 1 give the blaze condition arguments
		amb := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		var proj mat.VecDense
		proj.MulVec(r.T(), mat.NewVecDense(3, []float64{amb.X, amb.Y, amb.Z}))

		aPlus, aMinus := dmd.BlazeCondition(gamma, amb)
		assert.InDelta(t, proj.AtVec(0), aPlus, 1e-13)
		assert.InDelta(t, proj.AtVec(1), aMinus, 1e-13)
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
