package dmd_test

import (
	"context"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

func benchDirections(n int) []r3.Vec {
	outs := make([]r3.Vec, n)
	for i := range outs {
		outs[i] = dmd.UnitVector(0.002*float64(i), 0.1, dmd.Out)
	}
	return outs
}

func BenchmarkSimulate(b *testing.B) {
	pattern := randomPattern(rand.New(rand.NewSource(1)), 64, 64)
	g := testGeometry()
	in := dmd.UnitVector(0.1, -0.05, dmd.In)
	outs := benchDirections(256)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dmd.Simulate(context.Background(), pattern, g, in, outs, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimulateDFT(b *testing.B) {
	pattern := randomPattern(rand.New(rand.NewSource(1)), 64, 64)
	g := testGeometry()
	in := dmd.UnitVector(0.1, -0.05, dmd.In)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dmd.SimulateDFT(pattern, nil, g, in, dmd.Order{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInterpolateDFT(b *testing.B) {
	pattern := randomPattern(rand.New(rand.NewSource(1)), 64, 64)
	g := testGeometry()
	in := dmd.UnitVector(0.1, -0.05, dmd.In)
	outs := benchDirections(256)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dmd.InterpolateDFT(context.Background(), pattern, nil, g, in, dmd.Order{}, outs, nil); err != nil {
			b.Fatal(err)
		}
	}
}
