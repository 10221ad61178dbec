package dmd

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/spatial/r3"
)

// SimulateOptions tunes Simulate and InterpolateDFT. The zero value is a flat device evaluated
// on one worker per CPU.
type SimulateOptions struct {
	// ZShifts is an optional mirror height profile with the same shape as the pattern.
	ZShifts [][]float64
	// Workers is the number of goroutines sharing the output directions (<= 0 means NumCPU).
	Workers int
	// Verbose logs batch progress every few seconds.
	Verbose bool
}

// Fields holds the result of a simulation, one entry per output direction.
type Fields struct {
	// EFields is the diffracted field: every mirror weighted by the envelope of its state.
	EFields []complex128
	// SincOn and SincOff are the single-mirror fields of the ON and OFF states.
	SincOn  []float64
	SincOff []float64
	// Diffraction is the bare phase sum over all mirrors, without envelopes.
	Diffraction []complex128
}

type fieldSample struct {
	efield, diffraction complex128
	on, off             float64
}

// Simulate computes by direct summation the field diffracted by the DMD into each of the
// outs directions for a plane wave incident along in:
//
//	E(b) = sum_m s_m(b) exp(i 2pi/lambda (dx mx (a-b)_x + dy my (a-b)_y + z_m (a-b)_z))
//
// where s_m is the ON or OFF envelope depending on the mirror state. The cost is
// O(mirrors x directions); directions are spread over a worker pool. Results are in the
// order of outs.
func Simulate(ctx context.Context, pattern Pattern, g Geometry, in r3.Vec, outs []r3.Vec, opts *SimulateOptions) (*Fields, error) {
	if err := pattern.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if opts == nil {
		opts = &SimulateOptions{}
	}
	ny, nx := pattern.Shape()
	zshifts := opts.ZShifts
	if zshifts != nil && !sameShape(zshifts, ny, nx) {
		return nil, fmt.Errorf("simulate: zshifts: %w", ErrShapeMismatch)
	}

	k := 2 * math.Pi / g.Wavelength

	calcOutputAngle := func(i int) fieldSample {
		// incoming minus outgoing unit vectors
		amb := r3.Sub(in, outs[i])

		// The x and y phases separate for a flat device.
		phaseX := make([]complex128, nx)
		for mx := range phaseX {
			phaseX[mx] = cmplx.Exp(complex(0, k*g.Dx*float64(mx)*amb.X))
		}
		phaseY := make([]complex128, ny)
		for my := range phaseY {
			phaseY[my] = cmplx.Exp(complex(0, k*g.Dy*float64(my)*amb.Y))
		}

		on, off := g.envelopes(amb)
		sOn, sOff := complex(on, 0), complex(off, 0)

		var sumOn, sumOff complex128
		for my := 0; my < ny; my++ {
			var rowOn, rowOff complex128
			for mx := 0; mx < nx; mx++ {
				p := phaseX[mx]
				if zshifts != nil {
					p *= cmplx.Exp(complex(0, k*zshifts[my][mx]*amb.Z))
				}
				if pattern[my][mx] == 1 {
					rowOn += p
				} else {
					rowOff += p
				}
			}
			sumOn += rowOn * phaseY[my]
			sumOff += rowOff * phaseY[my]
		}

		return fieldSample{
			efield:      sOn*sumOn + sOff*sumOff,
			diffraction: sumOn + sumOff,
			on:          on,
			off:         off,
		}
	}

	samples, err := parallelMap(ctx, len(outs), opts.Workers, opts.Verbose, calcOutputAngle)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return unpackSamples(samples), nil
}

func unpackSamples(samples []fieldSample) *Fields {
	f := &Fields{
		EFields:     make([]complex128, len(samples)),
		SincOn:      make([]float64, len(samples)),
		SincOff:     make([]float64, len(samples)),
		Diffraction: make([]complex128, len(samples)),
	}
	for i, s := range samples {
		f.EFields[i] = s.efield
		f.SincOn[i] = s.on
		f.SincOff[i] = s.off
		f.Diffraction[i] = s.diffraction
	}
	return f
}

func sameShape[T any](m [][]T, ny, nx int) bool {
	if len(m) != ny {
		return false
	}
	for _, row := range m {
		if len(row) != nx {
			return false
		}
	}
	return true
}
