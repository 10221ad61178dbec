package dmd

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/spatial/r3"
)

// DFTResult holds the field on the natural grid of output directions of a pattern,
//
//	(a-b)_x = lambda/dx (order_x + Fx[ix]),  (a-b)_y = lambda/dy (order_y + Fy[iy]),
//
// where Fx and Fy are the centered DFT frequencies of the pattern in 1/mirrors. All grids are
// indexed [iy][ix].
type DFTResult struct {
	Fx, Fy []float64
	Out    [][]r3.Vec // output unit vectors, NaN where the direction is evanescent
	// EFields is PatternDFT*SincOn + ComplementDFT*SincOff.
	EFields       [][]complex128
	PatternDFT    [][]complex128 // DFT of pattern*profile
	ComplementDFT [][]complex128 // DFT of (1-pattern)*profile
	SincOn        [][]float64
	SincOff       [][]float64
}

// SimulateDFT computes the diffracted field on the grid of directions at which the field is the
// 2D DFT of the pattern, weighted by the illumination profile, combined with the ON and OFF
// envelopes. On that grid it agrees exactly with Simulate; InterpolateDFT recovers all other
// directions. profile may be nil for uniform unit illumination.
func SimulateDFT(pattern Pattern, profile [][]complex128, g Geometry, in r3.Vec, order Order) (*DFTResult, error) {
	if err := pattern.Validate(); err != nil {
		return nil, fmt.Errorf("simulate dft: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("simulate dft: %w", err)
	}
	ny, nx := pattern.Shape()
	if profile != nil && !sameShape(profile, ny, nx) {
		return nil, fmt.Errorf("simulate dft: profile: %w", ErrShapeMismatch)
	}

	res := &DFTResult{
		Fx:      CenteredFreq(nx),
		Fy:      CenteredFreq(ny),
		Out:     make([][]r3.Vec, ny),
		EFields: makeComplex2D(ny, nx),
		SincOn:  make([][]float64, ny),
		SincOff: make([][]float64, ny),
	}
	res.PatternDFT, res.ComplementDFT = patternDFTs(pattern, profile)

	for iy := 0; iy < ny; iy++ {
		res.Out[iy] = make([]r3.Vec, nx)
		res.SincOn[iy] = make([]float64, nx)
		res.SincOff[iy] = make([]float64, nx)
		for ix := 0; ix < nx; ix++ {
			b := FreqToUVec(in, -(float64(order.X) + res.Fx[ix]), -(float64(order.Y) + res.Fy[iy]), g.Wavelength, g.Dx, g.Dy)
			on, off := g.envelopes(r3.Sub(in, b))
			res.Out[iy][ix] = b
			res.SincOn[iy][ix] = on
			res.SincOff[iy][ix] = off
			res.EFields[iy][ix] = res.PatternDFT[iy][ix]*complex(on, 0) + res.ComplementDFT[iy][ix]*complex(off, 0)
		}
	}
	return res, nil
}

// patternDFTs returns the centered, unnormalized DFTs
//
//	G(f) = sum_m w(m) exp(+2 pi i f.m)
//
// of pattern*profile and (1-pattern)*profile. The positive exponent matches the phase
// convention of the direct sum.
func patternDFTs(pattern Pattern, profile [][]complex128) (on, off [][]complex128) {
	ny, nx := pattern.Shape()
	on = makeComplex2D(ny, nx)
	off = makeComplex2D(ny, nx)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			w := complex(1, 0)
			if profile != nil {
				w = profile[y][x]
			}
			if pattern[y][x] == 1 {
				on[y][x] = w
			} else {
				off[y][x] = w
			}
		}
	}
	fft2InPlace(on, false)
	fft2InPlace(off, false)
	return fftShift2D(on), fftShift2D(off)
}

// InterpolationKernel is the DFT analog of the Shannon-Whittaker kernel for n samples,
//
//	K(x) = sin(n pi x) / (n sin(pi x)) exp(i pi x (n-1)) = 1/n sum_{m<n} exp(2 pi i m x),
//
// with the removable singularity at integer x replaced by its limit 1.
func InterpolationKernel(x float64, n int) complex128 {
	if math.Abs(x-math.Round(x)) < 1e-14 {
		return 1
	}
	fn := float64(n)
	mag := math.Sin(fn*math.Pi*x) / (fn * math.Sin(math.Pi*x))
	return complex(mag, 0) * cmplx.Exp(complex(0, math.Pi*x*(fn-1)))
}

// InterpolateDFT evaluates the field at arbitrary output directions from the DFT grid values of
// SimulateDFT. The per-axis kernels make the interpolation exact for the finite mirror array,
// so it reproduces Simulate for a flat device. opts.ZShifts is ignored.
func InterpolateDFT(ctx context.Context, pattern Pattern, profile [][]complex128, g Geometry, in r3.Vec, order Order,
	outs []r3.Vec, opts *SimulateOptions) ([]complex128, error) {
	dft, err := SimulateDFT(pattern, profile, g, in, order)
	if err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}
	if opts == nil {
		opts = &SimulateOptions{}
	}
	ny, nx := pattern.Shape()

	gOn := flattenGeneral(dft.PatternDFT)
	gOff := flattenGeneral(dft.ComplementDFT)

	calc := func(i int) complex128 {
		amb := r3.Sub(in, outs[i])
		on, off := g.envelopes(amb)

		kx := make([]complex128, nx)
		ux := g.Dx / g.Wavelength * amb.X
		for ix := range kx {
			kx[ix] = InterpolationKernel(ux-dft.Fx[ix], nx)
		}
		ky := make([]complex128, ny)
		uy := g.Dy / g.Wavelength * amb.Y
		for iy := range ky {
			ky[iy] = InterpolationKernel(uy-dft.Fy[iy], ny)
		}

		return complex(on, 0)*contract(gOn, kx, ky) + complex(off, 0)*contract(gOff, kx, ky)
	}

	return parallelMap(ctx, len(outs), opts.Workers, opts.Verbose, calc)
}

// contract returns ky^T G kx.
func contract(g cblas128.General, kx, ky []complex128) complex128 {
	tmp := make([]complex128, g.Rows)
	cblas128.Gemv(blas.NoTrans, 1, g,
		cblas128.Vector{N: g.Cols, Inc: 1, Data: kx},
		0, cblas128.Vector{N: g.Rows, Inc: 1, Data: tmp})
	return cblas128.Dotu(
		cblas128.Vector{N: g.Rows, Inc: 1, Data: ky},
		cblas128.Vector{N: g.Rows, Inc: 1, Data: tmp})
}

// flattenGeneral packs a rectangular matrix row major.
func flattenGeneral(m [][]complex128) cblas128.General {
	rows := len(m)
	cols := len(m[0])
	data := make([]complex128, 0, rows*cols)
	for _, row := range m {
		data = append(data, row...)
	}
	return cblas128.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}
