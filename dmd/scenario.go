package dmd

import (
	"context"
	"fmt"
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Default sweeps of the scenario drivers.
const (
	defaultOrders1D     = 10
	defaultOrders2D     = 7
	defaultOrdersAngles = 15

	defaultOutputs1D = 2400
	defaultOutputs2D = 50
)

// SweepOptions configures Simulate1D and Simulate2D.
type SweepOptions struct {
	// OutputOffsets are output angles in radians relative to the ON blaze direction. For 1D
	// sweeps they offset theta_m, for 2D sweeps both theta_x and theta_y on a square grid.
	// nil selects -45..45 deg (2400 points) for 1D and -25..25 deg (50 points) for 2D.
	OutputOffsets []float64
	// NumDiffOrders N selects the predicted diffraction orders -N..N. <= 0 uses the default.
	NumDiffOrders int
	Workers       int
	Verbose       bool
}

// Result is the snapshot produced by a scenario driver and consumed by the plotting layer.
// Input directions are flattened row major over InputShape and output directions over
// OutputShape. Field arrays are indexed [wavelength][input][output] and diffraction order
// predictions [wavelength][input][order].
type Result struct {
	Pattern     Pattern
	Wavelengths []float64
	GammaOn     float64
	GammaOff    float64
	Dx, Dy      float64
	Wx, Wy      float64

	InputShape  [2]int
	OutputShape [2]int
	OrderShape  [2]int

	UVecsIn  []r3.Vec
	UVecsOut [][]r3.Vec

	UVecOutBlazeOn  []r3.Vec
	UVecOutBlazeOff []r3.Vec

	DiffNxs     []int
	DiffNys     []int
	DiffUVecOut [][][]r3.Vec

	EFields       [][][]complex128
	SincEFieldOn  [][][]float64
	SincEFieldOff [][][]float64
}

// Geometry returns the DMD geometry of r at wavelength index k.
func (r *Result) Geometry(k int) Geometry {
	return Geometry{
		Wavelength: r.Wavelengths[k],
		Dx:         r.Dx,
		Dy:         r.Dy,
		Wx:         r.Wx,
		Wy:         r.Wy,
		GammaOn:    r.GammaOn,
		GammaOff:   r.GammaOff,
	}
}

func (o *SweepOptions) orders(def int) int {
	if o == nil || o.NumDiffOrders <= 0 {
		return def
	}
	return o.NumDiffOrders
}

func (o *SweepOptions) offsets(lo, hi float64, n int) []float64 {
	if o != nil && o.OutputOffsets != nil {
		return o.OutputOffsets
	}
	return floats.Span(make([]float64, n), unit.AngleFromDeg(lo).Rad(), unit.AngleFromDeg(hi).Rad())
}

func (o *SweepOptions) simulateOptions() *SimulateOptions {
	if o == nil {
		return &SimulateOptions{}
	}
	return &SimulateOptions{Workers: o.Workers, Verbose: o.Verbose}
}

func newResult(pattern Pattern, wavelengths []float64, g Geometry) (*Result, error) {
	if len(wavelengths) == 0 {
		return nil, fmt.Errorf("no wavelengths: %w", ErrBadGeometry)
	}
	for _, l := range wavelengths {
		if err := g.WithWavelength(l).Validate(); err != nil {
			return nil, err
		}
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	return &Result{
		Pattern:     pattern,
		Wavelengths: wavelengths,
		GammaOn:     g.GammaOn,
		GammaOff:    g.GammaOff,
		Dx:          g.Dx,
		Dy:          g.Dy,
		Wx:          g.Wx,
		Wy:          g.Wy,
	}, nil
}

// allocFields sizes the per-wavelength arrays once the input count is known.
func (r *Result) allocFields(nIn int) {
	nl := len(r.Wavelengths)
	r.EFields = make([][][]complex128, nl)
	r.SincEFieldOn = make([][][]float64, nl)
	r.SincEFieldOff = make([][][]float64, nl)
	r.DiffUVecOut = make([][][]r3.Vec, nl)
	for k := 0; k < nl; k++ {
		r.EFields[k] = make([][]complex128, nIn)
		r.SincEFieldOn[k] = make([][]float64, nIn)
		r.SincEFieldOff[k] = make([][]float64, nIn)
		r.DiffUVecOut[k] = make([][]r3.Vec, nIn)
	}
}

// simulateInput fills the field and order predictions of input i for every wavelength.
func (r *Result) simulateInput(ctx context.Context, g Geometry, i int, opts *SimulateOptions) error {
	in := r.UVecsIn[i]
	for k, l := range r.Wavelengths {
		gl := g.WithWavelength(l)
		f, err := Simulate(ctx, r.Pattern, gl, in, r.UVecsOut[i], opts)
		if err != nil {
			return err
		}
		r.EFields[k][i] = f.EFields
		r.SincEFieldOn[k][i] = f.SincOn
		r.SincEFieldOff[k][i] = f.SincOff

		diff := make([]r3.Vec, len(r.DiffNxs))
		for a := range diff {
			diff[a] = SolveDiffractionOutput(in, gl.Dx, gl.Dy, l, Order{X: r.DiffNxs[a], Y: r.DiffNys[a]})
		}
		r.DiffUVecOut[k][i] = diff
	}
	return nil
}

// Simulate1D sweeps light incident in the plane containing the DMD normal and the mirror tilt
// direction, at angles tmIns (radians) from the normal. The output directions of each input lie
// in the same plane and follow its ON blaze direction. Diffraction orders are predicted along
// the antidiagonal (n, -n). g.Wavelength is ignored in favor of wavelengths.
func Simulate1D(ctx context.Context, pattern Pattern, wavelengths []float64, g Geometry, tmIns []float64, opts *SweepOptions) (*Result, error) {
	r, err := newResult(pattern, wavelengths, g)
	if err != nil {
		return nil, fmt.Errorf("simulate 1d: %w", err)
	}
	offsets := opts.offsets(-45, 45, defaultOutputs1D)
	n := opts.orders(defaultOrders1D)

	r.InputShape = [2]int{1, len(tmIns)}
	r.OutputShape = [2]int{1, len(offsets)}
	r.OrderShape = [2]int{1, 2*n + 1}
	for nx := -n; nx <= n; nx++ {
		r.DiffNxs = append(r.DiffNxs, nx)
		r.DiffNys = append(r.DiffNys, -nx)
	}

	r.UVecsIn = make([]r3.Vec, len(tmIns))
	r.UVecsOut = make([][]r3.Vec, len(tmIns))
	r.UVecOutBlazeOn = make([]r3.Vec, len(tmIns))
	r.UVecOutBlazeOff = make([]r3.Vec, len(tmIns))
	r.allocFields(len(tmIns))

	simOpts := opts.simulateOptions()
	for i, tm := range tmIns {
		tx, ty := AngleToXY(0, tm)
		r.UVecsIn[i] = UnitVector(tx, ty, In)
		r.UVecOutBlazeOn[i] = SolveBlazeOutput(r.UVecsIn[i], g.GammaOn)
		r.UVecOutBlazeOff[i] = SolveBlazeOutput(r.UVecsIn[i], g.GammaOff)

		_, tmBlaze := UVectorToTpTm(r.UVecOutBlazeOn[i])
		outs := make([]r3.Vec, len(offsets))
		for j, off := range offsets {
			txOut, tyOut := AngleToXY(0, tmBlaze+off)
			outs[j] = UnitVector(txOut, tyOut, Out)
		}
		r.UVecsOut[i] = outs

		if err := r.simulateInput(ctx, g, i, simOpts); err != nil {
			return nil, fmt.Errorf("simulate 1d: %w", err)
		}
	}
	return r, nil
}

// Simulate2D evaluates every combination of the input angles txIns x tyIns (radians) on a 2D
// grid of output directions centered on the ON blaze direction of each input. The full grid of
// orders -N..N in x and y is predicted. g.Wavelength is ignored in favor of wavelengths.
func Simulate2D(ctx context.Context, pattern Pattern, wavelengths []float64, g Geometry, txIns, tyIns []float64, opts *SweepOptions) (*Result, error) {
	r, err := newResult(pattern, wavelengths, g)
	if err != nil {
		return nil, fmt.Errorf("simulate 2d: %w", err)
	}
	offsets := opts.offsets(-25, 25, defaultOutputs2D)
	n := opts.orders(defaultOrders2D)

	r.InputShape = [2]int{len(tyIns), len(txIns)}
	r.OutputShape = [2]int{len(offsets), len(offsets)}
	r.DiffNxs, r.DiffNys = orderGrid(n)
	r.OrderShape = [2]int{2*n + 1, 2*n + 1}

	nIn := len(txIns) * len(tyIns)
	r.UVecsIn = make([]r3.Vec, nIn)
	r.UVecsOut = make([][]r3.Vec, nIn)
	r.UVecOutBlazeOn = make([]r3.Vec, nIn)
	r.UVecOutBlazeOff = make([]r3.Vec, nIn)
	r.allocFields(nIn)

	simOpts := opts.simulateOptions()
	for iy, ty := range tyIns {
		for ix, tx := range txIns {
			i := iy*len(txIns) + ix
			r.UVecsIn[i] = UnitVector(tx, ty, In)
			r.UVecOutBlazeOn[i] = SolveBlazeOutput(r.UVecsIn[i], g.GammaOn)
			r.UVecOutBlazeOff[i] = SolveBlazeOutput(r.UVecsIn[i], g.GammaOff)

			txBlaze, tyBlaze := UVectorToTxTy(r.UVecOutBlazeOn[i])
			outs := make([]r3.Vec, 0, len(offsets)*len(offsets))
			for _, dty := range offsets {
				for _, dtx := range offsets {
					outs = append(outs, UnitVector(txBlaze+dtx, tyBlaze+dty, Out))
				}
			}
			r.UVecsOut[i] = outs

			if err := r.simulateInput(ctx, g, i, simOpts); err != nil {
				return nil, fmt.Errorf("simulate 2d: %w", err)
			}
		}
	}
	return r, nil
}

// orderGrid returns the orders -n..n in x and y flattened row major, x varying fastest.
func orderGrid(n int) (nxs, nys []int) {
	for ny := -n; ny <= n; ny++ {
		for nx := -n; nx <= n; nx++ {
			nxs = append(nxs, nx)
			nys = append(nys, ny)
		}
	}
	return nxs, nys
}

// AnglesResult holds the blaze and diffraction predictions of Simulate2DAngles.
type AnglesResult struct {
	Wavelengths []float64
	Gamma       float64
	Dx, Dy      float64

	InputShape [2]int
	OrderShape [2]int

	UVecsIn       []r3.Vec
	UVecsOutBlaze []r3.Vec

	DiffNxs     []int
	DiffNys     []int
	DiffUVecOut [][][]r3.Vec // [wavelength][input][order]
	// BlazeOrder is the index of the order closest to the blaze direction, or -1.
	BlazeOrder [][]int // [wavelength][input]
}

// Simulate2DAngles predicts the blaze direction and the diffracted directions of orders
// -n..n for every combination of input angles txIns x tyIns, without simulating fields.
// numOrders <= 0 uses the default.
func Simulate2DAngles(wavelengths []float64, gamma, dx, dy float64, txIns, tyIns []float64, numOrders int) *AnglesResult {
	if numOrders <= 0 {
		numOrders = defaultOrdersAngles
	}
	r := &AnglesResult{
		Wavelengths: wavelengths,
		Gamma:       gamma,
		Dx:          dx,
		Dy:          dy,
		InputShape:  [2]int{len(tyIns), len(txIns)},
		OrderShape:  [2]int{2*numOrders + 1, 2*numOrders + 1},
	}
	r.DiffNxs, r.DiffNys = orderGrid(numOrders)

	for _, ty := range tyIns {
		for _, tx := range txIns {
			in := UnitVector(tx, ty, In)
			r.UVecsIn = append(r.UVecsIn, in)
			r.UVecsOutBlaze = append(r.UVecsOutBlaze, SolveBlazeOutput(in, gamma))
		}
	}

	r.DiffUVecOut = make([][][]r3.Vec, len(wavelengths))
	r.BlazeOrder = make([][]int, len(wavelengths))
	for k, l := range wavelengths {
		r.DiffUVecOut[k] = make([][]r3.Vec, len(r.UVecsIn))
		r.BlazeOrder[k] = make([]int, len(r.UVecsIn))
		for i, in := range r.UVecsIn {
			diff := make([]r3.Vec, len(r.DiffNxs))
			for a := range diff {
				diff[a] = SolveDiffractionOutput(in, dx, dy, l, Order{X: r.DiffNxs[a], Y: r.DiffNys[a]})
			}
			r.DiffUVecOut[k][i] = diff
			r.BlazeOrder[k][i] = BlazeOrderIndex(r.UVecsOutBlaze[i], diff)
		}
	}
	return r
}

// BlazeOrderIndex returns the index of the direction in diffOuts closest to blaze, skipping
// NaN entries. It returns -1 if every entry is NaN.
func BlazeOrderIndex(blaze r3.Vec, diffOuts []r3.Vec) int {
	best := -1
	bestDist := math.Inf(1)
	for i, b := range diffOuts {
		if IsNaNVec(b) {
			continue
		}
		if d := r3.Norm(r3.Sub(b, blaze)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// FourierPlanePositions projects the directions bs onto the back focal plane of a lens whose
// optical axis is axis. NaN directions map to NaN coordinates.
func FourierPlanePositions(axis r3.Vec, bs []r3.Vec, wavelength, dx, dy float64) (xs, ys []float64, err error) {
	xs = make([]float64, len(bs))
	ys = make([]float64, len(bs))
	for i, b := range bs {
		fx, fy := UVecToFreq(axis, b, wavelength, dx, dy)
		xs[i], ys[i], _, err = DMDFrqsToFourierPlane(fx, fy, axis, axis, dx, dy, wavelength)
		if err != nil {
			return nil, nil, err
		}
	}
	return xs, ys, nil
}
