package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	json "github.com/KevinWang15/go-json5"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/bob-anderson-ok/DMDdiffraction/cut"
	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

// !!!!! This MUST match the app name given in the run configuration !!!!!
const version = "1_0_0"

// !!!!! This MUST match the app name given in the run configuration !!!!!

func main() {

	programStart := time.Now()

	args := os.Args

	if len(args) != 2 {
		fmt.Println("\n\tWrong number of arguments.\n\tUsage: DMDdiffractionApp <parameter-file>")
		os.Exit(1)
	}

	path := args[1]

	// Read the Json5 (or Json) parameter file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tAttempt to read input file %q failed: %w\n", path, err))
		os.Exit(2)
	}

	// Parse json(5) data into a generic container
	var jsonTable map[string]interface{}
	err = json.Unmarshal(data, &jsonTable)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFormat error in file %q: %w\n", path, err))
		os.Exit(3)
	}

	var req SimulationRequest
	msg, ok := validateJsonFileAndFillRequest(jsonTable, &req)
	if !ok {
		fmt.Println(msg)
		os.Exit(4)
	}

	// Check for user wanting printout of complete jsonTable
	if req.ShowInput {
		fmt.Printf("%s", "\nPrintout of  complete jsonTable contents...\n")
		fmt.Println(string(data))
	}

	err = os.MkdirAll(req.OutputFolder, 0o755)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tCould not create output folder %q: %w\n", req.OutputFolder, err))
		os.Exit(5)
	}

	// If a path to a spectrum file was given, it replaces wavelengths_nm
	if req.PathToSpectrum != "" {
		code, err := loadSpectrum(&req)
		if err != nil {
			fmt.Println(err)
			os.Exit(code)
		}
	}

	fmt.Printf("\nVersion %s\n\n", version)

	g := geometryFromRequest(req)
	printBlazeSummary(req, g)

	start := time.Now()
	pattern, err := buildPattern(req.Pattern)
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tBuilding the DMD pattern failed: %w\n", err))
		os.Exit(6)
	}
	if err := pattern.Validate(); err != nil {
		fmt.Println(fmt.Errorf("\n\tThe DMD pattern is invalid: %w\n", err))
		os.Exit(6)
	}
	err = saveImagePNG(outputPath(req, "pattern.png"), upscale(patternToImage(pattern), req.WindowSizePixels))
	if err != nil {
		fmt.Println(fmt.Errorf("\n\tFailed to write %q: %w", "pattern.png", err))
		os.Exit(7)
	}
	ny, nx := pattern.Shape()
	fmt.Printf("Generation of the %dx%d pattern (%d mirrors ON) took %s\n\n", nx, ny, pattern.NumOn(), time.Since(start))

	ctx := context.Background()
	if req.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSecs*float64(time.Second)))
		defer cancel()
	}

	var result *dmd.Result
	switch req.Mode {
	case "1d":
		result, err = run1D(ctx, req, pattern, g)
	case "2d":
		result, err = run2D(ctx, req, pattern, g)
	case "dft":
		err = runDFT(ctx, req, pattern, g)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Printf("\n\tThe simulation did not finish within timeout_secs = %0.1f\n", req.TimeoutSecs)
		}
		fmt.Println(fmt.Errorf("\n\tSimulation failed: %w\n", err))
		os.Exit(8)
	}

	if req.SaveResult && result != nil {
		start = time.Now()
		err = SaveResult(outputPath(req, "result.gob"), result)
		if err != nil {
			fmt.Println(fmt.Errorf("\n\tWriting of %q failed: %w\n", "result.gob", err))
			os.Exit(9)
		}
		fmt.Printf("Writing of the result bundle took %s\n", time.Since(start))
	}

	elapsed := time.Since(programStart)
	fmt.Printf("\nTotal program run time is %s\n", elapsed)
}

func outputPath(req SimulationRequest, name string) string {
	return filepath.Join(req.OutputFolder, name)
}

// loadSpectrum reads the [[nm, weight], ...] spectrum file and normalizes its weights. The
// returned int is the exit code to use on failure.
func loadSpectrum(req *SimulationRequest) (int, error) {
	data, err := os.ReadFile(req.PathToSpectrum)
	if err != nil {
		return 13, fmt.Errorf("\n\tAttempt to read file %q failed: %w\n", req.PathToSpectrum, err)
	}
	table, err := parseArrayFormat(data)
	if err != nil {
		return 15, fmt.Errorf("\n\tError reading spectrum file %q: %w\n", req.PathToSpectrum, err)
	}
	if len(table) < 1 {
		return 14, fmt.Errorf("\n\tThe spectrum file %q is empty.", req.PathToSpectrum)
	}

	var maxWeight = 0.0
	for i := 0; i < len(table); i++ {
		if table[i][0] <= 0 || table[i][1] < 0 {
			return 15, fmt.Errorf("\n\tSpectrum file %q has a bad entry %v", req.PathToSpectrum, table[i])
		}
		maxWeight = math.Max(maxWeight, table[i][1])
	}
	if maxWeight == 0 {
		return 15, fmt.Errorf("\n\tSpectrum file %q has only zero weights", req.PathToSpectrum)
	}

	req.WavelengthsNm = make([]float64, len(table))
	req.Weights = make([]float64, len(table))
	for i := 0; i < len(table); i++ {
		req.WavelengthsNm[i] = table[i][0]
		req.Weights[i] = table[i][1] / maxWeight
	}

	err = MakeSpectrumPlot(table, req.PathToSpectrum, outputPath(*req, "spectrum.png"))
	if err != nil {
		return 16, fmt.Errorf("\n\tPlotting the spectrum failed: %w\n", err)
	}
	return 0, nil
}

// geometryFromRequest converts the request to um and radians. The wavelength is the first one.
func geometryFromRequest(req SimulationRequest) dmd.Geometry {
	return dmd.Geometry{
		Wavelength: req.WavelengthsNm[0] / 1000,
		Dx:         req.PitchUm,
		Dy:         req.PitchYUm,
		Wx:         req.MirrorWidthUm,
		Wy:         req.MirrorWidthYUm,
		GammaOn:    unit.AngleFromDeg(req.GammaOnDeg).Rad(),
		GammaOff:   unit.AngleFromDeg(req.GammaOffDeg).Rad(),
	}
}

func wavelengthsUm(req SimulationRequest) []float64 {
	ls := make([]float64, len(req.WavelengthsNm))
	for i, nm := range req.WavelengthsNm {
		ls[i] = nm / 1000
	}
	return ls
}

func deg(rad float64) float64 {
	return unit.Angle(rad).Deg()
}

// printBlazeSummary lists the blazed orders of each wavelength and the 1D input angles that
// blaze the highest of them. With two or more wavelengths it also solves for the output
// direction where the first wavelength on the ON mirrors and the second on the OFF mirrors
// are blazed together.
func printBlazeSummary(req SimulationRequest, g dmd.Geometry) {
	var highest []int
	for _, nm := range req.WavelengthsNm {
		l := nm / 1000
		nmin, nmax, err := dmd.DiffractionOrderLimits(l, g.Dx, g.GammaOn)
		if err != nil {
			fmt.Printf("At %0.1f nm: %v\n", nm, err)
			return
		}
		n := nmax
		if g.GammaOn < 0 {
			n = nmin
		}
		highest = append(highest, n)
		if nmax < nmin {
			fmt.Printf("At %0.1f nm no order (n, -n) satisfies the blaze condition\n", nm)
			continue
		}
		fmt.Printf("At %0.1f nm the ON mirrors blaze orders (n, -n) for n = %d to %d\n", nm, nmin, nmax)

		ins, outs := dmd.Solve1Color1D(l, g.Dx, g.GammaOn, n)
		for i := range ins {
			if dmd.IsNaNVec(ins[i]) {
				continue
			}
			txIn, tyIn := dmd.UVectorToTxTy(ins[i])
			txOut, tyOut := dmd.UVectorToTxTy(outs[i])
			fmt.Printf("    order (%d, %d): input (%0.3f, %0.3f) deg -> output (%0.3f, %0.3f) deg\n",
				n, -n, deg(txIn), deg(tyIn), deg(txOut), deg(tyOut))
		}
	}

	if len(highest) >= 2 {
		nOn, nOff := -highest[0], highest[1]
		sol := dmd.Solve2ColorOnOff(g.Dx, g.GammaOn, req.WavelengthsNm[0]/1000, nOn, req.WavelengthsNm[1]/1000, nOff)
		for i := range sol.Out {
			if dmd.IsNaNVec(sol.Out[i]) {
				fmt.Printf("Two color solution %d: none for orders %d (ON) and %d (OFF)\n", i, nOn, nOff)
				continue
			}
			tx, ty := dmd.UVectorToTxTy(sol.Out[i])
			fmt.Printf("Two color solution %d: output (%0.3f, %0.3f) deg for orders %d (ON) and %d (OFF)\n",
				i, deg(tx), deg(ty), nOn, nOff)
		}
	}
	fmt.Println()
}

func sweepOptions(req SimulationRequest) *dmd.SweepOptions {
	opts := &dmd.SweepOptions{NumDiffOrders: req.NumDiffOrders, Workers: req.Workers, Verbose: true}
	if req.OutputOffset != nil {
		opts.OutputOffsets = floats.Span(make([]float64, req.OutputOffset.NumPoints),
			unit.AngleFromDeg(req.OutputOffset.MinDeg).Rad(), unit.AngleFromDeg(req.OutputOffset.MaxDeg).Rad())
	}
	return opts
}

// run1D sweeps every input angle and saves one plot per input.
func run1D(ctx context.Context, req SimulationRequest, pattern dmd.Pattern, g dmd.Geometry) (*dmd.Result, error) {
	tms := make([]float64, len(req.InputAnglesDeg))
	for i, a := range req.InputAnglesDeg {
		tms[i] = unit.AngleFromDeg(a).Rad()
	}

	start := time.Now()
	r, err := dmd.Simulate1D(ctx, pattern, wavelengthsUm(req), g, tms, sweepOptions(req))
	if err != nil {
		return nil, err
	}
	fmt.Printf("Calculation of the 1D sweep took %s\n", time.Since(start))

	for i := range r.UVecsIn {
		c := sweepCurves{
			OffsetsDeg:  make([]float64, len(r.UVecsOut[i])),
			Intensity:   weightedIntensity(r.EFields, req.Weights, i),
			EnvelopeOn:  make([]float64, len(r.UVecsOut[i])),
			EnvelopeOff: make([]float64, len(r.UVecsOut[i])),
		}
		_, tmBlaze := dmd.UVectorToTpTm(r.UVecOutBlazeOn[i])
		for j, b := range r.UVecsOut[i] {
			_, tm := dmd.UVectorToTpTm(b)
			c.OffsetsDeg[j] = deg(tm - tmBlaze)
			for k := range r.Wavelengths {
				on := r.SincEFieldOn[k][i][j]
				off := r.SincEFieldOff[k][i][j]
				c.EnvelopeOn[j] += req.Weights[k] * on * on
				c.EnvelopeOff[j] += req.Weights[k] * off * off
			}
		}
		normalizeToPeak(c.Intensity)
		normalizeToPeak(c.EnvelopeOn)
		normalizeToPeak(c.EnvelopeOff)

		for _, b := range r.DiffUVecOut[0][i] {
			if dmd.IsNaNVec(b) {
				continue
			}
			_, tm := dmd.UVectorToTpTm(b)
			c.OrdersDeg = append(c.OrdersDeg, deg(tm-tmBlaze))
		}

		title := fmt.Sprintf("%s  input theta_m = %0.2f deg", req.Title, req.InputAnglesDeg[i])
		img, err := makeSweepPlotImage(title, c, 1200, 500)
		if err != nil {
			return nil, fmt.Errorf("plot of input %d: %w", i, err)
		}
		name := outputPath(req, fmt.Sprintf("sweep1d_input%d.png", i))
		if err := saveImagePNG(name, img); err != nil {
			return nil, fmt.Errorf("writing of %q failed: %w", name, err)
		}
	}
	return r, nil
}

// run2D maps the intensity around the ON blaze direction, locates the diffraction orders in the
// Fourier plane of a lens aligned with the blazed order and cuts along the order diagonal.
func run2D(ctx context.Context, req SimulationRequest, pattern dmd.Pattern, g dmd.Geometry) (*dmd.Result, error) {
	tx := unit.AngleFromDeg(req.InputAnglesDeg[0]).Rad()
	ty := unit.AngleFromDeg(req.InputAnglesDeg[1]).Rad()
	opts := sweepOptions(req)

	start := time.Now()
	r, err := dmd.Simulate2D(ctx, pattern, wavelengthsUm(req), g, []float64{tx}, []float64{ty}, opts)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Calculation of the 2D intensity map took %s\n", time.Since(start))

	n := r.OutputShape[1]
	intensity := weightedIntensity(r.EFields, req.Weights, 0)
	normalizeToPeak(intensity)
	m, err := Reshape1DTo2D(intensity, r.OutputShape[0], n)
	if err != nil {
		return nil, fmt.Errorf("reshape of intensity vector failed: %w", err)
	}
	display, err := saveIntensityImages(outputPath(req, "intensity2d_"), m, req.WindowSizePixels)
	if err != nil {
		return nil, err
	}

	// Pixel positions of the orders of the first wavelength. Pixel (0, 0) is offset off0 from
	// the blaze direction along both axes.
	txBlaze, tyBlaze := dmd.UVectorToTxTy(r.UVecOutBlazeOn[0])
	first, _ := dmd.UVectorToTxTy(r.UVecsOut[0][0])
	off0 := first - txBlaze
	step := offsetStep(r.UVecsOut[0], n)
	orders := r.DiffUVecOut[0][0]
	cols := make([]float64, len(orders))
	rows := make([]float64, len(orders))
	for a, b := range orders {
		if dmd.IsNaNVec(b) {
			cols[a], rows[a] = math.NaN(), math.NaN()
			continue
		}
		otx, oty := dmd.UVectorToTxTy(b)
		cols[a] = (otx - txBlaze - off0) / step
		rows[a] = (oty - tyBlaze - off0) / step
	}

	idx := dmd.BlazeOrderIndex(r.UVecOutBlazeOn[0], orders)
	if idx >= 0 {
		axis := orders[idx]
		fmt.Printf("Order (%d, %d) is closest to the ON blaze direction\n", r.DiffNxs[idx], r.DiffNys[idx])
		xs, ys, err := dmd.FourierPlanePositions(axis, orders, r.Wavelengths[0], r.Dx, r.Dy)
		if err != nil {
			return nil, err
		}
		for a := range orders {
			if r.DiffNxs[a] != -r.DiffNys[a] || math.IsNaN(xs[a]) {
				continue
			}
			fmt.Printf("    order (%d, %d) at (%0.4f, %0.4f) focal lengths in the Fourier plane\n",
				r.DiffNxs[a], r.DiffNys[a], xs[a], ys[a])
		}
	}

	// Cut along the antidiagonal through the blaze direction
	line := &cut.Line{
		Width:        n,
		Height:       r.OutputShape[0],
		CenterX:      -off0 / step,
		CenterY:      -off0 / step,
		AngleDegrees: -45,
		PixelScale:   deg(step),
	}
	profile, err := cut.Extract(m, line)
	if err != nil {
		return nil, fmt.Errorf("diagonal cut: %w", err)
	}
	cut.Normalize(profile)
	markers := cut.Crossings(line, cols, rows, 1.5)
	err = cut.SaveProfilePlot(outputPath(req, "intensity2d_cut.png"), profile, markers,
		req.Title+"  cut along the order diagonal", "offset along the diagonal (deg per axis)", 1200, 500)
	if err != nil {
		return nil, fmt.Errorf("writing of the cut plot failed: %w", err)
	}
	annotated := cut.DrawLineOnImage(display, line)
	if err := saveImagePNG(outputPath(req, "intensity2d_annotated.png"), annotated); err != nil {
		return nil, fmt.Errorf("writing of the annotated image failed: %w", err)
	}
	return r, nil
}

// offsetStep returns the angular spacing of the square output grid outs along x.
func offsetStep(outs []r3.Vec, n int) float64 {
	if n < 2 {
		return 1
	}
	tx0, _ := dmd.UVectorToTxTy(outs[0])
	tx1, _ := dmd.UVectorToTxTy(outs[1])
	return tx1 - tx0
}

// runDFT computes the DFT grid field for each wavelength and, when an output range is given,
// interpolates it onto a regular grid around the blaze direction.
func runDFT(ctx context.Context, req SimulationRequest, pattern dmd.Pattern, g dmd.Geometry) error {
	tx := unit.AngleFromDeg(req.InputAnglesDeg[0]).Rad()
	ty := unit.AngleFromDeg(req.InputAnglesDeg[1]).Rad()
	in := dmd.UnitVector(tx, ty, dmd.In)

	for k, l := range wavelengthsUm(req) {
		gl := g.WithWavelength(l)

		order := dmd.Order{X: req.DFTOrder[0], Y: req.DFTOrder[1]}
		if !req.DFTOrderGiven {
			angles := dmd.Simulate2DAngles([]float64{l}, gl.GammaOn, gl.Dx, gl.Dy, []float64{tx}, []float64{ty}, req.NumDiffOrders)
			idx := angles.BlazeOrder[0][0]
			if idx < 0 {
				return fmt.Errorf("no propagating order near the blaze direction at %0.1f nm", req.WavelengthsNm[k])
			}
			order = dmd.Order{X: angles.DiffNxs[idx], Y: angles.DiffNys[idx]}
		}

		start := time.Now()
		res, err := dmd.SimulateDFT(pattern, nil, gl, in, order)
		if err != nil {
			return err
		}
		fmt.Printf("Calculation of the DFT field about order %s at %0.1f nm took %s\n", order, req.WavelengthsNm[k], time.Since(start))

		m := intensityMatrix(res.EFields)
		flat := make([]float64, 0, len(m)*len(m[0]))
		for _, row := range m {
			flat = append(flat, row...)
		}
		normalizeToPeak(flat)
		m, err = Reshape1DTo2D(flat, len(m), len(m[0]))
		if err != nil {
			return fmt.Errorf("reshape of intensity vector failed: %w", err)
		}
		base := outputPath(req, fmt.Sprintf("dft_%0.0fnm_", req.WavelengthsNm[k]))
		if _, err := saveIntensityImages(base, m, req.WindowSizePixels); err != nil {
			return err
		}

		if req.OutputOffset == nil {
			continue
		}

		offsets := sweepOptions(req).OutputOffsets
		blaze := dmd.SolveBlazeOutput(in, gl.GammaOn)
		txBlaze, tyBlaze := dmd.UVectorToTxTy(blaze)
		outs := make([]r3.Vec, 0, len(offsets)*len(offsets))
		for _, dty := range offsets {
			for _, dtx := range offsets {
				outs = append(outs, dmd.UnitVector(txBlaze+dtx, tyBlaze+dty, dmd.Out))
			}
		}

		start = time.Now()
		fields, err := dmd.InterpolateDFT(ctx, pattern, nil, gl, in, order, outs,
			&dmd.SimulateOptions{Workers: req.Workers, Verbose: true})
		if err != nil {
			return err
		}
		fmt.Printf("Interpolation of the DFT onto %d directions took %s\n", len(outs), time.Since(start))

		intensity := make([]float64, len(fields))
		addScaledIntensityInPlace(intensity, fields, 1)
		normalizeToPeak(intensity)
		im, err := Reshape1DTo2D(intensity, len(offsets), len(offsets))
		if err != nil {
			return fmt.Errorf("reshape of intensity vector failed: %w", err)
		}
		base = outputPath(req, fmt.Sprintf("dft_interp_%0.0fnm_", req.WavelengthsNm[k]))
		if _, err := saveIntensityImages(base, im, req.WindowSizePixels); err != nil {
			return err
		}
	}
	return nil
}
