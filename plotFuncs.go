package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot"

	// Liberation fonts register automatically on import
	_ "gonum.org/v1/plot/font/liberation"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/bob-anderson-ok/DMDdiffraction/cut"
)

// sweepCurves holds one 1D sweep ready for plotting. All curves are normalized to a peak of 1.
type sweepCurves struct {
	OffsetsDeg  []float64 // output angle relative to the ON blaze direction
	Intensity   []float64
	EnvelopeOn  []float64
	EnvelopeOff []float64
	OrdersDeg   []float64 // offsets of the predicted diffraction orders
}

func setLiberationFonts(p *plot.Plot) {
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)
}

func curveLine(xs, ys []float64, col color.Color) (*plotter.Line, error) {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = col
	return line, nil
}

// makeSweepPlotImage plots the normalized intensity of a 1D sweep with the ON (green) and OFF
// (orange) blaze envelopes and red dashed markers at the diffraction orders.
func makeSweepPlotImage(title string, c sweepCurves, wPx, hPx float64) (image.Image, error) {
	if len(c.OffsetsDeg) < 2 {
		return nil, errors.New("sweep needs at least two output angles")
	}

	p := plot.New()
	setLiberationFonts(p)

	p.Y.Min = -0.05
	p.Y.Max = 1.1

	first := c.OffsetsDeg[0]
	last := c.OffsetsDeg[len(c.OffsetsDeg)-1]

	p.Title.Text = title
	p.X.Label.Text = "output angle from the ON blaze direction (deg)"
	p.Y.Label.Text = "normalized intensity"
	p.X.Tick.Marker = cut.StepTicks{Step: math.Abs(last-first) / 10, Format: "%.1f"}
	p.Y.Tick.Marker = cut.StepTicks{Step: 0.2, Format: "%.1f"}
	p.Add(plotter.NewGrid()) // grid + ticks

	intensity, err := curveLine(c.OffsetsDeg, c.Intensity, color.RGBA{B: 255, A: 255})
	if err != nil {
		return nil, err
	}
	p.Add(intensity)
	p.Legend.Add("intensity", intensity)

	if c.EnvelopeOn != nil {
		on, err := curveLine(c.OffsetsDeg, c.EnvelopeOn, color.RGBA{G: 160, A: 255})
		if err != nil {
			return nil, err
		}
		p.Add(on)
		p.Legend.Add("ON envelope", on)
	}
	if c.EnvelopeOff != nil {
		off, err := curveLine(c.OffsetsDeg, c.EnvelopeOff, color.RGBA{R: 255, G: 140, A: 255})
		if err != nil {
			return nil, err
		}
		p.Add(off)
		p.Legend.Add("OFF envelope", off)
	}

	lo, hi := math.Min(first, last), math.Max(first, last)
	for _, order := range c.OrdersDeg {
		if math.IsNaN(order) || order < lo || order > hi {
			continue
		}
		vpts := plotter.XYs{
			{X: order, Y: 0.0},
			{X: order, Y: 1.05},
		}

		vline, err := plotter.NewLine(vpts)
		if err != nil {
			return nil, err
		}
		vline.Dashes = []vg.Length{
			vg.Points(6), // dash length
			vg.Points(4), // gap length
		}
		vline.Color = color.RGBA{R: 255, A: 255} // red
		p.Add(vline)
	}
	p.Legend.Top = true

	// Render into an in-memory image
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	cnv := vgimg.New(width, height)
	dc := draw.New(cnv)
	p.Draw(dc)

	return cnv.Image(), nil
}

// MakeSpectrumPlot saves the relative weight of each wavelength of a spectrum file.
func MakeSpectrumPlot(data [][2]float64, sourceName, filename string) error {
	if len(data) == 0 {
		return errors.New("empty spectrum")
	}
	p := plot.New()
	setLiberationFonts(p)

	p.Title.Text = "Spectrum weights from file: " + sourceName
	p.X.Label.Text = "Wavelength (nm)"
	p.Y.Label.Text = "Relative weight"

	p.X.Tick.Marker = cut.StepTicks{Step: 25.0, Format: "%.0f"}
	p.Y.Tick.Marker = cut.StepTicks{Step: 0.1, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	p.Y.Min = 0.0
	p.Y.Max = 1.1

	// Find the max weight - we will use that to calculate relative weight
	var maxWeight = 0.0
	for _, pair := range data {
		if pair[1] > maxWeight {
			maxWeight = pair[1]
		}
	}
	if maxWeight <= 0 {
		return errors.New("spectrum has no positive weight")
	}

	n := len(data)
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = data[i][0]
		pts[i].Y = data[i][1] / maxWeight
	}

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	linePoints.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	p.Add(linePoints, scatterPoints)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving %s: %w", filename, err)
	}
	return nil
}
