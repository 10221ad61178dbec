// Package cut extracts intensity profiles along straight lines through 2D diffraction intensity
// maps, marks where diffraction orders cross the line, and draws the line on display images.
package cut

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// SamplePoint is a point on the line in pixel coordinates.
type SamplePoint struct {
	X                 float64 // column
	Y                 float64 // row
	DistanceFromStart float64 // pixels
}

// Point is a single sample of an extracted profile.
type Point struct {
	Offset    float64 // signed distance from the line center, in axis units
	Intensity float64
}

// Line is a straight cut across a Width by Height intensity map. It passes through
// (CenterX, CenterY) at AngleDegrees, measured from the +column axis toward the +row axis.
type Line struct {
	Width, Height    int
	CenterX, CenterY float64
	AngleDegrees     float64
	// PixelScale converts pixels to axis units (e.g. degrees of output angle per pixel).
	// Zero means 1.
	PixelScale float64

	// Computed values
	StartX, StartY float64
	EndX, EndY     float64
	SamplePoints   []SamplePoint
}

// ErrNoIntersection is returned when the line does not cross the map.
var ErrNoIntersection = errors.New("line does not cross the intensity map")

type edgePoint struct {
	X, Y float64
	T    float64 // position along the direction vector
}

// ComputeEndpoints finds where the line enters and leaves the map. The start point is the one
// behind the center along the line direction.
func (l *Line) ComputeEndpoints() error {
	if l.Width < 2 || l.Height < 2 {
		return fmt.Errorf("map of %dx%d pixels: %w", l.Width, l.Height, ErrNoIntersection)
	}
	theta := l.AngleDegrees * math.Pi / 180
	dx, dy := math.Cos(theta), math.Sin(theta)

	p1, p2, err := rectIntersections(float64(l.Width-1), float64(l.Height-1), l.CenterX, l.CenterY, dx, dy)
	if err != nil {
		return err
	}
	if p1.T > p2.T {
		p1, p2 = p2, p1
	}
	l.StartX, l.StartY = p1.X, p1.Y
	l.EndX, l.EndY = p2.X, p2.Y
	return nil
}

// rectIntersections finds where the line (x0, y0) + t (dx, dy) crosses the border of the
// rectangle [0, xMax] x [0, yMax].
func rectIntersections(xMax, yMax, x0, y0, dx, dy float64) (edgePoint, edgePoint, error) {
	if x0 < 0 || x0 > xMax || y0 < 0 || y0 > yMax {
		return edgePoint{}, edgePoint{}, ErrNoIntersection
	}

	var intersections []edgePoint
	if math.Abs(dx) > 1e-12 {
		for _, xe := range []float64{0, xMax} {
			t := (xe - x0) / dx
			y := y0 + t*dy
			if y >= 0 && y <= yMax {
				intersections = append(intersections, edgePoint{xe, y, t})
			}
		}
	}
	if math.Abs(dy) > 1e-12 {
		for _, ye := range []float64{0, yMax} {
			t := (ye - y0) / dy
			x := x0 + t*dx
			if x >= 0 && x <= xMax {
				intersections = append(intersections, edgePoint{x, ye, t})
			}
		}
	}

	// corners are found twice
	intersections = removeDuplicatePoints(intersections, 1e-9)

	if len(intersections) < 2 {
		return edgePoint{}, edgePoint{}, ErrNoIntersection
	}
	return intersections[0], intersections[1], nil
}

func removeDuplicatePoints(pts []edgePoint, tol float64) []edgePoint {
	var result []edgePoint
	for _, p := range pts {
		duplicate := false
		for _, r := range result {
			if math.Abs(p.X-r.X) < tol && math.Abs(p.Y-r.Y) < tol {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, p)
		}
	}
	return result
}

func (l *Line) scale() float64 {
	if l.PixelScale == 0 {
		return 1
	}
	return l.PixelScale
}

// centerDistance is the distance in pixels from the start point to the center.
func (l *Line) centerDistance() float64 {
	return math.Hypot(l.CenterX-l.StartX, l.CenterY-l.StartY)
}

// ComputeSamplePoints samples the line at 1-pixel intervals, computing the endpoints first if
// needed.
func (l *Line) ComputeSamplePoints() error {
	if l.StartX == l.EndX && l.StartY == l.EndY {
		if err := l.ComputeEndpoints(); err != nil {
			return err
		}
	}
	xLength := l.EndX - l.StartX
	yLength := l.EndY - l.StartY
	length := math.Hypot(xLength, yLength)

	dXPerStep := xLength / length
	dYPerStep := yLength / length

	l.SamplePoints = nil
	for i := 0; i <= int(math.Floor(length)); i++ {
		k := float64(i)
		l.SamplePoints = append(l.SamplePoints, SamplePoint{
			X:                 l.StartX + k*dXPerStep,
			Y:                 l.StartY + k*dYPerStep,
			DistanceFromStart: k,
		})
	}
	return nil
}

// interpolate performs bilinear interpolation on a rectangular matrix at column x, row y.
func interpolate(matrix [][]float64, x, y float64) float64 {
	h := len(matrix)
	if h == 0 || len(matrix[0]) == 0 {
		return 0
	}
	w := len(matrix[0])
	if h == 1 || w == 1 {
		return matrix[clampIndex(y, h)][clampIndex(x, w)]
	}

	// Clamp to the interior of the last cell
	x = math.Max(0, math.Min(x, float64(w-1)-1e-9))
	y = math.Max(0, math.Min(y, float64(h-1)-1e-9))

	x0 := int(x)
	y0 := int(y)
	xFrac := x - float64(x0)
	yFrac := y - float64(y0)

	v0 := matrix[y0][x0]*(1-xFrac) + matrix[y0][x0+1]*xFrac
	v1 := matrix[y0+1][x0]*(1-xFrac) + matrix[y0+1][x0+1]*xFrac
	return v0*(1-yFrac) + v1*yFrac
}

func clampIndex(v float64, n int) int {
	i := int(math.Round(v))
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Extract samples the intensity map along the line. Offsets are measured from the line center.
func Extract(intensity [][]float64, l *Line) ([]Point, error) {
	if len(l.SamplePoints) == 0 {
		if err := l.ComputeSamplePoints(); err != nil {
			return nil, err
		}
	}
	c := l.centerDistance()
	s := l.scale()

	profile := make([]Point, len(l.SamplePoints))
	for i, pt := range l.SamplePoints {
		profile[i] = Point{
			Offset:    (pt.DistanceFromStart - c) * s,
			Intensity: interpolate(intensity, pt.X, pt.Y),
		}
	}
	return profile, nil
}

// Normalize scales the profile so that its largest finite intensity is 1.
func Normalize(profile []Point) {
	peak := 0.0
	for _, p := range profile {
		if !math.IsNaN(p.Intensity) && !math.IsInf(p.Intensity, 0) && p.Intensity > peak {
			peak = p.Intensity
		}
	}
	if peak == 0 {
		return
	}
	for i := range profile {
		profile[i].Intensity /= peak
	}
}

// Crossings returns the offsets along the line of the points (xs[i], ys[i]) lying within tol
// pixels of it, such as the pixel positions of diffraction orders. NaN points are skipped.
func Crossings(l *Line, xs, ys []float64, tol float64) []float64 {
	length := math.Hypot(l.EndX-l.StartX, l.EndY-l.StartY)
	if length == 0 {
		return nil
	}
	ux := (l.EndX - l.StartX) / length
	uy := (l.EndY - l.StartY) / length
	c := l.centerDistance()

	var offsets []float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		rx, ry := xs[i]-l.StartX, ys[i]-l.StartY
		along := rx*ux + ry*uy
		across := math.Abs(-rx*uy + ry*ux)
		if across <= tol && along >= 0 && along <= length {
			offsets = append(offsets, (along-c)*l.scale())
		}
	}
	return offsets
}

// LoadGray16PNG loads a 16-bit grayscale PNG image and returns it as a 2D float64 matrix.
// The scale parameter converts pixel values back to intensity: intensity = pixelValue / scale.
func LoadGray16PNG(filename string, scale float64) (matrix [][]float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	matrix = make([][]float64, bounds.Dy())
	for y := range matrix {
		matrix[y] = make([]float64, bounds.Dx())
		for x := range matrix[y] {
			c := color.Gray16Model.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray16)
			matrix[y][x] = float64(c.Y) / scale
		}
	}
	return matrix, nil
}

// StepTicks is a custom tick marker for plots with fixed step intervals.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

// PlotProfile plots a normalized profile with red dashed markers, e.g. at diffraction orders.
func PlotProfile(profile []Point, markers []float64, title, xLabel string, wPx, hPx float64) (image.Image, error) {
	if len(profile) < 2 {
		return nil, errors.New("profile needs at least two points")
	}
	first := profile[0].Offset
	last := profile[len(profile)-1].Offset
	if !(last > first) {
		return nil, errors.New("profile offsets must increase")
	}

	p := plot.New()

	p.Y.Min = -0.2
	p.Y.Max = 1.2

	// Font settings
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


	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "normalized intensity"
	p.X.Tick.Marker = StepTicks{Step: (last - first) / 10, Format: "%.2f"}
	p.Y.Tick.Marker = StepTicks{Step: 0.2, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(profile))
	for i, pt := range profile {
		pts[i].X = pt.Offset
		pts[i].Y = pt.Intensity
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	p.Add(line)

	for _, m := range markers {
		vpts := plotter.XYs{
			{X: m, Y: -0.1},
			{X: m, Y: 1.1},
		}

		vline, err := plotter.NewLine(vpts)
		if err != nil {
			return nil, err
		}
		vline.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		vline.Color = color.RGBA{R: 255, G: 0, B: 0, A: 255}
		p.Add(vline)
	}

	// Render to image
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.New(width, height)
	dc := vgdraw.New(c)
	p.Draw(dc)

	return c.Image(), nil
}

// SaveProfilePlot creates and saves a profile plot to a PNG file.
func SaveProfilePlot(filename string, profile []Point, markers []float64, title, xLabel string, wPx, hPx float64) (err error) {
	img, err := PlotProfile(profile, markers, title, xLabel, wPx, hPx)
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}

// DrawLineOnImage draws the cut on a copy of the display image: a red line with a red dot at
// the start and a green dot at the end. The image may be larger than the intensity map; the
// line is scaled to fit.
func DrawLineOnImage(sourceImage image.Image, l *Line) *image.RGBA {
	bounds := sourceImage.Bounds()

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, sourceImage, bounds.Min, draw.Src)

	sx := float64(bounds.Dx()) / float64(l.Width)
	sy := float64(bounds.Dy()) / float64(l.Height)
	x1, y1 := (l.StartX+0.5)*sx, (l.StartY+0.5)*sy
	x2, y2 := (l.EndX+0.5)*sx, (l.EndY+0.5)*sy

	drawLine(result, x1, y1, x2, y2, color.RGBA{R: 255, A: 255})
	drawDot(result, x1, y1, 5, color.RGBA{R: 255, A: 255})
	drawDot(result, x2, y2, 5, color.RGBA{G: 255, A: 255})

	return result
}

// drawLine draws a 3 pixel wide line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, col color.Color) {
	dx := math.Abs(x2 - x1)
	dy := math.Abs(y2 - y1)
	sx := -1.0
	if x1 < x2 {
		sx = 1.0
	}
	sy := -1.0
	if y1 < y2 {
		sy = 1.0
	}
	err := dx - dy

	for {
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				setIfInside(img, int(x1)+ox, int(y1)+oy, col)
			}
		}

		if math.Abs(x1-x2) < 1 && math.Abs(y1-y2) < 1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawDot draws a filled circle.
func drawDot(img *image.RGBA, cx, cy float64, radius int, col color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				setIfInside(img, int(cx)+x, int(cy)+y, col)
			}
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, col color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, col)
	}
}
