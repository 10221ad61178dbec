package cut_test

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/DMDdiffraction/cut"
)

func rampMatrix(h, w int) [][]float64 {
	m := make([][]float64, h)
	for y := range m {
		m[y] = make([]float64, w)
		for x := range m[y] {
			m[y][x] = float64(x)
		}
	}
	return m
}

func TestHorizontalLine(t *testing.T) {
	l := &cut.Line{Width: 11, Height: 5, CenterX: 5, CenterY: 2}
	require.NoError(t, l.ComputeEndpoints())
	assert.InDelta(t, 0.0, l.StartX, 1e-12)
	assert.InDelta(t, 2.0, l.StartY, 1e-12)
	assert.InDelta(t, 10.0, l.EndX, 1e-12)
	assert.InDelta(t, 2.0, l.EndY, 1e-12)

	profile, err := cut.Extract(rampMatrix(5, 11), l)
	require.NoError(t, err)
	require.Len(t, profile, 11)
	for i, p := range profile {
		assert.InDelta(t, float64(i)-5, p.Offset, 1e-9)
		assert.InDelta(t, float64(i), p.Intensity, 1e-6)
	}
}

func TestReversedLineStartsBehindCenter(t *testing.T) {
	l := &cut.Line{Width: 11, Height: 5, CenterX: 5, CenterY: 2, AngleDegrees: 180, PixelScale: 0.5}
	profile, err := cut.Extract(rampMatrix(5, 11), l)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, l.StartX, 1e-9)
	assert.InDelta(t, 0.0, l.EndX, 1e-9)
	assert.InDelta(t, -2.5, profile[0].Offset, 1e-9)
	assert.InDelta(t, 10.0, profile[0].Intensity, 1e-6)
}

func TestVerticalLine(t *testing.T) {
	l := &cut.Line{Width: 4, Height: 9, CenterX: 1, CenterY: 3, AngleDegrees: 90}
	require.NoError(t, l.ComputeSamplePoints())
	assert.InDelta(t, 1.0, l.StartX, 1e-9)
	assert.InDelta(t, 0.0, l.StartY, 1e-9)
	assert.InDelta(t, 8.0, l.EndY, 1e-9)
	assert.Len(t, l.SamplePoints, 9)
}

func TestLineOutsideMap(t *testing.T) {
	l := &cut.Line{Width: 10, Height: 10, CenterX: 20, CenterY: 5}
	assert.ErrorIs(t, l.ComputeEndpoints(), cut.ErrNoIntersection)

	l = &cut.Line{Width: 1, Height: 10}
	assert.ErrorIs(t, l.ComputeEndpoints(), cut.ErrNoIntersection)

	_, err := cut.Extract(rampMatrix(10, 10), &cut.Line{Width: 10, Height: 10, CenterX: -1, CenterY: 5})
	assert.ErrorIs(t, err, cut.ErrNoIntersection)
}

func TestDiagonalPeak(t *testing.T) {
	const n = 101
	m := make([][]float64, n)
	for y := range m {
		m[y] = make([]float64, n)
		for x := range m[y] {
			dx, dy := float64(x-50), float64(y-50)
			m[y][x] = 3 * math.Exp(-(dx*dx+dy*dy)/50)
		}
	}

	l := &cut.Line{Width: n, Height: n, CenterX: 50, CenterY: 50, AngleDegrees: 45}
	profile, err := cut.Extract(m, l)
	require.NoError(t, err)
	cut.Normalize(profile)

	peak := 0
	for i, p := range profile {
		if p.Intensity > profile[peak].Intensity {
			peak = i
		}
	}
	assert.InDelta(t, 0.0, profile[peak].Offset, 1.0)
	assert.InDelta(t, 1.0, profile[peak].Intensity, 1e-12)
}

func TestNormalizeIgnoresNaN(t *testing.T) {
	profile := []cut.Point{{Intensity: 2}, {Intensity: math.NaN()}, {Intensity: 4}}
	cut.Normalize(profile)
	assert.InDelta(t, 0.5, profile[0].Intensity, 1e-12)
	assert.InDelta(t, 1.0, profile[2].Intensity, 1e-12)

	zeros := []cut.Point{{Intensity: 0}, {Intensity: 0}}
	cut.Normalize(zeros)
	assert.Equal(t, 0.0, zeros[1].Intensity)
}

func TestCrossings(t *testing.T) {
	l := &cut.Line{Width: 101, Height: 101, CenterX: 50, CenterY: 50, AngleDegrees: 45, PixelScale: 2}
	require.NoError(t, l.ComputeEndpoints())

	xs := []float64{50, 60, 70, math.NaN(), 120}
	ys := []float64{50, 40, 70, 10, 120}
	offsets := cut.Crossings(l, xs, ys, 1)
	require.Len(t, offsets, 2)
	assert.InDelta(t, 0.0, offsets[0], 1e-9)
	assert.InDelta(t, 2*math.Sqrt(800), offsets[1], 1e-9)
}

func TestLoadGray16PNG(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	img.SetGray16(2, 1, color.Gray16{Y: 4000})
	img.SetGray16(0, 0, color.Gray16{Y: 1000})

	path := filepath.Join(t.TempDir(), "intensity.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	m, err := cut.LoadGray16PNG(path, 4000)
	require.NoError(t, err)
	require.Len(t, m, 2)
	require.Len(t, m[0], 3)
	assert.InDelta(t, 1.0, m[1][2], 1e-12)
	assert.InDelta(t, 0.25, m[0][0], 1e-12)
	assert.Equal(t, 0.0, m[1][0])

	_, err = cut.LoadGray16PNG(filepath.Join(t.TempDir(), "missing.png"), 1)
	assert.Error(t, err)
}

func TestDrawLineOnImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 202, 202))
	l := &cut.Line{Width: 101, Height: 101, CenterX: 50, CenterY: 50, AngleDegrees: 45}
	require.NoError(t, l.ComputeEndpoints())

	out := cut.DrawLineOnImage(src, l)
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	assert.Equal(t, red, out.RGBAAt(1, 1))
	assert.Equal(t, red, out.RGBAAt(101, 101))
	assert.Equal(t, green, out.RGBAAt(201, 201))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(150, 20))
}

func TestSaveProfilePlot(t *testing.T) {
	_, err := cut.PlotProfile([]cut.Point{{}}, nil, "one point", "offset", 400, 300)
	assert.Error(t, err)

	profile := []cut.Point{{Offset: -1, Intensity: 0.2}, {Offset: 0, Intensity: 1}, {Offset: 1, Intensity: 0.3}}
	path := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, cut.SaveProfilePlot(path, profile, []float64{0}, "test", "offset (deg)", 400, 300))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}
