package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

// buildPattern returns the pattern described by req. An image file takes precedence over a
// generated pattern.
func buildPattern(req PatternRequest) (dmd.Pattern, error) {
	if req.PathToImage != "" {
		return loadPatternImage(req.PathToImage)
	}
	switch req.Kind {
	case "random":
		return randomPattern(req.Ny, req.Nx, req.Seed), nil
	case "on":
		return uniformPattern(req.Ny, req.Nx, 1), nil
	case "off":
		return uniformPattern(req.Ny, req.Nx, 0), nil
	case "stripes":
		return stripePattern(req.Ny, req.Nx, req.Period), nil
	case "ellipse":
		return ellipsePattern(req.Ny, req.Nx, req.XDiam, req.YDiam, req.AngleDeg), nil
	}
	return nil, fmt.Errorf("unknown pattern kind %q", req.Kind)
}

// loadPatternImage reads a PNG, BMP or TGA file, chosen by extension. Pixels brighter than mid
// gray are ON mirrors.
func loadPatternImage(filename string) (pattern dmd.Pattern, err error) {
	var decode func(io.Reader) (image.Image, error)
	format := strings.ToLower(filepath.Ext(filename))
	switch format {
	case ".png":
		decode = png.Decode
	case ".bmp":
		decode = bmp.Decode
	case ".tga":
		decode = tga.Decode
	default:
		return nil, fmt.Errorf("%s: unknown image extension %q (want .png, .bmp or .tga)", filename, format)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	fmt.Printf("Pattern image %q is %s (%s), %dx%d\n", filename, format, colorModelString(img.ColorModel()),
		img.Bounds().Dx(), img.Bounds().Dy())
	return imageToPattern(img), nil
}

func imageToPattern(img image.Image) dmd.Pattern {
	b := img.Bounds()
	pattern := make(dmd.Pattern, b.Dy())
	for y := range pattern {
		pattern[y] = make([]uint8, b.Dx())
		for x := range pattern[y] {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y >= 128 {
				pattern[y][x] = 1
			}
		}
	}
	return pattern
}

// randomPattern turns each mirror ON with probability 1/2.
func randomPattern(ny, nx int, seed uint64) dmd.Pattern {
	coin := distuv.Bernoulli{P: 0.5, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	pattern := make(dmd.Pattern, ny)
	for y := range pattern {
		pattern[y] = make([]uint8, nx)
		for x := range pattern[y] {
			pattern[y][x] = uint8(coin.Rand())
		}
	}
	return pattern
}

func uniformPattern(ny, nx int, v uint8) dmd.Pattern {
	pattern := make(dmd.Pattern, ny)
	for y := range pattern {
		pattern[y] = make([]uint8, nx)
		for x := range pattern[y] {
			pattern[y][x] = v
		}
	}
	return pattern
}

// stripePattern makes vertical stripes: ON for the first half of every period columns.
func stripePattern(ny, nx, period int) dmd.Pattern {
	if period < 1 {
		period = 1
	}
	pattern := make(dmd.Pattern, ny)
	for y := range pattern {
		pattern[y] = make([]uint8, nx)
		for x := range pattern[y] {
			if x%period < (period+1)/2 {
				pattern[y][x] = 1
			}
		}
	}
	return pattern
}

// insideEllipse reports whether (x, y) is inside or on an ellipse centered on (x0, y0) with
// the given diameters, rotated counterclockwise by thetaDegrees.
func insideEllipse(x, y, x0, y0, xDiam, yDiam, thetaDegrees float64) bool {
	xSemi := xDiam / 2.0
	ySemi := yDiam / 2.0
	theta := thetaDegrees * math.Pi / 180.0
	t1 := ((x-x0)*math.Cos(theta) + (y-y0)*math.Sin(theta)) / xSemi
	t2 := (-(x-x0)*math.Sin(theta) + (y-y0)*math.Cos(theta)) / ySemi
	return t1*t1+t2*t2 <= 1.0
}

// ellipsePattern turns ON the mirrors inside an ellipse centered on the array.
func ellipsePattern(ny, nx int, xDiam, yDiam, thetaDegrees float64) dmd.Pattern {
	x0 := float64(nx-1) / 2
	y0 := float64(ny-1) / 2
	pattern := make(dmd.Pattern, ny)
	for y := range pattern {
		pattern[y] = make([]uint8, nx)
		for x := range pattern[y] {
			if insideEllipse(float64(x), float64(y), x0, y0, xDiam, yDiam, thetaDegrees) {
				pattern[y][x] = 1
			}
		}
	}
	return pattern
}

func colorModelString(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.NRGBAModel:
		return "NRGBA"
	case color.GrayModel:
		return "Gray"
	case color.Gray16Model:
		return "Gray16"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel:
		return "Alpha"
	case color.Alpha16Model:
		return "Alpha16"
	default:
		return fmt.Sprintf("%T", m)
	}
}

// patternToImage renders a pattern as black (OFF) and white (ON) pixels.
func patternToImage(pattern dmd.Pattern) *image.Gray {
	ny, nx := pattern.Shape()
	img := image.NewGray(image.Rect(0, 0, nx, ny))
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			img.Pix[y*img.Stride+x] = 255 * pattern[y][x]
		}
	}
	return img
}
