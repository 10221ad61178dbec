package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/cmplx"
	"os"
	"sort"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"
)

// gray16Scale maps a normalized intensity of 1 to this 16-bit pixel value in the data PNGs.
const gray16Scale = 60000

// addScaledIntensityInPlace accumulates scale*|field|^2 into acc.
func addScaledIntensityInPlace(acc []float64, field []complex128, scale float64) {
	if len(acc) != len(field) {
		panic("vector lengths don't match")
	}

	for i := range acc {
		a := cmplx.Abs(field[i])
		acc[i] += scale * a * a
	}
}

// weightedIntensity sums the intensity of input i over all wavelengths.
func weightedIntensity(eFields [][][]complex128, weights []float64, i int) []float64 {
	intensity := make([]float64, len(eFields[0][i]))
	for k := range eFields {
		addScaledIntensityInPlace(intensity, eFields[k][i], weights[k])
	}
	return intensity
}

// intensityMatrix returns |m|^2 element by element.
func intensityMatrix(m [][]complex128) [][]float64 {
	out := make([][]float64, len(m))
	for y := range m {
		out[y] = make([]float64, len(m[y]))
		for x, v := range m[y] {
			a := cmplx.Abs(v)
			out[y][x] = a * a
		}
	}
	return out
}

// normalizeToPeak divides v by its largest finite value and returns that value.
func normalizeToPeak(v []float64) float64 {
	peak := 0.0
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) && x > peak {
			peak = x
		}
	}
	if peak == 0 {
		return 0
	}
	for i := range v {
		v[i] /= peak
	}
	return peak
}

// MatrixToGray16Data -------------------- Data PNG (Gray16, fixed physical scaling) --------------------
// Mapping: Y16 = round(v * scale), clamped to [0, 65535]
func MatrixToGray16Data(m [][]float64, scale float64) (*image.Gray16, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	if scale <= 0 {
		return nil, errors.New("scale must be > 0")
	}
	h := len(m)
	w := len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return nil, errors.New("ragged matrix")
		}
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			i := row + 2*x
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[i], img.Pix[i+1] = 0, 0
				continue
			}

			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			y16 := uint16(u)

			// Gray16 Pix is big-endian per pixel: high then low
			img.Pix[i] = uint8(y16 >> 8)
			img.Pix[i+1] = uint8(y16)
		}
	}
	return img, nil
}

// MatrixToGrayViewPercentile -------------------- View PNG (Gray8, auto-stretch) --------------------
// Maps the pLow to pHigh percentile range to 0..255 and clamps. Diffraction maps have a few
// very bright orders, so a pHigh below 100 brings out the weak ones.
func MatrixToGrayViewPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	h := len(m)
	w := len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return nil, errors.New("ragged matrix")
		}
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	// Collect finite values for percentile computation
	vals := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m[y][x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("matrix has no finite values")
	}

	sort.Float64s(vals)

	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		pos := (p / 100.0) * float64(len(vals)-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		return vals[i]*(1-f) + vals[i+1]*f
	}

	lo := percentile(pLow)
	hi := percentile(pHigh)
	if hi == lo {
		hi = lo + 1 // avoid divide-by-zero; image becomes mostly constant
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[row+x] = 0
				continue
			}
			t := (v - lo) / (hi - lo)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			img.Pix[row+x] = uint8(math.Round(t * 255.0))
		}
	}
	return img, nil
}

// upscale resizes img to fit a size x size window with Catmull-Rom resampling, keeping the
// aspect ratio. Images already that large are returned as is.
func upscale(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() >= size && b.Dy() >= size) {
		return img
	}
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// toNRGBA converts any image to non-premultiplied RGBA for the WebP encoder.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

func SaveGrayPNG(filename string, img *image.Gray) error {
	return saveImagePNG(filename, img)
}

func SaveGray16PNG(filename string, img *image.Gray16) error {
	return saveImagePNG(filename, img)
}

func saveImagePNG(filename string, img image.Image) (err error) {
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

// SaveWebP writes a lossless WebP copy of img.
func SaveWebP(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := nativewebp.Encode(f, toNRGBA(img), nil); err != nil {
		return fmt.Errorf("webp encode %s: %w", filename, err)
	}
	return nil
}

func Reshape1DTo2D(v []float64, rows, cols int) ([][]float64, error) {
	if len(v) != rows*cols {
		return nil, fmt.Errorf("size mismatch: have %d, want %d", len(v), rows*cols)
	}

	m := make([][]float64, rows)
	k := 0
	for i := 0; i < rows; i++ {
		m[i] = make([]float64, cols)
		copy(m[i], v[k:k+cols])
		k += cols
	}
	return m, nil
}

// saveIntensityImages writes the display PNG, the 16-bit data PNG and the WebP copy of a
// normalized intensity map, and returns the upscaled display image.
func saveIntensityImages(base string, m [][]float64, windowSize int) (image.Image, error) {
	view, err := MatrixToGrayViewPercentile(m, 0.0, 99.5)
	if err != nil {
		return nil, fmt.Errorf("creation of the display image failed: %w", err)
	}
	display := upscale(view, windowSize)
	if err := saveImagePNG(base+"8bit.png", display); err != nil {
		return nil, fmt.Errorf("writing of %q failed: %w", base+"8bit.png", err)
	}

	data, err := MatrixToGray16Data(m, gray16Scale)
	if err != nil {
		return nil, fmt.Errorf("creation of the data image failed: %w", err)
	}
	if err := SaveGray16PNG(base+"16bit.png", data); err != nil {
		return nil, fmt.Errorf("writing of %q failed: %w", base+"16bit.png", err)
	}

	if err := SaveWebP(base+".webp", display); err != nil {
		return nil, fmt.Errorf("writing of %q failed: %w", base+".webp", err)
	}
	return display, nil
}
