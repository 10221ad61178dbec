package dmd

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTFreq returns the sample frequencies of an n point DFT in cycles per sample, in the
// standard order 0, 1/n, ..., then the negative frequencies.
func FFTFreq(n int) []float64 {
	f := make([]float64, n)
	for i := range f {
		k := i
		if i > (n-1)/2 {
			k = i - n
		}
		f[i] = float64(k) / float64(n)
	}
	return f
}

// CenteredFreq returns FFTFreq(n) shifted so that zero frequency sits at index n/2.
func CenteredFreq(n int) []float64 {
	return fftShift(FFTFreq(n))
}

// fftShift moves the zero-frequency element of x to index len(x)/2.
func fftShift[T any](x []T) []T {
	n := len(x)
	out := make([]T, n)
	sh := n - n/2
	for i := range out {
		out[i] = x[(i+sh)%n]
	}
	return out
}

func fftShift2D[T any](x [][]T) [][]T {
	h := len(x)
	shY := h - h/2
	rows := make([][]T, h)
	for y := range rows {
		rows[y] = fftShift(x[(y+shY)%h])
	}
	return rows
}

// fft2InPlace transforms a along rows then columns. The forward transform uses exp(-2 pi i jk/n),
// the backward one exp(+2 pi i jk/n); neither is normalized.
func fft2InPlace(a [][]complex128, forward bool) {
	h := len(a)
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	// rows
	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		if forward {
			rowFFT.Coefficients(a[y], tmp)
		} else {
			rowFFT.Sequence(a[y], tmp)
		}
	}

	// cols
	col := make([]complex128, h)
	out := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(out, col)
		} else {
			colFFT.Sequence(out, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = out[y]
		}
	}
}

func makeComplex2D(h, w int) [][]complex128 {
	m := make([][]complex128, h)
	for i := range m {
		m[i] = make([]complex128, w)
	}
	return m
}
