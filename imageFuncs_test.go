package main

import (
	"bytes"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixToGray16Data(t *testing.T) {
	m := [][]float64{
		{0, 0.5, 1},
		{2, -1, math.NaN()},
	}
	img, err := MatrixToGray16Data(m, gray16Scale)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(30000), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(60000), img.Gray16At(2, 0).Y)
	assert.Equal(t, uint16(65535), img.Gray16At(0, 1).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 1).Y)
	assert.Equal(t, uint16(0), img.Gray16At(2, 1).Y)

	_, err = MatrixToGray16Data([][]float64{{1, 2}, {3}}, 1)
	assert.Error(t, err)
	_, err = MatrixToGray16Data(m, 0)
	assert.Error(t, err)
}

func TestMatrixToGrayViewPercentile(t *testing.T) {
	m := [][]float64{{0, 1, 2, 3, 4}}
	img, err := MatrixToGrayViewPercentile(m, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 64, 128, 191, 255}, img.Pix[:5])

	// the top of the range saturates
	img, err = MatrixToGrayViewPercentile(m, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.Pix[3])

	_, err = MatrixToGrayViewPercentile(m, 50, 50)
	assert.Error(t, err)
	_, err = MatrixToGrayViewPercentile([][]float64{{math.NaN()}}, 0, 100)
	assert.Error(t, err)
}

func TestUpscale(t *testing.T) {
	small := image.NewGray(image.Rect(0, 0, 40, 20))
	big := upscale(small, 200)
	assert.Equal(t, image.Rect(0, 0, 200, 100), big.Bounds())

	same := upscale(small, 10)
	assert.Equal(t, small, same)
}

func TestIntensityHelpers(t *testing.T) {
	acc := []float64{1, 0}
	addScaledIntensityInPlace(acc, []complex128{complex(3, 4), complex(0, 1)}, 0.5)
	assert.InDeltaSlice(t, []float64{13.5, 0.5}, acc, 1e-12)
	assert.Panics(t, func() { addScaledIntensityInPlace(acc, nil, 1) })

	eFields := [][][]complex128{
		{{1, 2}},
		{{complex(0, 2), 0}},
	}
	assert.InDeltaSlice(t, []float64{0.25 + 3, 1}, weightedIntensity(eFields, []float64{0.25, 0.75}, 0), 1e-12)

	v := []float64{1, math.NaN(), 4}
	assert.Equal(t, 4.0, normalizeToPeak(v))
	assert.InDelta(t, 0.25, v[0], 1e-12)
	assert.Equal(t, 0.0, normalizeToPeak([]float64{0, 0}))

	m := intensityMatrix([][]complex128{{complex(1, 1)}, {2}})
	assert.InDelta(t, 2.0, m[0][0], 1e-12)
	assert.InDelta(t, 4.0, m[1][0], 1e-12)
}

func TestReshape1DTo2D(t *testing.T) {
	m, err := Reshape1DTo2D([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, m)

	_, err = Reshape1DTo2D([]float64{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestSaveIntensityImages(t *testing.T) {
	m := [][]float64{
		{0, 0.25, 0},
		{0.25, 1, 0.25},
	}
	base := filepath.Join(t.TempDir(), "map_")
	display, err := saveIntensityImages(base, m, 90)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 90, 60), display.Bounds())

	for _, name := range []string{base + "8bit.png", base + "16bit.png"} {
		_, err := os.Stat(name)
		assert.NoError(t, err, name)
	}

	webp, err := os.ReadFile(base + ".webp")
	require.NoError(t, err)
	require.Greater(t, len(webp), 12)
	assert.True(t, bytes.Equal([]byte("RIFF"), webp[:4]))
	assert.True(t, bytes.Equal([]byte("WEBP"), webp[8:12]))
}
