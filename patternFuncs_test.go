package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/bob-anderson-ok/DMDdiffraction/dmd"
)

func TestRandomPatternIsReproducible(t *testing.T) {
	a := randomPattern(32, 24, 7)
	b := randomPattern(32, 24, 7)
	c := randomPattern(32, 24, 8)
	require.NoError(t, a.Validate())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// roughly half the mirrors are ON
	assert.InDelta(t, 32*24/2, a.NumOn(), 100)
}

func TestStripePattern(t *testing.T) {
	p := stripePattern(2, 8, 4)
	assert.Equal(t, dmd.Pattern{
		{1, 1, 0, 0, 1, 1, 0, 0},
		{1, 1, 0, 0, 1, 1, 0, 0},
	}, p)

	odd := stripePattern(1, 6, 3)
	assert.Equal(t, dmd.Pattern{{1, 1, 0, 1, 1, 0}}, odd)
}

func TestEllipsePattern(t *testing.T) {
	p := ellipsePattern(11, 21, 19, 10, 0)
	ny, nx := p.Shape()
	assert.Equal(t, 11, ny)
	assert.Equal(t, 21, nx)
	assert.Equal(t, uint8(1), p[5][10])
	assert.Equal(t, uint8(1), p[5][1])
	assert.Equal(t, uint8(0), p[5][0])
	assert.Equal(t, uint8(0), p[0][0])

	// a quarter turn swaps the axes
	r := ellipsePattern(21, 21, 20, 4, 90)
	assert.Equal(t, uint8(1), r[2][10])
	assert.Equal(t, uint8(0), r[10][2])
}

func TestBuildPattern(t *testing.T) {
	on, err := buildPattern(PatternRequest{Kind: "on", Nx: 3, Ny: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, on.NumOn())

	off, err := buildPattern(PatternRequest{Kind: "off", Nx: 3, Ny: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, off.NumOn())

	_, err = buildPattern(PatternRequest{Kind: "plaid", Nx: 3, Ny: 2})
	assert.Error(t, err)
}

func TestLoadPatternImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.White)
	img.Set(2, 1, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	img.Set(1, 1, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	want := dmd.Pattern{{1, 0, 0}, {0, 0, 1}}

	dir := t.TempDir()
	pngPath := filepath.Join(dir, "pattern.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	got, err := loadPatternImage(pngPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	bmpPath := filepath.Join(dir, "pattern.bmp")
	f, err = os.Create(bmpPath)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, img))
	require.NoError(t, f.Close())

	got, err = buildPattern(PatternRequest{PathToImage: bmpPath, Kind: "random"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	tgaPath := filepath.Join(dir, "pattern.TGA")
	f, err = os.Create(tgaPath)
	require.NoError(t, err)
	require.NoError(t, tga.Encode(f, img))
	require.NoError(t, f.Close())

	got, err = loadPatternImage(tgaPath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = loadPatternImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = loadPatternImage(filepath.Join(dir, "pattern.gif"))
	assert.ErrorContains(t, err, "unknown image extension")
}

func TestBuildPatternFromGrayPNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		if i%2 == 0 {
			img.Pix[i] = 255
		}
	}
	p := filepath.Join(t.TempDir(), "p.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	got, err := buildPattern(PatternRequest{PathToImage: p})
	require.NoError(t, err)
	assert.Equal(t, dmd.Pattern{{1, 0, 1, 0}, {1, 0, 1, 0}, {1, 0, 1, 0}, {1, 0, 1, 0}}, got)
}

func TestPatternToImage(t *testing.T) {
	img := patternToImage(dmd.Pattern{{1, 0}, {0, 1}})
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(1, 0).Y)
	assert.Equal(t, dmd.Pattern{{1, 0}, {0, 1}}, imageToPattern(img))
}
