package cut_test

import (
	"fmt"
	"log"
	"math"

	"github.com/bob-anderson-ok/DMDdiffraction/cut"
)

// Example extracts a diagonal profile through a blazed spot on an intensity map and reports
// which diffraction orders lie on the cut.
func Example() {
	const size = 101
	intensity := createTestIntensityMatrix(size)

	// Cut along the blaze diagonal through the map center
	line := &cut.Line{
		Width:        size,
		Height:       size,
		CenterX:      50,
		CenterY:      50,
		AngleDegrees: 45,
		PixelScale:   0.1, // degrees of output angle per pixel
	}
	if err := line.ComputeEndpoints(); err != nil {
		log.Fatalf("Failed to compute cut: %v", err)
	}
	fmt.Printf("Cut start: (%.1f, %.1f)\n", line.StartX, line.StartY)
	fmt.Printf("Cut end: (%.1f, %.1f)\n", line.EndX, line.EndY)

	profile, err := cut.Extract(intensity, line)
	if err != nil {
		log.Fatalf("Failed to extract profile: %v", err)
	}
	cut.Normalize(profile)
	fmt.Printf("Extracted %d profile points\n", len(profile))

	// Pixel positions of three diffraction orders, one of them off the cut
	xs := []float64{30, 60, 80}
	ys := []float64{30, 60, 20}
	for _, offset := range cut.Crossings(line, xs, ys, 1) {
		fmt.Printf("Order at %.2f deg\n", offset)
	}

	// Output:
	// Cut start: (0.0, 0.0)
	// Cut end: (100.0, 100.0)
	// Extracted 142 profile points
	// Order at -2.83 deg
	// Order at 1.41 deg
}

// createTestIntensityMatrix creates a Gaussian spot at the map center
func createTestIntensityMatrix(size int) [][]float64 {
	matrix := make([][]float64, size)
	center := float64(size-1) / 2.0

	for y := 0; y < size; y++ {
		matrix[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			dx := float64(x) - center
			dy := float64(y) - center
			matrix[y][x] = math.Exp(-(dx*dx + dy*dy) / 200)
		}
	}
	return matrix
}
