package dmd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FreqToUVec returns the output direction b(f) of pattern frequency (fx, fy), in 1/mirrors,
// given the direction dc into which a flat pattern diffracts. Evanescent frequencies return
// NaNVec().
func FreqToUVec(dc r3.Vec, fx, fy, wavelength, dx, dy float64) r3.Vec {
	bx := dc.X + wavelength/dx*fx
	by := dc.Y + wavelength/dy*fy
	return completeUnit(bx, by, 1)
}

// UVecToFreq inverts FreqToUVec.
func UVecToFreq(dc, b r3.Vec, wavelength, dx, dy float64) (fx, fy float64) {
	fx = (b.X - dc.X) * dx / wavelength
	fy = (b.Y - dc.Y) * dy / wavelength
	return fx, fy
}

// FourierPlaneBasis returns unit vectors transverse to the optical axis. For axis = (0, 0, 1)
// xb is ex and yb is ey. The axis must not lie along y.
func FourierPlaneBasis(axis r3.Vec) (xb, yb r3.Vec) {
	xb = r3.Scale(1/math.Hypot(axis.X, axis.Z), r3.Vec{X: axis.Z, Y: 0, Z: -axis.X})
	yb = r3.Cross(axis, xb)
	return xb, yb
}

// DMDFrqsToFourierPlane maps pattern frequencies (fx, fy) to dimensionless coordinates in the
// back focal plane of a lens with the given optical axis. dc is the direction of the zero
// frequency. xp and yp multiplied by the focal length give positions in the focal plane; zp is
// the component along the axis. Both dc and axis must be unit vectors.
func DMDFrqsToFourierPlane(fx, fy float64, dc, axis r3.Vec, dx, dy, wavelength float64) (xp, yp, zp float64, err error) {
	if err := checkUnit(dc); err != nil {
		return 0, 0, 0, fmt.Errorf("zero frequency direction: %w", err)
	}
	if err := checkUnit(axis); err != nil {
		return 0, 0, 0, fmt.Errorf("optical axis: %w", err)
	}

	b := FreqToUVec(dc, fx, fy, wavelength, dx, dy)
	xb, yb := FourierPlaneBasis(axis)
	return r3.Dot(b, xb), r3.Dot(b, yb), r3.Dot(b, axis), nil
}

// DMDFrqsToAxisFrqs returns the spatial frequencies, in 1/length, with which the light from
// pattern frequency (fx, fy) travels relative to the optical axis.
func DMDFrqsToAxisFrqs(fx, fy float64, dc, axis r3.Vec, dx, dy, wavelength float64) (fxAxis, fyAxis float64, err error) {
	xp, yp, _, err := DMDFrqsToFourierPlane(fx, fy, dc, axis, dx, dy, wavelength)
	if err != nil {
		return 0, 0, err
	}
	return xp / wavelength, yp / wavelength, nil
}
