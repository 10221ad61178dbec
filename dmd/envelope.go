package dmd

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Sinc is the unnormalized sinc function sin(x)/x with Sinc(0) = 1.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

// BlazeCondition returns the dimensionless sinc arguments A+ and A- for mirrors tilted by gamma
// about SwivelAxis, where amb is the incoming minus the outgoing unit vector:
//
//	E ~ w^2 sinc(0.5 k wx A+) sinc(0.5 k wy A-)
//
// The blaze condition is A+ = A- = 0.
func BlazeCondition(gamma float64, amb r3.Vec) (aPlus, aMinus float64) {
	return BlazeConditionAbout(SwivelAxis, gamma, amb)
}

// BlazeConditionAbout is BlazeCondition for mirrors swiveling about the unit axis n. A+ and A-
// are the first two components of amb expressed in the frame rotated by gamma about n.
func BlazeConditionAbout(n r3.Vec, gamma float64, amb r3.Vec) (aPlus, aMinus float64) {
	c, s := math.Cos(gamma), math.Sin(gamma)
	t := 1 - c
	aPlus = (n.X*n.X*t+c)*amb.X + (n.X*n.Y*t+n.Z*s)*amb.Y + (n.X*n.Z*t-n.Y*s)*amb.Z
	aMinus = (n.X*n.Y*t-n.Z*s)*amb.X + (n.Y*n.Y*t+c)*amb.Y + (n.Y*n.Z*t+n.X*s)*amb.Z
	return aPlus, aMinus
}

// NormalizedBlazeEnvelope is the diffraction efficiency envelope of a single mirror tilted by
// gamma. It equals 1 where the blaze condition holds.
func NormalizedBlazeEnvelope(wavelength, gamma, wx, wy float64, amb r3.Vec) float64 {
	return normalizedEnvelope(SwivelAxis, wavelength, gamma, wx, wy, amb)
}

// BlazeEnvelope is the field diffracted by a single wx by wy mirror tilted by gamma, i.e.
// wx*wy times NormalizedBlazeEnvelope.
func BlazeEnvelope(wavelength, gamma, wx, wy float64, amb r3.Vec) float64 {
	return wx * wy * normalizedEnvelope(SwivelAxis, wavelength, gamma, wx, wy, amb)
}

// BlazeEnvelopeAbout is BlazeEnvelope for mirrors swiveling about the unit axis n.
func BlazeEnvelopeAbout(n r3.Vec, wavelength, gamma, wx, wy float64, amb r3.Vec) float64 {
	return wx * wy * normalizedEnvelope(n, wavelength, gamma, wx, wy, amb)
}

func normalizedEnvelope(n r3.Vec, wavelength, gamma, wx, wy float64, amb r3.Vec) float64 {
	k := 2 * math.Pi / wavelength
	aPlus, aMinus := BlazeConditionAbout(n, gamma, amb)
	return Sinc(0.5*k*wx*aPlus) * Sinc(0.5*k*wy*aMinus)
}

// envelopes evaluates the ON and OFF mirror fields for one output direction.
func (g Geometry) envelopes(amb r3.Vec) (on, off float64) {
	on = BlazeEnvelope(g.Wavelength, g.GammaOn, g.Wx, g.Wy, amb)
	off = BlazeEnvelope(g.Wavelength, g.GammaOff, g.Wx, g.Wy, amb)
	return on, off
}
