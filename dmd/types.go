// Package dmd models optical diffraction from a digital micromirror device (DMD) used as a
// programmable blazed grating.
//
// Coordinates: x and y run along the primary axes of the mirror array and z points away from
// the DMD face. Incoming plane waves therefore have unit vectors with negative z-component and
// outgoing plane waves have positive z-component. The mirrors swivel by +/- gamma about the
// diagonal axis n = (1, 1, 0)/sqrt(2).
//
// Two further frames are used:
//
//	mpz:    m = (x - y)/sqrt(2), p = (x + y)/sqrt(2), z
//	mirror: e1 = (ex - ey)/sqrt(2) cos(gamma) - ez sin(gamma)
//	        e2 = (ex + ey)/sqrt(2)
//	        e3 = (ex - ey)/sqrt(2) sin(gamma) + ez cos(gamma)
//
// e3 is the mirror normal. Vectors in every frame are carried in r3.Vec values, so a mirror
// frame vector holds (v1, v2, v3) in its X, Y, Z fields.
//
// Physically infeasible results (evanescent orders, quadratic conditions with no real root)
// are returned as NaN-filled vectors rather than errors so that whole sweeps can be evaluated
// at once. Precondition violations are returned as errors before any computation starts.
package dmd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Errors returned for invalid arguments, wrapped with the name of the failing operation.
var (
	// ErrNonBinaryPattern is returned when a pattern entry is neither 0 nor 1.
	ErrNonBinaryPattern = errors.New("pattern must be binary, all entries should be 0 or 1")
	// ErrEmptyPattern is returned for a pattern without rows or columns.
	ErrEmptyPattern = errors.New("pattern is empty")
	// ErrRaggedPattern is returned when pattern rows differ in length.
	ErrRaggedPattern = errors.New("ragged pattern")
	// ErrMirrorWiderThanPitch is returned when Wx > Dx or Wy > Dy.
	ErrMirrorWiderThanPitch = errors.New("mirror width must be <= mirror pitch")
	// ErrBadGeometry is returned for a non-positive wavelength or pitch, or no wavelengths.
	ErrBadGeometry = errors.New("wavelength and mirror pitch must be positive")
	// ErrNotUnitVector is returned when a direction argument does not have unit length.
	ErrNotUnitVector = errors.New("vector is not a unit vector")
	// ErrZeroMirrorAngle is returned by DiffractionOrderLimits for a zero or NaN mirror angle.
	ErrZeroMirrorAngle = errors.New("mirror angle must be non-zero")
	// ErrShapeMismatch is returned when a profile or z-shift array does not match the pattern.
	ErrShapeMismatch = errors.New("array shape does not match pattern")
)

// unitTolerance is the allowed deviation of |v| from 1 where a unit vector is required.
const unitTolerance = 1e-12

// Geometry holds the wavelength and the DMD parameters. Wavelength, pitches and widths may be
// in any length unit as long as it is the same for all of them. Angles are in radians.
type Geometry struct {
	Wavelength float64
	Dx         float64 // mirror pitch along x
	Dy         float64 // mirror pitch along y
	Wx         float64 // mirror width along x, <= Dx
	Wy         float64 // mirror width along y, <= Dy
	GammaOn    float64 // swivel angle of ON mirrors
	GammaOff   float64 // swivel angle of OFF mirrors
}

// Validate checks the geometry invariants.
func (g Geometry) Validate() error {
	if !(g.Wavelength > 0) || !(g.Dx > 0) || !(g.Dy > 0) {
		return ErrBadGeometry
	}
	if g.Dx < g.Wx || g.Dy < g.Wy {
		return ErrMirrorWiderThanPitch
	}
	return nil
}

// WithWavelength returns a copy of g using wavelength l.
func (g Geometry) WithWavelength(l float64) Geometry {
	g.Wavelength = l
	return g
}

// Pattern is the ON (1) / OFF (0) state of each mirror, indexed [my][mx]. Row 0 holds the
// smallest y values and column 0 the smallest x values.
type Pattern [][]uint8

// Shape returns (ny, nx).
func (p Pattern) Shape() (ny, nx int) {
	if len(p) == 0 {
		return 0, 0
	}
	return len(p), len(p[0])
}

// Validate checks that p is non-empty, rectangular and binary.
func (p Pattern) Validate() error {
	ny, nx := p.Shape()
	if ny == 0 || nx == 0 {
		return ErrEmptyPattern
	}
	for _, row := range p {
		if len(row) != nx {
			return ErrRaggedPattern
		}
		for _, v := range row {
			if v > 1 {
				return ErrNonBinaryPattern
			}
		}
	}
	return nil
}

// Complement returns the pattern with every mirror state flipped.
func (p Pattern) Complement() Pattern {
	c := make(Pattern, len(p))
	for y, row := range p {
		c[y] = make([]uint8, len(row))
		for x, v := range row {
			c[y][x] = 1 - v
		}
	}
	return c
}

// NumOn counts the ON mirrors.
func (p Pattern) NumOn() int {
	n := 0
	for _, row := range p {
		for _, v := range row {
			n += int(v)
		}
	}
	return n
}

// Order is a diffraction order (nx, ny).
type Order struct {
	X, Y int
}

// IsBlazeCompatible reports whether the order can also satisfy the blaze condition for mirrors
// swiveling about the (1, 1, 0) diagonal, i.e. ny = -nx.
func (o Order) IsBlazeCompatible() bool {
	return o.Y == -o.X
}

func (o Order) String() string {
	return fmt.Sprintf("(%d, %d)", o.X, o.Y)
}

// Mode selects the angular parameterization of a propagation direction.
type Mode int

const (
	In  Mode = iota // incoming, z < 0
	Out             // outgoing, z > 0
)

func (m Mode) String() string {
	switch m {
	case In:
		return "in"
	case Out:
		return "out"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) zSign() float64 {
	switch m {
	case In:
		return -1
	case Out:
		return 1
	}
	panic(fmt.Sprintf("dmd: mode must be In or Out, but was %v", m))
}

// NaNVec is the sentinel for a direction with no physical solution.
func NaNVec() r3.Vec {
	nan := math.NaN()
	return r3.Vec{X: nan, Y: nan, Z: nan}
}

// IsNaNVec reports whether any component of v is NaN.
func IsNaNVec(v r3.Vec) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

func checkUnit(v r3.Vec) error {
	if math.Abs(r3.Norm(v)-1) > unitTolerance {
		return ErrNotUnitVector
	}
	return nil
}
