package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/floats/scalar"
)

// Tolerance is the absolute tolerance for orthonormality checks and for
// comparing transforms.
const Tolerance = 1e-5

// degenerateLength is the length below which a direction cannot be normalized.
const degenerateLength = 1e-12

// Unit axes of a right-handed frame.
var (
	UnitX = v3.Vec{X: 1}
	UnitY = v3.Vec{Y: 1}
	UnitZ = v3.Vec{Z: 1}
)

// Vec builds a vector from its components.
func Vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}

// VecNear reports whether a and b agree component-wise within tol.
func VecNear(a, b v3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) &&
		scalar.EqualWithinAbs(a.Y, b.Y, tol) &&
		scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

// normalize returns v scaled to unit length. The boolean is false when v is
// too short to carry a direction.
func normalize(v v3.Vec) (v3.Vec, bool) {
	l := v.Length()
	if l < degenerateLength {
		return v3.Vec{}, false
	}
	return v.MulScalar(1 / l), true
}
