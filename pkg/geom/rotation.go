package geom

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation is a proper orthogonal 3x3 matrix, stored row-major.
// The zero value is not a rotation; start from Identity.
type Rotation [3][3]float64

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// RotationX is the elemental rotation by angle about the x axis.
func RotationX(angle float64) Rotation {
	s, c := math.Sincos(angle)
	return Rotation{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

// RotationY is the elemental rotation by angle about the y axis.
func RotationY(angle float64) Rotation {
	s, c := math.Sincos(angle)
	return Rotation{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

// RotationZ is the elemental rotation by angle about the z axis.
func RotationZ(angle float64) Rotation {
	s, c := math.Sincos(angle)
	return Rotation{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// EulerZYX composes Rz(rz)·Ry(ry)·Rx(rx): the x rotation is applied first,
// all three about the fixed axes.
func EulerZYX(rx, ry, rz float64) Rotation {
	return RotationZ(rz).Mul(RotationY(ry)).Mul(RotationX(rx))
}

// AxisAngle returns the right-handed rotation by angle about axis.
// The axis need not be normalized but must not be zero.
func AxisAngle(axis v3.Vec, angle float64) (Rotation, error) {
	if axis.Length() < degenerateLength {
		return Rotation{}, GeometryError{Op: "axis-angle", Reason: "zero rotation axis"}
	}
	m := r3.NewRotation(angle, r3.Vec{X: axis.X, Y: axis.Y, Z: axis.Z}).Mat()
	var r Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m.At(i, j)
		}
	}
	return r, nil
}

// RotationFromColumns builds the matrix whose columns are u, v and w.
// It maps the unit axes of a frame onto u, v and w.
func RotationFromColumns(u, v, w v3.Vec) Rotation {
	return Rotation{
		{u.X, v.X, w.X},
		{u.Y, v.Y, w.Y},
		{u.Z, v.Z, w.Z},
	}
}

// Mul returns r·o, the rotation that applies o first and then r.
func (r Rotation) Mul(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][0]*o[0][j] + r[i][1]*o[1][j] + r[i][2]*o[2][j]
		}
	}
	return out
}

// Apply rotates v.
func (r Rotation) Apply(v v3.Vec) v3.Vec {
	return v3.Vec{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Transpose returns rᵀ, which is also the inverse of a proper rotation.
func (r Rotation) Transpose() Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[j][i]
		}
	}
	return out
}

// Column returns column j.
func (r Rotation) Column(j int) v3.Vec {
	return v3.Vec{X: r[0][j], Y: r[1][j], Z: r[2][j]}
}

// Det returns the determinant.
func (r Rotation) Det() float64 {
	return r[0][0]*(r[1][1]*r[2][2]-r[1][2]*r[2][1]) -
		r[0][1]*(r[1][0]*r[2][2]-r[1][2]*r[2][0]) +
		r[0][2]*(r[1][0]*r[2][1]-r[1][1]*r[2][0])
}

// Near reports whether every element of r and o agrees within tol.
func (r Rotation) Near(o Rotation, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !scalar.EqualWithinAbs(r[i][j], o[i][j], tol) {
				return false
			}
		}
	}
	return true
}

// IsIdentity reports whether r is the identity within tol.
func (r Rotation) IsIdentity(tol float64) bool {
	return r.Near(Identity(), tol)
}

// Validate checks that r is proper orthogonal within tol.
func (r Rotation) Validate(tol float64) error {
	if !r.Mul(r.Transpose()).Near(Identity(), tol) {
		return GeometryError{Op: "rotation", Reason: fmt.Sprintf("not orthogonal: %v", r)}
	}
	if math.Abs(r.Det()-1) > tol {
		return GeometryError{Op: "rotation", Reason: fmt.Sprintf("determinant %.6g is not +1", r.Det())}
	}
	return nil
}

// EulerZYX decomposes r into the angles that EulerZYX recomposes.
// At gimbal lock (|ry| = π/2) rx is reported as zero.
func (r Rotation) EulerZYX() (rx, ry, rz float64) {
	sy := -r[2][0]
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	ry = math.Asin(sy)
	if math.Abs(sy) > 1-1e-12 {
		return 0, ry, math.Atan2(-r[0][1], r[1][1])
	}
	rx = math.Atan2(r[2][1], r[2][2])
	rz = math.Atan2(r[1][0], r[0][0])
	return rx, ry, rz
}

func (r Rotation) String() string {
	return fmt.Sprintf("[[%.6g %.6g %.6g] [%.6g %.6g %.6g] [%.6g %.6g %.6g]]",
		r[0][0], r[0][1], r[0][2], r[1][0], r[1][1], r[1][2], r[2][0], r[2][1], r[2][2])
}
