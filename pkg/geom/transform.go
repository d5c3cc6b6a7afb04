package geom

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RigidTransform maps a point p to Rotation·p + Translation.
type RigidTransform struct {
	Translation v3.Vec
	Rotation    Rotation
}

// IdentityTransform returns the transform that leaves every point unchanged.
func IdentityTransform() RigidTransform {
	return RigidTransform{Rotation: Identity()}
}

// Translation returns a pure translation by v.
func Translation(v v3.Vec) RigidTransform {
	return RigidTransform{Translation: v, Rotation: Identity()}
}

// Rotate returns a pure rotation.
func Rotate(r Rotation) RigidTransform {
	return RigidTransform{Rotation: r}
}

// Compose returns a∘b: applying the result equals applying b, then a.
func Compose(a, b RigidTransform) RigidTransform {
	return RigidTransform{
		Translation: a.Rotation.Apply(b.Translation).Add(a.Translation),
		Rotation:    a.Rotation.Mul(b.Rotation),
	}
}

// Then returns t∘inner, so that Then reads outer to inner.
func (t RigidTransform) Then(inner RigidTransform) RigidTransform {
	return Compose(t, inner)
}

// Apply transforms a point.
func (t RigidTransform) Apply(p v3.Vec) v3.Vec {
	return t.Rotation.Apply(p).Add(t.Translation)
}

// ApplyVector rotates a direction; translation does not act on directions.
func (t RigidTransform) ApplyVector(v v3.Vec) v3.Vec {
	return t.Rotation.Apply(v)
}

// Inverse returns {-Rᵀ·T, Rᵀ}.
func (t RigidTransform) Inverse() RigidTransform {
	rt := t.Rotation.Transpose()
	return RigidTransform{
		Translation: rt.Apply(t.Translation).MulScalar(-1),
		Rotation:    rt,
	}
}

// Near reports whether both components of t and o match within tol.
func (t RigidTransform) Near(o RigidTransform, tol float64) bool {
	return VecNear(t.Translation, o.Translation, tol) && t.Rotation.Near(o.Rotation, tol)
}

// IsIdentity reports whether t is the identity within tol.
func (t RigidTransform) IsIdentity(tol float64) bool {
	return t.Near(IdentityTransform(), tol)
}

func (t RigidTransform) String() string {
	return fmt.Sprintf("T=(%.6g, %.6g, %.6g) R=%s",
		t.Translation.X, t.Translation.Y, t.Translation.Z, t.Rotation)
}
