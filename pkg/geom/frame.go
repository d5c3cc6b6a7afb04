package geom

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CoordinateFrame is an orthonormal frame expressed in its mother's
// coordinates. Each volume owns exactly one frame and mutates it in place
// while the volume is assembled.
type CoordinateFrame struct {
	Origin v3.Vec
	U      v3.Vec
	V      v3.Vec
	W      v3.Vec
}

// CanonicalFrame returns the frame coincident with its mother.
func CanonicalFrame() CoordinateFrame {
	return CoordinateFrame{U: UnitX, V: UnitY, W: UnitZ}
}

// NewFrame builds a frame from an origin and basis, checking orthonormality.
func NewFrame(origin, u, v, w v3.Vec) (CoordinateFrame, error) {
	f := CoordinateFrame{Origin: origin, U: u, V: v, W: w}
	if err := f.Validate(); err != nil {
		return CoordinateFrame{}, err
	}
	return f, nil
}

// FromSurveyPoints builds the frame defined by three survey points:
// the origin sits on ball, u points from ball to vee, w is normal to the
// plane through ball, vee and flat, and v completes the right-handed set.
func FromSurveyPoints(ball, vee, flat v3.Vec) (CoordinateFrame, error) {
	u, ok := normalize(vee.Sub(ball))
	if !ok {
		return CoordinateFrame{}, GeometryError{
			Op:     "survey frame",
			Reason: fmt.Sprintf("vee %s coincides with ball %s", fmtVec(vee), fmtVec(ball)),
		}
	}
	w, ok := normalize(u.Cross(flat.Sub(ball)))
	if !ok {
		return CoordinateFrame{}, GeometryError{
			Op:     "survey frame",
			Reason: fmt.Sprintf("flat %s is collinear with ball %s and vee %s", fmtVec(flat), fmtVec(ball), fmtVec(vee)),
		}
	}
	v := w.Cross(u)
	return NewFrame(ball, u, v, w)
}

// FrameFromTransform returns the frame whose origin and basis are the image
// of the canonical frame under t.
func FrameFromTransform(t RigidTransform) (CoordinateFrame, error) {
	return NewFrame(t.Translation, t.Rotation.Column(0), t.Rotation.Column(1), t.Rotation.Column(2))
}

// Validate checks unit length and pairwise orthogonality within Tolerance.
func (f CoordinateFrame) Validate() error {
	for _, c := range []struct {
		name string
		val  float64
		want float64
	}{
		{"|u|", f.U.Length(), 1},
		{"|v|", f.V.Length(), 1},
		{"|w|", f.W.Length(), 1},
		{"u·v", f.U.Dot(f.V), 0},
		{"u·w", f.U.Dot(f.W), 0},
		{"v·w", f.V.Dot(f.W), 0},
	} {
		if math.IsNaN(c.val) || math.Abs(c.val-c.want) > Tolerance {
			frame := f
			return GeometryError{
				Op:     "orthonormality",
				Reason: fmt.Sprintf("%s = %.9g, want %g", c.name, c.val, c.want),
				Frame:  &frame,
			}
		}
	}
	return nil
}

// Transform moves the frame by t: the origin is transformed as a point and
// the basis vectors are rotated only.
func (f *CoordinateFrame) Transform(t RigidTransform) error {
	moved := CoordinateFrame{
		Origin: t.Apply(f.Origin),
		U:      t.Rotation.Apply(f.U),
		V:      t.Rotation.Apply(f.V),
		W:      t.Rotation.Apply(f.W),
	}
	if err := moved.Validate(); err != nil {
		return err
	}
	*f = moved
	return nil
}

// Rotate applies a pure rotation.
func (f *CoordinateFrame) Rotate(r Rotation) error {
	return f.Transform(Rotate(r))
}

// Translate shifts the origin.
func (f *CoordinateFrame) Translate(v v3.Vec) error {
	return f.Transform(Translation(v))
}

// ToRigidTransform returns the transform taking local coordinates to the
// mother frame: translation is the origin, rotation has columns u, v, w.
func (f CoordinateFrame) ToRigidTransform() RigidTransform {
	return RigidTransform{
		Translation: f.Origin,
		Rotation:    RotationFromColumns(f.U, f.V, f.W),
	}
}

// Near reports whether origin and basis match within tol.
func (f CoordinateFrame) Near(o CoordinateFrame, tol float64) bool {
	return VecNear(f.Origin, o.Origin, tol) &&
		VecNear(f.U, o.U, tol) &&
		VecNear(f.V, o.V, tol) &&
		VecNear(f.W, o.W, tol)
}

func (f CoordinateFrame) String() string {
	return fmt.Sprintf("origin=%s u=%s v=%s w=%s", fmtVec(f.Origin), fmtVec(f.U), fmtVec(f.V), fmtVec(f.W))
}

func fmtVec(v v3.Vec) string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", v.X, v.Y, v.Z)
}

// Perturb applies t in the frame's own coordinates: the frame becomes
// frame∘t. A translation moves the origin along the local axes and a
// rotation turns the basis about the local axes.
func (f *CoordinateFrame) Perturb(t RigidTransform) error {
	moved, err := FrameFromTransform(Compose(f.ToRigidTransform(), t))
	if err != nil {
		return err
	}
	*f = moved
	return nil
}
