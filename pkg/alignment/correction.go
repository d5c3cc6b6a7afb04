package alignment

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// Correction is a six degree-of-freedom rigid perturbation of one volume.
// The rotation is Rz(rz)·Ry(ry)·Rx(rx) about the fixed axes.
type Correction struct {
	Translation v3.Vec
	Angles      v3.Vec // rx, ry, rz
	Rotation    geom.Rotation
	Params      []Parameter // source parameters, if built from them
}

// NewCorrection builds a correction from raw shifts and angles.
func NewCorrection(dx, dy, dz, rx, ry, rz float64) Correction {
	return Correction{
		Translation: v3.Vec{X: dx, Y: dy, Z: dz},
		Angles:      v3.Vec{X: rx, Y: ry, Z: rz},
		Rotation:    geom.EulerZYX(rx, ry, rz),
	}
}

// CorrectionFromParameters builds a correction from exactly three
// translation and three rotation parameters, one per axis.
func CorrectionFromParameters(params []Parameter) (Correction, error) {
	var t, r [3]float64
	var tSeen, rSeen [3]bool
	for _, p := range params {
		f := p.Fields()
		if f.Dim < AxisX || f.Dim > AxisZ {
			return Correction{}, fmt.Errorf("alignment: parameter %d has invalid axis %d", p.ID, int(f.Dim))
		}
		i := int(f.Dim) - 1
		switch f.Type {
		case Translation:
			if tSeen[i] {
				return Correction{}, fmt.Errorf("alignment: duplicate translation along %s (parameter %d)", f.Dim, p.ID)
			}
			t[i], tSeen[i] = p.Value, true
		case Rotation, SupportRotation:
			if rSeen[i] {
				return Correction{}, fmt.Errorf("alignment: duplicate rotation about %s (parameter %d)", f.Dim, p.ID)
			}
			r[i], rSeen[i] = p.Value, true
		default:
			return Correction{}, fmt.Errorf("alignment: parameter %d has invalid type %d", p.ID, int(f.Type))
		}
	}
	for i := 0; i < 3; i++ {
		if !tSeen[i] || !rSeen[i] {
			return Correction{}, fmt.Errorf("alignment: need 3 translations and 3 rotations, got %d parameters", len(params))
		}
	}
	c := NewCorrection(t[0], t[1], t[2], r[0], r[1], r[2])
	c.Params = append([]Parameter(nil), params...)
	return c, nil
}

// AsRigidTransform returns {translation, rotation}.
func (c Correction) AsRigidTransform() geom.RigidTransform {
	return geom.RigidTransform{Translation: c.Translation, Rotation: c.Rotation}
}

// IsZero reports whether the correction leaves a volume unchanged.
func (c Correction) IsZero() bool {
	return c.AsRigidTransform().IsIdentity(0)
}

func (c Correction) String() string {
	return fmt.Sprintf("shift=(%g, %g, %g) angles=(%g, %g, %g)",
		c.Translation.X, c.Translation.Y, c.Translation.Z, c.Angles.X, c.Angles.Y, c.Angles.Z)
}
