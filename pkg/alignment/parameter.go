package alignment

import (
	"fmt"
	"strconv"
	"strings"
)

// Half is the top/bottom side of the tracker.
type Half int

const (
	HalfTop    Half = 1
	HalfBottom Half = 2
)

func (h Half) String() string {
	switch h {
	case HalfTop:
		return "top"
	case HalfBottom:
		return "bottom"
	default:
		return fmt.Sprintf("half(%d)", int(h))
	}
}

// Letter returns the single-letter suffix used in volume and parameter names.
func (h Half) Letter() string {
	switch h {
	case HalfTop:
		return "t"
	case HalfBottom:
		return "b"
	default:
		return strconv.Itoa(int(h))
	}
}

// ParseHalf accepts top, bottom, their letters or their packed values.
func ParseHalf(s string) (Half, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "t", "1":
		return HalfTop, nil
	case "bottom", "b", "2":
		return HalfBottom, nil
	}
	return 0, fmt.Errorf("alignment: unknown half %q", s)
}

// Type distinguishes translations from rotations.
type Type int

const (
	Translation Type = 1
	Rotation    Type = 2
	// SupportRotation is a rotation of an L1-3 U-channel support; its sensor field is always zero.
	SupportRotation Type = 3
)

func (t Type) String() string {
	switch t {
	case Translation:
		return "translation"
	case Rotation:
		return "rotation"
	case SupportRotation:
		return "support-rotation"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Axis is the local axis a parameter acts along or about.
type Axis int

const (
	AxisX Axis = 1
	AxisY Axis = 2
	AxisZ Axis = 3
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("dim%d", int(a))
	}
}

// Fields are the four values packed into a parameter id.
type Fields struct {
	Half   Half
	Type   Type
	Dim    Axis
	Sensor int
}

// Decode unpacks an id, most significant field first. Out-of-range values
// are returned as decoded; callers that care validate them with Valid.
func Decode(id int) Fields {
	half := id / 10000
	rem := id - half*10000
	typ := rem / 1000
	rem -= typ * 1000
	dim := rem / 100
	rem -= dim * 100
	return Fields{Half: Half(half), Type: Type(typ), Dim: Axis(dim), Sensor: rem}
}

// Encode packs f into an id. It is the exact inverse of Decode for valid fields.
func Encode(f Fields) int {
	return int(f.Half)*10000 + int(f.Type)*1000 + int(f.Dim)*100 + f.Sensor
}

// Valid reports whether every field lies in its enumeration.
func (f Fields) Valid() bool {
	return (f.Half == HalfTop || f.Half == HalfBottom) &&
		f.Type >= Translation && f.Type <= SupportRotation &&
		f.Dim >= AxisX && f.Dim <= AxisZ &&
		f.Sensor >= 0 && f.Sensor < 100
}

// Parameter is a single scalar alignment constant. Value is already scaled.
type Parameter struct {
	ID       int
	Value    float64
	Presigma float64
}

// Fields decodes the parameter id.
func (p Parameter) Fields() Fields { return Decode(p.ID) }

func (p Parameter) Half() Half { return p.Fields().Half }
func (p Parameter) Type() Type { return p.Fields().Type }
func (p Parameter) Dim() Axis { return p.Fields().Dim }
func (p Parameter) Sensor() int { return p.Fields().Sensor }
func (p Parameter) IsTop() bool { return p.Half() == HalfTop }

// CanonicalName returns "{r?}{axis}{sensor}{t|b}_align", the key used to
// find the volume a parameter belongs to.
func (p Parameter) CanonicalName() string {
	f := p.Fields()
	prefix := ""
	if f.Type != Translation {
		prefix = "r"
	}
	return fmt.Sprintf("%s%s%d%s_align", prefix, f.Dim, f.Sensor, f.Half.Letter())
}

func (p Parameter) String() string {
	return fmt.Sprintf("%d %s value=%g presigma=%g", p.ID, p.CanonicalName(), p.Value, p.Presigma)
}
