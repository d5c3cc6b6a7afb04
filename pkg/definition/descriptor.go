package definition

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

const (
	inch           = 25.4
	trackingVolume = graph.WorldName
)

// Survey holds the ball, vee and flat points of a volume, given in its
// mother's frame (or in the frame of its last reference volume).
type Survey struct {
	Ball, Vee, Flat v3.Vec
}

// Frame builds the local frame from the survey points.
func (s Survey) Frame() (geom.CoordinateFrame, error) {
	return geom.FromSurveyPoints(s.Ball, s.Vee, s.Flat)
}

// CanonicalAt returns a survey at ball whose axes match the mother's.
func CanonicalAt(ball v3.Vec) Survey {
	return Survey{Ball: ball, Vee: ball.Add(geom.UnitX), Flat: ball.Add(geom.UnitY)}
}

// CorrectionRule says which alignment correction, if any, a support takes.
type CorrectionRule int

const (
	NoCorrection CorrectionRule = iota
	// UChannelRotation reads the type-3 support rotations of the half.
	UChannelRotation
	// FrontSupport reads pseudo sensor 80.
	FrontSupport
	// RearSupport reads pseudo sensor 90.
	RearSupport
)

const (
	frontSupportSensor = 80
	rearSupportSensor  = 90
)

// VolumeSpec describes one support or envelope volume.
type VolumeSpec struct {
	Name     string
	Mother   string
	Survey   Survey
	Box      v3.Vec
	Center   v3.Vec
	Material string
	Ghost    bool
	Refs     []string
	// Half is only consulted by corrections.
	Half       alignment.Half
	Correction CorrectionRule
}

// BundleShape is the internal layout of a module.
type BundleShape int

const (
	// ShortBundle has one axial and one stereo half-module, each with a
	// lamination, carbon fiber, hybrid and sensor.
	ShortBundle BundleShape = iota + 1
	// LongBundle has hole and slot half-modules on both sides, each with a
	// lamination and sensor.
	LongBundle
	// OneSensorBundle has one small axial and one stereo sensor with a
	// lamination each.
	OneSensorBundle
)

func (b BundleShape) String() string {
	switch b {
	case ShortBundle:
		return "short"
	case LongBundle:
		return "long"
	case OneSensorBundle:
		return "one-sensor"
	default:
		return fmt.Sprintf("bundle(%d)", int(b))
	}
}

// SensorSpec is the size of a sensor wafer and its sensitive region.
type SensorSpec struct {
	Width, Length, Thickness  float64
	ActiveWidth, ActiveLength float64
}

// ModuleSpec places one module of a layer.
type ModuleSpec struct {
	Mother string
	Ref    string
	Survey Survey
}

// LayerSpec describes the two modules of one layer.
type LayerSpec struct {
	Layer  int
	Shape  BundleShape
	Sensor SensorSpec
	// StereoAngle turns the stereo sensor about its normal.
	StereoAngle float64
	Box         v3.Vec
	Center      v3.Vec
	Bottom      ModuleSpec
	Top         ModuleSpec

	// Axial is the centre of the axial (or axial hole) sensor in the
	// module frame. The stereo sensor sits SideGap further along w and
	// slot sensors SlotOffset further along v.
	Axial      v3.Vec
	SideGap    float64
	SlotOffset float64

	// ColdBlock adds a cooling block to the module when requested.
	ColdBlock bool
	// ModuleAligned modules take a whole-module correction.
	ModuleAligned bool
}

// Module returns the placement of one half.
func (l LayerSpec) Module(half alignment.Half) ModuleSpec {
	if half == alignment.HalfTop {
		return l.Top
	}
	return l.Bottom
}

// Descriptor is the full definition of one tracker layout.
type Descriptor struct {
	Version Version
	Volumes []VolumeSpec
	Layers  []LayerSpec
}

// ForVersion returns the built-in descriptor of v.
func ForVersion(v Version) (*Descriptor, error) {
	switch v {
	case TestRun2014:
		return testRun(), nil
	case Tracker2014:
		return tracker2014(), nil
	case Tracker2019:
		return tracker2019(), nil
	}
	return nil, fmt.Errorf("definition: no descriptor for %s", v)
}

// Layer returns the description of layer l.
func (d *Descriptor) Layer(l int) (LayerSpec, bool) {
	for _, ls := range d.Layers {
		if ls.Layer == l {
			return ls, true
		}
	}
	return LayerSpec{}, false
}
