package definition

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// SVT box and chamber.
var (
	svtBoxBox       = v3.Vec{X: 16.0 * inch, Y: 50.5 * inch, Z: 6.740 * inch}
	chamberBox      = v3.Vec{X: 17.0 * inch, Y: 52.0 * inch, Z: 7.5 * inch}
	chamberBall     = v3.Vec{X: 0.84 * inch, Z: 13.777 * inch}
	basePlateBox    = v3.Vec{X: 16.0 * inch, Y: 50.5 * inch, Z: 0.25 * inch}
	basePlateBall   = v3.Vec{X: -8.0*inch + 3.0*inch, Y: -25.25*inch + 0.375*inch, Z: -3.37*inch + 0.25*inch}
	basePlateCenter = v3.Vec{X: -3.0*inch + 8.0*inch, Y: -0.375*inch + 25.25*inch, Z: -0.125 * inch}
)

// Kinematic mount of the front support ring, in the SVT box frame.
const (
	kinMountX       = -138.665
	kinMountY       = -67.855
	kinMountBottomZ = -67.996
	kinMountTopZ    = 56.857
)

// Front (L1-3) U-channel and plate.
const (
	uChannelHeight       = 2.575 * inch
	sidePlateConeY       = 2.0 * inch
	frontPlateWidth      = 9.25 * inch
	frontPlateHeight     = 0.375 * inch
	frontPlateLength     = 16.0 * inch
	frontConeToEdgeBot   = 12.25 * inch
	frontConeToEdgeTop   = (14.5-3.125)*inch + (16.0-14.5)*inch
	frontModulePinBottom = (16.0 - 4.126) * inch
)

// Rear (L4-6) U-channel and plate.
const (
	rearPlateWidth     = 13.5 * inch
	rearPlateLength    = 21.0 * inch
	rearPlateHeight    = 0.5 * inch
	rearConeToEdgeBot  = 2.75 * inch
	rearConeToEdgeTop  = (0.875-0.25)*inch + 1.5*inch
	rearModulePinBot   = 3.125 * inch
	moduleWidth        = 2.5*inch + 0.04*inch + 0.5*inch
	moduleHeight       = 1.0*inch - 0.45*inch
	shortModuleLength  = 8.0*inch + 10.0
	longModuleLength   = 12.25 * inch
	holeToModuleEdge   = 0.25 * inch
	frontHoleAcross    = 95.25
	frontHoleVertical  = -51.435
	frontLayerStepDown = 1.5
	rearHoleAcross     = 149.225
	rearHoleAlong      = 9.525
	rearHoleVertical   = -53.34
	rearLayerStepDown  = 3.0
	rearLayerPitch     = 200.0
)

var hpsSensor = SensorSpec{
	Width: 40.34, Length: 100.0, Thickness: 0.32,
	ActiveWidth: 38.3399, ActiveLength: 98.33,
}

var shortSensor = SensorSpec{
	Width: 14.025 + 2*0.250, Length: 30.0, Thickness: 0.200,
	ActiveWidth: 14.025, ActiveLength: 30.0,
}

// Half-module stack.
const (
	laminationInset     = 2.34
	laminationThickness = 0.050
	cfThickness         = 0.250
	hybridLength        = 170.0 - 100.0
	hybridThickness     = 4.0 / 64.0 * inch
)

// Placement of the sensors inside the 2014 modules.
var (
	longAxialHole = v3.Vec{X: -1.382 * inch, Y: 3.887 * inch, Z: -0.23 * inch}
	longSlotStep  = (7.863 - 3.887) * inch
	moduleSideGap = 2 * (-0.375*inch + 0.23*inch)
)

// Survey points of the U-channel cones, relative to the survey ball midpoint.
var (
	frontBottomBall = v3.Vec{X: -46.446, Y: 241.184, Z: -8.423}
	frontBottomVee  = v3.Vec{X: 0.5 * (-6.493 - 2.836), Y: 0.5 * (9.353 - 9.638)}
	frontBottomFlat = v3.Vec{X: -6.253 + 6.493, Y: 1.483 - 9.353}
	frontTopBall    = v3.Vec{X: -46.930, Y: 257.052, Z: 8.423}
	frontTopVee     = v3.Vec{X: 0.5 * (2.817 + 6.512), Y: 0.5 * (10.262 - 9.978)}
	frontTopFlat    = v3.Vec{X: 3.057 - 2.817, Y: 2.392 - 10.262}

	rearBottomBall = v3.Vec{X: -5.857, Y: -157.776, Z: -8.423}
	rearBottomVee  = v3.Vec{X: 0.5 * (-7.019 - 6.558) * inch, Y: 0.5 * (-6.419 + 6.005) * inch}
	rearBottomFlat = v3.Vec{X: (7.038 - 6.558) * inch, Y: (-21.745 + 6.005) * inch}
	rearTopBall    = v3.Vec{X: -6.341, Y: -141.909, Z: 8.423}
	rearTopVee     = v3.Vec{X: 0.5 * (6.539 + 7.038) * inch, Y: 0.5 * (-5.380 + 5.794) * inch}
	rearTopFlat    = v3.Vec{X: (-6.558 + 7.038) * inch, Y: (-21.535 + 5.794) * inch}
)

func offsetSurvey(ball, vee, flat v3.Vec) Survey {
	return Survey{Ball: ball, Vee: ball.Add(vee), Flat: ball.Add(flat)}
}

func kinMountBall(z float64) v3.Vec {
	return v3.Vec{X: kinMountX, Y: kinMountY, Z: z}
}

// svtEnvelope is the chamber, SVT box and base plate shared by the 2014
// and 2019 layouts.
func svtEnvelope() []VolumeSpec {
	return []VolumeSpec{
		{
			Name:   "chamber",
			Mother: trackingVolume,
			Survey: Survey{
				Ball: chamberBall,
				Vee:  chamberBall.Add(geom.UnitX),
				Flat: chamberBall.Sub(geom.UnitZ),
			},
			Box:      chamberBox,
			Material: "Vacuum",
		},
		{
			Name:     "base",
			Mother:   "chamber",
			Survey:   CanonicalAt(v3.Vec{}),
			Box:      svtBoxBox,
			Material: "Vacuum",
		},
		{
			Name:     "base_plate",
			Mother:   "base",
			Survey:   CanonicalAt(basePlateBall),
			Box:      basePlateBox,
			Center:   basePlateCenter,
			Material: "Aluminum",
		},
	}
}

// uChannel returns a U-channel support and its plate. The channel hangs
// below the cones; the plate sits under the side plates.
func uChannel(suffix string, half alignment.Half, survey Survey, ref string, width, length, plateHeight, coneToEdge float64, front bool, rule CorrectionRule) []VolumeSpec {
	sign := 1.0
	if !front {
		sign = -1.0
	}
	y := sign * (coneToEdge - length/2.0)
	name := "support_" + half.String() + "_" + suffix
	channel := VolumeSpec{
		Name:       name,
		Mother:     "base",
		Survey:     survey,
		Box:        v3.Vec{X: width, Y: length, Z: uChannelHeight},
		Center:     v3.Vec{Y: y, Z: -sidePlateConeY - plateHeight + uChannelHeight/2.0},
		Material:   "Aluminum",
		Half:       half,
		Correction: rule,
	}
	if ref != "" {
		channel.Refs = []string{ref}
	}
	plate := VolumeSpec{
		Name:     "support_plate_" + half.String() + "_" + suffix,
		Mother:   "base",
		Survey:   CanonicalAt(v3.Vec{}),
		Box:      v3.Vec{X: width, Y: length, Z: plateHeight},
		Center:   v3.Vec{Y: y, Z: -sidePlateConeY - plateHeight/2.0},
		Material: "Aluminum",
		Refs:     []string{name},
		Half:     half,
	}
	return []VolumeSpec{channel, plate}
}

func kinMount(suffix string, half alignment.Half, z float64, rule CorrectionRule) VolumeSpec {
	return VolumeSpec{
		Name:       "c_support_kin_" + suffix + half.Letter(),
		Mother:     "base",
		Survey:     CanonicalAt(kinMountBall(z)),
		Ghost:      true,
		Half:       half,
		Correction: rule,
	}
}

// frontModule hangs a module from a front U-channel. Bottom holes sit on
// the +x side of the channel, top holes on the -x side.
func frontModule(half alignment.Half, ref string, along, vertical float64) ModuleSpec {
	x, flat := frontHoleAcross, -1.0
	if half == alignment.HalfTop {
		x, flat = -frontHoleAcross, 1.0
	}
	return moduleAt(ref, v3.Vec{X: x, Y: along, Z: vertical}, flat)
}

func rearModule(half alignment.Half, ref string, layer, firstRear int) ModuleSpec {
	x, y, flat := rearHoleAcross, rearHoleAlong, -1.0
	if half == alignment.HalfTop {
		x, y, flat = -rearHoleAcross, -rearHoleAlong, 1.0
	}
	step := float64(layer - firstRear)
	return moduleAt(ref, v3.Vec{X: x, Y: y + step*rearLayerPitch, Z: rearHoleVertical - step*rearLayerStepDown}, flat)
}

func moduleAt(ref string, hole v3.Vec, flat float64) ModuleSpec {
	return ModuleSpec{
		Mother: "base",
		Ref:    ref,
		Survey: Survey{
			Ball: hole,
			Vee:  hole.Sub(geom.UnitZ),
			Flat: hole.Add(v3.Vec{X: flat}),
		},
	}
}

func moduleCenter(length, pinOffset float64) v3.Vec {
	return v3.Vec{X: -moduleWidth / 2.0, Y: -holeToModuleEdge + length/2.0, Z: -pinOffset}
}

func tracker2014() *Descriptor {
	d := &Descriptor{Version: Tracker2014}
	d.Volumes = append(d.Volumes, svtEnvelope()...)
	for _, half := range []alignment.Half{alignment.HalfBottom, alignment.HalfTop} {
		z, ball, vee, flat, edge := kinMountBottomZ, frontBottomBall, frontBottomVee, frontBottomFlat, frontConeToEdgeBot
		if half == alignment.HalfTop {
			z, ball, vee, flat, edge = kinMountTopZ, frontTopBall, frontTopVee, frontTopFlat, frontConeToEdgeTop
		}
		kin := kinMount("L13", half, z, UChannelRotation)
		d.Volumes = append(d.Volumes, kin)
		d.Volumes = append(d.Volumes, uChannel("L13", half, offsetSurvey(ball.Sub(kinMountBall(z)), vee, flat),
			kin.Name, frontPlateWidth, frontPlateLength, frontPlateHeight, edge, true, NoCorrection)...)
	}
	d.Volumes = append(d.Volumes, rearChannels(NoCorrection)...)

	for l := 1; l <= 6; l++ {
		ls := LayerSpec{Layer: l, Sensor: hpsSensor, SideGap: moduleSideGap}
		if l <= 3 {
			ls.Shape = ShortBundle
			ls.StereoAngle = 0.1
			ls.Box = v3.Vec{X: moduleWidth, Y: shortModuleLength, Z: moduleHeight}
			ls.Center = moduleCenter(shortModuleLength, frontPinOffset())
			ls.Axial = v3.Vec{X: ls.Center.X, Y: ls.Center.Y - hybridLength/2.0, Z: longAxialHole.Z}
			vertical := frontHoleVertical - float64(l-1)*frontLayerStepDown
			ls.Bottom = frontModule(alignment.HalfBottom, "support_bottom_L13", 9.525+float64(l-1)*100.0, vertical)
			ls.Top = frontModule(alignment.HalfTop, "support_top_L13", -9.525+float64(l-1)*100.0, vertical)
		} else {
			ls.Shape = LongBundle
			ls.StereoAngle = 0.05
			ls.Box = v3.Vec{X: moduleWidth, Y: longModuleLength, Z: moduleHeight}
			ls.Center = moduleCenter(longModuleLength, rearPinOffset())
			ls.Axial = longAxialHole
			ls.SlotOffset = longSlotStep
			ls.Bottom = rearModule(alignment.HalfBottom, "support_bottom_L46", l, 4)
			ls.Top = rearModule(alignment.HalfTop, "support_top_L46", l, 4)
		}
		d.Layers = append(d.Layers, ls)
	}
	return d
}

// rearChannels returns the L4-6 U-channels and plates of both halves.
func rearChannels(rule CorrectionRule) []VolumeSpec {
	var out []VolumeSpec
	out = append(out, uChannel("L46", alignment.HalfBottom, offsetSurvey(rearBottomBall, rearBottomVee, rearBottomFlat),
		"", rearPlateWidth, rearPlateLength, rearPlateHeight, rearConeToEdgeBot, false, rule)...)
	out = append(out, uChannel("L46", alignment.HalfTop, offsetSurvey(rearTopBall, rearTopVee, rearTopFlat),
		"", rearPlateWidth, rearPlateLength, rearPlateHeight, rearConeToEdgeTop, false, rule)...)
	return out
}

// frontPinOffset is the distance between the module pin and the module
// centre plane. Top and bottom plates differ by a micron; the bottom value
// is used for both.
func frontPinOffset() float64 {
	return math.Abs(frontConeToEdgeBot - frontModulePinBottom)
}

func rearPinOffset() float64 {
	return math.Abs(rearConeToEdgeBot - rearModulePinBot)
}
