package definition

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
)

// The 2019 front support is 50 mm longer to take a fourth layer.
const (
	frontPlateLength2019 = frontPlateLength + 50.0
	newModuleShiftAlong  = -50.0
	newModuleStepDown    = 0.300
	movedModuleStepUp    = 0.7
)

func tracker2019() *Descriptor {
	d := &Descriptor{Version: Tracker2019}
	d.Volumes = append(d.Volumes, svtEnvelope()...)
	for _, half := range []alignment.Half{alignment.HalfBottom, alignment.HalfTop} {
		z, ball, vee, flat, edge := kinMountBottomZ, frontBottomBall, frontBottomVee, frontBottomFlat, frontConeToEdgeBot
		if half == alignment.HalfTop {
			z, ball, vee, flat, edge = kinMountTopZ, frontTopBall, frontTopVee, frontTopFlat, frontConeToEdgeTop
		}
		kin := kinMount("L14", half, z, FrontSupport)
		d.Volumes = append(d.Volumes, kin)
		d.Volumes = append(d.Volumes, uChannel("L14", half, offsetSurvey(ball.Sub(kinMountBall(z)), vee, flat),
			kin.Name, frontPlateWidth, frontPlateLength2019, frontPlateHeight, edge, true, NoCorrection)...)
	}
	d.Volumes = append(d.Volumes, rearChannels(RearSupport)...)

	for l := 1; l <= 7; l++ {
		ls := LayerSpec{Layer: l, SideGap: moduleSideGap, ModuleAligned: true}
		switch {
		case l <= 2:
			// new layers share the 2014 L1 holes
			ls.Shape = OneSensorBundle
			ls.Sensor = shortSensor
			ls.StereoAngle = 0.1
			ls.Box = v3.Vec{X: moduleWidth, Y: longModuleLength, Z: moduleHeight}
			ls.Center = moduleCenter(longModuleLength, frontPinOffset())
			ls.Axial = v3.Vec{X: longAxialHole.X, Y: ls.Center.Y, Z: longAxialHole.Z}
			along, vertical := newModuleShiftAlong, frontHoleVertical
			if l == 2 {
				along, vertical = 0, frontHoleVertical-newModuleStepDown
			}
			ls.Bottom = frontModule(alignment.HalfBottom, "support_bottom_L14", 9.525+along, vertical)
			ls.Top = frontModule(alignment.HalfTop, "support_top_L14", -9.525+along, vertical)
		case l <= 4:
			// the 2014 L2 and L3 modules, raised
			ls.Shape = ShortBundle
			ls.Sensor = hpsSensor
			ls.StereoAngle = 0.1
			ls.Box = v3.Vec{X: moduleWidth, Y: shortModuleLength, Z: moduleHeight}
			ls.Center = moduleCenter(shortModuleLength, frontPinOffset())
			ls.Axial = v3.Vec{X: ls.Center.X, Y: ls.Center.Y - hybridLength/2.0, Z: longAxialHole.Z}
			step := float64(l - 2)
			vertical := frontHoleVertical - step*frontLayerStepDown + movedModuleStepUp
			ls.Bottom = frontModule(alignment.HalfBottom, "support_bottom_L14", 9.525+step*100.0, vertical)
			ls.Top = frontModule(alignment.HalfTop, "support_top_L14", -9.525+step*100.0, vertical)
		default:
			ls.Shape = LongBundle
			ls.Sensor = hpsSensor
			ls.StereoAngle = 0.05
			ls.Box = v3.Vec{X: moduleWidth, Y: longModuleLength, Z: moduleHeight}
			ls.Center = moduleCenter(longModuleLength, rearPinOffset())
			ls.Axial = longAxialHole
			ls.SlotOffset = longSlotStep
			ls.Bottom = rearModule(alignment.HalfBottom, "support_bottom_L46", l, 5)
			ls.Top = rearModule(alignment.HalfTop, "support_top_L46", l, 5)
		}
		d.Layers = append(d.Layers, ls)
	}
	return d
}
