package definition

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// Test-run base and support plates.
const (
	trBaseWidth          = 385.00
	trBaseLength         = 1216.00
	trBaseHeight         = 171.45 - 2.0
	trBasePlateThickness = 0.25 * inch
	trPlateLength        = 736.1
	trPlateWidth         = 120.0
	trPlateHeight        = 12.7
	trPocketDepth        = 6.65
	trPlateOffsetZ       = 6.66 + 1.34
	trSupportWidth       = 20.0 + trModuleLength
	trSupportHeight      = trPlateHeight - trPocketDepth + 58.3 + 15.0 + 11.0
	trBearingsTopZ       = 146.4
	trModuleLength       = 205.2 + 10.0
	trModuleHeight       = 12.5 + 1.0
	trModuleWidthL13     = 71.3 - 13.0 + 15.0
	trModuleWidthL45     = 65.3 - 12.0 + 15.0
)

var (
	trPedestals       = [...]float64{11.00, 9.50, 8.00, 10.00, 7.00}
	trPocketBottomY   = [...]float64{661.1, 561.1, 461.1, 261.1, 61.1}
	trPocketTopY      = [...]float64{676.1, 576.1, 476.1, 276.1, 76.1}
	trCSupportPin     = v3.Vec{X: 51.15, Y: 115.02, Z: trBasePlateThickness}
	trCSupportPinVee  = v3.Vec{X: 271.05, Y: 121.62, Z: trBasePlateThickness}
	trBearingsBottom  = v3.Vec{X: 240.0 - 265.0 + 14.0, Y: -6.0 + 22.0, Z: 14.7}
	trBearingsBotVeeX = 240.0 - 129.0
)

// trModule places a test-run module in its plate pocket. The module u axis
// points away from the plate and v runs across the beam.
func trModule(half alignment.Half, layer int) ModuleSpec {
	h := trPedestals[layer-1] - trPocketDepth
	ball := v3.Vec{X: 25.0, Y: trPocketBottomY[layer-1], Z: h}
	vee := ball.Add(geom.UnitZ)
	plate := "support_plate_bottom"
	if half == alignment.HalfTop {
		ball = v3.Vec{X: 25.0, Y: trPocketTopY[layer-1], Z: -h}
		vee = ball.Sub(geom.UnitZ)
		plate = "support_plate_top"
	}
	return ModuleSpec{
		Mother: "base",
		Ref:    plate,
		Survey: Survey{Ball: ball, Vee: vee, Flat: ball.Add(geom.UnitX)},
	}
}

func testRun() *Descriptor {
	d := &Descriptor{Version: TestRun2014}
	bottomBall := trBearingsBottom
	topBall := v3.Vec{X: trBearingsBottom.X, Y: trBearingsBottom.Y, Z: trBearingsTopZ}
	d.Volumes = []VolumeSpec{
		{
			Name:     "base",
			Mother:   trackingVolume,
			Survey:   CanonicalAt(v3.Vec{}),
			Box:      v3.Vec{X: trBaseWidth, Y: trBaseLength, Z: trBaseHeight},
			Center:   v3.Vec{X: trBaseWidth / 2, Y: trBaseLength / 2, Z: trBaseHeight / 2},
			Material: "Vacuum",
		},
		{
			Name:     "base_plate",
			Mother:   "base",
			Survey:   CanonicalAt(v3.Vec{}),
			Box:      v3.Vec{X: trBaseWidth, Y: trBaseLength, Z: trBasePlateThickness},
			Center:   v3.Vec{X: trBaseWidth / 2, Y: trBaseLength / 2, Z: trBasePlateThickness / 2},
			Material: "Aluminum",
		},
		{
			Name:   "c_support",
			Mother: "base",
			Survey: Survey{
				Ball: trCSupportPin,
				Vee:  trCSupportPinVee,
				Flat: trCSupportPin.Add(geom.UnitY),
			},
			Ghost: true,
		},
		{
			Name:   "support_bottom",
			Mother: "base",
			Survey: Survey{
				Ball: bottomBall,
				Vee:  v3.Vec{X: trBearingsBotVeeX, Y: bottomBall.Y, Z: bottomBall.Z},
				Flat: bottomBall.Add(geom.UnitY),
			},
			Box:        v3.Vec{X: trSupportWidth, Y: trPlateLength, Z: trSupportHeight},
			Center:     v3.Vec{X: trSupportWidth / 2, Y: trPlateLength / 2, Z: trSupportHeight / 2},
			Material:   "Aluminum",
			Refs:       []string{"c_support"},
			Half:       alignment.HalfBottom,
			Correction: UChannelRotation,
		},
		{
			Name:     "support_plate_bottom",
			Mother:   "base",
			Survey:   CanonicalAt(v3.Vec{X: 1.0, Y: 17.0 - 5.0, Z: trPlateOffsetZ}),
			Box:      v3.Vec{X: trPlateWidth, Y: trPlateLength, Z: trPlateHeight},
			Center:   v3.Vec{X: trPlateWidth / 2, Y: trPlateLength / 2, Z: -trPlateHeight / 2},
			Material: "Aluminum",
			Refs:     []string{"support_bottom"},
		},
		{
			Name:   "support_top",
			Mother: "base",
			Survey: Survey{
				Ball: topBall,
				Vee:  v3.Vec{X: trBearingsBotVeeX, Y: topBall.Y, Z: topBall.Z},
				Flat: topBall.Add(geom.UnitY),
			},
			Box:        v3.Vec{X: trSupportWidth, Y: trPlateLength, Z: trSupportHeight},
			Center:     v3.Vec{X: trSupportWidth / 2, Y: trPlateLength / 2, Z: -trSupportHeight / 2},
			Material:   "Aluminum",
			Refs:       []string{"c_support"},
			Half:       alignment.HalfTop,
			Correction: UChannelRotation,
		},
		{
			Name:     "support_plate_top",
			Mother:   "base",
			Survey:   CanonicalAt(v3.Vec{X: 1.0, Y: 17.0 - 5.0, Z: -trPlateOffsetZ}),
			Box:      v3.Vec{X: trPlateWidth, Y: trPlateLength, Z: trPlateHeight},
			Center:   v3.Vec{X: trPlateWidth / 2, Y: trPlateLength / 2, Z: trPlateHeight / 2},
			Material: "Aluminum",
			Refs:     []string{"support_top"},
		},
	}

	for l := 1; l <= 5; l++ {
		ls := LayerSpec{
			Layer:       l,
			Shape:       ShortBundle,
			Sensor:      hpsSensor,
			StereoAngle: -0.1,
			Box:         v3.Vec{X: trModuleWidthL13, Y: trModuleLength, Z: trModuleHeight},
			Bottom:      trModule(alignment.HalfBottom, l),
			Top:         trModule(alignment.HalfTop, l),
			SideGap:     6.0,
			ColdBlock:   true,
		}
		if l > 3 {
			ls.StereoAngle = -0.05
			ls.Box.X = trModuleWidthL45
		}
		ls.Center = v3.Vec{X: ls.Box.X / 2, Y: 80.0}
		ls.Axial = v3.Vec{X: ls.Box.X / 2, Y: 50.0, Z: -3.0}
		d.Layers = append(d.Layers, ls)
	}
	return d
}
