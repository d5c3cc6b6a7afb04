package alignment

// IsAxial reports whether the sensor of a short module is axial. Top
// modules carry their axial sensor on odd layers, bottom modules on even.
func IsAxial(top bool, layer int) bool {
	if top {
		return layer%2 == 1
	}
	return layer%2 == 0
}

// OldLayerDefinition is the two-sensors-per-layer numbering used by the
// test run and by short modules.
func OldLayerDefinition(top bool, layer int, axial bool) int {
	if axial == top {
		return 2*layer - 1
	}
	return 2 * layer
}

// MillepedeLayer returns the sensor number used in parameter ids.
// Layers below firstLong use OldLayerDefinition. Long modules have four
// sensors per layer: top counts axial before stereo, bottom counts stereo
// before axial, and slot sensors follow hole sensors.
func MillepedeLayer(top bool, layer int, axial, hole bool, firstLong int) int {
	if layer < firstLong {
		return OldLayerDefinition(top, layer, axial)
	}
	l := 7 + (layer-4)*4
	s := 0
	if top && !axial {
		s++
	}
	if !top && axial {
		s++
	}
	if !hole {
		s += 2
	}
	return l + s
}

// ModuleMillepedeID is the id of a whole module when modules themselves
// are aligned.
func ModuleMillepedeID(layer int) int {
	return 60 + layer
}
