package vis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssign(t *testing.T) {
	tests := []struct {
		name string
		want Tag
	}{
		{"base_plate", BasePlate},
		{"chamber", Chamber},
		{"support_bottom_L13", SupportVolume},
		{"support_top_L46", SupportVolume},
		{"support_plate_bottom_L13", SupportPlate},
		{"support_plate_top_L46", SupportPlate},
		{"module_L1t", Module},
		{"module_L1t_halfmodule_axial", HalfModule},
		{"module_L4b_halfmodule_stereo_slot", HalfModule},
		{"module_L2b_cold", ColdBlock},
		{"module_L2b_coldblock", ColdBlock},
		{"module_L1t_halfmodule_axial_lamination", Kapton},
		{"module_L1t_halfmodule_axial_sensor", Sensor},
		{"module_L1t_halfmodule_axial_sensor_active", Sensor},
		{"module_L1t_halfmodule_axial_active", Sensor},
		{"module_L1t_halfmodule_axial_cf", CarbonFiber},
		{"module_L1t_halfmodule_axial_hybrid", Hybrid},
		{"module_L1t_halfmodule_axial_spacer", Module},
		{"base", None},
		{"c_support_kin_L13b", None},
		{"trackingVolume", None},
		// module-family suffixes only apply inside a module bundle
		{"beam_sensor", None},
		{"cf", None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assign(tt.name, strings.HasPrefix(tt.name, "module_")))
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	rules := Rules{
		{Contains, "plate", false, BasePlate},
		{Contains, "support_plate", false, SupportPlate},
	}
	assert.Equal(t, BasePlate, rules.Assign("support_plate_top_L13", false))

	// the support_plate_* volumes contain "support_" but not support_top/bottom
	assert.Equal(t, SupportPlate, Assign("support_plate_top_L13", false))
}

func TestModuleDefaultFollowsPlacement(t *testing.T) {
	assert.Equal(t, Module, Assign("spacer", true))
	assert.Equal(t, None, Assign("spacer", false))
	assert.Equal(t, Sensor, Assign("beam_sensor", true))
	assert.Equal(t, BasePlate, Assign("base_plate", true), "unscoped rules still win first")
}

func TestEmptyRules(t *testing.T) {
	assert.Equal(t, None, Rules(nil).Assign("base_plate", true))
}
