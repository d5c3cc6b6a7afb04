package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
)

// --- Identifiers ---

func TestComponentFromName(t *testing.T) {
	tests := []struct {
		name string
		want Component
		ok   bool
	}{
		{"module_L1t_halfmodule_axial", ComponentNone, true},
		{"module_L4b_halfmodule_stereo_slot", ComponentNone, true},
		{"module_L1t_halfmodule_axial_sensor", ComponentSensor, true},
		{"module_L1t_halfmodule_axial_sensor_active", ComponentActive, true},
		{"module_L1t_halfmodule_axial_cf", ComponentCarbon, true},
		{"module_L1t_halfmodule_axial_lamination", ComponentLamination, true},
		{"module_L1t_halfmodule_axial_hybrid", ComponentHybrid, true},
		{"module_L1t", 0, false},
		{"module_L1t_coldblock", 0, false},
		{"support_plate_bottom_L13", 0, false},
	}
	for _, tt := range tests {
		got, ok := ComponentFromName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, got, tt.name)
		}
	}
}

func TestIdentify(t *testing.T) {
	tests := []struct {
		name string
		want Identifier
	}{
		{"module_L1t_halfmodule_axial_sensor", Identifier{System: 1, Half: alignment.HalfTop, Layer: 1, Module: 0, Millepede: 1, Component: ComponentSensor}},
		{"module_L1b_halfmodule_axial_sensor", Identifier{System: 1, Half: alignment.HalfBottom, Layer: 2, Module: 1, Millepede: 2, Component: ComponentSensor}},
		{"module_L4t_halfmodule_stereo_slot_sensor_active", Identifier{System: 1, Half: alignment.HalfTop, Layer: 8, Module: 2, Millepede: 10, Component: ComponentActive}},
		{"module_L6b_halfmodule_axial_hole", Identifier{System: 1, Half: alignment.HalfBottom, Layer: 12, Module: 1, Millepede: 16, Component: ComponentNone}},
	}
	for _, tt := range tests {
		got, ok, err := Identify(tt.name, 1, 4)
		require.NoError(t, err, tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, ok, err := Identify("support_bottom_L46", 1, 4)
	assert.NoError(t, err)
	assert.False(t, ok, "support volume identified")

	_, _, err = Identify("module_Lxb_halfmodule_axial_sensor", 1, 4)
	assert.Error(t, err, "a name without a layer")
}

func TestPackDistinguishesParts(t *testing.T) {
	seen := map[int64]string{}
	for _, name := range []string{
		"module_L4t_halfmodule_axial_hole",
		"module_L4t_halfmodule_axial_hole_sensor",
		"module_L4t_halfmodule_axial_hole_sensor_active",
		"module_L4t_halfmodule_axial_slot_sensor",
		"module_L4t_halfmodule_stereo_hole_sensor",
		"module_L4b_halfmodule_axial_hole_sensor",
		"module_L5t_halfmodule_axial_hole_sensor",
	} {
		id, _, err := Identify(name, 1, 4)
		require.NoError(t, err)
		prev, dup := seen[id.Pack()]
		assert.False(t, dup, "%s and %s pack to %d", prev, name, id.Pack())
		seen[id.Pack()] = name
	}
}
