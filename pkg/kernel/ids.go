package kernel

import (
	"fmt"
	"strings"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

// Component numbers the parts of a half-module.
type Component int

const (
	ComponentNone       Component = -1 // the half-module itself
	ComponentSensor     Component = 0
	ComponentCarbon     Component = 1
	ComponentLamination Component = 2
	ComponentHybrid     Component = 3
	ComponentActive     Component = 4
)

func (c Component) String() string {
	switch c {
	case ComponentNone:
		return "half-module"
	case ComponentSensor:
		return "sensor"
	case ComponentCarbon:
		return "cf"
	case ComponentLamination:
		return "lamination"
	case ComponentHybrid:
		return "hybrid"
	case ComponentActive:
		return "active"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// componentSuffixes is checked in order; _sensor_active must win over
// _sensor.
var componentSuffixes = []struct {
	suffix string
	c      Component
}{
	{"_sensor_active", ComponentActive},
	{"_sensor", ComponentSensor},
	{"_cf", ComponentCarbon},
	{"_lamination", ComponentLamination},
	{"_hybrid", ComponentHybrid},
}

// ComponentFromName classifies a half-module or one of its parts.
func ComponentFromName(name string) (Component, bool) {
	if graph.IsHalfModule(name) {
		return ComponentNone, true
	}
	if !strings.Contains(name, "_halfmodule_") {
		return 0, false
	}
	for _, s := range componentSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.c, true
		}
	}
	return 0, false
}

// Identifier locates a sensor part in the readout numbering.
type Identifier struct {
	System    int
	Half      alignment.Half
	Layer     int // two sensors per layer, as in OldLayerDefinition
	Module    int // 0 top, 1 bottom, plus 2 for slot sensors
	Millepede int // sensor number used by alignment parameters
	Component Component
}

// Pack folds the identifier into one integer. Distinct half-module parts
// of one detector pack to distinct values.
func (id Identifier) Pack() int64 {
	c := int64(id.Component) + 1
	return int64(id.System) |
		int64(id.Half)<<8 |
		int64(id.Millepede)<<12 |
		int64(id.Module)<<20 |
		c<<24
}

func (id Identifier) String() string {
	return fmt.Sprintf("system=%d half=%s layer=%d module=%d millepede=%d %s",
		id.System, id.Half, id.Layer, id.Module, id.Millepede, id.Component)
}

// Identify derives the identifier of a half-module or one of its parts
// from its name. The boolean is false for volumes outside half-modules.
func Identify(name string, system, firstLong int) (Identifier, bool, error) {
	comp, ok := ComponentFromName(name)
	if !ok {
		return Identifier{}, false, nil
	}
	half, err := graph.HalfFromName(name)
	if err != nil {
		return Identifier{}, true, err
	}
	layer := graph.LayerFromName(name)
	if layer == 0 {
		return Identifier{}, true, fmt.Errorf("kernel: no layer in %q", name)
	}
	axial, err := graph.IsAxialFromName(name)
	if err != nil {
		return Identifier{}, true, err
	}
	hole := !strings.Contains(name, "_slot")
	top := half == alignment.HalfTop

	id := Identifier{
		System:    system,
		Half:      half,
		Layer:     alignment.OldLayerDefinition(top, layer, axial),
		Millepede: alignment.MillepedeLayer(top, layer, axial, hole, firstLong),
		Component: comp,
	}
	if !top {
		id.Module = 1
	}
	if !hole {
		id.Module += 2
	}
	return id, true, nil
}
