// Package vis assigns visualization tags to volumes by name.
package vis

import "strings"

// Tag names a visualization style. The style behind a tag is the backend's
// concern.
type Tag string

const (
	None          Tag = ""
	BasePlate     Tag = "BasePlateVis"
	Chamber       Tag = "ChamberVis"
	SupportVolume Tag = "SupportVolumeVis"
	SupportPlate  Tag = "SupportPlateVis"
	HalfModule    Tag = "HalfModuleVis"
	ColdBlock     Tag = "ColdBlockVis"
	Kapton        Tag = "KaptonVis"
	Sensor        Tag = "SensorVis"
	CarbonFiber   Tag = "CarbonFiberVis"
	Hybrid        Tag = "HybridVis"
	Module        Tag = "ModuleVis"
)

// All lists every tag a rule can assign, in declaration order.
var All = []Tag{BasePlate, Chamber, SupportVolume, SupportPlate, HalfModule, ColdBlock, Kapton, Sensor, CarbonFiber, Hybrid, Module}

// Match selects how a rule's pattern is compared with a name.
type Match int

const (
	Contains Match = iota
	Suffix
	Prefix
	Always // matches every name
)

// Rule maps a name pattern to a tag. Scoped rules only apply to volumes
// inside a module bundle: the module itself or anything placed under it.
type Rule struct {
	Match   Match
	Pattern string
	Scoped  bool
	Tag     Tag
}

func (r Rule) matches(name string, inModule bool) bool {
	if r.Scoped && !inModule {
		return false
	}
	switch r.Match {
	case Always:
		return true
	case Suffix:
		return strings.HasSuffix(name, r.Pattern)
	case Prefix:
		return strings.HasPrefix(name, r.Pattern)
	default:
		return strings.Contains(name, r.Pattern)
	}
}

// DefaultRules is evaluated top to bottom; the first match wins. The final
// rule gives every other volume in a module bundle the generic module style,
// whatever its name.
var DefaultRules = []Rule{
	{Contains, "base_plate", false, BasePlate},
	{Contains, "chamber", false, Chamber},
	{Contains, "support_top", false, SupportVolume},
	{Contains, "support_bottom", false, SupportVolume},
	{Contains, "support_plate", false, SupportPlate},

	{Suffix, "halfmodule_axial", true, HalfModule},
	{Suffix, "halfmodule_stereo", true, HalfModule},
	{Suffix, "halfmodule_axial_hole", true, HalfModule},
	{Suffix, "halfmodule_stereo_hole", true, HalfModule},
	{Suffix, "halfmodule_axial_slot", true, HalfModule},
	{Suffix, "halfmodule_stereo_slot", true, HalfModule},
	{Suffix, "cold", true, ColdBlock},
	{Suffix, "coldblock", true, ColdBlock},
	{Suffix, "lamination", true, Kapton},
	{Suffix, "sensor_active", true, Sensor},
	{Suffix, "_active", true, Sensor},
	{Suffix, "sensor", true, Sensor},
	{Suffix, "cf", true, CarbonFiber},
	{Suffix, "hybrid", true, Hybrid},
	{Always, "", true, Module},
}

// Rules is an ordered rule table.
type Rules []Rule

// Assign returns the tag of the first rule matching name, or None.
// inModule reports whether the volume is a module or sits below one.
func (rs Rules) Assign(name string, inModule bool) Tag {
	for _, r := range rs {
		if r.matches(name, inModule) {
			return r.Tag
		}
	}
	return None
}

// Assign applies DefaultRules.
func Assign(name string, inModule bool) Tag {
	return Rules(DefaultRules).Assign(name, inModule)
}
