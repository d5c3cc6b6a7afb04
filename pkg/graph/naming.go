package graph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
)

var (
	halfSuffixRe = regexp.MustCompile(`_L\d\d?([tb])`)
	layerRe      = regexp.MustCompile(`module_L(\d+)`)
	moduleRe     = regexp.MustCompile(`^module_L\d+[bt]$`)
	uChannelRe   = regexp.MustCompile(`^support_[a-z]*_L(13|14|46)$`)
	kinMountRe   = regexp.MustCompile(`^c_support_kin_L1[34](b|t)$`)
)

var halfModuleSuffixes = []string{
	"halfmodule_axial",
	"halfmodule_axial_hole",
	"halfmodule_axial_slot",
	"halfmodule_stereo",
	"halfmodule_stereo_hole",
	"halfmodule_stereo_slot",
}

// HalfFromName finds the detector half a volume belongs to, first from a
// "top"/"bottom" token, then from an _L<n>t / _L<n>b signature.
func HalfFromName(name string) (alignment.Half, error) {
	top := strings.Contains(name, "top")
	bottom := strings.Contains(name, "bottom")
	switch {
	case top && bottom:
		return 0, fmt.Errorf("graph: %q names both halves", name)
	case top:
		return alignment.HalfTop, nil
	case bottom:
		return alignment.HalfBottom, nil
	}
	if m := halfSuffixRe.FindStringSubmatch(name); m != nil {
		if m[1] == "t" {
			return alignment.HalfTop, nil
		}
		return alignment.HalfBottom, nil
	}
	return 0, fmt.Errorf("graph: no half found in %q", name)
}

// LayerFromName returns the layer of a module_L<n> volume, or 0 if the name
// carries none.
func LayerFromName(name string) int {
	m := layerRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	l, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return l
}

// IsModule matches whole module bundles such as module_L4b.
func IsModule(name string) bool { return moduleRe.MatchString(name) }

// IsHalfModule matches axial and stereo half-modules, with or without a
// hole/slot position.
func IsHalfModule(name string) bool {
	for _, s := range halfModuleSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// IsSensor matches sensor wafers but not their active regions.
func IsSensor(name string) bool { return strings.HasSuffix(name, "sensor") }

// IsActiveSensor matches the sensitive part of a sensor.
func IsActiveSensor(name string) bool {
	return strings.HasSuffix(name, "sensor_active") || strings.HasSuffix(name, "_active")
}

// IsUChannelSupport matches the front (L13 or L14) and rear (L46) U-channel supports.
func IsUChannelSupport(name string) bool { return uChannelRe.MatchString(name) }

// IsKinMount matches the kinematic mount ghost of the front support.
func IsKinMount(name string) bool { return kinMountRe.MatchString(name) }

// IsAxialFromName reports whether a half-module name is axial or stereo.
func IsAxialFromName(name string) (bool, error) {
	switch {
	case strings.Contains(name, "axial"):
		return true, nil
	case strings.Contains(name, "stereo"):
		return false, nil
	}
	return false, fmt.Errorf("graph: no axial or stereo key in %q", name)
}

// IsHoleFromName reports whether a long half-module sits in the hole or the
// slot position.
func IsHoleFromName(name string) (bool, error) {
	switch {
	case strings.Contains(name, "hole"):
		return true, nil
	case strings.Contains(name, "slot"):
		return false, nil
	}
	return false, fmt.Errorf("graph: no hole or slot key in %q", name)
}

// KindFromName classifies a volume by its name.
func KindFromName(name string) Kind {
	switch {
	case name == WorldName:
		return KindWorld
	case IsActiveSensor(name):
		return KindActiveSensor
	case IsSensor(name):
		return KindSensor
	case IsHalfModule(name):
		return KindHalfModule
	case IsModule(name):
		return KindModule
	case strings.HasPrefix(name, "module_"):
		return KindComponent
	case strings.Contains(name, "support_plate"):
		return KindSupportPlate
	case strings.Contains(name, "support"):
		return KindSupport
	case strings.Contains(name, "chamber") || strings.HasSuffix(name, "base") || strings.Contains(name, "base_plate"):
		return KindEnvelope
	default:
		return KindVolume
	}
}
