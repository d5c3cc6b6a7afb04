package graph

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// NodeID is the stable index of a node within its Tree.
type NodeID int

// NoNode marks the absence of a node, e.g. the mother of the root.
const NoNode NodeID = -1

// Valid reports whether id can address a node.
func (id NodeID) Valid() bool { return id >= 0 }

// Kind classifies volumes for identifiers and reporting.
type Kind int

const (
	KindVolume       Kind = iota // generic volume
	KindWorld                    // caller-supplied tracking volume, never instantiated
	KindEnvelope                 // chamber, SVT box, base
	KindSupport                  // U-channels, C-supports, kinematic mounts
	KindSupportPlate             // support plates
	KindModule                   // module bundle
	KindHalfModule               // axial or stereo half-module
	KindSensor                   // sensor wafer
	KindActiveSensor             // sensitive region of a sensor
	KindComponent                // lamination, carbon fiber, hybrid, cold block
)

func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindWorld:
		return "world"
	case KindEnvelope:
		return "envelope"
	case KindSupport:
		return "support"
	case KindSupportPlate:
		return "support-plate"
	case KindModule:
		return "module"
	case KindHalfModule:
		return "half-module"
	case KindSensor:
		return "sensor"
	case KindActiveSensor:
		return "active-sensor"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Node is one volume in the tree.
type Node struct {
	ID       NodeID
	Name     string
	Kind     Kind
	Local    geom.CoordinateFrame // relative to the mother
	Center   v3.Vec               // box centre in the local frame
	Box      v3.Vec               // full box dimensions
	Material string
	Ghost    bool
	Refs     []string // reference volumes applied to Local by Tree.Resolve

	Mother    NodeID
	Daughters []NodeID

	// Correction is folded into Local by Tree.Resolve.
	Correction *geom.RigidTransform

	resolved bool
}

// IsRoot reports whether n has no mother.
func (n *Node) IsRoot() bool { return n.Mother == NoNode }

// Physical reports whether backends instantiate n.
func (n *Node) Physical() bool { return !n.Ghost && n.Kind != KindWorld }
