// Package kernel defines the contract between the volume tree builder and
// the backends that instantiate placed volumes. Backends (detel, gdml,
// sdfx) receive one Placement per physical volume, mothers first, and
// hand back a Handle the builder uses when placing daughters.
package kernel

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/vis"
)

// Handle is a backend's reference to an instantiated volume.
type Handle int

// World is the handle of the caller-supplied tracking volume. Backends
// never create it.
const World Handle = -1

// Placement is a volume positioned in its physical mother.
type Placement struct {
	Name   string
	Mother string // physical mother, graph.WorldName at the top
	Kind   graph.Kind

	// Position is the box centre relative to the mother's box centre and
	// Rotation takes local vectors into the mother frame.
	Position v3.Vec
	Rotation geom.Rotation

	// Global takes local coordinates into the tracking volume.
	// GlobalCenter is the box centre there.
	Global       geom.RigidTransform
	GlobalCenter v3.Vec

	Box      v3.Vec
	Material string
	Vis      vis.Tag
}

func (p Placement) String() string {
	return fmt.Sprintf("%s in %s at (%g, %g, %g)", p.Name, p.Mother, p.Position.X, p.Position.Y, p.Position.Z)
}

// Sink instantiates placements.
type Sink interface {
	// Create instantiates p inside mother and returns its handle.
	Create(p Placement, mother Handle) (Handle, error)
	// Lookup finds the handle of a volume created earlier.
	Lookup(name string) (Handle, bool)
}
