// Package gdml is the markup backend. Placements are collected in memory
// and written as a GDML document: one box solid, one logical volume and
// one physvol per placed volume, with positions and rotations in the
// define section and readout ids on half-modules and their parts.
package gdml

import (
	"encoding/xml"
	"fmt"
	"io"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
)

const (
	lengthUnit = "mm"
	angleUnit  = "rad"
)

// DefaultWorldMaterial fills the tracking volume.
const DefaultWorldMaterial = "Vacuum"

type volume struct {
	p         kernel.Placement
	mother    kernel.Handle
	daughters []kernel.Handle
	ids       []PhysVolID
}

// PhysVolID is one readout field of a physvol.
type PhysVolID struct {
	Field string `xml:"field_name,attr"`
	Value int    `xml:"value,attr"`
}

// Sink collects placements for one document.
type Sink struct {
	system    int
	firstLong int
	world     v3.Vec

	// WorldMaterial defaults to DefaultWorldMaterial.
	WorldMaterial string

	volumes []*volume
	top     []kernel.Handle
	byName  map[string]kernel.Handle
}

var _ kernel.Sink = (*Sink)(nil)

// New returns an empty sink. world is the full size of the tracking volume
// box the top-level placements go into.
func New(system, firstLong int, world v3.Vec) *Sink {
	return &Sink{
		system:        system,
		firstLong:     firstLong,
		world:         world,
		WorldMaterial: DefaultWorldMaterial,
		byName:        make(map[string]kernel.Handle),
	}
}

// Create records p as a daughter of mother.
func (s *Sink) Create(p kernel.Placement, mother kernel.Handle) (kernel.Handle, error) {
	if p.Name == graph.WorldName {
		return 0, graph.StructuralError{Name: p.Name, Reason: "the tracking volume is supplied by the caller"}
	}
	if _, dup := s.byName[p.Name]; dup {
		return 0, graph.StructuralError{Name: p.Name, Reason: "duplicate volume"}
	}
	if mother != kernel.World && (mother < 0 || int(mother) >= len(s.volumes)) {
		return 0, graph.StructuralError{Name: p.Name, Reason: fmt.Sprintf("mother handle %d does not exist", mother)}
	}
	ids, err := s.physVolIDs(p.Name)
	if err != nil {
		return 0, fmt.Errorf("gdml: %w", err)
	}

	h := kernel.Handle(len(s.volumes))
	s.volumes = append(s.volumes, &volume{p: p, mother: mother, ids: ids})
	s.byName[p.Name] = h
	if mother == kernel.World {
		s.top = append(s.top, h)
	} else {
		m := s.volumes[mother]
		m.daughters = append(m.daughters, h)
	}
	return h, nil
}

// Lookup returns the handle of a recorded volume.
func (s *Sink) Lookup(name string) (kernel.Handle, bool) {
	h, ok := s.byName[name]
	return h, ok
}

// Len is the number of recorded placements.
func (s *Sink) Len() int { return len(s.volumes) }

// physVolIDs numbers half-modules by system, layer and module, and their
// parts by component. Active sensors carry sensor 0.
func (s *Sink) physVolIDs(name string) ([]PhysVolID, error) {
	id, ok, err := kernel.Identify(name, s.system, s.firstLong)
	if err != nil || !ok {
		return nil, err
	}
	switch id.Component {
	case kernel.ComponentNone:
		return []PhysVolID{
			{"system", id.System},
			{"barrel", 0},
			{"layer", id.Layer},
			{"module", id.Module},
		}, nil
	case kernel.ComponentActive:
		return []PhysVolID{{"sensor", 0}}, nil
	default:
		return []PhysVolID{{"component", int(id.Component)}}, nil
	}
}

type document struct {
	XMLName   xml.Name  `xml:"gdml"`
	Define    define    `xml:"define"`
	Solids    solids    `xml:"solids"`
	Structure structure `xml:"structure"`
	Setup     setup     `xml:"setup"`
}

type define struct {
	Positions []position `xml:"position"`
	Rotations []rotation `xml:"rotation"`
}

type position struct {
	Name string  `xml:"name,attr"`
	X    float64 `xml:"x,attr"`
	Y    float64 `xml:"y,attr"`
	Z    float64 `xml:"z,attr"`
	Unit string  `xml:"unit,attr"`
}

type rotation struct {
	Name string  `xml:"name,attr"`
	X    float64 `xml:"x,attr"`
	Y    float64 `xml:"y,attr"`
	Z    float64 `xml:"z,attr"`
	Unit string  `xml:"unit,attr"`
}

type solids struct {
	Boxes []box `xml:"box"`
}

type box struct {
	Name  string  `xml:"name,attr"`
	X     float64 `xml:"x,attr"`
	Y     float64 `xml:"y,attr"`
	Z     float64 `xml:"z,attr"`
	LUnit string  `xml:"lunit,attr"`
}

type structure struct {
	Volumes []logical `xml:"volume"`
}

type ref struct {
	Ref string `xml:"ref,attr"`
}

type auxiliary struct {
	Type  string `xml:"auxtype,attr"`
	Value string `xml:"auxvalue,attr"`
}

type logical struct {
	Name      string      `xml:"name,attr"`
	Material  ref         `xml:"materialref"`
	Solid     ref         `xml:"solidref"`
	Physvols  []physvol   `xml:"physvol"`
	Auxiliary []auxiliary `xml:"auxiliary"`
}

type physvol struct {
	Name     string      `xml:"name,attr"`
	Volume   ref         `xml:"volumeref"`
	Position ref         `xml:"positionref"`
	Rotation ref         `xml:"rotationref"`
	IDs      []PhysVolID `xml:"physvolid"`
}

type setup struct {
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
	World   ref    `xml:"world"`
}

func solidName(name string) string    { return name + "Box" }
func volumeName(name string) string   { return name + "_volume" }
func positionName(name string) string { return name + "_position" }
func rotationName(name string) string { return name + "_rotation" }

func (s *Sink) physvol(h kernel.Handle) physvol {
	v := s.volumes[h]
	return physvol{
		Name:     v.p.Name,
		Volume:   ref{volumeName(v.p.Name)},
		Position: ref{positionName(v.p.Name)},
		Rotation: ref{rotationName(v.p.Name)},
		IDs:      v.ids,
	}
}

// appendVolumes adds the logical volume of h after those of its
// daughters, since a volume must be defined before it is referenced.
func (s *Sink) appendVolumes(doc *document, h kernel.Handle) {
	v := s.volumes[h]
	for _, d := range v.daughters {
		s.appendVolumes(doc, d)
	}
	lv := logical{
		Name:     volumeName(v.p.Name),
		Material: ref{v.p.Material},
		Solid:    ref{solidName(v.p.Name)},
	}
	for _, d := range v.daughters {
		lv.Physvols = append(lv.Physvols, s.physvol(d))
	}
	if v.p.Vis != "" {
		lv.Auxiliary = append(lv.Auxiliary, auxiliary{"visref", string(v.p.Vis)})
	}
	doc.Structure.Volumes = append(doc.Structure.Volumes, lv)
}

func (s *Sink) document() *document {
	doc := &document{Setup: setup{Name: "Default", Version: "1.0", World: ref{graph.WorldName}}}
	for _, v := range s.volumes {
		p := v.p
		doc.Define.Positions = append(doc.Define.Positions, position{
			Name: positionName(p.Name),
			X:    p.Position.X,
			Y:    p.Position.Y,
			Z:    p.Position.Z,
			Unit: lengthUnit,
		})
		// GDML rotates the frame rather than the volume.
		rx, ry, rz := p.Rotation.Transpose().EulerZYX()
		doc.Define.Rotations = append(doc.Define.Rotations, rotation{
			Name: rotationName(p.Name),
			X:    rx,
			Y:    ry,
			Z:    rz,
			Unit: angleUnit,
		})
		doc.Solids.Boxes = append(doc.Solids.Boxes, box{
			Name:  solidName(p.Name),
			X:     p.Box.X,
			Y:     p.Box.Y,
			Z:     p.Box.Z,
			LUnit: lengthUnit,
		})
	}
	doc.Solids.Boxes = append(doc.Solids.Boxes, box{
		Name:  solidName(graph.WorldName),
		X:     s.world.X,
		Y:     s.world.Y,
		Z:     s.world.Z,
		LUnit: lengthUnit,
	})

	world := logical{
		Name:     graph.WorldName,
		Material: ref{s.WorldMaterial},
		Solid:    ref{solidName(graph.WorldName)},
	}
	for _, h := range s.top {
		s.appendVolumes(doc, h)
		world.Physvols = append(world.Physvols, s.physvol(h))
	}
	doc.Structure.Volumes = append(doc.Structure.Volumes, world)
	return doc
}

// Encode writes the document.
func (s *Sink) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("gdml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(s.document()); err != nil {
		return fmt.Errorf("gdml: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("gdml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
