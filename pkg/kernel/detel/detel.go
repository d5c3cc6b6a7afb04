// Package detel is the detector-element backend. It keeps an in-memory
// hierarchy of placed volumes with their global transforms and readout
// identifiers, which reconstruction code queries by name or identifier.
package detel

import (
	"fmt"
	"io"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
)

// Element is one placed detector element.
type Element struct {
	Handle   kernel.Handle
	Name     string
	Mother   kernel.Handle
	Children []kernel.Handle
	Kind     graph.Kind
	Global   geom.RigidTransform
	Center   v3.Vec // global box centre
	Box      v3.Vec
	Material string

	// ID is set for half-modules and their parts.
	ID *kernel.Identifier
}

// Sink builds the element hierarchy.
type Sink struct {
	system    int
	firstLong int
	elements  []*Element
	byName    map[string]kernel.Handle
	byID      map[int64]kernel.Handle
}

var _ kernel.Sink = (*Sink)(nil)

// New returns an empty sink numbering identifiers for the given subsystem.
// firstLong is the first layer built from long modules.
func New(system, firstLong int) *Sink {
	return &Sink{
		system:    system,
		firstLong: firstLong,
		byName:    make(map[string]kernel.Handle),
		byID:      make(map[int64]kernel.Handle),
	}
}

// Create adds an element. A repeated name or identifier is a
// graph.StructuralError.
func (s *Sink) Create(p kernel.Placement, mother kernel.Handle) (kernel.Handle, error) {
	if p.Name == graph.WorldName {
		return 0, graph.StructuralError{Name: p.Name, Reason: "the tracking volume is supplied by the caller"}
	}
	if _, dup := s.byName[p.Name]; dup {
		return 0, graph.StructuralError{Name: p.Name, Reason: "duplicate detector element"}
	}
	if mother != kernel.World {
		if _, ok := s.Element(mother); !ok {
			return 0, graph.StructuralError{Name: p.Name, Reason: fmt.Sprintf("mother handle %d does not exist", mother)}
		}
	}

	el := &Element{
		Handle:   kernel.Handle(len(s.elements)),
		Name:     p.Name,
		Mother:   mother,
		Kind:     p.Kind,
		Global:   p.Global,
		Center:   p.GlobalCenter,
		Box:      p.Box,
		Material: p.Material,
	}
	id, ok, err := kernel.Identify(p.Name, s.system, s.firstLong)
	if err != nil {
		return 0, fmt.Errorf("detel: %w", err)
	}
	if ok {
		packed := id.Pack()
		if prev, dup := s.byID[packed]; dup {
			return 0, graph.StructuralError{
				Name:   p.Name,
				Reason: fmt.Sprintf("identifier %d already used by %s", packed, s.elements[prev].Name),
			}
		}
		el.ID = &id
		s.byID[packed] = el.Handle
	}

	s.elements = append(s.elements, el)
	s.byName[p.Name] = el.Handle
	if mother != kernel.World {
		m := s.elements[mother]
		m.Children = append(m.Children, el.Handle)
	}
	return el.Handle, nil
}

// Lookup returns the handle of a named element.
func (s *Sink) Lookup(name string) (kernel.Handle, bool) {
	h, ok := s.byName[name]
	return h, ok
}

// Element returns the element behind h.
func (s *Sink) Element(h kernel.Handle) (*Element, bool) {
	if h < 0 || int(h) >= len(s.elements) {
		return nil, false
	}
	return s.elements[h], true
}

// Elements returns every element in creation order.
func (s *Sink) Elements() []*Element {
	return s.elements
}

// ByIdentifier finds the element with the packed identifier.
func (s *Sink) ByIdentifier(packed int64) (*Element, bool) {
	h, ok := s.byID[packed]
	if !ok {
		return nil, false
	}
	return s.elements[h], true
}

// Sensors returns the active sensor elements.
func (s *Sink) Sensors() []*Element {
	var out []*Element
	for _, el := range s.elements {
		if el.ID != nil && el.ID.Component == kernel.ComponentActive {
			out = append(out, el)
		}
	}
	return out
}

// Path returns the element names from the top element down to h.
func (s *Sink) Path(h kernel.Handle) []string {
	var rev []string
	for h != kernel.World {
		el, ok := s.Element(h)
		if !ok {
			break
		}
		rev = append(rev, el.Name)
		h = el.Mother
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

type elementRecord struct {
	Name      string     `yaml:"name"`
	Mother    string     `yaml:"mother,omitempty"`
	Kind      string     `yaml:"kind"`
	Center    [3]float64 `yaml:"center"`
	Angles    [3]float64 `yaml:"angles"`
	Box       [3]float64 `yaml:"box"`
	Material  string     `yaml:"material,omitempty"`
	ID        int64      `yaml:"id,omitempty"`
	Millepede int        `yaml:"millepede,omitempty"`
}

// Encode writes the elements as a YAML list.
func (s *Sink) Encode(w io.Writer) error {
	records := make([]elementRecord, 0, len(s.elements))
	for _, el := range s.elements {
		rx, ry, rz := el.Global.Rotation.EulerZYX()
		r := elementRecord{
			Name:     el.Name,
			Kind:     el.Kind.String(),
			Center:   [3]float64{el.Center.X, el.Center.Y, el.Center.Z},
			Angles:   [3]float64{rx, ry, rz},
			Box:      [3]float64{el.Box.X, el.Box.Y, el.Box.Z},
			Material: el.Material,
		}
		if m, ok := s.Element(el.Mother); ok {
			r.Mother = m.Name
		}
		if el.ID != nil {
			r.ID = el.ID.Pack()
			r.Millepede = el.ID.Millepede
		}
		records = append(records, r)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("detel: encode: %w", err)
	}
	return enc.Close()
}
