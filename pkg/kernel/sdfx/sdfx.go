// Package sdfx is the solid backend. Every placed box becomes an sdfx
// signed distance function in tracking-volume coordinates, and the solids
// are indexed in an R-tree so points can be located.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"

	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
)

// minExtent keeps flat volumes indexable.
const minExtent = 1e-6

var _ kernel.Sink = (*Sink)(nil)

// Volume is one placed solid.
type Volume struct {
	Handle kernel.Handle
	Name   string
	Mother kernel.Handle
	Depth  int // 0 for volumes placed in the tracking volume
	Solid  sdf.SDF3

	bounds rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (v *Volume) Bounds() rtreego.Rect { return v.bounds }

// Sink places solids.
type Sink struct {
	volumes []*Volume
	byName  map[string]kernel.Handle
	index   *rtreego.Rtree
}

// New returns an empty sink.
func New() *Sink {
	return &Sink{
		byName: make(map[string]kernel.Handle),
		index:  rtreego.NewTree(3, 25, 50),
	}
}

// placement returns the matrix taking the centred box into the tracking
// volume.
func placement(p kernel.Placement) sdf.M44 {
	rx, ry, rz := p.Global.Rotation.EulerZYX()
	rot := sdf.RotateZ(rz).Mul(sdf.RotateY(ry)).Mul(sdf.RotateX(rx))
	return sdf.Translate3d(p.GlobalCenter).Mul(rot)
}

// Create builds the solid of p.
func (s *Sink) Create(p kernel.Placement, mother kernel.Handle) (kernel.Handle, error) {
	if p.Name == graph.WorldName {
		return 0, graph.StructuralError{Name: p.Name, Reason: "the tracking volume is supplied by the caller"}
	}
	if _, dup := s.byName[p.Name]; dup {
		return 0, graph.StructuralError{Name: p.Name, Reason: "duplicate solid"}
	}
	depth := 0
	if mother != kernel.World {
		m, ok := s.Volume(mother)
		if !ok {
			return 0, graph.StructuralError{Name: p.Name, Reason: fmt.Sprintf("mother handle %d does not exist", mother)}
		}
		depth = m.Depth + 1
	}

	box, err := sdf.Box3D(p.Box, 0)
	if err != nil {
		return 0, fmt.Errorf("sdfx: box for %s: %w", p.Name, err)
	}
	solid := sdf.Transform3D(box, placement(p))
	bb := solid.BoundingBox()
	size := bb.Size()
	bounds, err := rtreego.NewRect(
		rtreego.Point{bb.Min.X, bb.Min.Y, bb.Min.Z},
		[]float64{math.Max(size.X, minExtent), math.Max(size.Y, minExtent), math.Max(size.Z, minExtent)},
	)
	if err != nil {
		return 0, fmt.Errorf("sdfx: bounds for %s: %w", p.Name, err)
	}

	v := &Volume{
		Handle: kernel.Handle(len(s.volumes)),
		Name:   p.Name,
		Mother: mother,
		Depth:  depth,
		Solid:  solid,
		bounds: bounds,
	}
	s.volumes = append(s.volumes, v)
	s.byName[p.Name] = v.Handle
	s.index.Insert(v)
	return v.Handle, nil
}

// Lookup returns the handle of a named solid.
func (s *Sink) Lookup(name string) (kernel.Handle, bool) {
	h, ok := s.byName[name]
	return h, ok
}

// Volume returns the solid behind h.
func (s *Sink) Volume(h kernel.Handle) (*Volume, bool) {
	if h < 0 || int(h) >= len(s.volumes) {
		return nil, false
	}
	return s.volumes[h], true
}

// Len is the number of placed solids.
func (s *Sink) Len() int { return len(s.volumes) }

// Locate returns the deepest volume containing p. Among volumes of equal
// depth the one placed last wins.
func (s *Sink) Locate(p v3.Vec) (*Volume, bool) {
	var best *Volume
	for _, obj := range s.index.SearchIntersect(rtreego.Point{p.X, p.Y, p.Z}.ToRect(minExtent)) {
		v := obj.(*Volume)
		if v.Solid.Evaluate(p) > 0 {
			continue
		}
		if best == nil || v.Depth > best.Depth || (v.Depth == best.Depth && v.Handle > best.Handle) {
			best = v
		}
	}
	return best, best != nil
}

