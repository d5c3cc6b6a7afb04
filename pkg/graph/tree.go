package graph

import (
	"fmt"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// WorldName is the conventional name of the tracking volume at the root.
const WorldName = "trackingVolume"

// Tree is an arena of volumes. Nodes are appended in assembly order, so a
// mother always has a smaller NodeID than its daughters.
type Tree struct {
	Nodes     []*Node
	NameIndex map[string]NodeID
	Root      NodeID
	Version   string
}

// New creates a tree whose root is the world volume with the canonical frame.
func New(version string) *Tree {
	t := &Tree{
		NameIndex: make(map[string]NodeID),
		Root:      NoNode,
		Version:   version,
	}
	t.Add(&Node{Name: WorldName, Kind: KindWorld, Local: geom.CanonicalFrame()}, "")
	return t
}

// Add appends n as the last daughter of the node named mother. An empty
// mother makes n the root, which is only allowed on an empty tree. Every
// reference volume of n must already be in the tree.
func (t *Tree) Add(n *Node, mother string) (NodeID, error) {
	if n.Name == "" {
		return NoNode, StructuralError{Name: "<unnamed>", Reason: "volume has no name"}
	}
	if _, dup := t.NameIndex[n.Name]; dup {
		return NoNode, StructuralError{Name: n.Name, Reason: "duplicate volume name"}
	}

	for _, ref := range n.Refs {
		if _, ok := t.NameIndex[ref]; !ok {
			return NoNode, StructuralError{Name: n.Name, Reason: fmt.Sprintf("reference volume %q not found", ref)}
		}
	}

	mid := NoNode
	if mother == "" {
		if len(t.Nodes) > 0 {
			return NoNode, StructuralError{Name: n.Name, Reason: "tree already has a root"}
		}
	} else {
		id, ok := t.NameIndex[mother]
		if !ok {
			return NoNode, StructuralError{Name: n.Name, Reason: fmt.Sprintf("mother %q not found", mother)}
		}
		mid = id
	}

	n.ID = NodeID(len(t.Nodes))
	n.Mother = mid
	n.Daughters = nil
	t.Nodes = append(t.Nodes, n)
	t.NameIndex[n.Name] = n.ID
	if mid == NoNode {
		t.Root = n.ID
	} else {
		m := t.Nodes[mid]
		m.Daughters = append(m.Daughters, n.ID)
	}
	return n.ID, nil
}

// Lookup returns the node with the given name, or nil.
func (t *Tree) Lookup(name string) *Node {
	id, ok := t.NameIndex[name]
	if !ok {
		return nil
	}
	return t.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (t *Tree) MustLookup(name string) *Node {
	n := t.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no volume named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (t *Tree) Get(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return t.Nodes[id]
}

// Mother returns the mother of n, or nil for the root.
func (t *Tree) Mother(n *Node) *Node {
	return t.Get(n.Mother)
}

// Children returns the daughters of n in insertion order.
func (t *Tree) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Daughters))
	for _, cid := range n.Daughters {
		if c := t.Get(cid); c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes, the root included.
func (t *Tree) NodeCount() int {
	return len(t.Nodes)
}

// Depth returns the number of mothers above n.
func (t *Tree) Depth(n *Node) int {
	d := 0
	for m := t.Mother(n); m != nil; m = t.Mother(m) {
		d++
	}
	return d
}

// Walk visits every node reachable from the root in pre-order, mothers
// before daughters. Returning an error from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	root := t.Get(t.Root)
	if root == nil {
		return nil
	}
	var visit func(n *Node, depth int) error
	visit = func(n *Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, cid := range n.Daughters {
			c := t.Get(cid)
			if c == nil {
				return StructuralError{Name: n.Name, Reason: fmt.Sprintf("daughter %d does not exist", cid)}
			}
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root, 0)
}

// Global returns the transform from n's frame to the root frame:
// global(mother)∘local(n). Local frames are taken as Frame returns them.
func (t *Tree) Global(n *Node) (geom.RigidTransform, error) {
	g, err := t.local(n)
	if err != nil {
		return geom.RigidTransform{}, err
	}
	cur := n
	for steps := 0; cur.Mother != NoNode; steps++ {
		if steps >= len(t.Nodes) {
			return geom.RigidTransform{}, StructuralError{Name: n.Name, Reason: "mother chain has a cycle"}
		}
		m := t.Get(cur.Mother)
		if m == nil {
			return geom.RigidTransform{}, StructuralError{Name: cur.Name, Reason: fmt.Sprintf("mother %d does not exist", cur.Mother)}
		}
		ml, err := t.local(m)
		if err != nil {
			return geom.RigidTransform{}, err
		}
		g = geom.Compose(ml, g)
		cur = m
	}
	return g, nil
}

// TransformTo returns the transform from n's frame to the frame of the named
// ancestor, composing local frames up to but excluding the ancestor's own.
func (t *Tree) TransformTo(n *Node, ancestor string) (geom.RigidTransform, error) {
	g, err := t.local(n)
	if err != nil {
		return geom.RigidTransform{}, err
	}
	for m := t.Mother(n); m != nil; m = t.Mother(m) {
		if m.Name == ancestor {
			return g, nil
		}
		ml, err := t.local(m)
		if err != nil {
			return geom.RigidTransform{}, err
		}
		g = geom.Compose(ml, g)
	}
	return geom.RigidTransform{}, StructuralError{
		Name:   n.Name,
		Reason: fmt.Sprintf("%q is not an ancestor", ancestor),
	}
}

// PhysicalMother returns the nearest ancestor of n that is not a ghost.
// The world volume counts as a physical mother. It returns nil for the root.
func (t *Tree) PhysicalMother(n *Node) *Node {
	for m := t.Mother(n); m != nil; m = t.Mother(m) {
		if !m.Ghost {
			return m
		}
	}
	return nil
}

// InModule reports whether n is a module bundle or has one among its
// ancestors.
func (t *Tree) InModule(n *Node) bool {
	for m := n; m != nil; m = t.Mother(m) {
		if m.Kind == KindModule {
			return true
		}
	}
	return false
}

// Frame returns the local frame of n relative to its mother as the build
// will see it: the surveyed frame, transformed by each reference volume's
// frame in order, then perturbed by any pending correction. The tree is not
// modified, so a correction attached to a reference volume at any point
// before Resolve reaches every volume that references it.
func (t *Tree) Frame(n *Node) (geom.CoordinateFrame, error) {
	f := n.Local
	if !n.resolved {
		for _, ref := range n.Refs {
			r := t.Lookup(ref)
			if r == nil {
				return geom.CoordinateFrame{}, StructuralError{Name: n.Name, Reason: fmt.Sprintf("reference volume %q not found", ref)}
			}
			if r.ID >= n.ID {
				return geom.CoordinateFrame{}, StructuralError{Name: n.Name, Reason: fmt.Sprintf("reference volume %q is declared after it", ref)}
			}
			rf, err := t.Frame(r)
			if err != nil {
				return geom.CoordinateFrame{}, fmt.Errorf("reference %s: %w", ref, err)
			}
			if err := f.Transform(rf.ToRigidTransform()); err != nil {
				return geom.CoordinateFrame{}, fmt.Errorf("apply reference %s to %s: %w", ref, n.Name, err)
			}
		}
	}
	if n.Correction != nil {
		if err := f.Perturb(*n.Correction); err != nil {
			return geom.CoordinateFrame{}, fmt.Errorf("fold correction into %s: %w", n.Name, err)
		}
	}
	return f, nil
}

func (t *Tree) local(n *Node) (geom.RigidTransform, error) {
	f, err := t.Frame(n)
	if err != nil {
		return geom.RigidTransform{}, err
	}
	return f.ToRigidTransform(), nil
}

// Resolve stores Frame into Local for every node in arena order, so
// reference volumes are final before anything that references them. It
// clears the pending corrections and returns how many were folded.
// Resolving twice is a no-op.
func (t *Tree) Resolve() (int, error) {
	folded := 0
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		f, err := t.Frame(n)
		if err != nil {
			return folded, err
		}
		n.Local = f
		n.resolved = true
		if n.Correction != nil {
			n.Correction = nil
			folded++
		}
	}
	return folded, nil
}
