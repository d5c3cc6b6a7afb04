package graph

import (
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

const tol = 1e-9

func frameAt(x, y, z float64) geom.CoordinateFrame {
	f := geom.CanonicalFrame()
	f.Origin = v3.Vec{X: x, Y: y, Z: z}
	return f
}

// buildSmall creates trackingVolume > base > (c_support ghost > plate), module.
func buildSmall(t *testing.T) *Tree {
	t.Helper()
	tr := New("test")

	base := &Node{Name: "base", Local: frameAt(0, 0, 100), Box: v3.Vec{X: 100, Y: 100, Z: 20}}
	_, err := tr.Add(base, WorldName)
	require.NoError(t, err)

	rot := geom.CanonicalFrame()
	require.NoError(t, rot.Rotate(geom.RotationZ(math.Pi/2)))
	rot.Origin = v3.Vec{X: 10}
	_, err = tr.Add(&Node{Name: "c_support", Local: rot, Ghost: true}, "base")
	require.NoError(t, err)

	plate := &Node{Name: "support_plate_bottom", Local: frameAt(5, 0, 0), Box: v3.Vec{X: 10, Y: 10, Z: 1}}
	_, err = tr.Add(plate, "c_support")
	require.NoError(t, err)

	mod := &Node{Name: "module_L1b", Kind: KindModule, Local: frameAt(-20, 0, 0), Box: v3.Vec{X: 5, Y: 5, Z: 5}}
	_, err = tr.Add(mod, "base")
	require.NoError(t, err)
	return tr
}

func TestNewTree(t *testing.T) {
	tr := New("2014")
	require.Equal(t, 1, tr.NodeCount())
	root := tr.Get(tr.Root)
	require.NotNil(t, root)
	assert.Equal(t, WorldName, root.Name)
	assert.Equal(t, KindWorld, root.Kind)
	assert.False(t, root.Physical(), "world volume must not be physical")
	assert.Equal(t, "2014", tr.Version)
}

func TestAddAndLookup(t *testing.T) {
	tr := buildSmall(t)
	assert.Equal(t, 5, tr.NodeCount())

	base := tr.Lookup("base")
	require.NotNil(t, base)
	assert.Equal(t, WorldName, tr.Mother(base).Name)
	assert.Equal(t, []string{"c_support", "module_L1b"}, names(tr.Children(base)))

	assert.Nil(t, tr.Lookup("nonexistent"))
	assert.Same(t, base, tr.Get(base.ID))
	assert.Nil(t, tr.Get(NodeID(99)))
	assert.Nil(t, tr.Get(NoNode))
	assert.Equal(t, 3, tr.Depth(tr.MustLookup("support_plate_bottom")))
}

func TestMustLookupPanics(t *testing.T) {
	tr := New("test")
	assert.Panics(t, func() { tr.MustLookup("nope") })
}

func TestAddRejects(t *testing.T) {
	tr := buildSmall(t)

	tests := []struct {
		name   string
		node   *Node
		mother string
	}{
		{"duplicate", &Node{Name: "base", Local: geom.CanonicalFrame()}, WorldName},
		{"missing mother", &Node{Name: "orphan", Local: geom.CanonicalFrame()}, "nowhere"},
		{"second root", &Node{Name: "other_world", Local: geom.CanonicalFrame()}, ""},
		{"unnamed", &Node{Local: geom.CanonicalFrame()}, "base"},
		{"missing reference", &Node{Name: "x", Local: geom.CanonicalFrame(), Refs: []string{"missing"}}, "base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tr.NodeCount()
			_, err := tr.Add(tt.node, tt.mother)
			var se StructuralError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, before, tr.NodeCount(), "failed Add must not change the tree")
		})
	}
}

func TestWalkPreOrder(t *testing.T) {
	tr := buildSmall(t)
	var order []string
	var depths []int
	err := tr.Walk(func(n *Node, depth int) error {
		order = append(order, n.Name)
		depths = append(depths, depth)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{WorldName, "base", "c_support", "support_plate_bottom", "module_L1b"}, order)
	assert.Equal(t, []int{0, 1, 2, 3, 2}, depths)
}

func TestWalkStops(t *testing.T) {
	tr := buildSmall(t)
	stop := errors.New("stop")
	count := 0
	err := tr.Walk(func(n *Node, depth int) error {
		count++
		if n.Name == "c_support" {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 3, count)
}

func TestGlobalComposesMotherFirst(t *testing.T) {
	tr := buildSmall(t)
	plate := tr.MustLookup("support_plate_bottom")

	g, err := tr.Global(plate)
	require.NoError(t, err)
	// plate origin (5,0,0) in c_support, rotated 90° about z -> (0,5,0),
	// shifted by (10,0,0) in base and by (0,0,100) in the world.
	assert.True(t, geom.VecNear(g.Apply(v3.Vec{}), v3.Vec{X: 10, Y: 5, Z: 100}, tol), "global origin %v", g.Apply(v3.Vec{}))
	assert.True(t, geom.VecNear(g.ApplyVector(geom.UnitX), geom.UnitY, tol), "global u %v", g.ApplyVector(geom.UnitX))

	root, err := tr.Global(tr.Get(tr.Root))
	require.NoError(t, err)
	assert.True(t, root.IsIdentity(tol), "root global %s", root)
}

func TestGlobalBrokenMother(t *testing.T) {
	tr := buildSmall(t)
	tr.MustLookup("c_support").Mother = NodeID(42)

	_, err := tr.Global(tr.MustLookup("support_plate_bottom"))
	var se StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "c_support", se.Name)
}

func TestTransformTo(t *testing.T) {
	tr := buildSmall(t)
	plate := tr.MustLookup("support_plate_bottom")

	toBase, err := tr.TransformTo(plate, "base")
	require.NoError(t, err)
	assert.True(t, geom.VecNear(toBase.Apply(v3.Vec{}), v3.Vec{X: 10, Y: 5}, tol), "origin in base %v", toBase.Apply(v3.Vec{}))

	toMother, err := tr.TransformTo(plate, "c_support")
	require.NoError(t, err)
	assert.True(t, toMother.Near(plate.Local.ToRigidTransform(), tol), "transform to the direct mother should be the local frame")

	_, err = tr.TransformTo(plate, "module_L1b")
	var se StructuralError
	assert.ErrorAs(t, err, &se)
}

func TestPhysicalMotherSkipsGhosts(t *testing.T) {
	tr := buildSmall(t)

	pm := tr.PhysicalMother(tr.MustLookup("support_plate_bottom"))
	require.NotNil(t, pm)
	assert.Equal(t, "base", pm.Name)

	pm = tr.PhysicalMother(tr.MustLookup("base"))
	require.NotNil(t, pm)
	assert.Equal(t, WorldName, pm.Name)

	assert.Nil(t, tr.PhysicalMother(tr.Get(tr.Root)))
}

func TestInModule(t *testing.T) {
	tr := buildSmall(t)
	mod := tr.MustLookup("module_L1b")
	_, err := tr.Add(&Node{Name: "spacer", Local: frameAt(1, 0, 0), Box: v3.Vec{X: 1, Y: 1, Z: 1}}, mod.Name)
	require.NoError(t, err)

	assert.True(t, tr.InModule(mod))
	assert.True(t, tr.InModule(tr.MustLookup("spacer")))
	assert.False(t, tr.InModule(tr.MustLookup("support_plate_bottom")))
	assert.False(t, tr.InModule(tr.Get(tr.Root)))
}

func TestFrameAppliesReferences(t *testing.T) {
	tr := buildSmall(t)
	n := &Node{Name: "module_L2b", Local: frameAt(1, 0, 0), Refs: []string{"c_support"}}
	_, err := tr.Add(n, "base")
	require.NoError(t, err)

	f, err := tr.Frame(n)
	require.NoError(t, err)
	// (1,0,0) in c_support coordinates is (10,1,0) in base.
	assert.True(t, geom.VecNear(f.Origin, v3.Vec{X: 10, Y: 1}, tol), "origin after reference %v", f.Origin)
	assert.True(t, geom.VecNear(n.Local.Origin, v3.Vec{X: 1}, tol), "Frame must not modify the node")

	g, err := tr.Global(n)
	require.NoError(t, err)
	assert.True(t, geom.VecNear(g.Apply(v3.Vec{}), v3.Vec{X: 10, Y: 1, Z: 100}, tol), "global origin %v", g.Apply(v3.Vec{}))
}

func TestLateCorrectionReachesReferencingVolume(t *testing.T) {
	tr := buildSmall(t)
	n := &Node{Name: "module_L3b", Local: geom.CanonicalFrame(), Refs: []string{"c_support"}}
	_, err := tr.Add(n, "base")
	require.NoError(t, err)

	// The correction arrives after module_L3b already references c_support.
	corr := geom.Translation(v3.Vec{Z: 3})
	tr.MustLookup("c_support").Correction = &corr

	folded, err := tr.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1, folded)
	assert.True(t, geom.VecNear(n.Local.Origin, v3.Vec{X: 10, Z: 3}, tol), "origin %v, want (10, 0, 3)", n.Local.Origin)
}

func TestChainedReferences(t *testing.T) {
	tr := buildSmall(t)
	a := &Node{Name: "jig", Local: frameAt(0, 2, 0), Ghost: true, Refs: []string{"c_support"}}
	_, err := tr.Add(a, "base")
	require.NoError(t, err)
	b := &Node{Name: "module_L4b", Local: frameAt(1, 0, 0), Refs: []string{"jig"}}
	_, err = tr.Add(b, "base")
	require.NoError(t, err)

	corr := geom.Translation(v3.Vec{X: 1})
	tr.MustLookup("c_support").Correction = &corr

	_, err = tr.Resolve()
	require.NoError(t, err)
	// c_support sits at (10,0,0) turned 90° about z and moves one unit
	// along its own x, i.e. +y. jig is (0,2,0) in it, module_L4b (1,0,0) in jig.
	assert.True(t, geom.VecNear(a.Local.Origin, v3.Vec{X: 8, Y: 1}, tol), "jig origin %v", a.Local.Origin)
	assert.True(t, geom.VecNear(b.Local.Origin, v3.Vec{X: 8, Y: 2}, tol), "module origin %v", b.Local.Origin)
}

func TestResolveFoldsCorrections(t *testing.T) {
	tr := buildSmall(t)
	ghost := tr.MustLookup("c_support")
	corr := geom.RigidTransform{Translation: v3.Vec{X: 1}, Rotation: geom.Identity()}
	ghost.Correction = &corr

	n, err := tr.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, ghost.Correction, "correction should be cleared after folding")
	// A shift along local x of a frame rotated 90° about z moves it along +y.
	assert.True(t, geom.VecNear(ghost.Local.Origin, v3.Vec{X: 10, Y: 1}, tol), "origin %v, want (10, 1, 0)", ghost.Local.Origin)

	before := tr.MustLookup("support_plate_bottom").Local
	n, err = tr.Resolve()
	require.NoError(t, err)
	assert.Zero(t, n, "second resolve folds nothing")
	assert.True(t, tr.MustLookup("support_plate_bottom").Local.Near(before, 1e-12), "second resolve must not move frames")
}

func TestResolveAppliesReferencesOnce(t *testing.T) {
	tr := buildSmall(t)
	n := &Node{Name: "module_L2b", Local: frameAt(1, 0, 0), Refs: []string{"c_support"}}
	_, err := tr.Add(n, "base")
	require.NoError(t, err)

	_, err = tr.Resolve()
	require.NoError(t, err)
	_, err = tr.Resolve()
	require.NoError(t, err)
	assert.True(t, geom.VecNear(n.Local.Origin, v3.Vec{X: 10, Y: 1}, tol), "origin %v", n.Local.Origin)
}

func TestFoldZeroCorrectionIsIdentity(t *testing.T) {
	tr := buildSmall(t)
	plate := tr.MustLookup("support_plate_bottom")
	before := plate.Local
	zero := geom.IdentityTransform()
	plate.Correction = &zero

	_, err := tr.Resolve()
	require.NoError(t, err)
	assert.True(t, plate.Local.Near(before, 1e-12), "zero correction moved the frame: %s -> %s", before, plate.Local)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "half-module", KindHalfModule.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func names(ns []*Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}
