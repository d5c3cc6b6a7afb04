package builder

import (
	"errors"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/svtgeom/pkg/definition"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/detel"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/gdml"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/sdfx"
	"github.com/JeffersonLab/svtgeom/pkg/vis"
)

// recorder is a sink that keeps what it was given.
type recorder struct {
	placements []kernel.Placement
	mothers    []kernel.Handle
	byName     map[string]kernel.Handle
}

func newRecorder() *recorder {
	return &recorder{byName: make(map[string]kernel.Handle)}
}

func (r *recorder) Create(p kernel.Placement, mother kernel.Handle) (kernel.Handle, error) {
	h := kernel.Handle(len(r.placements))
	r.placements = append(r.placements, p)
	r.mothers = append(r.mothers, mother)
	r.byName[p.Name] = h
	return h, nil
}

func (r *recorder) Lookup(name string) (kernel.Handle, bool) {
	h, ok := r.byName[name]
	return h, ok
}

func frameAt(t *testing.T, origin v3.Vec) geom.CoordinateFrame {
	t.Helper()
	f, err := geom.NewFrame(origin, geom.UnitX, geom.UnitY, geom.UnitZ)
	require.NoError(t, err)
	return f
}

// smallTree is world > base > c_support (ghost) > support_bottom_L13 > module_L1b.
func smallTree(t *testing.T) *graph.Tree {
	t.Helper()
	tr := graph.New("small")
	add := func(n *graph.Node, mother string) {
		_, err := tr.Add(n, mother)
		require.NoError(t, err)
	}
	add(&graph.Node{
		Name:     "base",
		Kind:     graph.KindEnvelope,
		Local:    frameAt(t, v3.Vec{Z: 100}),
		Center:   v3.Vec{Z: 5},
		Box:      v3.Vec{X: 400, Y: 1200, Z: 200},
		Material: "Vacuum",
	}, graph.WorldName)
	add(&graph.Node{
		Name:  "c_support",
		Kind:  graph.KindSupport,
		Local: frameAt(t, v3.Vec{X: 10}),
		Ghost: true,
	}, "base")

	r := geom.RotationZ(0.5)
	turned, err := geom.NewFrame(v3.Vec{Y: 20}, r.Column(0), r.Column(1), r.Column(2))
	require.NoError(t, err)
	add(&graph.Node{
		Name:     "support_bottom_L13",
		Kind:     graph.KindSupport,
		Local:    turned,
		Center:   v3.Vec{X: 1, Y: 2, Z: 3},
		Box:      v3.Vec{X: 50, Y: 300, Z: 60},
		Material: "Aluminum",
	}, "c_support")
	add(&graph.Node{
		Name:     "module_L1b",
		Kind:     graph.KindModule,
		Local:    frameAt(t, v3.Vec{Z: -4}),
		Box:      v3.Vec{X: 10, Y: 20, Z: 5},
		Material: "Vacuum",
	}, "support_bottom_L13")
	return tr
}

func TestPlanSkipsWorldAndGhosts(t *testing.T) {
	tr := smallTree(t)
	placements, st, err := New(tr, Options{}).Plan()
	require.NoError(t, err)

	assert.Equal(t, Stats{Visited: 5, Ghosts: 1, Emitted: 3}, st)
	require.Len(t, placements, 3)
	names := []string{placements[0].Name, placements[1].Name, placements[2].Name}
	assert.Equal(t, []string{"base", "support_bottom_L13", "module_L1b"}, names)
}

func TestPlacementInPhysicalMother(t *testing.T) {
	tr := smallTree(t)
	placements, _, err := New(tr, Options{}).Plan()
	require.NoError(t, err)

	base := placements[0]
	assert.Equal(t, graph.WorldName, base.Mother)
	assert.True(t, geom.VecNear(v3.Vec{Z: 105}, base.Position, geom.Tolerance), base.Position)

	// the ghost is skipped, so the support lands in base and carries the
	// ghost's offset
	sup := placements[1]
	assert.Equal(t, "base", sup.Mother)
	toBase, err := tr.TransformTo(tr.MustLookup("support_bottom_L13"), "base")
	require.NoError(t, err)
	want := toBase.Apply(v3.Vec{X: 1, Y: 2, Z: 3}).Sub(v3.Vec{Z: 5})
	assert.True(t, geom.VecNear(want, sup.Position, geom.Tolerance), sup.Position)
	assert.True(t, sup.Rotation.Near(geom.RotationZ(0.5), geom.Tolerance))

	global, err := tr.Global(tr.MustLookup("support_bottom_L13"))
	require.NoError(t, err)
	assert.True(t, geom.VecNear(global.Apply(v3.Vec{X: 1, Y: 2, Z: 3}), sup.GlobalCenter, geom.Tolerance))
	assert.True(t, geom.VecNear(v3.Vec{X: 10, Y: 20, Z: 100}, sup.Global.Translation, geom.Tolerance))

	mod := placements[2]
	assert.Equal(t, "support_bottom_L13", mod.Mother)
	assert.True(t, geom.VecNear(v3.Vec{X: -1, Y: -2, Z: -7}, mod.Position, geom.Tolerance), mod.Position)
}

func TestVisTags(t *testing.T) {
	placements, _, err := New(smallTree(t), Options{}).Plan()
	require.NoError(t, err)
	assert.Equal(t, vis.None, placements[0].Vis)
	assert.Equal(t, vis.SupportVolume, placements[1].Vis)
	assert.Equal(t, vis.Module, placements[2].Vis)

	custom := vis.Rules{{Match: vis.Prefix, Pattern: "base", Tag: vis.BasePlate}}
	placements, _, err = New(smallTree(t), Options{Rules: custom}).Plan()
	require.NoError(t, err)
	assert.Equal(t, vis.BasePlate, placements[0].Vis)
	assert.Equal(t, vis.None, placements[2].Vis)
}

func TestVisModuleDefaultCoversNestedVolumes(t *testing.T) {
	tr := smallTree(t)
	_, err := tr.Add(&graph.Node{
		Name:     "spacer",
		Local:    frameAt(t, v3.Vec{X: 1}),
		Box:      v3.Vec{X: 1, Y: 1, Z: 1},
		Material: "Aluminum",
	}, "module_L1b")
	require.NoError(t, err)
	_, err = tr.Add(&graph.Node{
		Name:     "spacer_outside",
		Local:    frameAt(t, v3.Vec{X: 2}),
		Box:      v3.Vec{X: 1, Y: 1, Z: 1},
		Material: "Aluminum",
	}, "base")
	require.NoError(t, err)

	placements, _, err := New(tr, Options{}).Plan()
	require.NoError(t, err)
	tags := make(map[string]vis.Tag, len(placements))
	for _, p := range placements {
		tags[p.Name] = p.Vis
	}
	assert.Equal(t, vis.Module, tags["spacer"])
	assert.Equal(t, vis.None, tags["spacer_outside"])
}

func TestBuildFoldsCorrections(t *testing.T) {
	tr := smallTree(t)
	shift := geom.Translation(v3.Vec{X: 0.5})
	tr.MustLookup("module_L1b").Correction = &shift

	rec := newRecorder()
	st, err := New(tr, Options{}).Build(rec)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Folded)
	assert.Nil(t, tr.MustLookup("module_L1b").Correction)
	assert.True(t, geom.VecNear(v3.Vec{X: -0.5, Y: -2, Z: -7}, rec.placements[2].Position, geom.Tolerance))

	// a second build does not fold again
	st, err = New(tr, Options{}).Build(newRecorder())
	require.NoError(t, err)
	assert.Zero(t, st.Folded)
}

func TestBuildMothersFirst(t *testing.T) {
	rec := newRecorder()
	_, err := New(smallTree(t), Options{}).Build(rec)
	require.NoError(t, err)
	assert.Equal(t, []kernel.Handle{kernel.World, 0, 1}, rec.mothers)
}

func TestMissingMotherLeavesSinksEmpty(t *testing.T) {
	tr := smallTree(t)
	tr.MustLookup("module_L1b").Mother = 42

	rec := newRecorder()
	_, err := New(tr, Options{}).Build(rec)
	require.Error(t, err)
	assert.True(t, IsStructural(err), err)
	var se graph.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "module_L1b", se.Name)
	assert.Empty(t, rec.placements)
}

func TestConfigurationErrors(t *testing.T) {
	var ce ConfigurationError

	_, err := New(nil, Options{}).Build(newRecorder())
	assert.True(t, errors.As(err, &ce), "nil tree")

	_, _, err = New(nil, Options{}).Plan()
	assert.True(t, errors.As(err, &ce), "nil tree plan")

	_, err = New(smallTree(t), Options{}).Build()
	assert.True(t, errors.As(err, &ce), "no sinks")

	_, err = New(smallTree(t), Options{}).Build(newRecorder(), nil)
	assert.True(t, errors.As(err, &ce), "nil sink")
}

func TestBuildTracker2014AllBackends(t *testing.T) {
	d, err := definition.ForVersion(definition.Tracker2014)
	require.NoError(t, err)
	tr, err := definition.Assemble(d, definition.Options{})
	require.NoError(t, err)

	de := detel.New(1, definition.Tracker2014.FirstLongLayer())
	doc := gdml.New(1, definition.Tracker2014.FirstLongLayer(), v3.Vec{X: 2000, Y: 2000, Z: 4000})
	solids := sdfx.New()
	st, err := New(tr, Options{}).Build(de, doc, solids)
	require.NoError(t, err)

	assert.Equal(t, tr.NodeCount()-1-st.Ghosts, st.Emitted)
	assert.Len(t, de.Elements(), st.Emitted)
	assert.Equal(t, st.Emitted, doc.Len())
	assert.Equal(t, st.Emitted, solids.Len())
	// six layers, two halves, two sensors per short module and four per long
	assert.Len(t, de.Sensors(), 3*2*2+3*2*4)

	for _, el := range de.Elements() {
		n := tr.MustLookup(el.Name)
		pm := tr.PhysicalMother(n)
		require.NotNil(t, pm)
		if pm.Kind == graph.KindWorld {
			assert.Equal(t, kernel.World, el.Mother, el.Name)
			continue
		}
		m, ok := de.Element(el.Mother)
		require.True(t, ok, el.Name)
		assert.Equal(t, pm.Name, m.Name, el.Name)
	}

	name := "module_L1b_halfmodule_axial_sensor_active"
	h, ok := de.Lookup(name)
	require.True(t, ok)
	el, _ := de.Element(h)
	v, ok := solids.Locate(el.Center)
	require.True(t, ok)
	assert.Equal(t, name, v.Name)
}
