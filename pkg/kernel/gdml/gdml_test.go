package gdml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
	"github.com/JeffersonLab/svtgeom/pkg/vis"
)

func create(t *testing.T, s *Sink, name, mother string, rot geom.Rotation) {
	t.Helper()
	m := kernel.World
	if mother != graph.WorldName {
		var ok bool
		m, ok = s.Lookup(mother)
		require.True(t, ok, mother)
	}
	_, err := s.Create(kernel.Placement{
		Name:     name,
		Mother:   mother,
		Position: v3.Vec{X: 1, Y: 2, Z: 3},
		Rotation: rot,
		Box:      v3.Vec{X: 10, Y: 20, Z: 30},
		Material: "Silicon",
		Vis:      vis.Assign(name, strings.HasPrefix(name, "module_")),
	}, m)
	require.NoError(t, err)
}

func encode(t *testing.T, s *Sink) (string, document) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	var doc document
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	return buf.String(), doc
}

func TestDocumentStructure(t *testing.T) {
	s := New(1, 4, v3.Vec{X: 1000, Y: 1000, Z: 2000})
	create(t, s, "base", graph.WorldName, geom.Identity())
	create(t, s, "module_L2b", "base", geom.Identity())
	create(t, s, "module_L2b_halfmodule_axial", "module_L2b", geom.Identity())
	create(t, s, "module_L2b_halfmodule_axial_sensor", "module_L2b_halfmodule_axial", geom.Identity())
	create(t, s, "module_L2b_halfmodule_axial_sensor_active", "module_L2b_halfmodule_axial_sensor", geom.Identity())
	assert.Equal(t, 5, s.Len())

	text, doc := encode(t, s)
	assert.True(t, strings.HasPrefix(text, xml.Header))

	assert.Len(t, doc.Define.Positions, 5)
	assert.Len(t, doc.Define.Rotations, 5)
	assert.Len(t, doc.Solids.Boxes, 6)
	assert.Equal(t, "module_L2bBox", doc.Solids.Boxes[1].Name)
	assert.Equal(t, 20.0, doc.Solids.Boxes[1].Y)

	names := make([]string, 0, len(doc.Structure.Volumes))
	for _, lv := range doc.Structure.Volumes {
		names = append(names, lv.Name)
	}
	assert.Equal(t, []string{
		"module_L2b_halfmodule_axial_sensor_active_volume",
		"module_L2b_halfmodule_axial_sensor_volume",
		"module_L2b_halfmodule_axial_volume",
		"module_L2b_volume",
		"base_volume",
		graph.WorldName,
	}, names)
	assert.Equal(t, graph.WorldName, doc.Setup.World.Ref)

	world := doc.Structure.Volumes[5]
	require.Len(t, world.Physvols, 1)
	assert.Equal(t, "base_volume", world.Physvols[0].Volume.Ref)
	assert.Equal(t, "base_position", world.Physvols[0].Position.Ref)
	assert.Equal(t, DefaultWorldMaterial, world.Material.Ref)

	sensor := doc.Structure.Volumes[1]
	assert.Equal(t, "Silicon", sensor.Material.Ref)
	assert.Equal(t, "module_L2b_halfmodule_axial_sensorBox", sensor.Solid.Ref)
	require.Len(t, sensor.Auxiliary, 1)
	assert.Equal(t, string(vis.Sensor), sensor.Auxiliary[0].Value)
	require.Len(t, sensor.Physvols, 1)
	assert.Equal(t, []PhysVolID{{"sensor", 0}}, sensor.Physvols[0].IDs)

	half := doc.Structure.Volumes[3]
	require.Len(t, half.Physvols, 1)
	// bottom layer 2 axial: old layer 4, module 1
	assert.Equal(t, []PhysVolID{
		{"system", 1},
		{"barrel", 0},
		{"layer", 4},
		{"module", 1},
	}, half.Physvols[0].IDs)
	assert.Equal(t, []PhysVolID{{"component", 0}}, doc.Structure.Volumes[2].Physvols[0].IDs)
	assert.Empty(t, doc.Structure.Volumes[4].Physvols[0].IDs)
}

func TestRotationIsInverted(t *testing.T) {
	s := New(1, 4, v3.Vec{X: 100, Y: 100, Z: 100})
	create(t, s, "base", graph.WorldName, geom.RotationZ(0.25))
	_, doc := encode(t, s)

	require.Len(t, doc.Define.Rotations, 1)
	r := doc.Define.Rotations[0]
	assert.Equal(t, "base_rotation", r.Name)
	assert.Equal(t, angleUnit, r.Unit)
	assert.InDelta(t, 0, r.X, 1e-12)
	assert.InDelta(t, 0, r.Y, 1e-12)
	assert.InDelta(t, -0.25, r.Z, 1e-12)

	p := doc.Define.Positions[0]
	assert.Equal(t, position{Name: "base_position", X: 1, Y: 2, Z: 3, Unit: lengthUnit}, p)
}

func TestCreateRejects(t *testing.T) {
	s := New(1, 4, v3.Vec{X: 100, Y: 100, Z: 100})
	create(t, s, "base", graph.WorldName, geom.Identity())

	var se graph.StructuralError
	_, err := s.Create(kernel.Placement{Name: "base"}, kernel.World)
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "base", se.Name)

	_, err = s.Create(kernel.Placement{Name: "orphan"}, kernel.Handle(4))
	assert.True(t, errors.As(err, &se))

	_, err = s.Create(kernel.Placement{Name: graph.WorldName}, kernel.World)
	assert.True(t, errors.As(err, &se))

	_, err = s.Create(kernel.Placement{Name: "module_L1_halfmodule_axial"}, kernel.World)
	assert.Error(t, err, "half-module without a half")
	assert.Equal(t, 1, s.Len())
}
