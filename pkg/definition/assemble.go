package definition

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

// Options selects what Assemble builds. The zero value builds every layer
// of both halves without alignment.
type Options struct {
	Layers     []int            // empty selects all
	Halves     []alignment.Half // empty selects both
	SkipAxial  bool
	SkipStereo bool
	ColdBlock  bool

	// Alignment, when set, attaches pending corrections to supports,
	// modules and half-modules.
	Alignment *alignment.Set
	Logger    *slog.Logger
}

func (o Options) wantLayer(l int) bool {
	return len(o.Layers) == 0 || slices.Contains(o.Layers, l)
}

func (o Options) wantHalf(h alignment.Half) bool {
	return len(o.Halves) == 0 || slices.Contains(o.Halves, h)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type assembler struct {
	desc *Descriptor
	opts Options
	tree *graph.Tree
}

// Assemble builds the volume tree of d.
func Assemble(d *Descriptor, opts Options) (*graph.Tree, error) {
	if d == nil {
		return nil, fmt.Errorf("definition: nil descriptor")
	}
	if opts.SkipAxial && opts.SkipStereo {
		return nil, fmt.Errorf("definition: both axial and stereo sides are skipped")
	}
	for _, l := range opts.Layers {
		if _, ok := d.Layer(l); !ok {
			return nil, fmt.Errorf("definition: %s has no layer %d", d.Version, l)
		}
	}
	for _, h := range opts.Halves {
		if h != alignment.HalfTop && h != alignment.HalfBottom {
			return nil, fmt.Errorf("definition: invalid half %d", int(h))
		}
	}

	a := &assembler{desc: d, opts: opts, tree: graph.New(d.Version.String())}
	for _, vs := range d.Volumes {
		if err := a.volume(vs); err != nil {
			return nil, err
		}
	}
	for _, ls := range d.Layers {
		if !opts.wantLayer(ls.Layer) {
			continue
		}
		for _, half := range []alignment.Half{alignment.HalfBottom, alignment.HalfTop} {
			if !opts.wantHalf(half) {
				continue
			}
			if err := a.module(ls, half); err != nil {
				return nil, fmt.Errorf("definition: layer %d %s: %w", ls.Layer, half, err)
			}
		}
	}
	opts.logger().Info("assembled volume tree",
		"version", d.Version.String(),
		"volumes", a.tree.NodeCount(),
		"aligned", opts.Alignment.Len() > 0)
	return a.tree, nil
}

// insert builds the local frame from the survey and adds the node under
// mother. Reference volumes are applied when the tree is resolved.
func insert(t *graph.Tree, n *graph.Node, survey Survey, mother string) (*graph.Node, error) {
	f, err := survey.Frame()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Name, err)
	}
	n.Local = f
	if n.Kind == graph.KindVolume {
		n.Kind = graph.KindFromName(n.Name)
	}
	if _, err := t.Add(n, mother); err != nil {
		return nil, err
	}
	return n, nil
}

// AddVolume inserts the volume described by vs into t. Support corrections
// are not attached.
func AddVolume(t *graph.Tree, vs VolumeSpec) (*graph.Node, error) {
	n := &graph.Node{
		Name:     vs.Name,
		Center:   vs.Center,
		Box:      vs.Box,
		Material: vs.Material,
		Ghost:    vs.Ghost,
		Refs:     vs.Refs,
	}
	return insert(t, n, vs.Survey, vs.Mother)
}

func (a *assembler) add(n *graph.Node, survey Survey, mother string) (*graph.Node, error) {
	return insert(a.tree, n, survey, mother)
}

func (a *assembler) volume(vs VolumeSpec) error {
	n, err := AddVolume(a.tree, vs)
	if err != nil {
		return err
	}
	corr, err := a.supportCorrection(vs)
	if err != nil {
		return fmt.Errorf("definition: %s: %w", vs.Name, err)
	}
	attach(n, corr)
	return nil
}

func (a *assembler) module(ls LayerSpec, half alignment.Half) error {
	ms := ls.Module(half)
	name := fmt.Sprintf("module_L%d%s", ls.Layer, half.Letter())
	mod := &graph.Node{
		Name:     name,
		Kind:     graph.KindModule,
		Center:   ls.Center,
		Box:      ls.Box,
		Material: "Vacuum",
	}
	if ms.Ref != "" {
		mod.Refs = []string{ms.Ref}
	}
	if _, err := a.add(mod, ms.Survey, ms.Mother); err != nil {
		return err
	}
	if ls.ModuleAligned {
		c, err := a.opts.Alignment.HalfModuleCorrection(half, alignment.ModuleMillepedeID(ls.Layer))
		if err != nil {
			return err
		}
		attach(mod, c)
	}
	if ls.ColdBlock && a.opts.ColdBlock {
		if err := a.coldBlock(ls, name); err != nil {
			return err
		}
	}

	sides := []bool{true, false}
	for _, axial := range sides {
		if axial && a.opts.SkipAxial || !axial && a.opts.SkipStereo {
			continue
		}
		switch ls.Shape {
		case ShortBundle, OneSensorBundle:
			if err := a.halfModule(ls, half, name, axial, true, ""); err != nil {
				return err
			}
		case LongBundle:
			for _, hole := range sides {
				pos := "_hole"
				if !hole {
					pos = "_slot"
				}
				if err := a.halfModule(ls, half, name, axial, hole, pos); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown bundle shape %s", ls.Shape)
		}
	}
	return nil
}

// component is a leaf of a half-module stack, placed without rotation.
type component struct {
	name     string
	mother   string
	at       v3.Vec
	box      v3.Vec
	material string
}

// halfModule places one sensor with its stack. The half-module frame sits
// at the sensor centre; the stereo frame is turned about w.
func (a *assembler) halfModule(ls LayerSpec, half alignment.Half, module string, axial, hole bool, pos string) error {
	side := "axial"
	origin := ls.Axial
	if !axial {
		side = "stereo"
		origin = origin.Add(v3.Vec{Z: ls.SideGap})
	}
	if !hole {
		origin = origin.Add(v3.Vec{Y: ls.SlotOffset})
	}
	angle := 0.0
	if !axial {
		angle = ls.StereoAngle
	}
	survey := Survey{
		Ball: origin,
		Vee:  origin.Add(v3.Vec{X: math.Cos(angle), Y: math.Sin(angle)}),
		Flat: origin.Add(v3.Vec{X: -math.Sin(angle), Y: math.Cos(angle)}),
	}

	s := ls.Sensor
	full := ls.Shape == ShortBundle
	length, height := s.Length, s.Thickness+laminationThickness
	if full {
		length += hybridLength
		height += cfThickness + hybridThickness
	}
	name := module + "_halfmodule_" + side + pos
	hm := &graph.Node{
		Name:     name,
		Kind:     graph.KindHalfModule,
		Box:      v3.Vec{X: s.Width, Y: length, Z: height},
		Center:   v3.Vec{Y: (length - s.Length) / 2, Z: s.Thickness/2 - height/2},
		Material: "Vacuum",
	}
	if _, err := a.add(hm, survey, module); err != nil {
		return err
	}
	sensor := alignment.MillepedeLayer(half == alignment.HalfTop, ls.Layer, axial, hole, a.desc.Version.FirstLongLayer())
	c, err := a.opts.Alignment.HalfModuleCorrection(half, sensor)
	if err != nil {
		return err
	}
	attach(hm, c)

	below := -s.Thickness / 2
	parts := []component{
		{name + "_sensor", name, v3.Vec{}, v3.Vec{X: s.Width, Y: s.Length, Z: s.Thickness}, "Silicon"},
		{name + "_sensor_active", name + "_sensor", v3.Vec{}, v3.Vec{X: s.ActiveWidth, Y: s.ActiveLength, Z: s.Thickness}, "Silicon"},
		{name + "_lamination", name, v3.Vec{Z: below - laminationThickness/2},
			v3.Vec{X: s.Width - laminationInset, Y: s.Length, Z: laminationThickness}, "Kapton"},
	}
	if full {
		cfZ := below - laminationThickness - cfThickness/2
		hybZ := cfZ - cfThickness/2 - hybridThickness/2
		parts = append(parts,
			component{name + "_cf", name, v3.Vec{Y: hybridLength / 2, Z: cfZ},
				v3.Vec{X: s.Width, Y: length, Z: cfThickness}, "CarbonFiber"},
			component{name + "_hybrid", name, v3.Vec{Y: s.Length/2 + hybridLength/2, Z: hybZ},
				v3.Vec{X: s.Width, Y: hybridLength, Z: hybridThickness}, "G10"},
		)
	}
	for _, p := range parts {
		n := &graph.Node{Name: p.name, Box: p.box, Material: p.material}
		if _, err := a.add(n, CanonicalAt(p.at), p.mother); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) coldBlock(ls LayerSpec, module string) error {
	n := &graph.Node{
		Name:     module + "_coldblock",
		Kind:     graph.KindComponent,
		Box:      v3.Vec{X: ls.Sensor.Width + 12.0, Y: 82.0, Z: 6.0},
		Material: "Aluminum",
	}
	at := v3.Vec{X: ls.Axial.X, Y: ls.Axial.Y + ls.Sensor.Length/2 + hybridLength/2, Z: ls.Axial.Z + ls.SideGap/2}
	_, err := a.add(n, CanonicalAt(at), module)
	return err
}

func (a *assembler) supportCorrection(vs VolumeSpec) (*alignment.Correction, error) {
	if a.opts.Alignment == nil {
		return nil, nil
	}
	var c alignment.Correction
	var err error
	switch vs.Correction {
	case NoCorrection:
		return nil, nil
	case UChannelRotation:
		c, err = a.opts.Alignment.UChannelCorrection(vs.Half)
	case FrontSupport:
		c, err = a.opts.Alignment.SupportCorrection(vs.Half, frontSupportSensor)
	case RearSupport:
		c, err = a.opts.Alignment.SupportCorrection(vs.Half, rearSupportSensor)
	default:
		return nil, fmt.Errorf("unknown correction rule %d", int(vs.Correction))
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// attach leaves c pending on n. Zero corrections are dropped.
func attach(n *graph.Node, c *alignment.Correction) {
	if c == nil || c.IsZero() {
		return
	}
	t := c.AsRigidTransform()
	n.Correction = &t
}
