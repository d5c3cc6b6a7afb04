// Package builder walks a volume tree and instantiates its physical
// volumes in one or more backend sinks. Every placement is resolved before
// the first sink sees anything, so a structural problem leaves the sinks
// untouched.
package builder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
	"github.com/JeffersonLab/svtgeom/pkg/vis"
)

// ConfigurationError reports a build started without something it needs.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// Options tunes a Builder.
type Options struct {
	// Rules assigns visualization tags. Nil means vis.DefaultRules.
	Rules vis.Rules
	// Tolerance bounds the orthonormality error of a placed rotation. Zero
	// means geom.Tolerance.
	Tolerance float64
	Logger    *slog.Logger
}

// Stats counts what one build did.
type Stats struct {
	Visited int // nodes walked, the world included
	Ghosts  int
	Folded  int // corrections folded into local frames
	Emitted int // placements per sink
}

// Builder instantiates one tree.
type Builder struct {
	tree   *graph.Tree
	rules  vis.Rules
	tol    float64
	logger *slog.Logger
}

// New returns a builder for tree.
func New(tree *graph.Tree, opts Options) *Builder {
	b := &Builder{tree: tree, rules: opts.Rules, tol: opts.Tolerance, logger: opts.Logger}
	if b.rules == nil {
		b.rules = vis.DefaultRules
	}
	if b.tol <= 0 {
		b.tol = geom.Tolerance
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Plan folds pending corrections and resolves the placement of every
// physical volume, mothers first.
func (b *Builder) Plan() ([]kernel.Placement, Stats, error) {
	var st Stats
	if b.tree == nil {
		return nil, st, ConfigurationError{Reason: "no geometry definition attached"}
	}
	findings := graph.Validate(b.tree)
	for _, f := range findings {
		if f.Severity == graph.SeverityWarning {
			b.logger.Warn("validation", "volume", f.Node, "message", f.Message)
		}
	}
	if errs := graph.Errors(findings); len(errs) > 0 {
		for _, e := range errs {
			b.logger.Debug("validation", "error", e.Error())
		}
		reason := errs[0].Message
		if len(errs) > 1 {
			reason = fmt.Sprintf("%s (and %d more)", reason, len(errs)-1)
		}
		return nil, st, graph.StructuralError{Name: errs[0].Node, Reason: reason}
	}

	folded, err := b.tree.Resolve()
	if err != nil {
		return nil, st, err
	}
	st.Folded = folded

	placed := map[string]bool{graph.WorldName: true}
	var out []kernel.Placement
	err = b.tree.Walk(func(n *graph.Node, _ int) error {
		st.Visited++
		switch {
		case n.Kind == graph.KindWorld:
			return nil
		case n.Ghost:
			st.Ghosts++
			return nil
		}
		p, err := b.place(n)
		if err != nil {
			return err
		}
		if !placed[p.Mother] {
			return graph.StructuralError{Name: n.Name, Reason: fmt.Sprintf("mother %q was not instantiated", p.Mother)}
		}
		placed[p.Name] = true
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, st, err
	}
	st.Emitted = len(out)
	return out, st, nil
}

// place positions n's box centre in its physical mother, relative to the
// mother's box centre.
func (b *Builder) place(n *graph.Node) (kernel.Placement, error) {
	pm := b.tree.PhysicalMother(n)
	if pm == nil {
		return kernel.Placement{}, graph.StructuralError{Name: n.Name, Reason: "no physical mother"}
	}
	toMother, err := b.tree.TransformTo(n, pm.Name)
	if err != nil {
		return kernel.Placement{}, err
	}
	global, err := b.tree.Global(n)
	if err != nil {
		return kernel.Placement{}, err
	}
	if err := global.Rotation.Validate(b.tol); err != nil {
		return kernel.Placement{}, fmt.Errorf("%s: %w", n.Name, err)
	}

	return kernel.Placement{
		Name:         n.Name,
		Mother:       pm.Name,
		Kind:         n.Kind,
		Position:     toMother.Apply(n.Center).Sub(pm.Center),
		Rotation:     toMother.Rotation,
		Global:       global,
		GlobalCenter: global.Apply(n.Center),
		Box:          n.Box,
		Material:     n.Material,
		Vis:          b.rules.Assign(n.Name, b.tree.InModule(n)),
	}, nil
}

// Build plans the tree and emits it into every sink in turn. A sink that
// fails part way must be discarded by the caller.
func (b *Builder) Build(sinks ...kernel.Sink) (Stats, error) {
	if b.tree == nil {
		return Stats{}, ConfigurationError{Reason: "no geometry definition attached"}
	}
	if len(sinks) == 0 {
		return Stats{}, ConfigurationError{Reason: "no backend sink"}
	}
	for i, s := range sinks {
		if s == nil {
			return Stats{}, ConfigurationError{Reason: fmt.Sprintf("sink %d is nil", i)}
		}
	}

	placements, st, err := b.Plan()
	if err != nil {
		return st, fmt.Errorf("build %s: %w", b.tree.Version, err)
	}
	for _, s := range sinks {
		if err := emit(s, placements); err != nil {
			return st, fmt.Errorf("build %s: %w", b.tree.Version, err)
		}
	}
	b.logger.Info("geometry built",
		"version", b.tree.Version,
		"visited", st.Visited,
		"ghosts", st.Ghosts,
		"folded", st.Folded,
		"emitted", st.Emitted,
		"sinks", len(sinks))
	return st, nil
}

func emit(s kernel.Sink, placements []kernel.Placement) error {
	for _, p := range placements {
		mother := kernel.World
		if p.Mother != graph.WorldName {
			h, ok := s.Lookup(p.Mother)
			if !ok {
				return graph.StructuralError{Name: p.Name, Reason: fmt.Sprintf("mother %q not found in sink", p.Mother)}
			}
			mother = h
		}
		if _, err := s.Create(p, mother); err != nil {
			return fmt.Errorf("create %s: %w", p.Name, err)
		}
	}
	return nil
}

// IsStructural reports whether err is a structural failure.
func IsStructural(err error) bool {
	var se graph.StructuralError
	return errors.As(err, &se)
}
