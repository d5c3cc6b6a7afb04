package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/builder"
	"github.com/JeffersonLab/svtgeom/pkg/config"
	"github.com/JeffersonLab/svtgeom/pkg/definition"
	"github.com/JeffersonLab/svtgeom/pkg/engine"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
	"github.com/JeffersonLab/svtgeom/pkg/kernel"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/detel"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/gdml"
	"github.com/JeffersonLab/svtgeom/pkg/kernel/sdfx"
)

// App ties the configuration to the geometry pipeline: definition or
// script, alignment, builder and backends.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
	runID  string
}

// Result holds the sinks filled by one build. Sinks that were not
// configured are nil.
type Result struct {
	RunID   string
	Version string
	Tree    *graph.Tree
	Stats   builder.Stats
	DetEl   *detel.Sink
	GDML    *gdml.Sink
	Solids  *sdfx.Sink
}

// NewApp creates an App for a validated config.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &App{
		cfg:    cfg,
		logger: logger.With("run", id),
		engine: engine.NewEngine(),
		runID:  id,
	}
}

// Alignment reads the configured parameters: the mille file when one is
// set, otherwise the stored set covering the configured run. It returns
// nil when neither is configured.
func (a *App) Alignment() (*alignment.Set, error) {
	var params []alignment.Parameter
	switch {
	case a.cfg.Alignment.File != "":
		f, err := os.Open(a.cfg.Alignment.File)
		if err != nil {
			return nil, fmt.Errorf("alignment: %w", err)
		}
		defer f.Close()
		p := alignment.NewParser(a.cfg.Alignment.Scale)
		p.Lenient = a.cfg.Alignment.Lenient
		if params, err = p.Read(f); err != nil {
			return nil, fmt.Errorf("%s: %w", a.cfg.Alignment.File, err)
		}
		a.logger.Info("read alignment file", "path", a.cfg.Alignment.File, "params", len(params))
	case a.cfg.Alignment.Run > 0:
		store, err := alignment.OpenStore(a.cfg.Alignment.Store)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		info, ps, err := store.ForRun(a.cfg.Alignment.Run)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", a.cfg.Alignment.Run, err)
		}
		params = ps
		a.logger.Info("loaded alignment set", "set", info.ID, "name", info.Name, "params", len(params))
	default:
		return nil, nil
	}
	return alignment.NewSet(params)
}

// Tree assembles the volume tree, either from the configured script or
// from the built-in layout.
func (a *App) Tree() (*graph.Tree, error) {
	set, err := a.Alignment()
	if err != nil {
		return nil, err
	}

	if a.cfg.Geometry.Script != "" {
		return a.evaluate(a.cfg.Geometry.Script, set)
	}

	version, err := definition.ParseVersion(a.cfg.Geometry.Version)
	if err != nil {
		return nil, err
	}
	d, err := definition.ForVersion(version)
	if err != nil {
		return nil, err
	}
	halves, err := a.cfg.Halves()
	if err != nil {
		return nil, err
	}
	skipAxial, skipStereo, err := a.cfg.SkipSides()
	if err != nil {
		return nil, err
	}
	return definition.Assemble(d, definition.Options{
		Layers:     a.cfg.Geometry.Layers,
		Halves:     halves,
		SkipAxial:  skipAxial,
		SkipStereo: skipStereo,
		ColdBlock:  a.cfg.Geometry.ColdBlock,
		Alignment:  set,
		Logger:     a.logger,
	})
}

func (a *App) evaluate(path string, set *alignment.Set) (*graph.Tree, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	a.engine.Alignment = set
	t, evalErrs, err := a.engine.Evaluate(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, 0, len(evalErrs))
		for _, e := range evalErrs {
			a.logger.Debug("script error", "path", path, "line", e.Line, "message", e.Message)
			errs = append(errs, e)
		}
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}
	a.logger.Info("evaluated script", "path", path, "version", t.Version, "volumes", t.NodeCount())
	return t, nil
}

// firstLongLayer picks the layout that numbers the identifiers: the tree's
// own when it came from a descriptor, else the configured one.
func (a *App) firstLongLayer(t *graph.Tree) int {
	for _, s := range []string{t.Version, a.cfg.Geometry.Version} {
		if v, err := definition.ParseVersion(s); err == nil {
			return v.FirstLongLayer()
		}
	}
	return definition.Tracker2014.FirstLongLayer()
}

// Build assembles the tree and emits it into the configured backends.
func (a *App) Build() (*Result, error) {
	t, err := a.Tree()
	if err != nil {
		return nil, err
	}
	return a.BuildTree(t, a.cfg.Output.Backends...)
}

// BuildTree emits t into the named backends.
func (a *App) BuildTree(t *graph.Tree, backends ...string) (*Result, error) {
	res := &Result{RunID: a.runID, Version: t.Version, Tree: t}
	firstLong := a.firstLongLayer(t)
	var sinks []kernel.Sink
	for _, b := range backends {
		switch b {
		case config.BackendDetEl:
			res.DetEl = detel.New(a.cfg.Geometry.System, firstLong)
			sinks = append(sinks, res.DetEl)
		case config.BackendGDML:
			w := a.cfg.Output.World
			res.GDML = gdml.New(a.cfg.Geometry.System, firstLong, v3.Vec{X: w[0], Y: w[1], Z: w[2]})
			sinks = append(sinks, res.GDML)
		case config.BackendSolid:
			res.Solids = sdfx.New()
			sinks = append(sinks, res.Solids)
		default:
			return nil, builder.ConfigurationError{Reason: fmt.Sprintf("unknown backend %q", b)}
		}
	}

	b := builder.New(t, builder.Options{Tolerance: a.cfg.Geometry.Tolerance, Logger: a.logger})
	st, err := b.Build(sinks...)
	if err != nil {
		return nil, err
	}
	res.Stats = st
	return res, nil
}

// Write stores the file-producing backends of res under the output
// directory and returns the paths written.
func (a *App) Write(res *Result) ([]string, error) {
	dir := a.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	var written []string
	save := func(name string, encode func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := encode(&buf); err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	base := "svt_" + res.Version
	if res.GDML != nil {
		if err := save(base+".gdml", res.GDML.Encode); err != nil {
			return written, err
		}
	}
	if res.DetEl != nil {
		if err := save(base+"_detel.yaml", res.DetEl.Encode); err != nil {
			return written, err
		}
	}
	a.logger.Info("wrote outputs", "files", len(written), "dir", dir)
	return written, nil
}

// ImportConditions reads a mille file and stores it as a named set
// valid for runs [runMin, runMax].
func (a *App) ImportConditions(name, path string, runMin, runMax int) (alignment.SetInfo, error) {
	if a.cfg.Alignment.Store == "" {
		return alignment.SetInfo{}, builder.ConfigurationError{Reason: "no conditions store configured"}
	}
	f, err := os.Open(path)
	if err != nil {
		return alignment.SetInfo{}, err
	}
	defer f.Close()

	p := alignment.NewParser(a.cfg.Alignment.Scale)
	p.Lenient = a.cfg.Alignment.Lenient
	params, err := p.Read(f)
	if err != nil {
		return alignment.SetInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	store, err := alignment.OpenStore(a.cfg.Alignment.Store)
	if err != nil {
		return alignment.SetInfo{}, err
	}
	defer store.Close()
	info, err := store.Import(name, runMin, runMax, params)
	if err != nil {
		return alignment.SetInfo{}, err
	}
	a.logger.Info("imported conditions", "set", info.ID, "name", name, "params", info.Count)
	return info, nil
}

// ListConditions returns the stored sets.
func (a *App) ListConditions() ([]alignment.SetInfo, error) {
	if a.cfg.Alignment.Store == "" {
		return nil, builder.ConfigurationError{Reason: "no conditions store configured"}
	}
	store, err := alignment.OpenStore(a.cfg.Alignment.Store)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List()
}

// Locate builds the solid backend and returns the path of the deepest
// volume containing p, outermost first.
func (a *App) Locate(p v3.Vec) ([]string, error) {
	t, err := a.Tree()
	if err != nil {
		return nil, err
	}
	res, err := a.BuildTree(t, config.BackendSolid)
	if err != nil {
		return nil, err
	}
	v, ok := res.Solids.Locate(p)
	if !ok {
		return nil, nil
	}
	var path []string
	for v != nil {
		path = append([]string{v.Name}, path...)
		v, _ = res.Solids.Volume(v.Mother)
	}
	return path, nil
}

