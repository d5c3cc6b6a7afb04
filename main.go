// Command svtgeom builds the silicon vertex tracker geometry from its survey
// description and alignment constants, and writes it out through one or
// more backends.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/spf13/cobra"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/config"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

const (
	Version = "0.1.0"
	appName = "svtgeom"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the persistent command line overrides.
type flags struct {
	configPath string
	logLevel   string
	version    string
	script     string
	mille      string
	store      string
	run        int
	layers     []int
	halves     []string
	backends   []string
	outDir     string
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Silicon vertex tracker geometry builder",
		Long: `svtgeom turns the survey description of the silicon vertex tracker
into placed volumes, applying millepede alignment corrections on the way.

Backends:
- gdml:  GDML-style markup with physvol identifiers
- detel: detector-element tree with packed identifiers (YAML)
- sdfx:  solid model used for point location`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&f.version, "version", "", "Layout version (testrun, 2014, 2019)")
	pf.StringVar(&f.script, "script", "", "Geometry script evaluated instead of the built-in layout")
	pf.StringVar(&f.mille, "alignment", "", "Millepede result file")
	pf.StringVar(&f.store, "store", "", "Conditions database path")
	pf.IntVar(&f.run, "run", 0, "Run number selecting the stored alignment set")
	pf.IntSliceVar(&f.layers, "layers", nil, "Layers to build (default all)")
	pf.StringSliceVar(&f.halves, "halves", nil, "Halves to build (top, bottom)")
	pf.StringSliceVar(&f.backends, "backend", nil, "Backends (gdml, detel, sdfx)")
	pf.StringVarP(&f.outDir, "out", "o", "", "Output directory")

	cmd.AddCommand(buildCmd(&f))
	cmd.AddCommand(treeCmd(&f))
	cmd.AddCommand(paramsCmd(&f))
	cmd.AddCommand(conditionsCmd(&f))
	cmd.AddCommand(locateCmd(&f))
	cmd.AddCommand(&cobra.Command{
		Use:   "about",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}

// loadConfig layers the defaults, the config file and the flags, then
// validates the result.
func loadConfig(f *flags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		fileCfg, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	cfg.Merge(&config.Config{
		Geometry: config.GeometryConfig{
			Version: f.version,
			Script:  f.script,
			Layers:  f.layers,
			Halves:  f.halves,
		},
		Alignment: config.AlignmentConfig{
			File:  f.mille,
			Store: f.store,
			Run:   f.run,
		},
		Output: config.OutputConfig{
			Backends: f.backends,
			Dir:      f.outDir,
		},
		Log: config.LogConfig{Level: f.logLevel},
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

func setup(f *flags) (*App, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, newLogger(cfg.Log.Level)), nil
}

func buildCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the geometry and write the backend outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(f)
			if err != nil {
				return err
			}
			res, err := app.Build()
			if err != nil {
				return err
			}
			files, err := app.Write(res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d volumes placed, %d ghosts skipped, %d corrections folded\n",
				res.RunID, res.Stats.Emitted, res.Stats.Ghosts, res.Stats.Folded)
			for _, p := range files {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

func treeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the volume tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(f)
			if err != nil {
				return err
			}
			t, err := app.Tree()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return t.Walk(func(n *graph.Node, depth int) error {
				mark := ""
				if n.Ghost {
					mark = " (ghost)"
				}
				if n.Correction != nil {
					mark += " (corrected)"
				}
				fmt.Fprintf(out, "%s%s [%s]%s\n", strings.Repeat("  ", depth), n.Name, n.Kind, mark)
				return nil
			})
		},
	}
}

func paramsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "params <millepede-file>",
		Short: "Decode a millepede result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			p := alignment.NewParser(cfg.Alignment.Scale)
			p.Lenient = cfg.Alignment.Lenient
			params, err := p.Read(file)
			if err != nil {
				return err
			}
			set, err := alignment.NewSet(params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, par := range set.Params() {
				fd := par.Fields()
				fmt.Fprintf(out, "%5d %-12s %-6s %-11s %s sensor %2d %12.6g\n",
					par.ID, par.CanonicalName(), fd.Half, fd.Type, fd.Dim, fd.Sensor, par.Value)
			}
			return nil
		},
	}
}

func conditionsCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conditions",
		Short: "Manage stored alignment sets",
	}

	var name string
	var runMin, runMax int
	importCmd := &cobra.Command{
		Use:   "import <millepede-file>",
		Short: "Store a millepede result file for a run range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(f)
			if err != nil {
				return err
			}
			if name == "" {
				name = args[0]
			}
			info, err := app.ImportConditions(name, args[0], runMin, runMax)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s runs %d-%d, %d parameters\n",
				info.ID, info.Name, info.RunMin, info.RunMax, info.Count)
			return nil
		},
	}
	importCmd.Flags().StringVar(&name, "name", "", "Set name (default: the file name)")
	importCmd.Flags().IntVar(&runMin, "run-min", 0, "First run the set is valid for")
	importCmd.Flags().IntVar(&runMax, "run-max", 0, "Last run the set is valid for")
	_ = importCmd.MarkFlagRequired("run-max")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored alignment sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(f)
			if err != nil {
				return err
			}
			sets, err := app.ListConditions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sets {
				fmt.Fprintf(out, "%s %-24s runs %d-%d %4d params %s\n",
					s.ID, s.Name, s.RunMin, s.RunMax, s.Count, s.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func locateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <x> <y> <z>",
		Short: "Print the volumes containing a global point (mm)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var xyz [3]float64
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("coordinate %d: %w", i, err)
				}
				xyz[i] = v
			}
			app, err := setup(f)
			if err != nil {
				return err
			}
			path, err := app.Locate(v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
			if err != nil {
				return err
			}
			if len(path) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "outside every volume")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(path, " > "))
			return nil
		},
	}
}

