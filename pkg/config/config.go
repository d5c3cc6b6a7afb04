// Package config provides configuration loading and management for svtgeom.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/definition"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
)

// Backend names accepted in output.backends.
const (
	BackendGDML  = "gdml"
	BackendDetEl = "detel"
	BackendSolid = "sdfx"
)

// Backends lists every known backend.
var Backends = []string{BackendGDML, BackendDetEl, BackendSolid}

// Side names accepted in geometry.sides.
const (
	SideAxial  = "axial"
	SideStereo = "stereo"
)

// MaxLayer is the highest layer number any layout uses.
const MaxLayer = 7

// Config represents the complete svtgeom configuration
type Config struct {
	Geometry  GeometryConfig  `yaml:"geometry"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

// GeometryConfig selects what gets built
type GeometryConfig struct {
	// Version is the built-in layout (testrun, 2014, 2019)
	Version string `yaml:"version"`
	// Script is a geometry script evaluated instead of the built-in layout
	Script string `yaml:"script,omitempty"`
	// Tolerance is the orthonormality tolerance for placed rotations
	Tolerance float64 `yaml:"tolerance"`
	// Layers restricts the layers built (empty = all)
	Layers []int `yaml:"layers,omitempty"`
	// Halves restricts the halves built (top, bottom)
	Halves []string `yaml:"halves"`
	// Sides restricts the half-module sides built (axial, stereo)
	Sides []string `yaml:"sides"`
	// ColdBlock adds the cooling blocks of each module
	ColdBlock bool `yaml:"cold_block"`
	// System is the detector system id packed into identifiers
	System int `yaml:"system"`
}

// AlignmentConfig configures where corrections come from
type AlignmentConfig struct {
	// Scale multiplies every parsed value (default: -1)
	Scale float64 `yaml:"scale"`
	// File is a millepede result file applied on top of the layout
	File string `yaml:"file,omitempty"`
	// Lenient accepts records with trailing columns
	Lenient bool `yaml:"lenient"`
	// Store is the SQLite conditions database path
	Store string `yaml:"store,omitempty"`
	// Run selects the stored set covering this run (0 = none)
	Run int `yaml:"run,omitempty"`
}

// OutputConfig configures the backends
type OutputConfig struct {
	Backends []string `yaml:"backends"`
	// Dir receives one file per backend that writes one
	Dir string `yaml:"dir"`
	// World is the full size of the GDML world box in mm
	World [3]float64 `yaml:"world"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{
			Version:   definition.Tracker2014.String(),
			Tolerance: geom.Tolerance,
			Halves:    []string{"top", "bottom"},
			Sides:     []string{SideAxial, SideStereo},
			System:    1,
		},
		Alignment: AlignmentConfig{
			Scale: alignment.DefaultScale,
		},
		Output: OutputConfig{
			Backends: []string{BackendGDML},
			Dir:      ".",
			World:    [3]float64{2000, 2000, 4000},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Geometry.Script == "" {
		if _, err := definition.ParseVersion(c.Geometry.Version); err != nil {
			return fmt.Errorf("geometry.version: %w", err)
		}
	}
	if c.Geometry.Tolerance <= 0 || c.Geometry.Tolerance > 1e-2 {
		return fmt.Errorf("geometry.tolerance must be in (0, 1e-2], got %g", c.Geometry.Tolerance)
	}
	for _, l := range c.Geometry.Layers {
		if l < 1 || l > MaxLayer {
			return fmt.Errorf("geometry.layers: layer %d outside [1, %d]", l, MaxLayer)
		}
	}
	if _, err := c.Halves(); err != nil {
		return err
	}
	if _, _, err := c.SkipSides(); err != nil {
		return err
	}
	if c.Alignment.Scale == 0 {
		return fmt.Errorf("alignment.scale must be non-zero")
	}
	if c.Alignment.Run < 0 {
		return fmt.Errorf("alignment.run must not be negative")
	}
	if c.Alignment.Run > 0 && c.Alignment.Store == "" {
		return fmt.Errorf("alignment.run needs alignment.store")
	}
	if len(c.Output.Backends) == 0 {
		return fmt.Errorf("output.backends is required")
	}
	for _, b := range c.Output.Backends {
		if !slices.Contains(Backends, b) {
			return fmt.Errorf("output.backends: unknown backend %q", b)
		}
	}
	for i, w := range c.Output.World {
		if w <= 0 {
			return fmt.Errorf("output.world[%d] must be positive", i)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// Halves parses geometry.halves.
func (c *Config) Halves() ([]alignment.Half, error) {
	var out []alignment.Half
	for _, s := range c.Geometry.Halves {
		h, err := alignment.ParseHalf(s)
		if err != nil {
			return nil, fmt.Errorf("geometry.halves: %w", err)
		}
		out = append(out, h)
	}
	return out, nil
}

// SkipSides turns geometry.sides into the skip flags of the assembler.
func (c *Config) SkipSides() (skipAxial, skipStereo bool, err error) {
	skipAxial, skipStereo = true, true
	for _, s := range c.Geometry.Sides {
		switch strings.ToLower(s) {
		case SideAxial:
			skipAxial = false
		case SideStereo:
			skipStereo = false
		default:
			return false, false, fmt.Errorf("geometry.sides: unknown side %q", s)
		}
	}
	if skipAxial && skipStereo {
		return false, false, fmt.Errorf("geometry.sides: at least one side is required")
	}
	return skipAxial, skipStereo, nil
}

// HasBackend reports whether name is among the configured backends.
func (c *Config) HasBackend(name string) bool {
	return slices.Contains(c.Output.Backends, name)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Geometry
	if other.Geometry.Version != "" {
		c.Geometry.Version = other.Geometry.Version
	}
	if other.Geometry.Script != "" {
		c.Geometry.Script = other.Geometry.Script
	}
	if other.Geometry.Tolerance != 0 {
		c.Geometry.Tolerance = other.Geometry.Tolerance
	}
	if len(other.Geometry.Layers) > 0 {
		c.Geometry.Layers = other.Geometry.Layers
	}
	if len(other.Geometry.Halves) > 0 {
		c.Geometry.Halves = other.Geometry.Halves
	}
	if len(other.Geometry.Sides) > 0 {
		c.Geometry.Sides = other.Geometry.Sides
	}
	if other.Geometry.ColdBlock {
		c.Geometry.ColdBlock = true
	}
	if other.Geometry.System != 0 {
		c.Geometry.System = other.Geometry.System
	}

	// Alignment
	if other.Alignment.Scale != 0 {
		c.Alignment.Scale = other.Alignment.Scale
	}
	if other.Alignment.File != "" {
		c.Alignment.File = other.Alignment.File
	}
	if other.Alignment.Lenient {
		c.Alignment.Lenient = true
	}
	if other.Alignment.Store != "" {
		c.Alignment.Store = other.Alignment.Store
	}
	if other.Alignment.Run != 0 {
		c.Alignment.Run = other.Alignment.Run
	}

	// Output
	if len(other.Output.Backends) > 0 {
		c.Output.Backends = other.Output.Backends
	}
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.World != ([3]float64{}) {
		c.Output.World = other.Output.World
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
