package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/JeffersonLab/svtgeom/pkg/alignment"
	"github.com/JeffersonLab/svtgeom/pkg/definition"
	"github.com/JeffersonLab/svtgeom/pkg/geom"
	"github.com/JeffersonLab/svtgeom/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms geometry script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: cold-block -> cold_block
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of the name, not
		// a minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSurvey wraps the three survey points of a volume.
type sexpSurvey struct {
	survey definition.Survey
}

func (s *sexpSurvey) SexpString(ps *zygo.PrintState) string {
	b := s.survey.Ball
	return fmt.Sprintf("(survey :ball (vec3 %g %g %g) ...)", b.X, b.Y, b.Z)
}
func (s *sexpSurvey) Type() *zygo.RegisteredType { return nil }

// sexpVolume refers to a volume added to the tree.
type sexpVolume struct {
	name string
}

func (v *sexpVolume) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(volumeref %q)", v.name)
}
func (v *sexpVolume) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// A trailing keyword is a flag.
				result.kw[name] = &zygo.SexpBool{Val: true}
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_top) and plain strings ("top").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts true/false and treats nil as false.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSurvey extracts the points of a sexpSurvey.
func toSurvey(s zygo.Sexp) (definition.Survey, error) {
	if v, ok := s.(*sexpSurvey); ok {
		return v.survey, nil
	}
	return definition.Survey{}, fmt.Errorf("expected survey, got %T (%s)", s, s.SexpString(nil))
}

// toVolumeName accepts a volume reference or a plain name.
func toVolumeName(s zygo.Sexp) (string, error) {
	if v, ok := s.(*sexpVolume); ok {
		return v.name, nil
	}
	return toString(s)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// scriptVersion names trees built from scripts without a descriptor.
const scriptVersion = "script"

// session is the tree a single evaluation populates.
type session struct {
	tree  *graph.Tree
	align *alignment.Set // handed to descriptor
}

func newSession(align *alignment.Set) *session {
	return &session{tree: graph.New(scriptVersion), align: align}
}

// surveyFrom reads :survey, :ball/:vee/:flat or :at, in that order of
// preference. Without any of them the volume sits at its mother's origin.
func surveyFrom(fn string, pa kwArgs) (definition.Survey, error) {
	if v, ok := pa.kw["survey"]; ok {
		s, err := toSurvey(v)
		if err != nil {
			return definition.Survey{}, fmt.Errorf("%s: survey: %w", fn, err)
		}
		return s, nil
	}
	if _, ok := pa.kw["ball"]; ok {
		return surveyPoints(fn, pa)
	}
	at := v3.Vec{}
	if v, ok := pa.kw["at"]; ok {
		p, err := toVec3(v)
		if err != nil {
			return definition.Survey{}, fmt.Errorf("%s: at: %w", fn, err)
		}
		at = p
	}
	return definition.CanonicalAt(at), nil
}

func surveyPoints(fn string, pa kwArgs) (definition.Survey, error) {
	var s definition.Survey
	for _, p := range []struct {
		key string
		dst *v3.Vec
	}{
		{"ball", &s.Ball},
		{"vee", &s.Vee},
		{"flat", &s.Flat},
	} {
		v, ok := pa.kw[p.key]
		if !ok {
			return s, fmt.Errorf("%s: missing :%s", fn, p.key)
		}
		vec, err := toVec3(v)
		if err != nil {
			return s, fmt.Errorf("%s: %s: %w", fn, p.key, err)
		}
		*p.dst = vec
	}
	return s, nil
}

// addVolume implements volume and ghost.
func (s *session) addVolume(fn string, args []zygo.Sexp, ghost bool) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 1 {
		return zygo.SexpNull, fmt.Errorf("%s requires a name argument", fn)
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
	}

	vs := definition.VolumeSpec{Name: name, Mother: graph.WorldName, Ghost: ghost}
	if v, ok := pa.kw["mother"]; ok {
		if vs.Mother, err = toVolumeName(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: mother: %w", fn, err)
		}
	}
	if vs.Survey, err = surveyFrom(fn, pa); err != nil {
		return zygo.SexpNull, err
	}
	if v, ok := pa.kw["box"]; ok {
		if vs.Box, err = toVec3(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: box: %w", fn, err)
		}
	}
	if v, ok := pa.kw["center"]; ok {
		if vs.Center, err = toVec3(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: center: %w", fn, err)
		}
	}
	if v, ok := pa.kw["material"]; ok {
		if vs.Material, err = toString(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: material: %w", fn, err)
		}
	}
	if v, ok := pa.kw["ghost"]; ok {
		if vs.Ghost, err = toBool(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: ghost: %w", fn, err)
		}
	}
	if v, ok := pa.kw["refs"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: refs: %w", fn, err)
		}
		for _, item := range items {
			ref, err := toVolumeName(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: refs entry: %w", fn, err)
			}
			vs.Refs = append(vs.Refs, ref)
		}
	}

	if _, err := definition.AddVolume(s.tree, vs); err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	return &sexpVolume{name: name}, nil
}

// registerBuiltins installs the geometry builtins into a zygomys
// environment. The builtins populate the session's tree during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (inch 2.5) converts to millimetres.
	// -----------------------------------------------------------------------
	env.AddFunction("inch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("inch requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("inch: %w", err)
		}
		return &zygo.SexpFloat{Val: f * 25.4}, nil
	})

	// -----------------------------------------------------------------------
	// (survey :ball (vec3 ..) :vee (vec3 ..) :flat (vec3 ..))
	// (survey ball vee flat)
	// -----------------------------------------------------------------------
	env.AddFunction("survey", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var sv definition.Survey
		var err error
		switch {
		case len(pa.positional) == 0:
			sv, err = surveyPoints("survey", pa)
		case len(pa.positional) == 3 && len(pa.kw) == 0:
			for i, dst := range []*v3.Vec{&sv.Ball, &sv.Vee, &sv.Flat} {
				if *dst, err = toVec3(pa.positional[i]); err != nil {
					err = fmt.Errorf("survey: point %d: %w", i+1, err)
					break
				}
			}
		default:
			err = fmt.Errorf("survey takes three points or :ball, :vee and :flat, got %d positional arguments", len(pa.positional))
		}
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSurvey{survey: sv}, nil
	})

	// -----------------------------------------------------------------------
	// (volume "name" :mother "m" :survey s :box (vec3 ..) :center (vec3 ..)
	//         :material "Silicon" :refs (list "a"))
	// -----------------------------------------------------------------------
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return s.addVolume("volume", args, false)
	})

	// -----------------------------------------------------------------------
	// (ghost "name" :mother "m" :survey s)
	// -----------------------------------------------------------------------
	env.AddFunction("ghost", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return s.addVolume("ghost", args, true)
	})

	// -----------------------------------------------------------------------
	// (correct "name" :translation (vec3 dx dy dz) :rotation (vec3 rx ry rz))
	// Repeated corrections compose in order.
	// -----------------------------------------------------------------------
	env.AddFunction("correct", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("correct requires a volume argument")
		}
		target, err := toVolumeName(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("correct: volume: %w", err)
		}
		n := s.tree.Lookup(target)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("correct: no volume named %q", target)
		}

		var dt, dr v3.Vec
		if v, ok := pa.kw["translation"]; ok {
			if dt, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("correct: translation: %w", err)
			}
		}
		if v, ok := pa.kw["rotation"]; ok {
			if dr, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("correct: rotation: %w", err)
			}
		}
		t := alignment.NewCorrection(dt.X, dt.Y, dt.Z, dr.X, dr.Y, dr.Z).AsRigidTransform()
		if n.Correction != nil {
			t = geom.Compose(*n.Correction, t)
		}
		n.Correction = &t
		return &sexpVolume{name: target}, nil
	})

	// -----------------------------------------------------------------------
	// (descriptor "2014" :layers (list 1 2 3) :halves (list :top)
	//             :cold-block true :skip-stereo true)
	// -----------------------------------------------------------------------
	env.AddFunction("descriptor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("descriptor requires a version argument")
		}
		if s.tree.NodeCount() > 1 {
			return zygo.SexpNull, fmt.Errorf("descriptor must come before any volume")
		}
		vname, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("descriptor: version: %w", err)
		}
		version, err := definition.ParseVersion(vname)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("descriptor: %w", err)
		}
		d, err := definition.ForVersion(version)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("descriptor: %w", err)
		}

		opts := definition.Options{Alignment: s.align}
		if v, ok := pa.kw["layers"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("descriptor: layers: %w", err)
			}
			for _, item := range items {
				l, err := toInt(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("descriptor: layers entry: %w", err)
				}
				opts.Layers = append(opts.Layers, l)
			}
		}
		if v, ok := pa.kw["halves"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("descriptor: halves: %w", err)
			}
			for _, item := range items {
				h, err := toKeywordString(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("descriptor: halves entry: %w", err)
				}
				half, err := alignment.ParseHalf(h)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("descriptor: %w", err)
				}
				opts.Halves = append(opts.Halves, half)
			}
		}
		for _, f := range []struct {
			key string
			dst *bool
		}{
			{"cold-block", &opts.ColdBlock},
			{"skip-axial", &opts.SkipAxial},
			{"skip-stereo", &opts.SkipStereo},
		} {
			if v, ok := pa.kw[f.key]; ok {
				if *f.dst, err = toBool(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("descriptor: %s: %w", f.key, err)
				}
			}
		}

		tree, err := definition.Assemble(d, opts)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("descriptor: %w", err)
		}
		s.tree = tree
		return &zygo.SexpStr{S: tree.Version}, nil
	})
}
