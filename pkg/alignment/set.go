package alignment

import (
	"fmt"
	"sort"
)

// Set is an indexed collection of parameters for one detector.
type Set struct {
	params []Parameter
	byID   map[int]int
	byName map[string]int
}

// NewSet indexes params. Two parameters with the same id are rejected.
func NewSet(params []Parameter) (*Set, error) {
	s := &Set{
		params: append([]Parameter(nil), params...),
		byID:   make(map[int]int, len(params)),
		byName: make(map[string]int, len(params)),
	}
	for i, p := range s.params {
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("alignment: duplicate parameter id %d", p.ID)
		}
		s.byID[p.ID] = i
		s.byName[p.CanonicalName()] = i
	}
	return s, nil
}

// Len returns the number of parameters.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Params returns the parameters sorted by id.
func (s *Set) Params() []Parameter {
	out := append([]Parameter(nil), s.params...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the parameter with the given id.
func (s *Set) Get(id int) (Parameter, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Parameter{}, false
	}
	return s.params[i], true
}

// Lookup returns the parameter with the given canonical name.
func (s *Set) Lookup(name string) (Parameter, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Parameter{}, false
	}
	return s.params[i], true
}

// HalfModuleCorrection collects the translation and rotation parameters of
// one sensor. It returns nil when the set has none for that sensor and an
// error when the sensor is only partly covered.
func (s *Set) HalfModuleCorrection(half Half, sensor int) (*Correction, error) {
	if s == nil {
		return nil, nil
	}
	var matched []Parameter
	nt, nr := 0, 0
	for _, p := range s.params {
		f := p.Fields()
		if f.Half != half || f.Sensor != sensor {
			continue
		}
		switch f.Type {
		case Translation:
			nt++
		case Rotation:
			nr++
		default:
			continue
		}
		matched = append(matched, p)
	}
	if len(matched) == 0 {
		return nil, nil
	}
	if nt != 3 || nr != 3 {
		return nil, fmt.Errorf("alignment: found %d translation and %d rotation parameters for %s sensor %d, want 3 and 3",
			nt, nr, half, sensor)
	}
	c, err := CorrectionFromParameters(matched)
	if err != nil {
		return nil, fmt.Errorf("alignment: %s sensor %d: %w", half, sensor, err)
	}
	return &c, nil
}

// UChannelCorrection returns the rotation-only correction of the L1-3
// U-channel support on one half. Missing axes default to zero.
func (s *Set) UChannelCorrection(half Half) (Correction, error) {
	var r [3]float64
	var used []Parameter
	if s != nil {
		for _, p := range s.params {
			f := p.Fields()
			if f.Half != half || f.Type != SupportRotation {
				continue
			}
			if f.Sensor != 0 {
				return Correction{}, fmt.Errorf("alignment: support parameter %d has sensor %d, want 0", p.ID, f.Sensor)
			}
			if f.Dim < AxisX || f.Dim > AxisZ {
				return Correction{}, fmt.Errorf("alignment: support parameter %d has invalid axis %d", p.ID, int(f.Dim))
			}
			r[f.Dim-1] = p.Value
			used = append(used, p)
		}
	}
	c := NewCorrection(0, 0, 0, r[0], r[1], r[2])
	c.Params = used
	return c, nil
}

// SupportCorrection returns the correction of a support whose parameters
// use a pseudo sensor number, such as the 2019 front (80) and rear (90)
// supports. Missing axes default to zero.
func (s *Set) SupportCorrection(half Half, sensor int) (Correction, error) {
	var t, r [3]float64
	var used []Parameter
	if s != nil {
		for _, p := range s.params {
			f := p.Fields()
			if f.Half != half || f.Sensor != sensor {
				continue
			}
			if f.Dim < AxisX || f.Dim > AxisZ {
				return Correction{}, fmt.Errorf("alignment: support parameter %d has invalid axis %d", p.ID, int(f.Dim))
			}
			switch f.Type {
			case Translation:
				t[f.Dim-1] = p.Value
			case Rotation:
				r[f.Dim-1] = p.Value
			default:
				return Correction{}, fmt.Errorf("alignment: support parameter %d has type %s", p.ID, f.Type)
			}
			used = append(used, p)
		}
	}
	c := NewCorrection(t[0], t[1], t[2], r[0], r[1], r[2])
	c.Params = used
	return c, nil
}
