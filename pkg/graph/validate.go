package graph

import "fmt"

// ValidationSeverity indicates whether a finding blocks a build or is merely
// informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Node     string // offending volume, empty if tree-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Node, e.Message)
}

// Validate runs the structural and geometric checks on t. It never mutates
// the tree. An empty result means the tree is valid.
func Validate(t *Tree) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateArena(t)...)
	errs = append(errs, validateAcyclic(t)...)
	errs = append(errs, validateNames(t)...)
	errs = append(errs, validateFrames(t)...)
	errs = append(errs, validateBoxes(t)...)
	return errs
}

// Errors returns only the blocking findings.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// validateArena checks indices and that mother and daughter links agree.
func validateArena(t *Tree) []ValidationError {
	var errs []ValidationError
	roots := 0
	for i, n := range t.Nodes {
		if n == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("slot %d is empty", i),
				Severity: SeverityError,
			})
			continue
		}
		if int(n.ID) != i {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("id %d stored at slot %d", n.ID, i),
				Severity: SeverityError,
			})
		}
		if n.Mother == NoNode {
			roots++
			if NodeID(i) != t.Root {
				errs = append(errs, ValidationError{
					Node:     n.Name,
					Message:  "volume has no mother but is not the root",
					Severity: SeverityError,
				})
			}
		} else if m := t.Get(n.Mother); m == nil {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("mother %d does not exist", n.Mother),
				Severity: SeverityError,
			})
		} else if !contains(m.Daughters, n.ID) {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("mother %s does not list it as a daughter", m.Name),
				Severity: SeverityError,
			})
		}
		for _, cid := range n.Daughters {
			c := t.Get(cid)
			if c == nil {
				errs = append(errs, ValidationError{
					Node:     n.Name,
					Message:  fmt.Sprintf("daughter %d does not exist", cid),
					Severity: SeverityError,
				})
				continue
			}
			if c.Mother != n.ID {
				errs = append(errs, ValidationError{
					Node:     c.Name,
					Message:  fmt.Sprintf("listed as daughter of %s but its mother is %d", n.Name, c.Mother),
					Severity: SeverityError,
				})
			}
		}
	}
	if len(t.Nodes) > 0 && roots != 1 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("tree has %d roots, want 1", roots),
			Severity: SeverityError,
		})
	}
	return errs
}

// validateAcyclic checks for cycles along daughter edges using DFS with
// 3-color marking. Reaching a gray node means we are on a cycle.
func validateAcyclic(t *Tree) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(t.Nodes))
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		n := t.Get(id)
		if n == nil {
			// Dangling reference; reported by validateArena.
			return false
		}
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  "volume is part of a cycle",
				Severity: SeverityError,
			})
			return true
		}
		color[id] = gray
		for _, cid := range n.Daughters {
			if visit(cid) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for i := range t.Nodes {
		if color[i] == white && visit(NodeID(i)) {
			break
		}
	}
	return errs
}

// validateNames checks that names are non-empty, unique and indexed.
func validateNames(t *Tree) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]NodeID)
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		if n.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("volume %d has no name", n.ID),
				Severity: SeverityError,
			})
			continue
		}
		if prev, dup := seen[n.Name]; dup {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("duplicate name shared by %d and %d", prev, n.ID),
				Severity: SeverityError,
			})
			continue
		}
		seen[n.Name] = n.ID
		if id, ok := t.NameIndex[n.Name]; !ok || id != n.ID {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  "name index is out of date",
				Severity: SeverityError,
			})
		}
	}
	for name, id := range t.NameIndex {
		if t.Get(id) == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references missing volume %d", name, id),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateFrames checks that every local frame is orthonormal.
func validateFrames(t *Tree) []ValidationError {
	var errs []ValidationError
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		if err := n.Local.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateBoxes rejects negative dimensions on physical volumes and warns
// about empty ones and about ghosts that neither carry daughters nor serve
// as a reference volume.
func validateBoxes(t *Tree) []ValidationError {
	referenced := make(map[string]bool)
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		for _, ref := range n.Refs {
			referenced[ref] = true
		}
	}

	var errs []ValidationError
	for _, n := range t.Nodes {
		if n == nil {
			continue
		}
		if n.Ghost {
			if len(n.Daughters) == 0 && !referenced[n.Name] {
				errs = append(errs, ValidationError{
					Node:     n.Name,
					Message:  "ghost volume has no daughters",
					Severity: SeverityWarning,
				})
			}
			continue
		}
		if !n.Physical() {
			continue
		}
		b := n.Box
		switch {
		case b.X < 0 || b.Y < 0 || b.Z < 0:
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("negative box dimensions (%g, %g, %g)", b.X, b.Y, b.Z),
				Severity: SeverityError,
			})
		case b.X == 0 || b.Y == 0 || b.Z == 0:
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("empty box (%g, %g, %g)", b.X, b.Y, b.Z),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func contains(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
