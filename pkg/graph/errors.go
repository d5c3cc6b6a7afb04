package graph

import "fmt"

// StructuralError reports an inconsistency in the shape of a tree: a missing
// mother, a duplicate name or identifier, a broken back-reference.
type StructuralError struct {
	Name   string
	Reason string
}

func (e StructuralError) Error() string {
	return fmt.Sprintf("structure: %s: %s", e.Name, e.Reason)
}
