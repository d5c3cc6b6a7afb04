package geom

import "fmt"

// GeometryError reports a degenerate or non-orthonormal frame or rotation.
type GeometryError struct {
	Op     string
	Reason string
	Frame  *CoordinateFrame // computed values, when a frame was involved
}

func (e GeometryError) Error() string {
	if e.Frame != nil {
		return fmt.Sprintf("geometry: %s: %s (%s)", e.Op, e.Reason, e.Frame)
	}
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Reason)
}
