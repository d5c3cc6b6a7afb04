// Package graph holds the volume tree of a tracker geometry.
// The tree is an arena: nodes are addressed by stable NodeID indices,
// each node owns its ordered daughters and refers back to its mother by index.
package graph
