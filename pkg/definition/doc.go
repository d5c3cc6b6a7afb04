// Package definition describes the tracker variants as data and assembles
// them into a volume tree.
//
// A Descriptor lists the support volumes in build order followed by one
// LayerSpec per layer. Assemble turns each entry into a graph.Node: the
// local frame comes from three survey points, reference volumes are applied
// next, and alignment corrections are attached as pending so the builder
// can fold them.
package definition
