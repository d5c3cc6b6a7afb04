// Package geom provides the rigid-body algebra used to place survey
// volumes: proper rotations, rigid transforms and orthonormal coordinate
// frames built from measured ball, vee and flat points.
//
// Vectors are sdfx v3.Vec values. All angles are in radians and all
// lengths in millimetres.
package geom
