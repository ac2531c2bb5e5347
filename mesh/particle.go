// Package mesh implements the particle-mesh orchestrator (C8): neighbor
// search, interpolation-adjacency for boundary mirroring, multilevel
// partitioning, and block-edge bucketization for race-free parallel
// force summation.
package mesh

import "github.com/tit-sim/sphmesh/config"

// Type distinguishes fluid particles from boundary-mirroring fixed ones.
type Type int

const (
	Fluid Type = iota
	Fixed
)

// PartVec is the fixed-capacity per-particle tuple of partition level
// ids. The length of the common prefix of two PartVecs is the coarsest
// level at which both particles share a block.
type PartVec [config.MaxNumLevels]int32

// Common returns the length of the shared prefix of p and q.
func (p PartVec) Common(q PartVec) int {
	n := len(p)
	for i := 0; i < n; i++ {
		if p[i] != q[i] {
			return i
		}
	}
	return n
}

// Particles is the external particle array the mesh reads positions and
// types from and writes PartVecs into. The mesh never mutates position
// or type.
type Particles interface {
	Len() int
	Position(i int) []float64
	Type(i int) Type
	SetPartVec(i int, p PartVec)
	PartVec(i int) PartVec
}

// RadiusFunc returns particle i's smoothing length; must be strictly
// positive.
type RadiusFunc func(i int) float64
