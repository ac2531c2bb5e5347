// Package coarsen implements the two matching strategies used to shrink
// a graph one multilevel-partitioning step at a time (HEM, GEM) and the
// shared coarse-graph assembly they both feed into (spec.md §4.4).
package coarsen

import (
	"hash/maphash"

	"github.com/tit-sim/sphmesh/graph"
)

// Strategy selects a coarsening heuristic.
type Strategy int

const (
	// GEM (Greedy Edge Matching) is the default: a 1/2-approximation on
	// total matched edge weight, generally better balanced than HEM.
	GEM Strategy = iota
	HEM
)

var seed = maphash.MakeSeed()

func nodeHash(id int32) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	var buf [4]byte
	buf[0] = byte(id)
	buf[1] = byte(id >> 8)
	buf[2] = byte(id >> 16)
	buf[3] = byte(id >> 24)
	h.Write(buf[:])
	return h.Sum64()
}

// Result is the outcome of coarsening one fine graph.
type Result struct {
	Coarse        *graph.Graph
	FineToCoarse  []int32   // length n_f
	CoarseToFine  [][]int32 // length n_c; group membership per coarse node
}

// Coarsen runs the selected strategy over g and assembles the coarse
// graph. Leftover (unmatched) fine nodes become singleton coarse nodes.
func Coarsen(g *graph.Graph, strategy Strategy) Result {
	var fineToCoarse []int32
	switch strategy {
	case HEM:
		fineToCoarse = hemMatch(g)
	default:
		fineToCoarse = gemMatch(g)
	}
	coarseToFine, coarse := assemble(g, fineToCoarse)
	return Result{Coarse: coarse, FineToCoarse: fineToCoarse, CoarseToFine: coarseToFine}
}

// assemble groups fine nodes by fine_to_coarse value, sums node weights
// per group, and aggregates inter-group edges into a flat map excluding
// self-loops, in a single linear pass over the fine edges.
func assemble(g *graph.Graph, fineToCoarse []int32) ([][]int32, *graph.Graph) {
	n := g.NumNodes()
	numCoarse := 0
	for _, c := range fineToCoarse {
		if int(c)+1 > numCoarse {
			numCoarse = int(c) + 1
		}
	}

	coarseToFine := make([][]int32, numCoarse)
	for v := int32(0); v < int32(n); v++ {
		c := fineToCoarse[v]
		coarseToFine[c] = append(coarseToFine[c], v)
	}

	coarseWeight := make([]int32, numCoarse)
	neighborMaps := make([]map[int32]int32, numCoarse)
	for c := range neighborMaps {
		neighborMaps[c] = make(map[int32]int32)
	}

	for v := int32(0); v < int32(n); v++ {
		cv := fineToCoarse[v]
		coarseWeight[cv] += g.NodeWeight(v)
		nb := g.Neighbors(v)
		wt := g.EdgeWeights(v)
		for i, u := range nb {
			cu := fineToCoarse[u]
			if cu == cv {
				continue
			}
			neighborMaps[cv][cu] += wt[i]
		}
	}

	coarse := graph.New()
	for c := 0; c < numCoarse; c++ {
		coarse.AppendNode(coarseWeight[c], neighborMaps[c])
	}
	coarse.Build()
	return coarseToFine, coarse
}
