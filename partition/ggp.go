// Package partition implements the coarsest-level solver (Greedy Growing
// Partition and a uniform fallback), Fiduccia-Mattheyses refinement, and
// the recursive multilevel V-cycle that ties coarsening and refinement
// together (spec.md §4.5-4.7).
package partition

import (
	"fmt"

	"github.com/tit-sim/sphmesh/graph"
)

// Parts is a part assignment per graph node, values in [0, K).
type Parts []int32

// PartWeights returns the summed node weight of every part.
func PartWeights(g *graph.Graph, parts Parts, k int) []int32 {
	w := make([]int32, k)
	for v := int32(0); v < int32(len(parts)); v++ {
		w[parts[v]] += g.NodeWeight(v)
	}
	return w
}

// GGP runs Greedy Growing Partition: connected-component-aware BFS growth
// targeting balanced weight W* = ceil(total / K) per part. A part stops
// growing once the unlabeled nodes left are just enough to give every
// later part one node, so each of the K parts is non-empty.
func GGP(g *graph.Graph, k int) (Parts, error) {
	n := g.NumNodes()
	if k <= 0 {
		return nil, fmt.Errorf("partition: K must be positive, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("partition: K=%d exceeds node count %d", k, n)
	}

	var total int64
	for v := int32(0); v < int32(n); v++ {
		total += int64(g.NodeWeight(v))
	}
	target := int32((total + int64(k) - 1) / int64(k))
	if target < 1 {
		target = 1
	}

	const unlabeled = int32(-1)
	parts := make(Parts, n)
	for i := range parts {
		parts[i] = unlabeled
	}
	partWeight := make([]int32, k)

	remaining := n
	for p := int32(0); p < int32(k); p++ {
		// nodes held back so that every later part still gets a seed
		reserve := k - 1 - int(p)
		for remaining > reserve && partWeight[p] < target {
			seed := pickSeed(g, parts, unlabeled)
			if seed == -1 {
				break
			}
			parts[seed] = p
			partWeight[p] += g.NodeWeight(seed)
			remaining--
			growFrontier(g, parts, partWeight, &remaining, reserve, p, target, unlabeled)
		}
		if remaining == 0 {
			break
		}
	}

	// any nodes left unlabeled (K parts filled before full coverage, or a
	// part's growth stalled) join the neighboring part of highest affinity.
	assignLeftovers(g, parts, partWeight, unlabeled)

	return parts, nil
}

// pickSeed returns the lowest-degree unlabeled node, tie-broken by
// highest node weight; -1 if none remain.
func pickSeed(g *graph.Graph, parts Parts, unlabeled int32) int32 {
	best := int32(-1)
	bestDeg := -1
	bestW := int32(-1)
	for v := int32(0); v < int32(len(parts)); v++ {
		if parts[v] != unlabeled {
			continue
		}
		deg := g.Degree(v)
		w := g.NodeWeight(v)
		if best == -1 || deg < bestDeg || (deg == bestDeg && w > bestW) {
			best, bestDeg, bestW = v, deg, w
		}
	}
	return best
}

// growFrontier repeatedly appends the connected frontier neighbor
// maximizing internal affinity until the part reaches target weight, no
// connected unlabeled neighbor remains, or only reserve unlabeled nodes
// are left.
func growFrontier(g *graph.Graph, parts Parts, partWeight []int32, remaining *int, reserve int, p int32, target int32, unlabeled int32) {
	for partWeight[p] < target && *remaining > reserve {
		best := int32(-1)
		var bestAffinity int32 = -1 << 31
		for v := int32(0); v < int32(len(parts)); v++ {
			if parts[v] != unlabeled {
				continue
			}
			if !adjacentToPart(g, parts, v, p) {
				continue
			}
			aff := affinity(g, parts, v, p, unlabeled)
			if aff > bestAffinity {
				best, bestAffinity = v, aff
			}
		}
		if best == -1 {
			return
		}
		parts[best] = p
		partWeight[p] += g.NodeWeight(best)
		*remaining--
	}
}

func adjacentToPart(g *graph.Graph, parts Parts, v int32, p int32) bool {
	for _, u := range g.Neighbors(v) {
		if parts[u] == p {
			return true
		}
	}
	return false
}

// affinity computes sum w_E(v, part p) - sum w_E(v, any other labeled
// part); unlabeled neighbors don't contribute either way.
func affinity(g *graph.Graph, parts Parts, v int32, p int32, unlabeled int32) int32 {
	nb := g.Neighbors(v)
	wt := g.EdgeWeights(v)
	var in, out int32
	for i, u := range nb {
		switch {
		case parts[u] == p:
			in += wt[i]
		case parts[u] != unlabeled:
			out += wt[i]
		}
	}
	return in - out
}

func assignLeftovers(g *graph.Graph, parts Parts, partWeight []int32, unlabeled int32) {
	n := len(parts)
	for {
		progressed := false
		for v := int32(0); v < int32(n); v++ {
			if parts[v] != unlabeled {
				continue
			}
			best := int32(-1)
			var bestAff int32
			for _, u := range g.Neighbors(v) {
				if parts[u] == unlabeled {
					continue
				}
				aff := affinity(g, parts, v, parts[u], unlabeled)
				if best == -1 || aff > bestAff {
					best, bestAff = parts[u], aff
				}
			}
			if best == -1 {
				continue
			}
			parts[v] = best
			partWeight[best] += g.NodeWeight(v)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	// fully isolated leftovers (no labeled neighbor reachable at all,
	// e.g. an empty graph component never touched by any seed) fall back
	// to the lightest part.
	for v := int32(0); v < int32(n); v++ {
		if parts[v] != unlabeled {
			continue
		}
		lightest := int32(0)
		for p := int32(1); p < int32(len(partWeight)); p++ {
			if partWeight[p] < partWeight[lightest] {
				lightest = p
			}
		}
		parts[v] = lightest
		partWeight[lightest] += g.NodeWeight(v)
	}
}

// Uniform assigns contiguous id ranges of near-equal size; a degenerate
// fallback used only when the caller explicitly requests it (§4.5).
func Uniform(n int, k int) (Parts, error) {
	if k <= 0 {
		return nil, fmt.Errorf("partition: K must be positive, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("partition: K=%d exceeds node count %d", k, n)
	}
	parts := make(Parts, n)
	base := n / k
	rem := n % k
	idx := 0
	for p := 0; p < k; p++ {
		size := base
		if p < rem {
			size++
		}
		for i := 0; i < size; i++ {
			parts[idx] = int32(p)
			idx++
		}
	}
	return parts, nil
}
