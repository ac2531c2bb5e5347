package coarsen

import (
	"sort"

	"github.com/tit-sim/sphmesh/graph"
)

// hemMatch implements Heavy-Edge Matching: nodes are visited in ascending
// (w_V, hash) order; each unmatched node is paired with the unmatched
// neighbor maximizing w_E, ties broken by smaller w_V then by hash.
// Unmatched leftovers keep their own singleton coarse node.
func hemMatch(g *graph.Graph) []int32 {
	n := g.NumNodes()
	visitOrder := make([]int32, n)
	for v := range visitOrder {
		visitOrder[v] = int32(v)
	}
	sort.Slice(visitOrder, func(i, j int) bool {
		a, b := visitOrder[i], visitOrder[j]
		wa, wb := g.NodeWeight(a), g.NodeWeight(b)
		if wa != wb {
			return wa < wb
		}
		return nodeHash(a) < nodeHash(b)
	})

	matched := make([]bool, n)
	fineToCoarse := make([]int32, n)
	next := int32(0)

	for _, v := range visitOrder {
		if matched[v] {
			continue
		}
		best := int32(-1)
		bestWeight := int32(-1)
		nb := g.Neighbors(v)
		wt := g.EdgeWeights(v)
		for i, u := range nb {
			if matched[u] {
				continue
			}
			w := wt[i]
			switch {
			case w > bestWeight:
				best, bestWeight = u, w
			case w == bestWeight && best != -1:
				if g.NodeWeight(u) < g.NodeWeight(best) ||
					(g.NodeWeight(u) == g.NodeWeight(best) && nodeHash(u) < nodeHash(best)) {
					best = u
				}
			}
		}
		matched[v] = true
		fineToCoarse[v] = next
		if best != -1 {
			matched[best] = true
			fineToCoarse[best] = next
		}
		next++
	}
	return fineToCoarse
}

// gemMatch implements Greedy Edge Matching: every undirected edge is
// sorted by (w_E desc, min(w_V(a), w_V(b)) asc, hash asc), then the list
// is walked once, greedily matching an edge whenever both endpoints are
// still unmatched. This is a classic 1/2-approximation to the maximum
// weight matching.
func gemMatch(g *graph.Graph) []int32 {
	n := g.NumNodes()
	edges := g.WEdges()
	minWeight := func(e graph.Edge) int32 {
		wa, wb := g.NodeWeight(e.A), g.NodeWeight(e.B)
		if wa < wb {
			return wa
		}
		return wb
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		mi, mj := minWeight(edges[i]), minWeight(edges[j])
		if mi != mj {
			return mi < mj
		}
		return pairHash(edges[i].A, edges[i].B) < pairHash(edges[j].A, edges[j].B)
	})

	matched := make([]bool, n)
	fineToCoarse := make([]int32, n)
	for i := range fineToCoarse {
		fineToCoarse[i] = -1
	}
	next := int32(0)

	for _, e := range edges {
		if matched[e.A] || matched[e.B] {
			continue
		}
		matched[e.A] = true
		matched[e.B] = true
		fineToCoarse[e.A] = next
		fineToCoarse[e.B] = next
		next++
	}

	// leftover unmatched nodes become singletons, in ascending fine-node
	// id order (resolves the tie-ordering question the spec leaves open).
	for v := int32(0); v < int32(n); v++ {
		if fineToCoarse[v] == -1 {
			fineToCoarse[v] = next
			next++
		}
	}
	return fineToCoarse
}

func pairHash(a, b int32) uint64 {
	return nodeHash(a) ^ nodeHash(b)
}
