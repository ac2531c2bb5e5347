package coarsen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tit-sim/sphmesh/graph"
)

func triangle() *graph.Graph {
	g := graph.New()
	g.AppendNode(1, map[int32]int32{1: 1, 2: 1})
	g.AppendNode(1, map[int32]int32{0: 1, 2: 1})
	g.AppendNode(1, map[int32]int32{0: 1, 1: 1})
	g.Build()
	return g
}

// path builds a weighted path 0-1-2-...-(n-1) with the given per-edge
// weights (len(weights) == n-1).
func path(weights []int32) *graph.Graph {
	g := graph.New()
	n := len(weights) + 1
	for v := 0; v < n; v++ {
		nb := map[int32]int32{}
		if v > 0 {
			nb[int32(v-1)] = weights[v-1]
		}
		if v < n-1 {
			nb[int32(v+1)] = weights[v]
		}
		g.AppendNode(1, nb)
	}
	g.Build()
	return g
}

func assertBijection(t *testing.T, g *graph.Graph, r Result) {
	t.Helper()
	n := g.NumNodes()
	maxC := int32(-1)
	for _, c := range r.FineToCoarse {
		if c > maxC {
			maxC = c
		}
	}
	require.Equal(t, int(maxC)+1, len(r.CoarseToFine))
	assert.Equal(t, int(maxC)+1, r.Coarse.NumNodes())

	for v := 0; v < n; v++ {
		c := r.FineToCoarse[v]
		found := false
		for _, fv := range r.CoarseToFine[c] {
			if int(fv) == v {
				found = true
				break
			}
		}
		assert.True(t, found, "coarse_to_fine[fine_to_coarse[%d]] must contain %d", v, v)
	}
}

func TestHEMBijection(t *testing.T) {
	g := path([]int32{5, 1, 5, 1, 5})
	r := Coarsen(g, HEM)
	assertBijection(t, g, r)
}

func TestGEMBijection(t *testing.T) {
	g := triangle()
	r := Coarsen(g, GEM)
	assertBijection(t, g, r)
}

func TestHEMPrefersHeaviestEdge(t *testing.T) {
	// 0-1 weight 5, 1-2 weight 1, 2-3 weight 5: node 0 must match node 1
	// (its only neighbor), leaving node 2 to match node 3 via the only
	// remaining heavy edge.
	g := path([]int32{5, 1, 5})
	r := Coarsen(g, HEM)
	assert.Equal(t, r.FineToCoarse[0], r.FineToCoarse[1])
	assert.Equal(t, r.FineToCoarse[2], r.FineToCoarse[3])
	assert.NotEqual(t, r.FineToCoarse[0], r.FineToCoarse[2])
}

func TestGEMTriangleYieldsOnePairAndOneSingleton(t *testing.T) {
	// scenario S4: unit-weight triangle, every edge is an equally valid
	// greedy choice once hash-sorted; exactly one pair matches and the
	// third node is a singleton, regardless of which edge wins ties.
	g := triangle()
	r := Coarsen(g, GEM)
	require.Len(t, r.CoarseToFine, 2)

	sizes := []int{len(r.CoarseToFine[0]), len(r.CoarseToFine[1])}
	assert.ElementsMatch(t, []int{1, 2}, sizes)
}

func TestGEMApproximatesMaxWeightMatching(t *testing.T) {
	// scenario/property 7: on a 4-cycle with alternating weights 10/1,
	// the optimal matching has weight 20 (both heavy edges); GEM must
	// achieve at least half that.
	g := graph.New()
	g.AppendNode(1, map[int32]int32{1: 10, 3: 1})
	g.AppendNode(1, map[int32]int32{0: 10, 2: 1})
	g.AppendNode(1, map[int32]int32{1: 1, 3: 10})
	g.AppendNode(1, map[int32]int32{2: 10, 0: 1})
	g.Build()

	r := Coarsen(g, GEM)
	assertBijection(t, g, r)

	var matchedWeight int32
	for v := int32(0); v < 4; v++ {
		for u := v + 1; u < 4; u++ {
			if r.FineToCoarse[v] == r.FineToCoarse[u] {
				w, ok := g.WeightBetween(v, u)
				require.True(t, ok)
				matchedWeight += w
			}
		}
	}
	const optimal = 20
	assert.GreaterOrEqual(t, matchedWeight, int32(optimal/2))
}

func TestCoarseGraphAggregatesEdgeWeights(t *testing.T) {
	g := triangle()
	r := Coarsen(g, GEM)
	if r.Coarse.NumNodes() != 2 {
		t.Fatalf("expected 2 coarse nodes, got %d", r.Coarse.NumNodes())
	}
	w, ok := r.Coarse.WeightBetween(0, 1)
	assert.True(t, ok)
	assert.Equal(t, int32(2), w) // two fine cross-edges of weight 1 each
}

func TestCoarseNodeWeightsSumFineWeights(t *testing.T) {
	g := graph.New()
	g.AppendNode(3, map[int32]int32{1: 1})
	g.AppendNode(4, map[int32]int32{0: 1})
	g.AppendNode(5, map[int32]int32{})
	g.Build()

	r := Coarsen(g, HEM)
	for c := 0; c < r.Coarse.NumNodes(); c++ {
		var sum int32
		for _, fv := range r.CoarseToFine[c] {
			sum += g.NodeWeight(fv)
		}
		assert.Equal(t, sum, r.Coarse.NodeWeight(int32(c)))
	}
}
