package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle() *Graph {
	g := New()
	g.AppendNode(1, map[int32]int32{1: 1, 2: 1})
	g.AppendNode(1, map[int32]int32{0: 1, 2: 1})
	g.AppendNode(1, map[int32]int32{0: 1, 1: 1})
	g.Build()
	return g
}

func TestBuildSymmetricTriangle(t *testing.T) {
	g := triangle()
	require.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges())

	for a := int32(0); a < 3; a++ {
		for _, b := range g.Neighbors(a) {
			w, ok := g.WeightBetween(b, a)
			assert.True(t, ok)
			assert.Equal(t, int32(1), w)
		}
	}
}

func TestNeighborsSortedAscending(t *testing.T) {
	g := New()
	g.AppendNode(1, map[int32]int32{3: 1, 1: 1, 2: 1})
	g.AppendNode(1, map[int32]int32{0: 1})
	g.AppendNode(1, map[int32]int32{0: 1})
	g.AppendNode(1, map[int32]int32{0: 1})
	g.Build()

	nb := g.Neighbors(0)
	for i := 1; i < len(nb); i++ {
		assert.Less(t, nb[i-1], nb[i])
	}
}

func TestWEdgesUniqueAAndB(t *testing.T) {
	g := triangle()
	edges := g.WEdges()
	require.Len(t, edges, 3)
	for _, e := range edges {
		assert.Less(t, e.A, e.B)
	}
}

func TestTransformEdgesAppliesKeyFunc(t *testing.T) {
	g := triangle()
	keyed := g.TransformEdges(func(a, b int32) int { return int(a + b) })
	require.Len(t, keyed, 3)
	for _, k := range keyed {
		assert.Equal(t, int(k.A+k.B), k.Key)
	}
}

func TestPermutedPreservesEdgeWeights(t *testing.T) {
	g := triangle()
	perm := []int32{2, 0, 1} // old 0 -> new 2, old 1 -> new 0, old 2 -> new 1
	pg := g.Permuted(perm)

	for a := int32(0); a < 3; a++ {
		for _, b := range g.Neighbors(a) {
			w, _ := g.WeightBetween(a, b)
			na, nb := perm[a], perm[b]
			pw, ok := pg.WeightBetween(na, nb)
			assert.True(t, ok)
			assert.Equal(t, w, pw)
		}
	}
}

func TestDegreeMatchesNeighborLength(t *testing.T) {
	g := triangle()
	for a := int32(0); a < 3; a++ {
		assert.Equal(t, len(g.Neighbors(a)), g.Degree(a))
	}
}
