// Package graph implements the compressed-adjacency weighted graph shared
// by the coarsening, partitioning, and refinement passes: G = (V, E, w_V,
// w_E), stored as per-node offsets into flat neighbor/weight arrays.
package graph

import "sort"

// Graph is a compressed-row weighted adjacency structure. Nodes are
// contiguous integer ids [0, N). Edges are undirected and stored
// symmetrically: for every b in adj(a), a is in adj(b) with equal weight.
// Build does not itself symmetrize an asymmetric input — callers append
// nodes with neighbor maps that are already mutually consistent (the
// mesh's raw per-particle search results are not symmetric by
// construction and must be unioned into symmetric pairs before they
// become a Graph; see mesh.buildPartitionGraph).
type Graph struct {
	offsets     []int32 // length N+1
	neighbors   []int32 // length M (M = sum of degrees)
	edgeWeights []int32 // length M, parallel to neighbors
	nodeWeights []int32 // length N

	// build-time staging; cleared lazily by Reset.
	pendingNeighbors [][]int32
	pendingWeights   [][]int32
}

// New creates an empty graph ready to accept AppendNode calls.
func New() *Graph {
	return &Graph{}
}

// Reset clears the graph back to zero nodes so the caller can rebuild it
// without reallocating backing storage (the mesh reuses one Graph per
// step to avoid allocator pressure).
func (g *Graph) Reset() {
	g.offsets = g.offsets[:0]
	g.neighbors = g.neighbors[:0]
	g.edgeWeights = g.edgeWeights[:0]
	g.nodeWeights = g.nodeWeights[:0]
	g.pendingNeighbors = g.pendingNeighbors[:0]
	g.pendingWeights = g.pendingWeights[:0]
}

// NumNodes returns the current node count.
func (g *Graph) NumNodes() int { return len(g.nodeWeights) }

// NumEdges returns the number of unique undirected edges (half the total
// directed adjacency entries).
func (g *Graph) NumEdges() int { return len(g.neighbors) / 2 }

// AppendNode stages one new node with weight w and an edge-weight map
// keyed by neighbor id. Edges are not finalized until Build is called,
// and symmetry is never enforced: neighbor b's own AppendNode call must
// list this node back with the same weight.
func (g *Graph) AppendNode(w int32, neighborWeights map[int32]int32) {
	g.nodeWeights = append(g.nodeWeights, w)

	neighbors := make([]int32, 0, len(neighborWeights))
	weights := make([]int32, 0, len(neighborWeights))
	for n, nw := range neighborWeights {
		neighbors = append(neighbors, n)
		weights = append(weights, nw)
	}
	// deterministic within-node order: ascending neighbor id, independent
	// of map iteration order.
	sortPairs(neighbors, weights)

	g.pendingNeighbors = append(g.pendingNeighbors, neighbors)
	g.pendingWeights = append(g.pendingWeights, weights)
}

// Build finalizes the compressed structure from the staged per-node edge
// lists: merges duplicate neighbor entries within a row (summing their
// weights), sorts each adjacency row by neighbor id, and fills
// offsets/neighbors/edgeWeights. It does not symmetrize. Must be called
// before any query method.
func (g *Graph) Build() {
	n := len(g.nodeWeights)
	g.offsets = make([]int32, n+1)

	merged := make([][]int32, n)
	mergedW := make([][]int32, n)
	for v := 0; v < n; v++ {
		nb := g.pendingNeighbors[v]
		wt := g.pendingWeights[v]
		byNeighbor := make(map[int32]int32, len(nb))
		for i, b := range nb {
			byNeighbor[b] += wt[i]
		}
		ids := make([]int32, 0, len(byNeighbor))
		for b := range byNeighbor {
			ids = append(ids, b)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		ws := make([]int32, len(ids))
		for i, b := range ids {
			ws[i] = byNeighbor[b]
		}
		merged[v] = ids
		mergedW[v] = ws
	}

	total := 0
	for v := 0; v < n; v++ {
		g.offsets[v] = int32(total)
		total += len(merged[v])
	}
	g.offsets[n] = int32(total)

	g.neighbors = make([]int32, total)
	g.edgeWeights = make([]int32, total)
	for v := 0; v < n; v++ {
		start := g.offsets[v]
		copy(g.neighbors[start:], merged[v])
		copy(g.edgeWeights[start:], mergedW[v])
	}
}

// NodeWeight returns w_V(v).
func (g *Graph) NodeWeight(v int32) int32 { return g.nodeWeights[v] }

// Neighbors returns the sorted neighbor ids of v (a view into internal
// storage; callers must not mutate it).
func (g *Graph) Neighbors(v int32) []int32 {
	return g.neighbors[g.offsets[v]:g.offsets[v+1]]
}

// EdgeWeights returns the edge weights parallel to Neighbors(v).
func (g *Graph) EdgeWeights(v int32) []int32 {
	return g.edgeWeights[g.offsets[v]:g.offsets[v+1]]
}

// Degree returns len(Neighbors(v)).
func (g *Graph) Degree(v int32) int { return int(g.offsets[v+1] - g.offsets[v]) }

// WeightBetween returns the edge weight between a and b, and whether the
// edge exists. O(log degree(a)) via binary search since rows are sorted.
func (g *Graph) WeightBetween(a, b int32) (int32, bool) {
	nb := g.Neighbors(a)
	i := sort.Search(len(nb), func(i int) bool { return nb[i] >= b })
	if i < len(nb) && nb[i] == b {
		return g.EdgeWeights(a)[i], true
	}
	return 0, false
}

// Edge is one unique undirected edge with its weight, a < b.
type Edge struct {
	A, B   int32
	Weight int32
}

// WEdges returns every unique undirected edge (a, b, w_ab) with a < b.
func (g *Graph) WEdges() []Edge {
	edges := make([]Edge, 0, g.NumEdges())
	for a := int32(0); a < int32(g.NumNodes()); a++ {
		nb := g.Neighbors(a)
		wt := g.EdgeWeights(a)
		for i, b := range nb {
			if b > a {
				edges = append(edges, Edge{A: a, B: b, Weight: wt[i]})
			}
		}
	}
	return edges
}

// KeyedEdge pairs a caller-supplied bucket key with the edge it was
// derived from; produced by TransformEdges for downstream bucketization.
type KeyedEdge struct {
	Key  int
	A, B int32
}

// TransformEdges produces one KeyedEdge per unique undirected edge, with
// key = f(a, b). This is a lazy-in-spirit view: it still walks WEdges,
// but keeps a caller's bucketization key function decoupled from the
// graph's own storage layout.
func (g *Graph) TransformEdges(f func(a, b int32) int) []KeyedEdge {
	edges := g.WEdges()
	out := make([]KeyedEdge, len(edges))
	for i, e := range edges {
		out[i] = KeyedEdge{Key: f(e.A, e.B), A: e.A, B: e.B}
	}
	return out
}

// Permuted returns a new Graph with nodes renumbered by perm: perm[old] =
// new. Used to materialize a reordered view (e.g. grouping a partition's
// particles contiguously) without mutating the original.
func (g *Graph) Permuted(perm []int32) *Graph {
	n := g.NumNodes()
	inv := make([]int32, n)
	for old, nw := range perm {
		inv[nw] = int32(old)
	}
	out := New()
	out.pendingNeighbors = make([][]int32, n)
	out.pendingWeights = make([][]int32, n)
	out.nodeWeights = make([]int32, n)
	for newID := 0; newID < n; newID++ {
		oldID := inv[newID]
		out.nodeWeights[newID] = g.nodeWeights[oldID]
		nb := g.Neighbors(oldID)
		wt := g.EdgeWeights(oldID)
		newNb := make([]int32, len(nb))
		newWt := make([]int32, len(wt))
		for i, b := range nb {
			newNb[i] = perm[b]
			newWt[i] = wt[i]
		}
		out.pendingNeighbors[newID] = newNb
		out.pendingWeights[newID] = newWt
	}
	out.Build()
	return out
}

func sortPairs(ids, weights []int32) {
	sort.Sort(&pairSort{ids, weights})
}

type pairSort struct {
	ids, weights []int32
}

func (p *pairSort) Len() int           { return len(p.ids) }
func (p *pairSort) Less(i, j int) bool { return p.ids[i] < p.ids[j] }
func (p *pairSort) Swap(i, j int) {
	p.ids[i], p.ids[j] = p.ids[j], p.ids[i]
	p.weights[i], p.weights[j] = p.weights[j], p.weights[i]
}
