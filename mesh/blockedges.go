package mesh

// BlockEdges is the bucketed edge list consumed by force kernels: bucket
// k holds every undirected edge whose endpoints' PartVecs agree on the
// first k levels and disagree at level k (or, for the last bucket,
// agree throughout). Processing one bucket with an outer-serial,
// inner-parallel loop never races on a particle field, since every edge
// inside a bucket lies within one level-k block.
type BlockEdges struct {
	buckets [][]Pair
}

// assembleBlockEdges buckets every pair in adjacency by the common
// prefix length of its endpoints' PartVecs, clamped to numLevels so that
// particles that were never assigned beyond level 0 (interior, non-
// interface particles) land in the final bucket alongside their
// same-block neighbors.
func assembleBlockEdges(particles Particles, adjacency *Adjacency, numLevels int) *BlockEdges {
	be := &BlockEdges{buckets: make([][]Pair, numLevels+1)}
	for _, pr := range adjacency.Pairs() {
		pa := particles.PartVec(int(pr.A))
		pb := particles.PartVec(int(pr.B))
		key := pa.Common(pb)
		if key > numLevels {
			key = numLevels
		}
		be.buckets[key] = append(be.buckets[key], pr)
	}
	return be
}

// NumBuckets returns the bucket count.
func (b *BlockEdges) NumBuckets() int { return len(b.buckets) }

// Bucket returns the pairs in bucket k.
func (b *BlockEdges) Bucket(k int) []Pair { return b.buckets[k] }

// All returns every bucket, outer index first (for block_for_each-style
// outer-serial traversal).
func (b *BlockEdges) All() [][]Pair { return b.buckets }
