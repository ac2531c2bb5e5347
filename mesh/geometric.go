package mesh

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/tit-sim/sphmesh/parallel"
)

// inertialPartition assigns each of indices[i] a label in [0, k) by
// recursive principal-axis bisection of positions: split along the
// direction of maximum positional variance, recurse on each half with a
// proportional share of k. Used for the geometric Level 0 partition and
// as secondaryPartition's fallback at interface levels. The projection
// sort at each split runs through pool.Sort, so a large level-0 call
// parallelizes the same way C1's other full-particle-array passes do.
func inertialPartition(ctx context.Context, pool *parallel.Pool, positions [][]float64, indices []int32, k int, labels []int32) error {
	if k <= 1 || len(indices) <= 1 {
		for _, idx := range indices {
			labels[idx] = 0
		}
		return nil
	}

	axis := principalAxis(positions, indices)
	proj := make([]axisProjection, len(indices))
	for i, idx := range indices {
		proj[i] = axisProjection{idx: idx, proj: dot(positions[idx], axis)}
	}
	less := func(i, j int) bool { return proj[i].proj < proj[j].proj }
	swap := func(i, j int) { proj[i], proj[j] = proj[j], proj[i] }
	if err := pool.Sort(ctx, len(proj), less, swap); err != nil {
		return err
	}

	k0 := k / 2
	k1 := k - k0
	n0 := len(indices) * k0 / k
	if n0 < 1 && k0 > 0 {
		n0 = 1
	}
	if n0 > len(indices)-1 && k1 > 0 {
		n0 = len(indices) - 1
	}

	left := make([]int32, n0)
	for i := 0; i < n0; i++ {
		left[i] = proj[i].idx
	}
	right := make([]int32, len(indices)-n0)
	for i := n0; i < len(indices); i++ {
		right[i-n0] = proj[i].idx
	}

	leftLabels := make([]int32, cap(labels))
	rightLabels := make([]int32, cap(labels))
	if err := inertialPartition(ctx, pool, positions, left, k0, leftLabels); err != nil {
		return err
	}
	if err := inertialPartition(ctx, pool, positions, right, k1, rightLabels); err != nil {
		return err
	}

	for _, idx := range left {
		labels[idx] = leftLabels[idx]
	}
	for _, idx := range right {
		labels[idx] = int32(k0) + rightLabels[idx]
	}
	return nil
}

// axisProjection pairs a particle index with its projection onto the
// current bisection axis.
type axisProjection struct {
	idx  int32
	proj float64
}

func dot(p []float64, axis []float64) float64 {
	var s float64
	for i := range axis {
		s += p[i] * axis[i]
	}
	return s
}

// principalAxis returns the unit eigenvector of the position covariance
// matrix (restricted to indices) with the largest eigenvalue: the
// direction of maximum spread, used as the bisection split axis.
func principalAxis(positions [][]float64, indices []int32) []float64 {
	dim := len(positions[indices[0]])
	centroid := make([]float64, dim)
	for _, idx := range indices {
		p := positions[idx]
		for d := 0; d < dim; d++ {
			centroid[d] += p[d]
		}
	}
	n := float64(len(indices))
	for d := range centroid {
		centroid[d] /= n
	}

	cov := mat.NewSymDense(dim, nil)
	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			var s float64
			for _, idx := range indices {
				p := positions[idx]
				s += (p[a] - centroid[a]) * (p[b] - centroid[b])
			}
			cov.SetSym(a, b, s)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		axis := make([]float64, dim)
		axis[0] = 1
		return axis
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	maxIdx := 0
	for i, v := range values {
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	axis := make([]float64, dim)
	for d := 0; d < dim; d++ {
		axis[d] = vectors.At(d, maxIdx)
	}
	return axis
}
