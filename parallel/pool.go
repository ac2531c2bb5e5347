// Package parallel provides the shared-memory task primitives the rest of
// the mesh is built on: bounded for_each/fold/sort over a fixed worker
// count, plus a deterministic variant and a lock-free filter.
package parallel

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool is a bounded work-stealing task pool. T is the configured worker
// count; grains beyond T queue on the semaphore rather than spawning
// unbounded goroutines. Pool is safe for concurrent use, including nested
// calls from within a running grain (nested grains share the same
// semaphore, so nesting serializes onto the same capacity rather than
// oversubscribing the machine).
type Pool struct {
	T   int
	sem *semaphore.Weighted
}

// New creates a Pool with T workers. T must be positive.
func New(T int) *Pool {
	if T < 1 {
		panic(fmt.Sprintf("parallel: T must be positive, got %d", T))
	}
	return &Pool{T: T, sem: semaphore.NewWeighted(int64(T))}
}

// ForEach invokes f(i) for every i in [0, n), with no ordering guarantee.
// If any invocation returns an error, the first one observed is returned
// after all in-flight grains have completed; no new grains are started
// once a failure is observed.
func (p *Pool) ForEach(ctx context.Context, n int, f func(i int) error) error {
	if n <= 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		if err := p.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			return f(i)
		})
	}
	return g.Wait()
}

// chunkBounds returns the [lo, hi) bounds of chunk c out of T chunks over
// n elements, sizes floor(n/T) or ceil(n/T), lower chunks getting the
// extra element first. The mapping is fixed for a given (n, T).
func chunkBounds(n, T, c int) (lo, hi int) {
	base := n / T
	rem := n % T
	if c < rem {
		lo = c * (base + 1)
		hi = lo + base + 1
	} else {
		lo = rem*(base+1) + (c-rem)*base
		hi = lo + base
	}
	return lo, hi
}

// DeterministicForEach partitions [0, n) into exactly T contiguous chunks
// and invokes f(i, threadID) for every element; the element-to-thread
// mapping is fixed for a given (n, T) regardless of run-to-run scheduling.
func (p *Pool) DeterministicForEach(ctx context.Context, n int, f func(i, threadID int) error) error {
	if n <= 0 {
		return nil
	}
	T := p.T
	if T > n {
		T = n
	}
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < T; c++ {
		lo, hi := chunkBounds(n, T, c)
		c := c
		if err := p.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			for i := lo; i < hi; i++ {
				if err := f(i, c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// BlockForEach iterates buckets sequentially (outer loop) and, within each
// bucket, invokes f over its elements in parallel (inner loop). Used to
// traverse block_edges bucket-by-bucket so that a bucket's color-safety
// guarantee is never violated by reordering buckets.
func (p *Pool) BlockForEach(ctx context.Context, buckets [][]int, f func(elem int) error) error {
	for _, bucket := range buckets {
		bucket := bucket
		if err := p.ForEach(ctx, len(bucket), func(i int) error {
			return f(bucket[i])
		}); err != nil {
			return err
		}
	}
	return nil
}

// Fold performs an associative parallel reduction over [0, n): body(i)
// produces a per-element value, combine folds partial results together.
// combine must be associative; it need not be commutative, since the
// reduction tree built here is a fixed per-chunk-then-across-chunks shape.
func Fold[T any](ctx context.Context, p *Pool, n int, init T, body func(i int, acc T) T, combine func(a, b T) T) (T, error) {
	var zero T
	if n <= 0 {
		return init, nil
	}
	T2 := p.T
	if T2 > n {
		T2 = n
	}
	partials := make([]T, T2)
	err := p.DeterministicForEach(ctx, n, func(i, threadID int) error {
		partials[threadID] = body(i, partials[threadID])
		return nil
	})
	if err != nil {
		return zero, err
	}
	acc := init
	for _, pv := range partials {
		acc = combine(acc, pv)
	}
	return acc, nil
}

// UnstableCopyIf filters in parallel, writing surviving elements of in
// (those for which pred returns true) into out, which must have capacity
// >= len(in). The result is a permutation of the surviving subset; order
// is not preserved. Returns the number of elements written.
//
// Implementation: each chunk buffers its local survivors, then flushes
// them into out via a single atomic fetch-add on a shared write cursor,
// bounding lock contention to one CAS-free atomic op per chunk.
func UnstableCopyIf[T any](ctx context.Context, p *Pool, in []T, out []T, pred func(T) bool) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}
	if len(out) < len(in) {
		panic("parallel: UnstableCopyIf out must have capacity >= len(in)")
	}
	var cursor int64
	T2 := p.T
	if T2 > len(in) {
		T2 = len(in)
	}
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < T2; c++ {
		lo, hi := chunkBounds(len(in), T2, c)
		if err := p.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer p.sem.Release(1)
			local := make([]T, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if pred(in[i]) {
					local = append(local, in[i])
				}
			}
			if len(local) == 0 {
				return nil
			}
			start := atomic.AddInt64(&cursor, int64(len(local))) - int64(len(local))
			copy(out[start:], local)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(cursor), nil
}

// Sort performs a parallel comparison sort of indices [0, n), ordered by
// less(i, j), and applies the resulting permutation via swap(i, j). It is
// stable under equal keys only to the extent less totally orders its
// projection (ties are broken arbitrarily by the underlying merge, same
// caveat as sort.Sort).
//
// Below a size threshold, or with a single worker, this degrades to a
// sequential sort.Sort — parallel merge only pays off once a chunk is
// large enough to amortize the goroutine and merge-buffer cost.
func (p *Pool) Sort(ctx context.Context, n int, less func(i, j int) bool, swap func(i, j int)) error {
	const seqThreshold = 2048
	if n <= seqThreshold || p.T == 1 {
		sort.Sort(indexSortable{n, less, swap})
		return nil
	}

	T2 := p.T
	if T2 > n {
		T2 = n
	}
	type span struct{ lo, hi int }
	spans := make([]span, T2)
	for c := 0; c < T2; c++ {
		lo, hi := chunkBounds(n, T2, c)
		spans[c] = span{lo, hi}
	}

	if err := p.DeterministicForEach(ctx, T2, func(c, _ int) error {
		s := spans[c]
		sort.Sort(offsetSortable{s.lo, s.hi - s.lo, less, swap})
		return nil
	}); err != nil {
		return err
	}

	// Sequential k-way merge of the now-sorted spans using an explicit
	// permutation, mirroring the merge step of a textbook parallel sort:
	// each span keeps a cursor, we repeatedly pick the smallest head and
	// realize the final order via cycle-following swaps.
	order := make([]int, n)
	cursors := make([]int, len(spans))
	for c := range cursors {
		cursors[c] = spans[c].lo
	}
	for i := 0; i < n; i++ {
		best := -1
		for c, cur := range cursors {
			if cur >= spans[c].hi {
				continue
			}
			if best == -1 || less(cur, cursors[best]) {
				best = c
			}
		}
		order[i] = cursors[best]
		cursors[best]++
	}
	applyPermutation(n, order, swap)
	return nil
}

// applyPermutation rearranges elements so that position i ends up holding
// the element that was originally at order[i], using in-place
// cycle-following swaps (no auxiliary storage beyond the visited set).
func applyPermutation(n int, order []int, swap func(i, j int)) {
	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		j := start
		for {
			visited[j] = true
			next := order[j]
			if next == start {
				break
			}
			swap(j, next)
			j = next
		}
	}
}

type indexSortable struct {
	n    int
	less func(i, j int) bool
	swap func(i, j int)
}

func (s indexSortable) Len() int           { return s.n }
func (s indexSortable) Less(i, j int) bool { return s.less(i, j) }
func (s indexSortable) Swap(i, j int)      { s.swap(i, j) }

type offsetSortable struct {
	offset, n int
	less      func(i, j int) bool
	swap      func(i, j int)
}

func (s offsetSortable) Len() int           { return s.n }
func (s offsetSortable) Less(i, j int) bool { return s.less(i+s.offset, j+s.offset) }
func (s offsetSortable) Swap(i, j int)      { s.swap(i+s.offset, j+s.offset) }
