// Package spatial implements the uniform-grid neighbor index: build a
// grid over the bounding box of a point set, then answer radius queries
// against it. Rebuilt from scratch every step; there is no incremental
// update (spec.md §4.2).
package spatial

import "fmt"

// Point is a single query/index site. Dim must be consistent across a
// whole Grid (1, 2, or 3 in practice).
type Point = []float64

// Grid is a uniform spatial hash over an axis-aligned bounding box, with
// a compressed (CSR-style) per-cell point store: cellOffsets[c]..
// cellOffsets[c+1] indexes into cellPoints for cell c's member ids.
type Grid struct {
	dim       int
	cellSize  float64
	minCorner []float64
	dims      []int // number of cells along each axis

	cellOffsets []int32
	cellPoints  []int32

	points []Point
}

// Build constructs a grid over points, using cellSize as the edge length
// of each cell (an estimate of the maximum query radius — the caller
// derives this from radius_fn, e.g. its 95th percentile, per spec §4.2).
// cellSize must be positive and points must be non-empty and consistently
// dimensioned.
func Build(points []Point, cellSize float64) (*Grid, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("spatial: Build requires at least one point")
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("spatial: cellSize must be positive, got %v", cellSize)
	}
	dim := len(points[0])
	if dim == 0 {
		return nil, fmt.Errorf("spatial: point dimension must be positive")
	}

	lo := make([]float64, dim)
	hi := make([]float64, dim)
	copy(lo, points[0])
	copy(hi, points[0])
	for _, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("spatial: inconsistent point dimension")
		}
		for d := 0; d < dim; d++ {
			if p[d] < lo[d] {
				lo[d] = p[d]
			}
			if p[d] > hi[d] {
				hi[d] = p[d]
			}
		}
	}

	dims := make([]int, dim)
	for d := 0; d < dim; d++ {
		extent := hi[d] - lo[d]
		n := int(extent/cellSize) + 1
		if n < 1 {
			n = 1
		}
		dims[d] = n
	}

	g := &Grid{
		dim:       dim,
		cellSize:  cellSize,
		minCorner: lo,
		dims:      dims,
		points:    points,
	}

	numCells := 1
	for _, d := range dims {
		numCells *= d
	}

	cellOf := make([]int32, len(points))
	counts := make([]int32, numCells+1)
	for i, p := range points {
		c := int32(g.cellIndex(p))
		cellOf[i] = c
		counts[c+1]++
	}
	for c := 0; c < numCells; c++ {
		counts[c+1] += counts[c]
	}
	cellPoints := make([]int32, len(points))
	cursor := make([]int32, numCells)
	copy(cursor, counts[:numCells])
	for i, c := range cellOf {
		cellPoints[cursor[c]] = int32(i)
		cursor[c]++
	}

	g.cellOffsets = counts
	g.cellPoints = cellPoints
	return g, nil
}

func (g *Grid) cellCoord(p Point) []int {
	coord := make([]int, g.dim)
	for d := 0; d < g.dim; d++ {
		c := int((p[d] - g.minCorner[d]) / g.cellSize)
		if c < 0 {
			c = 0
		}
		if c >= g.dims[d] {
			c = g.dims[d] - 1
		}
		coord[d] = c
	}
	return coord
}

func (g *Grid) cellIndex(p Point) int {
	coord := g.cellCoord(p)
	idx := 0
	stride := 1
	for d := 0; d < g.dim; d++ {
		idx += coord[d] * stride
		stride *= g.dims[d]
	}
	return idx
}

func (g *Grid) flatIndex(coord []int) int {
	idx := 0
	stride := 1
	for d := 0; d < g.dim; d++ {
		idx += coord[d] * stride
		stride *= g.dims[d]
	}
	return idx
}

// Search appends to out every point id j such that ||points[j] - p|| <= r
// (including j's own index if p coincides with a stored point). Output
// order is unspecified; the caller sorts afterwards if it needs ordering.
func (g *Grid) Search(p Point, r float64, out []int32) []int32 {
	center := g.cellCoord(p)
	reach := int(r/g.cellSize) + 1
	r2 := r * r

	rangeLo := make([]int, g.dim)
	rangeHi := make([]int, g.dim)
	for d := 0; d < g.dim; d++ {
		lo := center[d] - reach
		hi := center[d] + reach
		if lo < 0 {
			lo = 0
		}
		if hi >= g.dims[d] {
			hi = g.dims[d] - 1
		}
		rangeLo[d] = lo
		rangeHi[d] = hi
	}

	coord := make([]int, g.dim)
	copy(coord, rangeLo)

	for {
		cell := g.flatIndex(coord)
		start, end := g.cellOffsets[cell], g.cellOffsets[cell+1]
		for _, id := range g.cellPoints[start:end] {
			if dist2(g.points[id], p) <= r2 {
				out = append(out, id)
			}
		}

		// odometer increment over the dim-dimensional range box
		d := 0
		for ; d < g.dim; d++ {
			coord[d]++
			if coord[d] <= rangeHi[d] {
				break
			}
			coord[d] = rangeLo[d]
		}
		if d == g.dim {
			break
		}
	}
	return out
}

func dist2(a, b Point) float64 {
	var s float64
	for i := range a {
		diff := a[i] - b[i]
		s += diff * diff
	}
	return s
}
