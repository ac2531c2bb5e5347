package mesh

import "fmt"

// Domain is a runtime axis-aligned bounding box used for mirror-point
// construction at fixed particles.
type Domain struct {
	min, max []float64
}

// NewDomain validates and constructs a Domain from per-axis bounds.
func NewDomain(min, max []float64) (Domain, error) {
	if len(min) != len(max) {
		return Domain{}, fmt.Errorf("mesh: domain min/max dimension mismatch: %d vs %d", len(min), len(max))
	}
	if len(min) == 0 {
		return Domain{}, fmt.Errorf("mesh: domain must have positive dimension")
	}
	for i := range min {
		if min[i] > max[i] {
			return Domain{}, fmt.Errorf("mesh: domain axis %d has min %v > max %v", i, min[i], max[i])
		}
	}
	return Domain{min: append([]float64(nil), min...), max: append([]float64(nil), max...)}, nil
}

// Dim returns the domain's dimensionality.
func (d Domain) Dim() int { return len(d.min) }

// Clamp projects r onto the box, axis by axis.
func (d Domain) Clamp(r []float64) []float64 {
	out := make([]float64, len(r))
	for i, v := range r {
		switch {
		case v < d.min[i]:
			out[i] = d.min[i]
		case v > d.max[i]:
			out[i] = d.max[i]
		default:
			out[i] = v
		}
	}
	return out
}

// Degenerate reports whether every axis has zero extent. A partially
// degenerate domain (some, not all, axes collapsed) is not degenerate by
// this definition and mirrors correctly on its non-degenerate axes.
func (d Domain) Degenerate() bool {
	for i := range d.min {
		if d.max[i] != d.min[i] {
			return false
		}
	}
	return true
}

// Mirror computes the reflection of r across the domain boundary:
// 2*clamp(r, d) - r, per axis.
func (d Domain) Mirror(r []float64) []float64 {
	c := d.Clamp(r)
	out := make([]float64, len(r))
	for i := range r {
		out[i] = 2*c[i] - r[i]
	}
	return out
}
