package rtree

import (
	"fmt"
	"math"
	"strings"
)

// Rect is an axis aligned bounding box. Min and Max hold the lower and upper
// bound for each axis and are always the same length. Rects behave as values:
// operations return new rectangles and never modify their operands, so a Rect
// handed to the tree can be retained by the caller.
type Rect struct {
	Min []float64
	Max []float64
}

// NewRect validates the bounds and returns a rectangle backed by copies of
// them. Min[i] must not exceed Max[i] on any axis; degenerate (zero extent)
// axes are fine.
func NewRect(min, max []float64) (Rect, error) {
	if len(min) == 0 || len(min) != len(max) {
		return Rect{}, fmt.Errorf("%w: got %d lower and %d upper bounds", ErrDimensionMismatch, len(min), len(max))
	}
	for i := range min {
		if min[i] > max[i] {
			return Rect{}, fmt.Errorf("%w: axis %d: %v > %v", ErrRectBounds, i, min[i], max[i])
		}
	}
	return Rect{
		Min: append([]float64(nil), min...),
		Max: append([]float64(nil), max...),
	}, nil
}

// Point returns the degenerate rectangle covering exactly one coordinate.
func Point(coord ...float64) (Rect, error) {
	return NewRect(coord, coord)
}

// Dims returns the dimensionality of the rectangle.
func (r Rect) Dims() int { return len(r.Min) }

// Copy returns a rectangle with freshly allocated bounds.
func (r Rect) Copy() Rect {
	return Rect{
		Min: append([]float64(nil), r.Min...),
		Max: append([]float64(nil), r.Max...),
	}
}

// Overlaps reports whether r and o intersect on every axis. Touching
// boundaries count as overlap.
func (r Rect) Overlaps(o Rect) bool {
	for i := range r.Min {
		if r.Min[i] > o.Max[i] || o.Min[i] > r.Max[i] {
			return false
		}
	}
	return true
}

// Combine returns the minimum bounding rectangle containing both r and o.
func (r Rect) Combine(o Rect) Rect {
	c := Rect{
		Min: make([]float64, len(r.Min)),
		Max: make([]float64, len(r.Max)),
	}
	for i := range r.Min {
		c.Min[i] = math.Min(r.Min[i], o.Min[i])
		c.Max[i] = math.Max(r.Max[i], o.Max[i])
	}
	return c
}

// Equal reports exact per component equality.
func (r Rect) Equal(o Rect) bool {
	if len(r.Min) != len(o.Min) {
		return false
	}
	for i := range r.Min {
		if r.Min[i] != o.Min[i] || r.Max[i] != o.Max[i] {
			return false
		}
	}
	return true
}

// Volume returns the exact axis aligned volume of the rectangle.
func (r Rect) Volume() float64 {
	v := 1.0
	for i := range r.Min {
		v *= r.Max[i] - r.Min[i]
	}
	return v
}

// Margin returns the sum of the edge lengths of the rectangle. It is the
// distribution score used when the R* split chooses its axis.
func (r Rect) Margin() float64 {
	m := 0.0
	for i := range r.Min {
		m += r.Max[i] - r.Min[i]
	}
	return m
}

// SphericalVolume returns the volume of the sphere bounding the rectangle.
// It is a smoother size measure than the exact volume, in particular it does
// not collapse to zero for rectangles that are flat on one axis, and it is
// the score used by branch picking and the quadratic split. Scores from
// SphericalVolume and Volume are never meaningfully comparable to each other.
func (r Rect) SphericalVolume() float64 {
	sumSq := 0.0
	for i := range r.Min {
		half := (r.Max[i] - r.Min[i]) / 2
		sumSq += half * half
	}
	return math.Pow(math.Sqrt(sumSq), float64(len(r.Min))) * unitSphereVolume(len(r.Min))
}

func (r Rect) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i := range r.Min {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", r.Min[i])
	}
	b.WriteString(")-(")
	for i := range r.Max {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", r.Max[i])
	}
	b.WriteByte(')')
	return b.String()
}

// intersectionVolume returns the exact volume of the intersection of a and b,
// or 0 when they do not overlap. The R* split uses it to score cut points.
func intersectionVolume(a, b Rect) float64 {
	v := 1.0
	for i := range a.Min {
		lo := math.Max(a.Min[i], b.Min[i])
		hi := math.Min(a.Max[i], b.Max[i])
		if lo > hi {
			return 0
		}
		v *= hi - lo
	}
	return v
}

// unitSphereVolume is the volume of the unit hypersphere in d dimensions,
// pi^(d/2) / gamma(d/2 + 1).
func unitSphereVolume(d int) float64 {
	return math.Pow(math.Pi, float64(d)/2) / math.Gamma(float64(d)/2+1)
}
