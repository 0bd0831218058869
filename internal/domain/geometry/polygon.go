// Package geometry implements planar polygon metrics for radar-profile
// comparison: area, overlap area, symmetric-difference area and one-sided
// difference area between two simple polygons.
package geometry

import (
	"math"

	"github.com/turtacn/molrank/pkg/errors"
)

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is an ordered vertex ring.  Vertices may run clockwise or
// counter-clockwise; the metrics normalise orientation internally.  The
// overlap metrics assume convex rings, which radar-profile polygons and the
// axis-aligned comparison shapes always are; non-convex input yields an
// implementation-defined overlap value.
type Polygon []Point

// Validate checks that the ring has enough vertices to bound an area.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return errors.Newf(errors.ErrCodePolygonInvalid,
			"polygon needs at least 3 vertices, got %d", len(p))
	}
	return nil
}

// signedArea is the shoelace sum: positive for counter-clockwise rings.
func (p Polygon) signedArea() float64 {
	sum := 0.0
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// counterClockwise returns the ring in counter-clockwise order.
func (p Polygon) counterClockwise() Polygon {
	if p.signedArea() >= 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Area returns the unsigned planar area of the polygon.
func Area(p Polygon) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return math.Abs(p.signedArea()), nil
}

// inside reports whether pt lies on the inner side of the directed edge a->b
// of a counter-clockwise ring.
func inside(pt, a, b Point) bool {
	return (b.X-a.X)*(pt.Y-a.Y)-(b.Y-a.Y)*(pt.X-a.X) >= 0
}

// intersect returns the crossing of segment p1-p2 with the infinite line
// through a and b.  Callers only invoke it when the segment straddles the
// line, so the denominator is nonzero.
func intersect(p1, p2, a, b Point) Point {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	ex, ey := b.X-a.X, b.Y-a.Y
	denom := dx*ey - dy*ex
	t := ((a.X-p1.X)*ey - (a.Y-p1.Y)*ex) / denom
	return Point{X: p1.X + t*dx, Y: p1.Y + t*dy}
}

// clip cuts the subject ring against one edge of the clip ring
// (Sutherland-Hodgman step).
func clip(subject Polygon, a, b Point) Polygon {
	var out Polygon
	n := len(subject)
	for i := 0; i < n; i++ {
		cur := subject[i]
		prev := subject[(i+n-1)%n]
		curIn := inside(cur, a, b)
		prevIn := inside(prev, a, b)
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, intersect(prev, cur, a, b), cur)
		case !curIn && prevIn:
			out = append(out, intersect(prev, cur, a, b))
		}
	}
	return out
}

// IntersectionArea returns the area of the geometric overlap of p1 and p2.
// Disjoint polygons yield 0.
func IntersectionArea(p1, p2 Polygon) (float64, error) {
	if err := p1.Validate(); err != nil {
		return 0, err
	}
	if err := p2.Validate(); err != nil {
		return 0, err
	}

	region := p1.counterClockwise()
	window := p2.counterClockwise()
	// A zero-area ring overlaps nothing; its degenerate edges cannot clip.
	if region.signedArea() == 0 || window.signedArea() == 0 {
		return 0, nil
	}
	for i := range window {
		region = clip(region, window[i], window[(i+1)%len(window)])
		if len(region) < 3 {
			return 0, nil
		}
	}
	return math.Abs(region.signedArea()), nil
}

// NonOverlapArea returns the symmetric-difference area: the combined area
// belonging to exactly one of the two polygons, counted once.
func NonOverlapArea(p1, p2 Polygon) (float64, error) {
	a1, err := Area(p1)
	if err != nil {
		return 0, err
	}
	a2, err := Area(p2)
	if err != nil {
		return 0, err
	}
	overlap, err := IntersectionArea(p1, p2)
	if err != nil {
		return 0, err
	}
	return a1 + a2 - 2*overlap, nil
}

// DifferenceArea returns the one-sided difference between the two polygons.
// With reference 1 it is the area of p2 not covered by p1; with reference 2,
// the area of p1 not covered by p2.  Any other reference is an error.
func DifferenceArea(p1, p2 Polygon, reference int) (float64, error) {
	var total float64
	var err error
	switch reference {
	case 1:
		total, err = Area(p2)
	case 2:
		total, err = Area(p1)
	default:
		return 0, errors.Newf(errors.ErrCodePolygonReferenceInvalid,
			"reference must be 1 or 2, got %d", reference)
	}
	if err != nil {
		return 0, err
	}
	if err := p1.Validate(); err != nil {
		return 0, err
	}
	if err := p2.Validate(); err != nil {
		return 0, err
	}

	overlap, err := IntersectionArea(p1, p2)
	if err != nil {
		return 0, err
	}
	return total - overlap, nil
}
