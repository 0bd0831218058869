package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molrank/pkg/errors"
)

func square(x0, y0, side float64) Polygon {
	return Polygon{
		{X: x0, Y: y0},
		{X: x0 + side, Y: y0},
		{X: x0 + side, Y: y0 + side},
		{X: x0, Y: y0 + side},
	}
}

func TestArea(t *testing.T) {
	tests := []struct {
		name string
		p    Polygon
		want float64
	}{
		{"unit square", square(0, 0, 1), 1.0},
		{"two-unit square", square(0, 0, 2), 4.0},
		{"clockwise ring", Polygon{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, 1.0},
		{"right triangle", Polygon{{0, 0}, {2, 0}, {0, 2}}, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Area(tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestArea_TooFewVertices(t *testing.T) {
	_, err := Area(Polygon{{0, 0}, {1, 1}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePolygonInvalid))
}

func TestIntersectionArea(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Polygon
		want   float64
	}{
		{"square inside square", square(0, 0, 1), square(0, 0, 2), 1.0},
		{"fractional containment", square(0, 0, 0.5), square(0, 0, 1), 0.25},
		{"corner overlap", square(0, 0, 4), square(2, 2, 4), 4.0},
		{"disjoint", square(0, 0, 1), square(5, 5, 1), 0.0},
		{"identical", square(1, 1, 3), square(1, 1, 3), 9.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntersectionArea(tt.p1, tt.p2)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)

			// Overlap is symmetric.
			swapped, err := IntersectionArea(tt.p2, tt.p1)
			require.NoError(t, err)
			assert.InDelta(t, got, swapped, 1e-12)
		})
	}
}

func TestNonOverlapArea(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Polygon
		want   float64
	}{
		{"square inside square", square(0, 0, 1), square(0, 0, 2), 3.0},
		{"fractional containment", square(0, 0, 0.5), square(0, 0, 1), 0.75},
		{"corner overlap", square(0, 0, 4), square(2, 2, 4), 24.0},
		{"identical", square(0, 0, 2), square(0, 0, 2), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NonOverlapArea(tt.p1, tt.p2)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

// The one-sided difference is not symmetric: the reference argument picks
// which polygon's uncovered remainder is measured.
func TestDifferenceArea(t *testing.T) {
	shiftedSquare := Polygon{{1, 1}, {4, 1}, {4, 4}, {1, 4}}
	rectangle := Polygon{{0, 0}, {2, 0}, {2, 3}, {0, 3}}

	got, err := DifferenceArea(shiftedSquare, rectangle, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)

	got, err = DifferenceArea(shiftedSquare, rectangle, 2)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, got, 1e-12)
}

func TestDifferenceArea_BadReference(t *testing.T) {
	_, err := DifferenceArea(square(0, 0, 1), square(0, 0, 1), 3)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePolygonReferenceInvalid))
}

func TestIntersectionArea_DegenerateRing(t *testing.T) {
	collapsed := Polygon{{0, 0}, {0, 0}, {0, 0}}

	got, err := IntersectionArea(collapsed, square(0, 0, 2))
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = IntersectionArea(square(0, 0, 2), collapsed)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestIntersectionArea_InvalidPolygon(t *testing.T) {
	_, err := IntersectionArea(Polygon{{0, 0}}, square(0, 0, 1))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePolygonInvalid))

	_, err = NonOverlapArea(square(0, 0, 1), Polygon{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePolygonInvalid))
}
