package geom

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size int) []image.Point {
	return []image.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
	}
}

func TestPolygonMoments(t *testing.T) {
	tests := []struct {
		name         string
		contour      []image.Point
		wantArea     float64
		wantCentroid Point
	}{
		{
			name:         "square",
			contour:      square(10, 20, 10),
			wantArea:     100,
			wantCentroid: Point{X: 15, Y: 25},
		},
		{
			name:         "reversed winding keeps positive area",
			contour:      []image.Point{{0, 0}, {4, 0}, {4, 2}, {0, 2}},
			wantArea:     8,
			wantCentroid: Point{X: 2, Y: 1},
		},
		{
			name:         "collinear points have zero area",
			contour:      []image.Point{{0, 0}, {5, 0}, {10, 0}},
			wantArea:     0,
			wantCentroid: Origin,
		},
		{
			name:         "two points",
			contour:      []image.Point{{3, 3}, {9, 9}},
			wantArea:     0,
			wantCentroid: Origin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := PolygonMoments(tt.contour)
			assert.InDelta(t, tt.wantArea, m.M00, 1e-9)

			c := m.Centroid()
			assert.InDelta(t, tt.wantCentroid.X, c.X, 1e-9)
			assert.InDelta(t, tt.wantCentroid.Y, c.Y, 1e-9)
		})
	}
}

func TestSignedDistance_CentroidIsInside(t *testing.T) {
	contour := square(0, 0, 40)
	centroid := PolygonMoments(contour).Centroid()

	d, ok := SignedDistance(contour, centroid)
	require.True(t, ok)
	assert.InDelta(t, 20.0, d, 1e-9)
}

func TestSignedDistance_MovesFurtherOutside(t *testing.T) {
	contour := square(0, 0, 40)

	prev := 0.0
	for x := 45.0; x <= 200; x += 5 {
		d, ok := SignedDistance(contour, Point{X: x, Y: 20})
		require.True(t, ok)
		assert.Less(t, d, 0.0, "point (%v, 20) should be outside", x)
		assert.LessOrEqual(t, d, prev, "distance should not grow back toward the boundary")
		prev = d
	}
}

func TestSignedDistance_OnEdge(t *testing.T) {
	d, ok := SignedDistance(square(0, 0, 10), Point{X: 10, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 0.0, d)
}

func TestSignedDistance_NearestEdge(t *testing.T) {
	contour := square(0, 0, 100)

	d, ok := SignedDistance(contour, Point{X: 3, Y: 50})
	require.True(t, ok)
	assert.InDelta(t, 3.0, d, 1e-9)

	d, ok = SignedDistance(contour, Point{X: 50, Y: -7})
	require.True(t, ok)
	assert.InDelta(t, -7.0, d, 1e-9)
}

func TestSignedDistance_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		contour []image.Point
	}{
		{name: "nil", contour: nil},
		{name: "single point", contour: []image.Point{{1, 1}}},
		{name: "segment", contour: []image.Point{{0, 0}, {10, 10}}},
		{name: "zero area", contour: []image.Point{{0, 0}, {5, 5}, {10, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := SignedDistance(tt.contour, Point{X: 1, Y: 1})
			assert.False(t, ok)
		})
	}
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}), 1e-12)
	assert.True(t, IsOrigin(Origin))
	assert.False(t, IsOrigin(Point{X: 0, Y: 1}))
	assert.Equal(t, image.Point{X: 2, Y: 3}, ToImage(Point{X: 1.6, Y: 2.5}))
	assert.Equal(t, Point{X: 7, Y: 9}, FromImage(image.Point{X: 7, Y: 9}))
}
