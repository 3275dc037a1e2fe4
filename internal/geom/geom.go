// Package geom provides the 2D point type and polygon queries shared by the
// region, stabilizer and placement packages.
package geom

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D position in pixel coordinates.
type Point = r2.Vec

// Origin is the zero point. It doubles as the "not yet known" sentinel for
// centroids and smoothed positions.
var Origin = Point{}

// FromImage converts an integer pixel position to a Point.
func FromImage(p image.Point) Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// ToImage rounds a Point to the nearest integer pixel position.
func ToImage(p Point) image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// IsOrigin reports whether p is the zero sentinel.
func IsOrigin(p Point) bool {
	return p.X == 0 && p.Y == 0
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Moments holds the zeroth and first spatial moments of a closed polygon.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// PolygonMoments computes the spatial moments of the polygon described by
// contour using Green's theorem. M00 is the unsigned area; M10 and M01 carry
// the matching sign so that M10/M00 and M01/M00 are the centroid.
func PolygonMoments(contour []image.Point) Moments {
	n := len(contour)
	if n < 3 {
		return Moments{}
	}

	var a, cx, cy float64
	for i := 0; i < n; i++ {
		p := contour[i]
		q := contour[(i+1)%n]
		cross := float64(p.X*q.Y - q.X*p.Y)
		a += cross
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}

	m := Moments{
		M00: a / 2,
		M10: cx / 6,
		M01: cy / 6,
	}
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// Centroid returns M10/M00, M01/M00, or Origin when the zeroth moment is zero.
func (m Moments) Centroid() Point {
	if m.M00 == 0 {
		return Origin
	}
	return Point{X: m.M10 / m.M00, Y: m.M01 / m.M00}
}

// SignedDistance returns the distance from point to the nearest edge of the
// polygon described by contour: positive inside, negative outside, zero on an
// edge. ok is false for degenerate polygons (fewer than three vertices or zero
// area), for which no meaningful answer exists.
func SignedDistance(contour []image.Point, point Point) (dist float64, ok bool) {
	if len(contour) < 3 || PolygonMoments(contour).M00 == 0 {
		return 0, false
	}

	ring := make(orb.Ring, 0, len(contour)+1)
	for _, p := range contour {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}

	target := orb.Point{point.X, point.Y}
	nearest := math.Inf(1)
	for i := 1; i < len(ring); i++ {
		d := planar.DistanceFromSegment(ring[i-1], ring[i], target)
		if d < nearest {
			nearest = d
		}
	}

	if nearest == 0 {
		return 0, true
	}
	if planar.RingContains(ring, target) {
		return nearest, true
	}
	return -nearest, true
}
