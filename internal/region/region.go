// Package region turns per-color binary masks into ranked sets of candidate
// anchor regions.
package region

import (
	"image"
	"math"
	"sort"

	"github.com/goggybox/touchtypEd/internal/geom"
)

// Class identifies a logical anchor group, for example "green" or "blue".
type Class string

// Default anchor classes.
const (
	ClassGreen Class = "green"
	ClassBlue  Class = "blue"
)

// Region is one candidate anchor zone extracted from a mask for a single frame.
// Regions are never modified after construction.
type Region struct {
	Contour         []image.Point `json:"contour"`
	Area            float64       `json:"area"`
	Centroid        geom.Point    `json:"centroid"`
	BoundingBoxMinX float64       `json:"bbox_min_x"`
}

// AnchorSet is the ranked, capped set of regions extracted for one class in
// one frame. Regions are ordered by descending area.
type AnchorSet struct {
	Class   Class    `json:"class"`
	Regions []Region `json:"regions"`
}

// Len returns the number of regions in the set.
func (s AnchorSet) Len() int {
	return len(s.Regions)
}

// Empty reports whether the set holds no regions.
func (s AnchorSet) Empty() bool {
	return len(s.Regions) == 0
}

// Centroids returns the centroid of every region in rank order.
func (s AnchorSet) Centroids() []geom.Point {
	out := make([]geom.Point, len(s.Regions))
	for i, r := range s.Regions {
		out[i] = r.Centroid
	}
	return out
}

// ByMinX returns a copy of the regions sorted by ascending bounding-box
// minimum x. Regions sharing the same min-x keep their area order.
func (s AnchorSet) ByMinX() []Region {
	sorted := make([]Region, len(s.Regions))
	copy(sorted, s.Regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BoundingBoxMinX < sorted[j].BoundingBoxMinX
	})
	return sorted
}

// FromContour builds a Region from a closed contour. The centroid is the ratio
// of first to zeroth polygon moments; a zero-area contour gets the origin
// sentinel instead.
func FromContour(contour []image.Point) Region {
	pts := make([]image.Point, len(contour))
	copy(pts, contour)

	m := geom.PolygonMoments(pts)

	minX := math.Inf(1)
	for _, p := range pts {
		if x := float64(p.X); x < minX {
			minX = x
		}
	}
	if len(pts) == 0 {
		minX = 0
	}

	return Region{
		Contour:         pts,
		Area:            m.M00,
		Centroid:        m.Centroid(),
		BoundingBoxMinX: minX,
	}
}

// Rank sorts regions by descending area and truncates the result to limit.
// A non-positive limit yields an empty slice.
func Rank(regions []Region, limit int) []Region {
	if limit <= 0 || len(regions) == 0 {
		return []Region{}
	}

	ranked := make([]Region, len(regions))
	copy(ranked, regions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Area > ranked[j].Area
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
