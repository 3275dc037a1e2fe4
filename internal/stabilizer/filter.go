package stabilizer

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/goggybox/touchtypEd/internal/geom"
)

// OutlierFactor scales the median distance into the rejection threshold.
const OutlierFactor = 2.0

// median returns the middle value of values, averaging the two middle values
// for an even count. values is sorted in place.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// componentMedian returns the per-axis median of points.
func componentMedian(points []geom.Point) geom.Point {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return geom.Point{X: median(xs), Y: median(ys)}
}

// FilterOutliers drops samples whose distance to the component-wise median is
// not strictly below OutlierFactor times the median of all such distances.
// When the median distance is zero, only samples sitting on the median are
// kept, so a window of identical samples loses nothing.
func FilterOutliers(samples []geom.Point) []geom.Point {
	if len(samples) == 0 {
		return nil
	}

	center := componentMedian(samples)
	dists := make([]float64, len(samples))
	for i, p := range samples {
		dists[i] = geom.Distance(p, center)
	}

	sorted := make([]float64, len(dists))
	copy(sorted, dists)
	threshold := OutlierFactor * median(sorted)

	kept := make([]geom.Point, 0, len(samples))
	for i, p := range samples {
		if dists[i] < threshold || (threshold == 0 && dists[i] == 0) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Mean averages points, returning the origin sentinel for an empty slice.
func Mean(points []geom.Point) geom.Point {
	if len(points) == 0 {
		return geom.Origin
	}
	var sum r2.Vec
	for _, p := range points {
		sum = r2.Add(sum, p)
	}
	return r2.Scale(1/float64(len(points)), sum)
}
