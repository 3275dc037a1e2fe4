package stabilizer

import (
	"github.com/sirupsen/logrus"

	"github.com/goggybox/touchtypEd/internal/geom"
	"github.com/goggybox/touchtypEd/internal/region"
)

// DefaultHistory is the number of frames a position must be observed before
// a smoothed value is produced.
const DefaultHistory = 20

// ClassOptions controls smoothing for one anchor class.
type ClassOptions struct {
	// Sided classes track the leftmost and rightmost centroids separately.
	// One-sided classes track the largest region only.
	Sided bool
	// RejectOutliers enables the median-distance filter before averaging.
	RejectOutliers bool
}

// Estimate is the smoothed anchor position for a class. Left and Right are
// the zero sentinel until their history is full. One-sided classes report the
// same position on both sides.
type Estimate struct {
	Class  region.Class `json:"class"`
	Left   geom.Point   `json:"left"`
	Right  geom.Point   `json:"right"`
	Stable bool         `json:"stable"`
}

type track struct {
	opts  ClassOptions
	left  *Ring[geom.Point]
	right *Ring[geom.Point]
}

// Stabilizer owns the per-class, per-side position history of one capture
// session. It is not safe for concurrent use.
type Stabilizer struct {
	history int
	tracks  map[region.Class]*track
	log     logrus.FieldLogger
}

// New creates a Stabilizer keeping history samples per side. Classes not
// registered with Configure are treated as sided with outlier rejection.
func New(history int, log logrus.FieldLogger) *Stabilizer {
	if history < 1 {
		history = DefaultHistory
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stabilizer{
		history: history,
		tracks:  make(map[region.Class]*track),
		log:     log,
	}
}

// History returns the ring capacity used for every side.
func (s *Stabilizer) History() int {
	return s.history
}

// Configure sets the smoothing options for class and clears its history.
func (s *Stabilizer) Configure(class region.Class, opts ClassOptions) {
	s.tracks[class] = s.newTrack(opts)
}

func (s *Stabilizer) newTrack(opts ClassOptions) *track {
	t := &track{opts: opts, left: NewRing[geom.Point](s.history)}
	if opts.Sided {
		t.right = NewRing[geom.Point](s.history)
	}
	return t
}

func (s *Stabilizer) trackFor(class region.Class) *track {
	t, ok := s.tracks[class]
	if !ok {
		t = s.newTrack(ClassOptions{Sided: true, RejectOutliers: true})
		s.tracks[class] = t
	}
	return t
}

// Update records this frame's anchor positions for the set's class and
// returns the smoothed estimate. An empty set records nothing.
func (s *Stabilizer) Update(set region.AnchorSet) Estimate {
	t := s.trackFor(set.Class)

	if !set.Empty() {
		if t.opts.Sided {
			left, right := extremes(set.Centroids())
			t.left.Push(left)
			t.right.Push(right)
		} else {
			t.left.Push(set.Regions[0].Centroid)
		}
	}

	est := Estimate{Class: set.Class}
	left, okLeft := smooth(t.left, t.opts.RejectOutliers)
	est.Left = left
	if !t.opts.Sided {
		est.Right = left
		est.Stable = okLeft
		return est
	}

	right, okRight := smooth(t.right, t.opts.RejectOutliers)
	est.Right = right
	est.Stable = okLeft && okRight
	return est
}

// Reset clears every ring. Call it at session start.
func (s *Stabilizer) Reset() {
	for class, t := range s.tracks {
		t.left.Reset()
		if t.right != nil {
			t.right.Reset()
		}
		s.log.WithField("class", class).Debug("anchor history cleared")
	}
}

// extremes returns the centroids with minimum and maximum x.
func extremes(points []geom.Point) (left, right geom.Point) {
	left, right = points[0], points[0]
	for _, p := range points[1:] {
		if p.X < left.X {
			left = p
		}
		if p.X > right.X {
			right = p
		}
	}
	return left, right
}

// smooth averages a full ring, optionally after outlier rejection. It returns
// the origin sentinel and false while the ring is filling or when every
// sample was rejected.
func smooth(r *Ring[geom.Point], rejectOutliers bool) (geom.Point, bool) {
	if !r.Full() {
		return geom.Origin, false
	}

	samples := r.Values()
	if rejectOutliers {
		samples = FilterOutliers(samples)
	}
	if len(samples) == 0 {
		return geom.Origin, false
	}
	return Mean(samples), true
}
