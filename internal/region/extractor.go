package region

import (
	"errors"

	"gocv.io/x/gocv"
)

// Extraction defaults.
const (
	// DefaultApproxTolerance is the polygon simplification tolerance as a
	// fraction of the contour perimeter.
	DefaultApproxTolerance = 0.02
	// DefaultMinVertices rejects line-like contours after simplification.
	DefaultMinVertices = 3
)

// ErrInvalidParams is returned when extraction parameters are out of range.
var ErrInvalidParams = errors.New("invalid extraction parameters")

// Params controls how a mask is turned into an AnchorSet.
type Params struct {
	ApproxTolerance float64
	MinVertices     int
	Cap             int
}

// DefaultParams returns Params with the standard tolerance and vertex minimum
// and the given cap.
func DefaultParams(limit int) Params {
	return Params{
		ApproxTolerance: DefaultApproxTolerance,
		MinVertices:     DefaultMinVertices,
		Cap:             limit,
	}
}

// Validate checks that the parameters can be used for extraction.
func (p Params) Validate() error {
	if p.ApproxTolerance < 0 || p.MinVertices < 3 || p.Cap < 1 {
		return ErrInvalidParams
	}
	return nil
}

// Extractor finds ranked anchor regions in binary masks for one class.
type Extractor struct {
	class  Class
	params Params
}

// NewExtractor creates an Extractor for class. Invalid params are replaced by
// the defaults for the given cap.
func NewExtractor(class Class, params Params) *Extractor {
	if params.ApproxTolerance < 0 {
		params.ApproxTolerance = DefaultApproxTolerance
	}
	if params.MinVertices < 3 {
		params.MinVertices = DefaultMinVertices
	}
	if params.Cap < 1 {
		params.Cap = 1
	}
	return &Extractor{class: class, params: params}
}

// Class returns the anchor class this extractor produces sets for.
func (e *Extractor) Class() Class {
	return e.class
}

// Params returns the effective extraction parameters.
func (e *Extractor) Params() Params {
	return e.params
}

// Extract finds the outer boundaries of the foreground pixels in mask,
// discards boundaries whose simplified polygon has fewer than MinVertices
// vertices, and returns the largest Cap regions ordered by descending area.
// An empty mask yields an empty AnchorSet.
//
// Area, centroid and containment all use the raw contour; the simplified
// polygon only decides whether the contour is kept.
func (e *Extractor) Extract(mask gocv.Mat) AnchorSet {
	set := AnchorSet{Class: e.class, Regions: []Region{}}
	if mask.Empty() || gocv.CountNonZero(mask) == 0 {
		return set
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	candidates := make([]Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		epsilon := e.params.ApproxTolerance * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		vertices := approx.Size()
		approx.Close()

		if vertices < e.params.MinVertices {
			continue
		}
		candidates = append(candidates, FromContour(contour.ToPoints()))
	}

	set.Regions = Rank(candidates, e.params.Cap)
	return set
}
