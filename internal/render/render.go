// Package render turns per-frame pipeline results into user feedback.
package render

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/stabilizer"
)

// Snapshot is everything the pipeline produced for one frame. Renderers must
// treat it as read-only.
type Snapshot struct {
	Frame     uint64
	Width     int
	Height    int
	Anchors   map[region.Class]region.AnchorSet
	Estimates map[region.Class]stabilizer.Estimate
	Hands     []placement.HandObservation
	Results   []placement.Result
	Status    placement.Status
}

// Result returns the first result for side.
func (s *Snapshot) Result(side placement.Side) (placement.Result, bool) {
	for _, r := range s.Results {
		if r.Side == side {
			return r, true
		}
	}
	return placement.Result{}, false
}

// Renderer consumes frames and their snapshots. frame may be nil when only
// the data is of interest.
type Renderer interface {
	Render(frame *gocv.Mat, snap *Snapshot) error
}

// Func adapts a function to a Renderer.
type Func func(frame *gocv.Mat, snap *Snapshot) error

func (f Func) Render(frame *gocv.Mat, snap *Snapshot) error {
	return f(frame, snap)
}

// Multi fans a frame out to several renderers. Every renderer runs even when
// an earlier one fails.
type Multi []Renderer

func (m Multi) Render(frame *gocv.Mat, snap *Snapshot) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(frame, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
