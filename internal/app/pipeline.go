package app

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/config"
	"github.com/goggybox/touchtypEd/internal/detector"
	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/render"
	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/stabilizer"
)

// ErrEmptyFrame is returned by Process for a nil or empty frame.
var ErrEmptyFrame = errors.New("empty frame")

// Pipeline turns one frame into a placement snapshot:
//
//  1. convert to HSV, with optional gamma and CLAHE enhancement
//  2. segment each class with the live calibration and extract its regions
//  3. feed the regions to the stabilizer for the overlay
//  4. detect hands and convert their fingertips to pixels
//  5. evaluate each hand against the regions and combine the verdicts
//
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	classes     []*region.Extractor
	segmenter   *segment.Segmenter
	calibration *segment.Calibration
	stabilizer  *stabilizer.Stabilizer
	evaluator   *placement.Evaluator
	debouncer   *placement.Debouncer
	detector    detector.Detector

	indexLandmark  detector.Landmark
	secondLandmark detector.Landmark
	mirror         bool

	frame uint64
	log   logrus.FieldLogger
}

// NewPipeline builds a pipeline for cfg. The pipeline owns det and closes
// it in Close.
func NewPipeline(cfg *config.Config, cal *segment.Calibration, det detector.Detector, log logrus.FieldLogger) (*Pipeline, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if det == nil {
		return nil, errors.New("pipeline: detector is required")
	}

	p := &Pipeline{
		segmenter: segment.NewSegmenter(segment.Options{
			Preprocess: cfg.Pipeline.Preprocess,
			Morphology: cfg.Pipeline.Morphology,
		}),
		calibration:    cal,
		stabilizer:     stabilizer.New(cfg.Pipeline.History, log),
		evaluator:      placement.NewEvaluator(cfg.Placement()),
		debouncer:      placement.NewDebouncer(cfg.Pipeline.DebounceFrames),
		detector:       det,
		indexLandmark:  detector.Landmark(cfg.Pipeline.IndexLandmark),
		secondLandmark: detector.Landmark(cfg.Pipeline.SecondLandmark),
		mirror:         cfg.Pipeline.MirrorHandedness,
		log:            log,
	}

	for _, cls := range cfg.Classes {
		params := cfg.ExtractParams(cls)
		if err := params.Validate(); err != nil {
			p.segmenter.Close()
			return nil, fmt.Errorf("class %s: %w", cls.Name, err)
		}
		p.classes = append(p.classes, region.NewExtractor(cls.Name, params))
		p.stabilizer.Configure(cls.Name, stabilizer.ClassOptions{
			Sided:          cls.Sided,
			RejectOutliers: cls.RejectOutliers,
		})
	}

	log.WithFields(logrus.Fields{
		"classes": len(p.classes),
		"index":   p.indexLandmark,
		"second":  p.secondLandmark,
		"mirror":  p.mirror,
	}).Debug("pipeline ready")
	return p, nil
}

// Process runs every stage on frame. The frame is not modified or closed.
func (p *Pipeline) Process(frame *gocv.Mat) (*render.Snapshot, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	p.frame++

	snap := &render.Snapshot{
		Frame:     p.frame,
		Width:     frame.Cols(),
		Height:    frame.Rows(),
		Anchors:   make(map[region.Class]region.AnchorSet, len(p.classes)),
		Estimates: make(map[region.Class]stabilizer.Estimate, len(p.classes)),
	}

	p.segmenter.Load(*frame)
	ranges := p.calibration.Snapshot()
	for _, ex := range p.classes {
		class := ex.Class()
		set := region.AnchorSet{Class: class, Regions: []region.Region{}}
		if rng, ok := ranges[class]; ok {
			mask := p.segmenter.Segment(rng)
			set = ex.Extract(mask)
			mask.Close()
		} else {
			p.log.WithField("class", class).Debug("no calibration for class")
		}
		snap.Anchors[class] = set
		snap.Estimates[class] = p.stabilizer.Update(set)
	}

	snap.Hands = p.observe(frame, snap.Width, snap.Height)
	snap.Results = p.evaluator.EvaluateAll(snap.Anchors, snap.Hands)
	if p.debouncer.Enabled() {
		snap.Status = p.debouncer.Status(snap.Results)
	} else {
		snap.Status = placement.Combine(snap.Results)
	}

	return snap, nil
}

// observe runs the detector and converts each hand to pixel fingertips.
// A detector error counts as no hands.
func (p *Pipeline) observe(frame *gocv.Mat, width, height int) []placement.HandObservation {
	hands, err := p.detector.Detect(frame)
	if err != nil {
		p.log.WithError(err).WithField("frame", p.frame).Warn("hand detection failed")
		return []placement.HandObservation{}
	}

	obs := make([]placement.HandObservation, 0, len(hands))
	for _, h := range hands {
		side, err := placement.ParseSide(h.Handedness)
		if err != nil {
			p.log.WithError(err).Debug("skipping hand")
			continue
		}
		if p.mirror {
			side = side.Opposite()
		}
		obs = append(obs, placement.HandObservation{
			Side:      side,
			IndexTip:  h.Pixel(p.indexLandmark, width, height),
			SecondTip: h.Pixel(p.secondLandmark, width, height),
		})
	}
	return obs
}

// Reset starts a new session: anchor history and held verdicts are cleared.
func (p *Pipeline) Reset() {
	p.stabilizer.Reset()
	p.debouncer.Reset()
	p.frame = 0
}

// Close releases the segmenter and the detector.
func (p *Pipeline) Close() error {
	return errors.Join(p.segmenter.Close(), p.detector.Close())
}
