package placement

import (
	"math"

	"github.com/goggybox/touchtypEd/internal/geom"
	"github.com/goggybox/touchtypEd/internal/region"
)

// DefaultDistanceThreshold accepts fingertips up to ten pixels outside a zone.
const DefaultDistanceThreshold = -10.0

// Config controls the evaluator.
type Config struct {
	Targets []Target
	// MinRegions is the minimum number of regions a class must have before any
	// test depending on it is attempted.
	MinRegions map[region.Class]int
	// Thresholds holds per-class signed-distance thresholds. Classes without
	// an entry use DefaultThreshold.
	Thresholds       map[region.Class]float64
	DefaultThreshold float64
}

// DefaultConfig returns the home-row targets with a two-region minimum on the
// green class and the default threshold.
func DefaultConfig() Config {
	return Config{
		Targets:          DefaultTargets(),
		MinRegions:       map[region.Class]int{region.ClassGreen: 2},
		Thresholds:       map[region.Class]float64{},
		DefaultThreshold: DefaultDistanceThreshold,
	}
}

// Evaluator tests hand observations against the current frame's anchor sets.
// It keeps no state between calls.
type Evaluator struct {
	cfg      Config
	required map[Side]map[region.Class]int
}

// NewEvaluator creates an Evaluator and precomputes the region count each
// side needs per class.
func NewEvaluator(cfg Config) *Evaluator {
	required := map[Side]map[region.Class]int{
		Left:  {},
		Right: {},
	}
	for _, t := range cfg.Targets {
		need := t.Slot + 1
		if m := cfg.MinRegions[t.Class]; m > need {
			need = m
		}
		if need > required[t.Side][t.Class] {
			required[t.Side][t.Class] = need
		}
	}
	return &Evaluator{cfg: cfg, required: required}
}

// Threshold returns the signed-distance threshold for class.
func (e *Evaluator) Threshold(class region.Class) float64 {
	if th, ok := e.cfg.Thresholds[class]; ok {
		return th
	}
	return e.cfg.DefaultThreshold
}

// Ready reports whether sets hold enough regions for every test of side.
func (e *Evaluator) Ready(sets map[region.Class]region.AnchorSet, side Side) bool {
	for class, need := range e.required[side] {
		if sets[class].Len() < need {
			return false
		}
	}
	return true
}

// Evaluate tests the fingertips of hand against the regions assigned to its
// side. Missing, insufficient or degenerate anchors make the affected tests
// false; Evaluate never fails.
func (e *Evaluator) Evaluate(sets map[region.Class]region.AnchorSet, hand HandObservation) Result {
	res := Result{
		Side:           hand.Side,
		IndexDistance:  math.NaN(),
		SecondDistance: math.NaN(),
	}
	if !e.Ready(sets, hand.Side) {
		return res
	}

	ordered := make(map[region.Class][]region.Region)
	for _, t := range e.cfg.Targets {
		if t.Side != hand.Side {
			continue
		}

		regions, ok := ordered[t.Class]
		if !ok {
			regions = sets[t.Class].ByMinX()
			ordered[t.Class] = regions
		}

		d, ok := e.test(regions, t, hand.Tip(t.Finger))
		switch t.Finger {
		case Index:
			res.IndexDistance = d
			res.IndexCorrect = ok
		case Second:
			res.SecondDistance = d
			res.SecondCorrect = ok
		}
	}
	return res
}

// EvaluateAll evaluates every hand and returns the results in input order.
func (e *Evaluator) EvaluateAll(sets map[region.Class]region.AnchorSet, hands []HandObservation) []Result {
	results := make([]Result, 0, len(hands))
	for _, h := range hands {
		results = append(results, e.Evaluate(sets, h))
	}
	return results
}

// test returns the signed distance of tip to the target region and whether
// it clears the class threshold.
func (e *Evaluator) test(regions []region.Region, t Target, tip geom.Point) (float64, bool) {
	if t.Slot < 0 || t.Slot >= len(regions) {
		return math.NaN(), false
	}
	d, ok := geom.SignedDistance(regions[t.Slot].Contour, tip)
	if !ok {
		return math.NaN(), false
	}
	return d, d > e.Threshold(t.Class)
}
