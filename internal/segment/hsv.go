// Package segment produces per-class binary masks from camera frames using
// HSV color thresholds.
package segment

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/region"
)

var validate = validator.New()

// HSVRange is an inclusive color range in OpenCV HSV space, where hue runs
// from 0 to 179 and saturation and value from 0 to 255.
type HSVRange struct {
	LowH  int `json:"low_h" yaml:"low_h" validate:"gte=0,lte=179"`
	LowS  int `json:"low_s" yaml:"low_s" validate:"gte=0,lte=255"`
	LowV  int `json:"low_v" yaml:"low_v" validate:"gte=0,lte=255"`
	HighH int `json:"high_h" yaml:"high_h" validate:"gte=0,lte=179,gtefield=LowH"`
	HighS int `json:"high_s" yaml:"high_s" validate:"gte=0,lte=255,gtefield=LowS"`
	HighV int `json:"high_v" yaml:"high_v" validate:"gte=0,lte=255,gtefield=LowV"`
}

// Default ranges for the two anchor colors.
var (
	DefaultGreen = HSVRange{LowH: 35, LowS: 100, LowV: 25, HighH: 85, HighS: 255, HighV: 255}
	DefaultBlue  = HSVRange{LowH: 100, LowS: 100, LowV: 50, HighH: 140, HighS: 255, HighV: 255}
)

// Validate checks the bounds and ordering of the range.
func (r HSVRange) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid hsv range: %w", err)
	}
	return nil
}

// Low returns the lower bound as a scalar.
func (r HSVRange) Low() gocv.Scalar {
	return gocv.NewScalar(float64(r.LowH), float64(r.LowS), float64(r.LowV), 0)
}

// High returns the upper bound as a scalar.
func (r HSVRange) High() gocv.Scalar {
	return gocv.NewScalar(float64(r.HighH), float64(r.HighS), float64(r.HighV), 0)
}

// Calibration holds the live HSV range of each anchor class. It is written by
// the calibration API and read once per frame by the pipeline.
type Calibration struct {
	mu     sync.RWMutex
	ranges map[region.Class]HSVRange
}

// NewCalibration creates a Calibration seeded with ranges.
func NewCalibration(ranges map[region.Class]HSVRange) *Calibration {
	c := &Calibration{ranges: make(map[region.Class]HSVRange, len(ranges))}
	for class, r := range ranges {
		c.ranges[class] = r
	}
	return c
}

// Get returns the range for class.
func (c *Calibration) Get(class region.Class) (HSVRange, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.ranges[class]
	return r, ok
}

// Set validates and stores the range for class.
func (c *Calibration) Set(class region.Class, r HSVRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranges[class] = r
	return nil
}

// Replace validates every range and swaps them in together. Classes missing
// from ranges keep their current value.
func (c *Calibration) Replace(ranges map[region.Class]HSVRange) error {
	for class, r := range ranges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("class %s: %w", class, err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for class, r := range ranges {
		c.ranges[class] = r
	}
	return nil
}

// Snapshot returns a copy of every class range.
func (c *Calibration) Snapshot() map[region.Class]HSVRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[region.Class]HSVRange, len(c.ranges))
	for class, r := range c.ranges {
		out[class] = r
	}
	return out
}
