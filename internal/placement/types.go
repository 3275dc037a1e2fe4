// Package placement decides whether each detected hand rests on its assigned
// anchor regions.
package placement

import (
	"fmt"
	"strings"

	"github.com/goggybox/touchtypEd/internal/geom"
	"github.com/goggybox/touchtypEd/internal/region"
)

// Side is the handedness reported by the landmark detector.
type Side string

const (
	Left  Side = "Left"
	Right Side = "Right"
)

// ParseSide converts a handedness label to a Side. Matching is case-insensitive.
func ParseSide(label string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return "", fmt.Errorf("unknown handedness %q", label)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Finger selects which tracked fingertip a target applies to.
type Finger string

const (
	// Index is the primary finger.
	Index Finger = "index"
	// Second is the secondary tracked finger, the pinky by default.
	Second Finger = "second"
)

// HandObservation is one detected hand for the current frame with fingertip
// positions in pixel coordinates.
type HandObservation struct {
	Side      Side       `json:"side"`
	IndexTip  geom.Point `json:"index_tip"`
	SecondTip geom.Point `json:"second_tip"`
}

// Tip returns the fingertip position for f.
func (h HandObservation) Tip(f Finger) geom.Point {
	if f == Second {
		return h.SecondTip
	}
	return h.IndexTip
}

// Target assigns a finger of one hand to the Slot-th region of Class, counting
// regions from left to right by bounding-box minimum x.
type Target struct {
	Side   Side         `json:"side" yaml:"side"`
	Finger Finger       `json:"finger" yaml:"finger"`
	Class  region.Class `json:"class" yaml:"class"`
	Slot   int          `json:"slot" yaml:"slot"`
}

// DefaultTargets returns the keyboard home-row assignment: the left pinky and
// index on the two leftmost green zones, the right pinky on the third green
// zone and the right index on the blue zone.
func DefaultTargets() []Target {
	return []Target{
		{Side: Left, Finger: Second, Class: region.ClassGreen, Slot: 0},
		{Side: Left, Finger: Index, Class: region.ClassGreen, Slot: 1},
		{Side: Right, Finger: Second, Class: region.ClassGreen, Slot: 2},
		{Side: Right, Finger: Index, Class: region.ClassBlue, Slot: 0},
	}
}

// Result is the placement verdict for one hand in one frame.
type Result struct {
	Side          Side    `json:"side"`
	IndexCorrect  bool    `json:"index_correct"`
	SecondCorrect bool    `json:"second_correct"`
	IndexDistance float64 `json:"index_distance"`
	// SecondDistance and IndexDistance are NaN when the test could not run.
	SecondDistance float64 `json:"second_distance"`
}

// Correct reports whether both finger tests passed.
func (r Result) Correct() bool {
	return r.IndexCorrect && r.SecondCorrect
}

// Status summarizes the verdicts of both hands.
type Status int

const (
	Neither Status = iota
	OnlyLeft
	OnlyRight
	Both
)

// String returns a short label for the status.
func (s Status) String() string {
	switch s {
	case Both:
		return "both"
	case OnlyLeft:
		return "only-left"
	case OnlyRight:
		return "only-right"
	default:
		return "neither"
	}
}

// Message returns the user-facing guidance for the status.
func (s Status) Message() string {
	switch s {
	case Both:
		return "Both hands correct"
	case OnlyLeft:
		return "Your right hand is not in the correct position on the keyboard."
	case OnlyRight:
		return "Your left hand is not in the correct position on the keyboard."
	default:
		return "Your hands are not in their correct positions on the keyboard."
	}
}

// MarshalText encodes the status as its label.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Combine reduces per-hand results into a Status. A side counts as correct
// when any result for that side is correct.
func Combine(results []Result) Status {
	var left, right bool
	for _, r := range results {
		if !r.Correct() {
			continue
		}
		switch r.Side {
		case Left:
			left = true
		case Right:
			right = true
		}
	}

	switch {
	case left && right:
		return Both
	case left:
		return OnlyLeft
	case right:
		return OnlyRight
	}
	return Neither
}
