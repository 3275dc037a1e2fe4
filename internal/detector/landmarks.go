// Package detector provides hand landmark detection for placement checks.
package detector

import (
	"fmt"

	"github.com/goggybox/touchtypEd/internal/geom"
)

// Landmark indexes the 21 points of the MediaPipe hand model.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Landmark int

const (
	Wrist Landmark = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip

	NumLandmarks = int(PinkyTip) + 1
)

var landmarkNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

func (l Landmark) Valid() bool { return l >= 0 && int(l) < NumLandmarks }

func (l Landmark) String() string {
	if !l.Valid() {
		return fmt.Sprintf("landmark(%d)", int(l))
	}
	return landmarkNames[l]
}

// Point3D is a landmark position. X and Y are normalized to [0, 1] of the
// frame width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand.
type HandLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	// Handedness is "Left" or "Right" as reported by the model.
	Handedness string  `json:"handedness"`
	Score      float64 `json:"score"`
}

// Pixel returns landmark l scaled to a width x height frame. Invalid
// landmarks map to the origin.
func (h HandLandmarks) Pixel(l Landmark, width, height int) geom.Point {
	if !l.Valid() {
		return geom.Origin
	}
	p := h.Points[l]
	return geom.Point{X: p.X * float64(width), Y: p.Y * float64(height)}
}
