package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hands in a BGR frame. Landmark coordinates are normalized
// to the frame size; a frame without hands yields an empty slice.
type Detector interface {
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
	Close() error
}

// Config tunes hand detection.
type Config struct {
	// MaxHands caps the hands reported per frame. Zero means no cap.
	MaxHands int
	// MinConfidence drops hands scored below it.
	MinConfidence float64

	// ScriptPath points at the landmark service script. When empty the
	// usual install locations are searched.
	ScriptPath string

	// Python is the interpreter used to run the service. When empty a
	// virtual environment next to the binary is preferred over python3.
	Python string

	// IdleTimeout stops the service after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig allows two hands at 0.5 confidence and stops an idle
// service after 30s.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}
