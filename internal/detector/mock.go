package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns whatever hands or error it was last given. It backs
// the "mock" detector setting and the tests.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	fail   error
	count  int
	closed bool
}

func NewMockDetector() *MockDetector { return &MockDetector{} }

// SetHands replaces the hands reported for every following frame.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	m.hands = append([]HandLandmarks(nil), hands...)
	m.mu.Unlock()
}

// SetError makes Detect fail with err; nil clears it.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *MockDetector) Detect(*gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	if m.fail != nil {
		return nil, m.fail
	}
	return append([]HandLandmarks(nil), m.hands...), nil
}

// Calls counts Detect invocations, failed ones included.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// HandAt returns a flat hand whose index fingertip and pinky tip sit at the
// given normalized positions. The remaining landmarks are laid out between
// the wrist and the fingertips.
func HandAt(handedness string, index, pinky Point3D) HandLandmarks {
	h := HandLandmarks{Handedness: handedness, Score: 0.95}

	wrist := Point3D{X: (index.X + pinky.X) / 2, Y: max(index.Y, pinky.Y) + 0.25}
	for i := range h.Points {
		h.Points[i] = wrist
	}

	h.Points[IndexMCP] = lerp(wrist, index, 0.5)
	h.Points[IndexTip] = index
	h.Points[PinkyMCP] = lerp(wrist, pinky, 0.5)
	h.Points[PinkyTip] = pinky
	h.Points[MiddleMCP] = lerp(h.Points[IndexMCP], h.Points[PinkyMCP], 0.33)
	h.Points[MiddleTip] = lerp(index, pinky, 0.33)
	h.Points[RingTip] = lerp(index, pinky, 0.66)
	h.Points[ThumbTip] = Point3D{X: index.X + (index.X-pinky.X)*0.4, Y: wrist.Y - 0.1}

	return h
}

func lerp(a, b Point3D, t float64) Point3D {
	return Point3D{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t, Z: a.Z + (b.Z-a.Z)*t}
}
