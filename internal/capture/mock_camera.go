package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays an in-memory frame sequence. It stands in for a device
// in tests and in the end-to-end harness.
type MockCamera struct {
	mu     sync.Mutex
	seq    []*gocv.Mat
	next   int
	loop   bool
	open   bool
	served int
}

// NewMockCamera returns a camera that plays frames in order. With loop set it
// wraps around instead of reporting ErrEndOfStream.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{seq: frames, loop: loop}
}

// Open rewinds to the first frame.
func (m *MockCamera) Open() error {
	m.mu.Lock()
	m.open, m.next = true, 0
	m.mu.Unlock()
	return nil
}

func (m *MockCamera) Close() error {
	m.mu.Lock()
	m.open = false
	m.mu.Unlock()
	return nil
}

// ReadFrame returns a copy of the next frame; the caller owns it.
func (m *MockCamera) ReadFrame() (*gocv.Mat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !m.open:
		return nil, ErrCameraNotOpen
	case len(m.seq) == 0:
		return nil, fmt.Errorf("mock camera has no frames: %w", ErrEndOfStream)
	case m.next == len(m.seq) && !m.loop:
		return nil, ErrEndOfStream
	}

	src := m.seq[m.next%len(m.seq)]
	m.next = m.next%len(m.seq) + 1
	m.served++

	out := src.Clone()
	return &out, nil
}

// SetFPS is a no-op; frames are served as fast as they are read.
func (m *MockCamera) SetFPS(int) {}

func (m *MockCamera) FPS() int { return DefaultFPS }

func (m *MockCamera) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Reads reports how many frames have been served since creation.
func (m *MockCamera) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.served
}

// SetFrames swaps in a new sequence and rewinds.
func (m *MockCamera) SetFrames(frames []*gocv.Mat) {
	m.mu.Lock()
	m.seq, m.next = frames, 0
	m.mu.Unlock()
}
