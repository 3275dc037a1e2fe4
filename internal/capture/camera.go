// Package capture provides frame acquisition from cameras and video files
// using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned when a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrReadFailed is returned when a live device yields no usable frame.
	ErrReadFailed = errors.New("failed to read frame")
)

// Camera defines the interface for frame sources.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next BGR frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options selects and configures the capture source.
type Options struct {
	Device int
	// File plays back a recorded video instead of opening Device.
	File string
	// Realtime paces file playback at FPS. Devices pace themselves.
	Realtime bool
	Width    int
	Height   int
	FPS      int
}

func (o Options) fromFile() bool { return o.File != "" }

// source reads from an OpenCV VideoCapture.
type source struct {
	mu   sync.Mutex
	opts Options
	vc   *gocv.VideoCapture
	last time.Time
}

// NewCamera creates a Camera for a device with the default resolution and
// frame rate.
func NewCamera(deviceID int) Camera {
	return NewCameraWithOptions(Options{Device: deviceID})
}

// NewCameraWithOptions creates a Camera for opts. Non-positive sizes and
// rates fall back to the defaults.
func NewCameraWithOptions(opts Options) Camera {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	return &source{opts: opts}
}

// Open opens the device or file. Opening an open source is a no-op.
func (s *source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc != nil {
		return nil
	}

	if s.opts.fromFile() {
		vc, err := gocv.VideoCaptureFile(s.opts.File)
		if err != nil {
			return fmt.Errorf("open video %s: %w", s.opts.File, err)
		}
		s.vc = vc
		return nil
	}

	vc, err := gocv.OpenVideoCapture(s.opts.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", s.opts.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(s.opts.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(s.opts.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(s.opts.FPS))
	s.vc = vc
	return nil
}

func (s *source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return nil
	}
	err := s.vc.Close()
	s.vc = nil
	s.last = time.Time{}
	return err
}

// ReadFrame grabs the next frame. A file that runs out reports
// ErrEndOfStream; a device that fails reports ErrReadFailed.
func (s *source) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !s.vc.Read(&mat) || mat.Empty() {
		mat.Close()
		if s.opts.fromFile() {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("camera %d: %w", s.opts.Device, ErrReadFailed)
	}

	if s.opts.fromFile() && s.opts.Realtime {
		s.pace()
	}
	return &mat, nil
}

// pace sleeps until one frame interval has passed since the previous read.
func (s *source) pace() {
	interval := time.Second / time.Duration(s.opts.FPS)
	if !s.last.IsZero() {
		if wait := interval - time.Since(s.last); wait > 0 {
			time.Sleep(wait)
		}
	}
	s.last = time.Now()
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (s *source) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.FPS = fps
	if s.vc != nil && !s.opts.fromFile() {
		s.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (s *source) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.FPS
}

func (s *source) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vc != nil
}
