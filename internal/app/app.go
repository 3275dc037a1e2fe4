// Package app runs the capture loop that feeds frames through the placement
// pipeline and out to the renderers.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/capture"
	"github.com/goggybox/touchtypEd/internal/render"
)

// ErrAcquisition wraps a failure to read from the frame source. It ends Run.
var ErrAcquisition = errors.New("frame acquisition failed")

// App is the frame-synchronous loop: read, process, render, repeat.
type App struct {
	camera    capture.Camera
	pipeline  *Pipeline
	renderers render.Multi
	log       logrus.FieldLogger

	mu      sync.RWMutex
	enabled bool
	frames  uint64
}

// New creates an App. It takes ownership of camera and pipeline; both are
// closed when Run returns.
func New(camera capture.Camera, pipeline *Pipeline, renderers []render.Renderer, log logrus.FieldLogger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		camera:    camera,
		pipeline:  pipeline,
		renderers: render.Multi(renderers),
		log:       log,
		enabled:   true,
	}
}

// SetEnabled pauses or resumes placement checks. While paused frames are
// still read so the camera does not stall, but nothing is processed.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether placement checks are running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Frames returns the number of frames processed so far.
func (a *App) Frames() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Run processes frames until ctx is cancelled, the source ends or a read
// fails. Cancellation is checked once per frame. A clean stop or the end of
// a recorded video returns nil; a read failure returns an error wrapping
// ErrAcquisition.
func (a *App) Run(ctx context.Context) error {
	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("%w: %w", ErrAcquisition, err)
		}
	}
	defer a.close()

	a.pipeline.Reset()
	a.log.Info("placement loop started")

	for {
		select {
		case <-ctx.Done():
			a.log.Info("placement loop stopped")
			return nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				a.log.Info("end of video")
				return nil
			}
			return fmt.Errorf("%w: %w", ErrAcquisition, err)
		}

		a.step(frame)
		frame.Close()
	}
}

func (a *App) step(frame *gocv.Mat) {
	if !a.IsEnabled() {
		return
	}

	snap, err := a.pipeline.Process(frame)
	if err != nil {
		a.log.WithError(err).Warn("skipping frame")
		return
	}

	a.mu.Lock()
	a.frames++
	a.mu.Unlock()

	if err := a.renderers.Render(frame, snap); err != nil {
		a.log.WithError(err).WithField("frame", snap.Frame).Warn("render failed")
	}
}

func (a *App) close() {
	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("closing camera")
	}
	if err := a.pipeline.Close(); err != nil {
		a.log.WithError(err).Warn("closing pipeline")
	}
}
