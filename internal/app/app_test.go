package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/capture"
	"github.com/goggybox/touchtypEd/internal/config"
	"github.com/goggybox/touchtypEd/internal/detector"
	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/render"
	"github.com/goggybox/touchtypEd/internal/segment"
)

const (
	frameWidth  = 640
	frameHeight = 480
)

// keyboardFrame paints the standard layout: three green zones and a blue
// zone on a black background, each 100x100 px and centred on y=250.
func keyboardFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frameHeight, frameWidth, gocv.MatTypeCV8UC3)
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	gocv.Rectangle(&frame, image.Rect(40, 200, 140, 300), green, -1)
	gocv.Rectangle(&frame, image.Rect(180, 200, 280, 300), green, -1)
	gocv.Rectangle(&frame, image.Rect(340, 200, 440, 300), green, -1)
	gocv.Rectangle(&frame, image.Rect(480, 200, 580, 300), blue, -1)
	return frame
}

func norm(x, y float64) detector.Point3D {
	return detector.Point3D{X: x / frameWidth, Y: y / frameHeight}
}

// homeHands places both hands on their zones: left pinky on green 0, left
// index on green 1, right pinky on green 2 and right index on blue.
func homeHands() []detector.HandLandmarks {
	return []detector.HandLandmarks{
		detector.HandAt("Left", norm(230, 250), norm(90, 250)),
		detector.HandAt("Right", norm(530, 250), norm(390, 250)),
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Pipeline.Preprocess = false
	cfg.Pipeline.History = 3
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, det detector.Detector) *Pipeline {
	t.Helper()
	logger, _ := test.NewNullLogger()
	p, err := NewPipeline(cfg, segment.NewCalibration(cfg.Ranges()), det, logger)
	require.NoError(t, err)
	return p
}

func TestNewPipeline_Validation(t *testing.T) {
	cfg := testConfig()
	_, err := NewPipeline(cfg, segment.NewCalibration(cfg.Ranges()), nil, nil)
	assert.Error(t, err, "detector is required")

	cfg.Classes[0].Cap = 0
	_, err = NewPipeline(cfg, segment.NewCalibration(cfg.Ranges()), detector.NewMockDetector(), nil)
	assert.Error(t, err)
}

func TestPipeline_EmptyFrame(t *testing.T) {
	p := newTestPipeline(t, testConfig(), detector.NewMockDetector())
	defer p.Close()

	_, err := p.Process(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = p.Process(&empty)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestPipeline_Process(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	tests := []struct {
		name   string
		mirror bool
		hands  []detector.HandLandmarks
		detErr error
		want   placement.Status
	}{
		{
			name:  "both hands home",
			hands: homeHands(),
			want:  placement.Both,
		},
		{
			name: "right pinky off its zone",
			hands: []detector.HandLandmarks{
				homeHands()[0],
				detector.HandAt("Right", norm(530, 250), norm(620, 60)),
			},
			want: placement.OnlyLeft,
		},
		{
			name: "left index on the wrong zone",
			hands: []detector.HandLandmarks{
				detector.HandAt("Left", norm(390, 250), norm(90, 250)),
				homeHands()[1],
			},
			want: placement.OnlyRight,
		},
		{
			name:   "mirrored handedness labels",
			mirror: true,
			hands: []detector.HandLandmarks{
				detector.HandAt("Right", norm(230, 250), norm(90, 250)),
				detector.HandAt("Left", norm(530, 250), norm(390, 250)),
			},
			want: placement.Both,
		},
		{
			name:   "detector failure counts as no hands",
			detErr: errors.New("service crashed"),
			want:   placement.Neither,
		},
		{
			name: "unknown handedness is skipped",
			hands: []detector.HandLandmarks{
				detector.HandAt("", norm(230, 250), norm(90, 250)),
			},
			want: placement.Neither,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Pipeline.MirrorHandedness = tt.mirror

			det := detector.NewMockDetector()
			det.SetHands(tt.hands)
			det.SetError(tt.detErr)

			p := newTestPipeline(t, cfg, det)
			defer p.Close()

			frame := keyboardFrame(t)
			defer frame.Close()

			snap, err := p.Process(&frame)
			require.NoError(t, err)

			assert.Equal(t, tt.want, snap.Status)
			assert.Equal(t, frameWidth, snap.Width)
			assert.Equal(t, frameHeight, snap.Height)
			assert.Equal(t, 3, snap.Anchors[region.ClassGreen].Len())
			assert.Equal(t, 1, snap.Anchors[region.ClassBlue].Len())
		})
	}
}

func TestPipeline_FingertipPixels(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	det := detector.NewMockDetector()
	det.SetHands(homeHands())
	p := newTestPipeline(t, testConfig(), det)
	defer p.Close()

	frame := keyboardFrame(t)
	defer frame.Close()

	snap, err := p.Process(&frame)
	require.NoError(t, err)
	require.Len(t, snap.Hands, 2)

	left := snap.Hands[0]
	assert.Equal(t, placement.Left, left.Side)
	assert.InDelta(t, 230, left.IndexTip.X, 1e-9)
	assert.InDelta(t, 90, left.SecondTip.X, 1e-9)
	assert.InDelta(t, 250, left.SecondTip.Y, 1e-9)

	res, ok := snap.Result(placement.Left)
	require.True(t, ok)
	assert.Greater(t, res.IndexDistance, 0.0, "fingertip inside its zone")
}

func TestPipeline_StabilizesAfterHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	p := newTestPipeline(t, testConfig(), detector.NewMockDetector())
	defer p.Close()

	frame := keyboardFrame(t)
	defer frame.Close()

	for i := 1; i <= 3; i++ {
		snap, err := p.Process(&frame)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), snap.Frame)

		est := snap.Estimates[region.ClassGreen]
		if i < 3 {
			assert.False(t, est.Stable, "frame %d", i)
			continue
		}
		require.True(t, est.Stable)
		assert.InDelta(t, 90, est.Left.X, 1)
		assert.InDelta(t, 390, est.Right.X, 1)

		blue := snap.Estimates[region.ClassBlue]
		assert.True(t, blue.Stable)
		assert.Equal(t, blue.Left, blue.Right)
	}

	p.Reset()
	snap, err := p.Process(&frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Frame)
	assert.False(t, snap.Estimates[region.ClassGreen].Stable)
}

func TestPipeline_Debounce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	cfg := testConfig()
	cfg.Pipeline.DebounceFrames = 2

	det := detector.NewMockDetector()
	det.SetHands(homeHands())
	p := newTestPipeline(t, cfg, det)
	defer p.Close()

	frame := keyboardFrame(t)
	defer frame.Close()

	snap, err := p.Process(&frame)
	require.NoError(t, err)
	assert.Equal(t, placement.Neither, snap.Status, "held for one frame")

	snap, err = p.Process(&frame)
	require.NoError(t, err)
	assert.Equal(t, placement.Both, snap.Status)
}

// failingCamera opens fine and then fails every read.
type failingCamera struct {
	open bool
	err  error
}

func (c *failingCamera) Open() error                   { c.open = true; return nil }
func (c *failingCamera) Close() error                  { c.open = false; return nil }
func (c *failingCamera) ReadFrame() (*gocv.Mat, error) { return nil, c.err }
func (c *failingCamera) SetFPS(int)                    {}
func (c *failingCamera) FPS() int                      { return capture.DefaultFPS }
func (c *failingCamera) IsOpen() bool                  { return c.open }

func TestApp_AcquisitionFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	det := detector.NewMockDetector()
	cam := &failingCamera{err: errors.New("device unplugged")}

	a := New(cam, newTestPipeline(t, testConfig(), det), nil, logger)
	err := a.Run(context.Background())

	require.ErrorIs(t, err, ErrAcquisition)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.False(t, cam.IsOpen(), "camera closed on exit")
	assert.True(t, det.Closed(), "pipeline closed on exit")
}

func TestApp_RunsToEndOfVideo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	frame := keyboardFrame(t)
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame, &frame, &frame}, false)
	det := detector.NewMockDetector()
	det.SetHands(homeHands())

	var statuses []placement.Status
	rec := render.Func(func(f *gocv.Mat, snap *render.Snapshot) error {
		require.NotNil(t, f)
		statuses = append(statuses, snap.Status)
		return nil
	})

	logger, _ := test.NewNullLogger()
	a := New(cam, newTestPipeline(t, testConfig(), det), []render.Renderer{rec}, logger)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []placement.Status{placement.Both, placement.Both, placement.Both}, statuses)
	assert.Equal(t, uint64(3), a.Frames())
	assert.Equal(t, 3, det.Calls())
	assert.False(t, cam.IsOpen())
}

func TestApp_StopsOnCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	frame := keyboardFrame(t)
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopAfter := render.Func(func(_ *gocv.Mat, snap *render.Snapshot) error {
		if snap.Frame == 4 {
			cancel()
		}
		return nil
	})

	logger, _ := test.NewNullLogger()
	a := New(cam, newTestPipeline(t, testConfig(), detector.NewMockDetector()), []render.Renderer{stopAfter}, logger)

	require.NoError(t, a.Run(ctx))
	assert.Equal(t, uint64(4), a.Frames(), "cancellation is seen before the next read")
	assert.Equal(t, 4, cam.Reads())
}

func TestApp_RendererErrorsAreNotFatal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV image processing")
	}

	frame := keyboardFrame(t)
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame, &frame}, false)
	failing := render.Func(func(*gocv.Mat, *render.Snapshot) error { return errors.New("disk full") })

	logger, hook := test.NewNullLogger()
	a := New(cam, newTestPipeline(t, testConfig(), detector.NewMockDetector()), []render.Renderer{failing}, logger)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, uint64(2), a.Frames())

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Message == "render failed" {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestApp_Paused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(frameHeight, frameWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := capture.NewMockCamera([]*gocv.Mat{&frame, &frame}, false)
	det := detector.NewMockDetector()

	var rendered int
	count := render.Func(func(*gocv.Mat, *render.Snapshot) error { rendered++; return nil })

	a := New(cam, newTestPipeline(t, testConfig(), det), []render.Renderer{count}, nil)
	a.SetEnabled(false)
	assert.False(t, a.IsEnabled())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 2, cam.Reads(), "frames are still drained")
	assert.Zero(t, rendered)
	assert.Zero(t, det.Calls())
}
