package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/goggybox/touchtypEd/internal/geom"
	"github.com/goggybox/touchtypEd/internal/placement"
	"github.com/goggybox/touchtypEd/internal/region"
)

// DefaultJPEGQuality is used when encoding overlay frames.
const DefaultJPEGQuality = 80

var (
	colorCorrect   = color.RGBA{G: 220, A: 255}
	colorIncorrect = color.RGBA{R: 230, G: 40, B: 40, A: 255}
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorAnchor    = color.RGBA{R: 255, G: 200, A: 255}
)

// Overlay draws anchors, smoothed anchor positions, fingertips and verdicts
// onto a copy of each frame and keeps the latest result as a JPEG.
type Overlay struct {
	mu      sync.RWMutex
	colors  map[region.Class]color.RGBA
	quality int
	latest  []byte
	seq     uint64
}

// NewOverlay creates an Overlay with the default class colors.
func NewOverlay() *Overlay {
	return &Overlay{
		colors: map[region.Class]color.RGBA{
			region.ClassGreen: {G: 255, A: 255},
			region.ClassBlue:  {B: 255, A: 255},
		},
		quality: DefaultJPEGQuality,
	}
}

// SetColor sets the contour color used for class.
func (o *Overlay) SetColor(class region.Class, c color.RGBA) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.colors[class] = c
}

// Latest returns the most recent encoded frame and its sequence number. The
// sequence is zero until the first frame has been rendered.
func (o *Overlay) Latest() ([]byte, uint64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest, o.seq
}

func (o *Overlay) Render(frame *gocv.Mat, snap *Snapshot) error {
	if frame == nil || frame.Empty() {
		return nil
	}

	canvas := frame.Clone()
	defer canvas.Close()

	o.draw(&canvas, snap)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, canvas, []int{int(gocv.IMWriteJpegQuality), o.quality})
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	o.mu.Lock()
	o.latest = data
	o.seq++
	o.mu.Unlock()
	return nil
}

func (o *Overlay) colorFor(class region.Class) color.RGBA {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if c, ok := o.colors[class]; ok {
		return c
	}
	return colorText
}

func (o *Overlay) draw(img *gocv.Mat, snap *Snapshot) {
	for class, set := range snap.Anchors {
		if set.Empty() {
			continue
		}
		contours := make([][]image.Point, 0, set.Len())
		for _, r := range set.Regions {
			contours = append(contours, r.Contour)
		}
		pv := gocv.NewPointsVectorFromPoints(contours)
		gocv.DrawContours(img, pv, -1, o.colorFor(class), 2)
		pv.Close()
	}

	for _, est := range snap.Estimates {
		if !est.Stable {
			continue
		}
		gocv.Circle(img, geom.ToImage(est.Left), 5, colorAnchor, -1)
		if est.Right != est.Left {
			gocv.Circle(img, geom.ToImage(est.Right), 5, colorAnchor, -1)
		}
	}

	for _, hand := range snap.Hands {
		res, ok := snap.Result(hand.Side)
		if !ok {
			res = placement.Result{IndexDistance: math.NaN(), SecondDistance: math.NaN()}
		}
		drawTip(img, hand.IndexTip, res.IndexCorrect, res.IndexDistance)
		drawTip(img, hand.SecondTip, res.SecondCorrect, res.SecondDistance)
	}

	y := 24
	for _, side := range []placement.Side{placement.Left, placement.Right} {
		if res, ok := snap.Result(side); ok && res.Correct() {
			msg := fmt.Sprintf("Correct placement of %s hand", strings.ToLower(string(side)))
			gocv.PutText(img, msg, image.Pt(10, y), gocv.FontHersheySimplex, 0.6, colorCorrect, 2)
			y += 24
		}
	}

	statusColor := colorIncorrect
	if snap.Status == placement.Both {
		statusColor = colorCorrect
	}
	rows := img.Rows()
	gocv.PutText(img, snap.Status.Message(), image.Pt(10, rows-12), gocv.FontHersheySimplex, 0.5, statusColor, 1)
}

func drawTip(img *gocv.Mat, tip geom.Point, correct bool, dist float64) {
	c := colorIncorrect
	if correct {
		c = colorCorrect
	}
	pt := geom.ToImage(tip)
	gocv.Circle(img, pt, 7, c, 2)
	if !math.IsNaN(dist) {
		gocv.PutText(img, fmt.Sprintf("%.1f", dist), pt.Add(image.Pt(10, -10)), gocv.FontHersheySimplex, 0.45, colorText, 1)
	}
}
