package segment

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Preprocessing defaults.
const (
	DefaultGamma     = 1.2
	DefaultClipLimit = 3.0
	DefaultTileSize  = 8
	// DefaultKernelSize is the side of the square morphology kernel.
	DefaultKernelSize = 5
)

// Options switches the optional processing steps.
type Options struct {
	// Preprocess applies gamma correction followed by CLAHE on the Lab
	// lightness channel before converting to HSV.
	Preprocess bool
	// Morphology runs an open and then a close on every mask.
	Morphology bool
}

// Segmenter converts frames to HSV once and thresholds them per class.
// It owns native resources and must be closed.
type Segmenter struct {
	opts   Options
	gamma  gocv.Mat
	clahe  gocv.CLAHE
	kernel gocv.Mat
	hsv    gocv.Mat
}

// NewSegmenter allocates the lookup table, CLAHE instance and kernel needed by
// opts.
func NewSegmenter(opts Options) *Segmenter {
	s := &Segmenter{opts: opts, hsv: gocv.NewMat()}
	if opts.Preprocess {
		s.gamma = gammaTable(DefaultGamma)
		s.clahe = gocv.NewCLAHEWithParams(DefaultClipLimit, image.Pt(DefaultTileSize, DefaultTileSize))
	}
	if opts.Morphology {
		s.kernel = gocv.GetStructuringElement(gocv.MorphRect, image.Pt(DefaultKernelSize, DefaultKernelSize))
	}
	return s
}

// Options returns the enabled processing steps.
func (s *Segmenter) Options() Options {
	return s.opts
}

// Load prepares frame for thresholding. It must be called once per frame
// before Segment.
func (s *Segmenter) Load(frame gocv.Mat) {
	if !s.opts.Preprocess {
		gocv.CvtColor(frame, &s.hsv, gocv.ColorBGRToHSV)
		return
	}

	enhanced := s.enhance(frame)
	defer enhanced.Close()
	gocv.CvtColor(enhanced, &s.hsv, gocv.ColorBGRToHSV)
}

// Segment returns the binary mask of the loaded frame for r. The caller owns
// the returned Mat.
func (s *Segmenter) Segment(r HSVRange) gocv.Mat {
	mask := gocv.NewMat()
	if s.hsv.Empty() {
		return mask
	}

	gocv.InRangeWithScalar(s.hsv, r.Low(), r.High(), &mask)
	if s.opts.Morphology {
		gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, s.kernel)
		gocv.MorphologyEx(mask, &mask, gocv.MorphClose, s.kernel)
	}
	return mask
}

// Close releases native resources.
func (s *Segmenter) Close() error {
	s.hsv.Close()
	if s.opts.Preprocess {
		s.gamma.Close()
		s.clahe.Close()
	}
	if s.opts.Morphology {
		s.kernel.Close()
	}
	return nil
}

// enhance brightens shadows with the gamma table and equalizes local
// contrast on the lightness channel.
func (s *Segmenter) enhance(frame gocv.Mat) gocv.Mat {
	corrected := gocv.NewMat()
	defer corrected.Close()
	gocv.LUT(frame, s.gamma, &corrected)

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(corrected, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	equalized := gocv.NewMat()
	s.clahe.Apply(channels[0], &equalized)
	channels[0].Close()
	channels[0] = equalized

	gocv.Merge(channels, &lab)

	out := gocv.NewMat()
	gocv.CvtColor(lab, &out, gocv.ColorLabToBGR)
	return out
}

// gammaTable builds a 256-entry lookup table applying 1/gamma.
func gammaTable(gamma float64) gocv.Mat {
	table := gocv.NewMatWithSize(1, 256, gocv.MatTypeCV8U)
	inv := 1.0 / gamma
	for i := 0; i < 256; i++ {
		v := math.Pow(float64(i)/255.0, inv) * 255.0
		table.SetUCharAt(0, i, uint8(math.Min(255, math.Round(v))))
	}
	return table
}
