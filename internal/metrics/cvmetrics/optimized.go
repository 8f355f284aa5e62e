// Optimized metrics using GoCV built-in functions
package cvmetrics

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/cvio"
	"cii-bilateral/internal/metrics"
)

// NewEvaluator returns an evaluator whose default metrics run on OpenCV.
// Names match metrics.NewEvaluator, so reports are interchangeable.
func NewEvaluator() *metrics.Evaluator {
	e := metrics.NewEvaluator()
	e.Register("psnr", NewPSNR())
	e.Register("mse", NewMSE())
	e.Register("max_abs_diff", NewMaxAbsDiff())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
	return e
}

// matPair holds both images as Mats plus their roi views
type matPair struct {
	original, processed gocv.Mat
	a, b                gocv.Mat
}

func newMatPair(original, processed *cii.Gray, roi image.Rectangle) (*matPair, error) {
	if err := metrics.CheckPair(original, processed, roi); err != nil {
		return nil, err
	}
	p := &matPair{
		original:  cvio.GrayToMat(original),
		processed: cvio.GrayToMat(processed),
	}
	p.a = p.original.Region(roi)
	p.b = p.processed.Region(roi)
	return p, nil
}

func (p *matPair) Close() {
	p.a.Close()
	p.b.Close()
	p.original.Close()
	p.processed.Close()
}

// absDiff returns |a-b| as CV_8UC1
func (p *matPair) absDiff() gocv.Mat {
	diff := gocv.NewMat()
	gocv.AbsDiff(p.a, p.b, &diff)
	return diff
}

func (p *matPair) mse() float64 {
	diff := p.absDiff()
	defer diff.Close()

	wide := gocv.NewMat()
	defer wide.Close()
	diff.ConvertTo(&wide, gocv.MatTypeCV64F)

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(wide, wide, &sq)

	return sq.Mean().Val1
}

func stdDev(m gocv.Mat) float64 {
	mean := gocv.NewMat()
	defer mean.Close()
	dev := gocv.NewMat()
	defer dev.Close()
	gocv.MeanStdDev(m, &mean, &dev)
	return dev.GetDoubleAt(0, 0)
}

func laplacianVariance(m gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(m, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	s := stdDev(lap)
	return s * s
}

// PSNR uses gocv.PSNR
type PSNR struct{ metrics.PSNR }

func NewPSNR() *PSNR { return &PSNR{} }

func (p *PSNR) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	pair, err := newMatPair(original, processed, roi)
	if err != nil {
		return 0, err
	}
	defer pair.Close()

	// OpenCV adds an epsilon instead of reporting a perfect match
	if pair.mse() == 0 {
		return math.Inf(1), nil
	}
	return gocv.PSNR(pair.a, pair.b), nil
}

// MSE squares gocv.AbsDiff in float64
type MSE struct{ metrics.MSE }

func NewMSE() *MSE { return &MSE{} }

func (m *MSE) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	pair, err := newMatPair(original, processed, roi)
	if err != nil {
		return 0, err
	}
	defer pair.Close()
	return pair.mse(), nil
}

// MaxAbsDiff takes gocv.MinMaxLoc of the absolute difference
type MaxAbsDiff struct{ metrics.MaxAbsDiff }

func NewMaxAbsDiff() *MaxAbsDiff { return &MaxAbsDiff{} }

func (m *MaxAbsDiff) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	pair, err := newMatPair(original, processed, roi)
	if err != nil {
		return 0, err
	}
	defer pair.Close()

	diff := pair.absDiff()
	defer diff.Close()
	_, maxVal, _, _ := gocv.MinMaxLoc(diff)
	return float64(maxVal), nil
}

// ContrastRatio compares gocv.MeanStdDev deviations
type ContrastRatio struct{ metrics.ContrastRatio }

func NewContrastRatio() *ContrastRatio { return &ContrastRatio{} }

func (c *ContrastRatio) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	pair, err := newMatPair(original, processed, roi)
	if err != nil {
		return 0, err
	}
	defer pair.Close()

	orig := stdDev(pair.a)
	if orig == 0 {
		return 1.0, nil
	}
	return stdDev(pair.b) / orig, nil
}

// Sharpness compares the variance of gocv.Laplacian responses
type Sharpness struct{ metrics.Sharpness }

func NewSharpness() *Sharpness { return &Sharpness{} }

func (s *Sharpness) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	pair, err := newMatPair(original, processed, roi)
	if err != nil {
		return 0, err
	}
	defer pair.Close()

	orig := laplacianVariance(pair.a)
	if orig == 0 {
		return 1.0, nil
	}
	return laplacianVariance(pair.b) / orig, nil
}
