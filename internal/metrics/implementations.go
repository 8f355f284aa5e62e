// Concrete implementations of quality metrics
package metrics

import (
	"fmt"
	"image"
	"math"

	"cii-bilateral/internal/cii"
)

// CheckPair validates that both grids exist, agree in size and cover roi
func CheckPair(original, processed *cii.Gray, roi image.Rectangle) error {
	if original.Empty() || processed.Empty() {
		return fmt.Errorf("empty images")
	}
	if original.Width != processed.Width || original.Height != processed.Height {
		return fmt.Errorf("image dimensions mismatch: %dx%d vs %dx%d",
			original.Width, original.Height, processed.Width, processed.Height)
	}
	if roi.Empty() || !roi.In(original.Bounds()) {
		return fmt.Errorf("region %v outside %v", roi, original.Bounds())
	}
	return nil
}

// Stats holds first and second moments of a region
type Stats struct {
	Mean     float64
	Variance float64
	Min, Max uint8
}

// StdDev returns the standard deviation
func (s Stats) StdDev() float64 {
	return math.Sqrt(s.Variance)
}

// RegionStats computes mean, population variance and range of g over roi
func RegionStats(g *cii.Gray, roi image.Rectangle) Stats {
	roi = roi.Intersect(g.Bounds())
	if roi.Empty() {
		return Stats{}
	}

	st := Stats{Min: 255}
	var sum, sq float64
	for i := roi.Min.Y; i < roi.Max.Y; i++ {
		for j := roi.Min.X; j < roi.Max.X; j++ {
			v := g.At(i, j)
			f := float64(v)
			sum += f
			sq += f * f
			st.Min = min(st.Min, v)
			st.Max = max(st.Max, v)
		}
	}

	n := float64(roi.Dx() * roi.Dy())
	st.Mean = sum / n
	st.Variance = math.Max(0, sq/n-st.Mean*st.Mean)
	return st
}

func meanSquaredError(original, processed *cii.Gray, roi image.Rectangle) float64 {
	sumSquaredDiff := 0.0
	for i := roi.Min.Y; i < roi.Max.Y; i++ {
		for j := roi.Min.X; j < roi.Max.X; j++ {
			diff := float64(original.At(i, j)) - float64(processed.At(i, j))
			sumSquaredDiff += diff * diff
		}
	}
	return sumSquaredDiff / float64(roi.Dx()*roi.Dy())
}

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	if err := CheckPair(original, processed, roi); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, processed, roi)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	return 20 * math.Log10(255/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio in dB"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100 // Practical range, can go higher
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// MSE implements Mean Squared Error metric
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	if err := CheckPair(original, processed, roi); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed, roi), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 65025
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// MaxAbsDiff reports the largest per-pixel intensity difference
type MaxAbsDiff struct{}

// NewMaxAbsDiff creates a new max-abs-diff metric
func NewMaxAbsDiff() *MaxAbsDiff {
	return &MaxAbsDiff{}
}

func (m *MaxAbsDiff) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	if err := CheckPair(original, processed, roi); err != nil {
		return 0, err
	}

	worst := 0
	for i := roi.Min.Y; i < roi.Max.Y; i++ {
		for j := roi.Min.X; j < roi.Max.X; j++ {
			d := int(original.At(i, j)) - int(processed.At(i, j))
			if d < 0 {
				d = -d
			}
			worst = max(worst, d)
		}
	}
	return float64(worst), nil
}

func (m *MaxAbsDiff) GetName() string {
	return "Max Abs Diff"
}

func (m *MaxAbsDiff) GetDescription() string {
	return "Largest per-pixel intensity difference"
}

func (m *MaxAbsDiff) GetRange() (float64, float64) {
	return 0, 255
}

func (m *MaxAbsDiff) IsHigherBetter() bool {
	return false
}

// ContrastRatio compares standard deviations; below 1 means smoothing
type ContrastRatio struct{}

// NewContrastRatio creates a new contrast ratio metric
func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	if err := CheckPair(original, processed, roi); err != nil {
		return 0, err
	}

	origContrast := RegionStats(original, roi).StdDev()
	procContrast := RegionStats(processed, roi).StdDev()

	if origContrast == 0 {
		return 1.0, nil
	}

	return procContrast / origContrast, nil
}

func (c *ContrastRatio) GetName() string {
	return "Contrast Ratio"
}

func (c *ContrastRatio) GetDescription() string {
	return "Ratio of contrast preservation"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool {
	return true
}

// Sharpness compares Laplacian variance; edge-preserving filters keep it high
type Sharpness struct{}

// NewSharpness creates a new sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	if err := CheckPair(original, processed, roi); err != nil {
		return 0, err
	}

	origSharpness := laplacianVariance(original, roi)
	procSharpness := laplacianVariance(processed, roi)

	if origSharpness == 0 {
		return 1.0, nil
	}

	return procSharpness / origSharpness, nil
}

// laplacianVariance is the variance of the 4-neighbour Laplacian over the
// interior of roi
func laplacianVariance(g *cii.Gray, roi image.Rectangle) float64 {
	inner := roi.Inset(1)
	if inner.Empty() {
		return 0
	}

	var sum, sq float64
	for i := inner.Min.Y; i < inner.Max.Y; i++ {
		for j := inner.Min.X; j < inner.Max.X; j++ {
			lap := 4*float64(g.At(i, j)) -
				float64(g.At(i-1, j)) - float64(g.At(i+1, j)) -
				float64(g.At(i, j-1)) - float64(g.At(i, j+1))
			sum += lap
			sq += lap * lap
		}
	}

	n := float64(inner.Dx() * inner.Dy())
	mean := sum / n
	return math.Max(0, sq/n-mean*mean)
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Edge preservation measure"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}
