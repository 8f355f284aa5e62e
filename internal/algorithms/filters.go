// OpenCV reference filters the cosine-integral filter is compared against
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func checkInput(input gocv.Mat) error {
	if input.Empty() {
		return fmt.Errorf("input image is empty")
	}
	return nil
}

// oddSize rounds an even kernel size up
func oddSize(size int) int {
	if size%2 == 0 {
		size++
	}
	return size
}

// GaussianFilter implements Gaussian blur filter
type GaussianFilter struct{}

// NewGaussianFilter creates a new Gaussian filter algorithm
func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkInput(input); err != nil {
		return gocv.NewMat(), err
	}

	size := oddSize(intParam(params, "kernel_size", 5))
	sigma := floatParam(params, "sigma", 1.0)

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(size, size), sigma, sigma, gocv.BorderDefault)

	return output, nil
}

func (g *GaussianFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 5.0,
		"sigma":       1.0,
	}
}

func (g *GaussianFilter) GetName() string {
	return "Gaussian Filter"
}

func (g *GaussianFilter) GetDescription() string {
	return "Gaussian blur, smooths across edges"
}

func (g *GaussianFilter) Validate(params map[string]interface{}) error {
	return validateRanges(g.GetParameterInfo(), params)
}

func (g *GaussianFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{Name: "kernel_size", Type: "int", Min: 3.0, Max: 51.0, Default: 5.0, Description: "Size of the Gaussian kernel (must be odd)"},
		{Name: "sigma", Type: "float", Min: 0.1, Max: 50.0, Default: 1.0, Description: "Spatial standard deviation in pixels"},
	}
}

// MedianFilter implements median filter
type MedianFilter struct{}

// NewMedianFilter creates a new median filter algorithm
func NewMedianFilter() *MedianFilter {
	return &MedianFilter{}
}

func (m *MedianFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkInput(input); err != nil {
		return gocv.NewMat(), err
	}

	output := gocv.NewMat()
	gocv.MedianBlur(input, &output, oddSize(intParam(params, "kernel_size", 5)))

	return output, nil
}

func (m *MedianFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 5.0,
	}
}

func (m *MedianFilter) GetName() string {
	return "Median Filter"
}

func (m *MedianFilter) GetDescription() string {
	return "Median filter, removes impulse noise"
}

func (m *MedianFilter) Validate(params map[string]interface{}) error {
	return validateRanges(m.GetParameterInfo(), params)
}

func (m *MedianFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{Name: "kernel_size", Type: "int", Min: 3.0, Max: 51.0, Default: 5.0, Description: "Size of the median window (must be odd)"},
	}
}

// BilateralFilter is OpenCV's exact bilateral filter with a Gaussian
// spatial kernel over a disc of diameter d
type BilateralFilter struct{}

// NewBilateralFilter creates a new bilateral filter algorithm
func NewBilateralFilter() *BilateralFilter {
	return &BilateralFilter{}
}

func (b *BilateralFilter) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkInput(input); err != nil {
		return gocv.NewMat(), err
	}

	d := intParam(params, "d", 9)
	sigmaColor := floatParam(params, "sigma_color", 25.5)
	sigmaSpace := floatParam(params, "sigma_space", 1000)

	output := gocv.NewMat()
	gocv.BilateralFilter(input, &output, d, sigmaColor, sigmaSpace)

	return output, nil
}

func (b *BilateralFilter) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"d":           9.0,
		"sigma_color": 25.5,
		"sigma_space": 1000.0,
	}
}

func (b *BilateralFilter) GetName() string {
	return "Bilateral Filter"
}

func (b *BilateralFilter) GetDescription() string {
	return "Exact bilateral filter, O(d²) per pixel"
}

func (b *BilateralFilter) Validate(params map[string]interface{}) error {
	return validateRanges(b.GetParameterInfo(), params)
}

func (b *BilateralFilter) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{Name: "d", Type: "int", Min: 1.0, Max: 101.0, Default: 9.0, Description: "Diameter of each pixel neighborhood"},
		{Name: "sigma_color", Type: "float", Min: 0.1, Max: 255.0, Default: 25.5, Description: "Filter sigma in intensity units"},
		{Name: "sigma_space", Type: "float", Min: 0.1, Max: 10000.0, Default: 1000.0, Description: "Filter sigma in pixels; large values approach a flat window"},
	}
}
