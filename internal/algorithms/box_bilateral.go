package algorithms

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/cvio"
)

// BoxBilateral is the cosine-integral-image box bilateral filter. The
// undefined border is filled with the input pixels.
type BoxBilateral struct{}

// NewBoxBilateral creates the constant-time box bilateral algorithm
func NewBoxBilateral() *BoxBilateral {
	return &BoxBilateral{}
}

func (b *BoxBilateral) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if err := checkInput(input); err != nil {
		return gocv.NewMat(), err
	}

	src, err := cvio.MatToGray(input)
	if err != nil {
		return gocv.NewMat(), err
	}

	p := cii.Params{
		RangeStd: floatParam(params, "range_std", 0.1),
		Radius:   intParam(params, "radius", 4),
	}
	f, err := cii.New(p, cii.Options{Workers: intParam(params, "workers", 1)})
	if err != nil {
		return gocv.NewMat(), err
	}

	res, err := f.Apply(context.Background(), src)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("cii bilateral: %w", err)
	}

	return cvio.GrayToMat(cii.Merge(src, res.Output, res.Valid, cii.RangeLevels)), nil
}

func (b *BoxBilateral) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"radius":    4.0,
		"range_std": 0.1,
		"workers":   1.0,
	}
}

func (b *BoxBilateral) GetName() string {
	return "CII Box Bilateral"
}

func (b *BoxBilateral) GetDescription() string {
	return "Box bilateral filter via cosine integral images, O(1) in the radius"
}

func (b *BoxBilateral) Validate(params map[string]interface{}) error {
	return validateRanges(b.GetParameterInfo(), params)
}

func (b *BoxBilateral) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{Name: "radius", Type: "int", Min: 0.0, Max: 256.0, Default: 4.0, Description: "Spatial radius; the window is (2r+1)x(2r+1)"},
		{Name: "range_std", Type: "float", Min: 0.004, Max: 1.0, Default: 0.1, Description: "Range standard deviation on a 0-1 intensity scale"},
		{Name: "workers", Type: "int", Min: 1.0, Max: 256.0, Default: 1.0, Description: "Goroutines sharing the harmonic passes"},
	}
}
