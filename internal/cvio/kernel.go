package cvio

import (
	"math"

	"gocv.io/x/gocv"

	"cii-bilateral/internal/cii"
)

// ApproximateKernel computes the range-kernel coefficients with OpenCV's
// orthonormal DCT instead of the pure-Go transform. OpenCV works in
// float32, so coefficients differ from cii.ApproximateKernel by rounding.
func ApproximateKernel(std float64) (cii.Kernel, error) {
	if err := cii.ValidateRangeStd(std); err != nil {
		return cii.Kernel{}, err
	}

	sigma := std * (cii.RangeLevels - 1)
	samples := gocv.NewMatWithSize(1, cii.RangeLevels, gocv.MatTypeCV32FC1)
	defer samples.Close()
	for n := 0; n < cii.RangeLevels; n++ {
		x := float64(n) / sigma
		samples.SetFloatAt(0, n, float32(math.Exp(-0.5*x*x)))
	}

	coeffs := gocv.NewMat()
	defer coeffs.Close()
	gocv.DCT(samples, &coeffs, gocv.DftForward)

	nc := cii.HarmonicCount(std)
	out := make([]float64, nc)
	for k := range out {
		out[k] = float64(coeffs.GetFloatAt(0, k))
	}
	out[0] /= math.Sqrt2

	return cii.Kernel{Std: std, Coefficients: out}, nil
}
