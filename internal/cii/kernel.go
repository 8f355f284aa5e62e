package cii

import (
	"fmt"
	"math"
)

// RangeLevels is the size of the 8-bit intensity domain. It is both the DCT
// length and the divisor applied in the final normalization.
const RangeLevels = 256

// Kernel is a truncated cosine-series approximation of a Gaussian range kernel.
type Kernel struct {
	// Std is the range standard deviation normalized to [0,1].
	Std float64

	// Coefficients are orthonormal DCT-II coefficients of the sampled
	// Gaussian. Index 0 is the DC term, already divided by √2.
	Coefficients []float64
}

// HarmonicCount returns ceil(1/std), capped at RangeLevels.
// Wider kernels need fewer terms.
func HarmonicCount(std float64) int {
	nc := int(math.Ceil(1 / std))
	if nc < 1 {
		nc = 1
	}
	if nc > RangeLevels {
		nc = RangeLevels
	}
	return nc
}

// ApproximateKernel samples exp(-0.5·(n/(std·255))²) over the intensity
// domain and keeps the first HarmonicCount(std) DCT-II coefficients.
func ApproximateKernel(std float64) (Kernel, error) {
	if err := ValidateRangeStd(std); err != nil {
		return Kernel{}, err
	}

	sigma := std * (RangeLevels - 1)
	samples := make([]float64, RangeLevels)
	for n := range samples {
		x := float64(n) / sigma
		samples[n] = math.Exp(-0.5 * x * x)
	}

	coeffs := dct2(samples, HarmonicCount(std))
	coeffs[0] /= math.Sqrt2

	return Kernel{Std: std, Coefficients: coeffs}, nil
}

// Len returns the number of coefficients, nc.
func (k Kernel) Len() int {
	return len(k.Coefficients)
}

// At evaluates the reconstructed kernel at intensity difference delta.
// The inverse orthonormal DCT scale √(2/N) brings the peak back to ≈1.
func (k Kernel) At(delta float64) float64 {
	if len(k.Coefficients) == 0 {
		return 0
	}
	sum := k.Coefficients[0]
	for c := 1; c < len(k.Coefficients); c++ {
		sum += k.Coefficients[c] * math.Cos(math.Pi*float64(c)*delta/RangeLevels)
	}
	return sum * math.Sqrt(2.0/RangeLevels)
}

// Normalized returns half-amplitude coefficients ĉ such that
// ĉ[0] + 2·Σ ĉ[k]·cos(πkΔ/256) equals At(Δ).
func (k Kernel) Normalized() []float64 {
	out := make([]float64, len(k.Coefficients))
	scale := math.Sqrt(2.0 / RangeLevels)
	for c, v := range k.Coefficients {
		if c == 0 {
			out[c] = v * scale
			continue
		}
		out[c] = v * scale / 2
	}
	return out
}

// dct2 returns the first n orthonormal DCT-II coefficients of src.
func dct2(src []float64, n int) []float64 {
	size := len(src)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range src {
			sum += v * math.Cos(math.Pi*float64(k)*float64(2*i+1)/float64(2*size))
		}
		alpha := math.Sqrt(2 / float64(size))
		if k == 0 {
			alpha = math.Sqrt(1 / float64(size))
		}
		out[k] = alpha * sum
	}
	return out
}

// ValidateRangeStd rejects a range std outside (0,1] with ErrInvalidRangeStd.
func ValidateRangeStd(std float64) error {
	if math.IsNaN(std) || std <= 0 || std > 1 {
		return fmt.Errorf("%w: %v not in (0,1]", ErrInvalidRangeStd, std)
	}
	return nil
}
