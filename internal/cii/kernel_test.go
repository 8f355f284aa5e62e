package cii

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarmonicCount(t *testing.T) {
	tests := []struct {
		std  float64
		want int
	}{
		{1, 1},
		{0.5, 2},
		{0.3, 4},
		{0.25, 4},
		{0.1, 10},
		{0.05, 20},
		{0.001, RangeLevels},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HarmonicCount(tt.std), "std=%v", tt.std)
	}
}

func TestApproximateKernelRejectsBadStd(t *testing.T) {
	for _, std := range []float64{0, -0.1, 1.01, math.NaN(), math.Inf(1)} {
		_, err := ApproximateKernel(std)
		assert.ErrorIs(t, err, ErrInvalidRangeStd, "std=%v", std)
	}
}

func TestApproximateKernelLength(t *testing.T) {
	k, err := ApproximateKernel(0.1)
	require.NoError(t, err)
	assert.Equal(t, 10, k.Len())
	assert.Equal(t, 0.1, k.Std)
	assert.Greater(t, k.Coefficients[0], 0.0, "DC term must be positive")
}

func TestKernelPeakIsOne(t *testing.T) {
	for _, std := range []float64{0.05, 0.1, 0.2} {
		k, err := ApproximateKernel(std)
		require.NoError(t, err)

		c := k.Normalized()
		sum := c[0]
		for _, v := range c[1:] {
			sum += 2 * v
		}
		assert.InDelta(t, 1.0, sum, 0.02, "std=%v", std)
		assert.InDelta(t, sum, k.At(0), 1e-12, "std=%v", std)
	}
}

func TestKernelTracksGaussian(t *testing.T) {
	const std = 0.1
	k, err := ApproximateKernel(std)
	require.NoError(t, err)

	sigma := std * (RangeLevels - 1)
	for delta := 0.0; delta <= 128; delta += 4 {
		want := math.Exp(-0.5 * (delta / sigma) * (delta / sigma))
		assert.InDelta(t, want, k.At(delta), 0.03, "delta=%v", delta)
	}
}

func TestDCT2MatchesFullInverse(t *testing.T) {
	src := make([]float64, 16)
	for i := range src {
		src[i] = float64(i*i%7) - 3
	}
	coeffs := dct2(src, len(src))

	n := float64(len(src))
	for i, want := range src {
		got := coeffs[0] / math.Sqrt(n)
		for k := 1; k < len(coeffs); k++ {
			got += math.Sqrt(2/n) * coeffs[k] * math.Cos(math.Pi*float64(k)*float64(2*i+1)/(2*n))
		}
		assert.InDelta(t, want, got, 1e-9, "sample %d", i)
	}
}

func TestBuildHarmonicTables(t *testing.T) {
	k, err := ApproximateKernel(0.25)
	require.NoError(t, err)
	tables := BuildHarmonicTables(k)

	require.Equal(t, k.Len()-1, tables.Harmonics())
	assert.Equal(t, k.Coefficients[0], tables.DC())

	for h := 1; h < k.Len(); h++ {
		row := h - 1
		for _, v := range []int{0, 1, 128, 255} {
			phase := math.Pi * float64(h) * float64(v) / RangeLevels
			assert.InDelta(t, math.Cos(phase), tables.Cos[row][v], 1e-12)
			assert.InDelta(t, math.Sin(phase), tables.Sin[row][v], 1e-12)
			assert.InDelta(t, k.Coefficients[h]*math.Cos(phase), tables.ScaledCos[row][v], 1e-12)
			assert.InDelta(t, k.Coefficients[h]*math.Sin(phase), tables.ScaledSin[row][v], 1e-12)
		}
	}
}

func TestBuildHarmonicTablesDCOnly(t *testing.T) {
	k, err := ApproximateKernel(1)
	require.NoError(t, err)
	tables := BuildHarmonicTables(k)
	assert.Zero(t, tables.Harmonics())
	assert.Greater(t, tables.DC(), 0.0)
}
