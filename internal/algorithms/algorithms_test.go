//go:build opencv

package algorithms

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/cvio"
)

func noise(w, h int) *cii.Gray {
	rng := rand.New(rand.NewSource(9))
	g := cii.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = uint8(rng.Intn(256))
	}
	return g
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"bilateral", "cii_bilateral", "gaussian", "median"}, Names())
}

func TestWindowParams(t *testing.T) {
	tests := []struct {
		name   string
		radius int
		std    float64
		key    string
		want   float64
	}{
		{"bilateral", 4, 0.1, "d", 9},
		{"bilateral", 4, 0.1, "sigma_color", 25.5},
		{"bilateral", 60, 0.1, "d", 101},
		{"gaussian", 0, 0.1, "kernel_size", 3},
		{"gaussian", 40, 0.1, "kernel_size", 51},
		{"median", 2, 0.1, "kernel_size", 5},
		{"cii_bilateral", 7, 0.2, "radius", 7},
		{"cii_bilateral", 7, 0.001, "range_std", 0.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := WindowParams(tt.name, tt.radius, tt.std)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, params[tt.key], 1e-12)

			algorithm, ok := Get(tt.name)
			require.True(t, ok)
			assert.NoError(t, algorithm.Validate(params))
		})
	}

	_, err := WindowParams("sobel", 1, 0.1)
	assert.Error(t, err)
}

func TestApplyLargeRadiusBilateral(t *testing.T) {
	src := noise(128, 128)
	mat := cvio.GrayToMat(src)
	defer mat.Close()

	params, err := WindowParams("bilateral", 55, 0.1)
	require.NoError(t, err)

	out, err := Apply("bilateral", mat, params)
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 128, out.Rows())
}

func TestBoxBilateralMatchesFilter(t *testing.T) {
	src := noise(20, 14)
	mat := cvio.GrayToMat(src)
	defer mat.Close()

	params, err := WindowParams("cii_bilateral", 2, 0.1)
	require.NoError(t, err)
	out, err := Apply("cii_bilateral", mat, params)
	require.NoError(t, err)
	defer out.Close()

	got, err := cvio.MatToGray(out)
	require.NoError(t, err)

	f, err := cii.New(cii.Params{RangeStd: 0.1, Radius: 2}, cii.Options{})
	require.NoError(t, err)
	res, err := f.Apply(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, cii.Merge(src, res.Output, res.Valid, cii.RangeLevels).Pix, got.Pix)
}

func TestApplyValidates(t *testing.T) {
	mat := cvio.GrayToMat(noise(10, 10))
	defer mat.Close()

	_, err := Apply("median", mat, map[string]interface{}{"kernel_size": 99.0})
	assert.Error(t, err)

	_, err = Apply("nope", mat, nil)
	assert.Error(t, err)
}
