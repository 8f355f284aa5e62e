package cii

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomGray(t *testing.T, width, height int, seed int64) *Gray {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	g := NewGray(width, height)
	for i := range g.Pix {
		g.Pix[i] = uint8(rng.Intn(256))
	}
	return g
}

func flatGray(width, height int, v uint8) *Gray {
	g := NewGray(width, height)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// boxMean is the brute-force mean over the (2r+1)² window at (i,j).
func boxMean(g *Gray, i, j, r int) float64 {
	var sum float64
	for y := i - r; y <= i+r; y++ {
		for x := j - r; x <= j+r; x++ {
			sum += float64(g.At(y, x))
		}
	}
	side := float64(2*r + 1)
	return sum / (side * side)
}

func variance(g *Gray) float64 {
	var sum, sq float64
	for _, v := range g.Pix {
		f := float64(v)
		sum += f
		sq += f * f
	}
	n := float64(len(g.Pix))
	mean := sum / n
	return sq/n - mean*mean
}

func mustFilterer(t *testing.T, p Params, opts Options) *Filterer {
	t.Helper()
	f, err := New(p, opts)
	require.NoError(t, err)
	return f
}

func inside(r image.Rectangle, i, j int) bool {
	return image.Pt(j, i).In(r)
}
