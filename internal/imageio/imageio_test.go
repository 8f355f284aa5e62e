package imageio

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cii-bilateral/internal/cii"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestToGrayLuma(t *testing.T) {
	src := image.NewRGBA(image.Rect(3, 2, 7, 5))
	for y := 2; y < 5; y++ {
		for x := 3; x < 7; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	src.Set(3, 2, color.White)

	g := ToGray(src, 0)
	require.Equal(t, 4, g.Width)
	require.Equal(t, 3, g.Height)
	assert.Equal(t, uint8(255), g.At(0, 0))
	assert.Equal(t, uint8(76), g.At(2, 3))
}

func TestToGrayDownscale(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 200, 100))
	for i := range src.Pix {
		src.Pix[i] = 90
	}

	g := ToGray(src, 50)
	assert.Equal(t, 50, g.Width)
	assert.Equal(t, 25, g.Height)
	assert.InDelta(t, 90, int(g.At(12, 25)), 1)

	tall := ToGray(image.NewGray(image.Rect(0, 0, 10, 40)), 20)
	assert.Equal(t, 5, tall.Width)
	assert.Equal(t, 20, tall.Height)
}

func TestSaveLoadLossless(t *testing.T) {
	g := cii.NewGray(9, 7)
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 3)
	}
	c := NewCodec(quietLogger())
	dir := t.TempDir()

	for _, ext := range []string{".png", ".bmp", ".tiff"} {
		path := filepath.Join(dir, "out"+ext)
		require.NoError(t, c.Save(path, g), ext)

		back, err := c.Load(path)
		require.NoError(t, err, ext)
		assert.Equal(t, g.Pix, back.Pix, ext)
	}
}

func TestUnsupportedFormats(t *testing.T) {
	c := NewCodec(quietLogger())
	g := cii.NewGray(2, 2)

	assert.Error(t, c.Save(filepath.Join(t.TempDir(), "x.webp"), g))
	_, err := c.Load("image.xyz")
	assert.Error(t, err)
	assert.Error(t, Encode(&bytes.Buffer{}, ".raw", FromGray(g), 90))
	assert.Error(t, c.Save(filepath.Join(t.TempDir(), "x.png"), cii.NewGray(0, 0)))
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("not an image")), 0)
	assert.Error(t, err)
}

func TestSupportedFormatsIsCopy(t *testing.T) {
	f := SupportedFormats()
	f[0] = ".zzz"
	assert.Contains(t, SupportedFormats(), ".png")
}
