// Intensity grid I/O on the pure-Go image codecs, no native OpenCV needed
package imageio

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cii-bilateral/internal/cii"
)

var (
	decodeFormats = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
	encodeFormats = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}
)

// Codec loads and saves grayscale images by file extension.
type Codec struct {
	logger logrus.FieldLogger

	// MaxSize, when positive, down-scales decoded images so their longer
	// side is at most MaxSize pixels.
	MaxSize int
	// JPEGQuality is used for .jpg/.jpeg output.
	JPEGQuality int
}

// NewCodec returns a Codec logging to logger.
func NewCodec(logger logrus.FieldLogger) *Codec {
	return &Codec{
		logger:      logger,
		JPEGQuality: 95,
	}
}

// Load decodes path and converts it to an intensity grid.
func (c *Codec) Load(path string) (*cii.Gray, error) {
	c.logger.WithField("path", path).Debug("loading image")

	if !supported(path, decodeFormats) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	g, format, err := Decode(f, c.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	c.logger.WithFields(logrus.Fields{
		"path":   path,
		"format": format,
		"width":  g.Width,
		"height": g.Height,
	}).Info("image loaded")
	return g, nil
}

// Save encodes g to path, choosing the codec from the extension.
func (c *Codec) Save(path string, g *cii.Gray) error {
	if g.Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if !supported(path, encodeFormats) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}

	if err := Encode(f, filepath.Ext(path), FromGray(g), c.JPEGQuality); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  g.Width,
		"height": g.Height,
	}).Info("image saved")
	return nil
}

// Decode reads any registered format from r and converts it to intensities.
func Decode(r io.Reader, maxSize int) (*cii.Gray, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	g := ToGray(img, maxSize)
	if g.Empty() {
		return nil, format, cii.ErrEmptyImage
	}
	return g, format, nil
}

// ToGray converts img to luma. With maxSize > 0 the longer side is scaled
// down to maxSize using Catmull-Rom resampling.
func ToGray(img image.Image, maxSize int) *cii.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && max(w, h) > maxSize {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}

	g := cii.NewGray(w, h)
	for i := 0; i < h; i++ {
		copy(g.Pix[i*w:(i+1)*w], dst.Pix[i*dst.Stride:i*dst.Stride+w])
	}
	return g
}

// FromGray wraps a copy of g as an *image.Gray.
func FromGray(g *cii.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// Encode writes img in the format named by ext (".png", ".bmp", ...).
func Encode(w io.Writer, ext string, img image.Image, jpegQuality int) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case ".gif":
		return gif.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported image format: %s", ext)
	}
}

// SupportedFormats lists the extensions Load accepts.
func SupportedFormats() []string {
	return append([]string(nil), decodeFormats...)
}

func supported(path string, formats []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range formats {
		if ext == format {
			return true
		}
	}
	return false
}
