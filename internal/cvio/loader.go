// OpenCV-backed image loading and saving for intensity grids
package cvio

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"cii-bilateral/internal/cii"
)

// ImageLoader handles image file operations through OpenCV
type ImageLoader struct {
	logger logrus.FieldLogger
}

func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// Load reads filepath as a single-channel 8-bit image
func (il *ImageLoader) Load(filepath string) (*cii.Gray, error) {
	il.logger.WithField("filepath", filepath).Debug("Loading image as grayscale")

	if !il.isSupportedImageFormat(filepath) {
		return nil, fmt.Errorf("unsupported image format: %s", filepath)
	}

	mat := gocv.IMRead(filepath, gocv.IMReadGrayScale)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to load image: %s", filepath)
	}

	g, err := MatToGray(mat)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", filepath, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": filepath,
		"width":    g.Width,
		"height":   g.Height,
	}).Info("Grayscale image loaded successfully")

	return g, nil
}

// Save writes g to filepath
func (il *ImageLoader) Save(filepath string, g *cii.Gray) error {
	il.logger.WithField("filepath", filepath).Debug("Saving image")

	if g.Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	if !il.isSupportedImageFormat(filepath) {
		return fmt.Errorf("unsupported image format: %s", filepath)
	}

	mat := GrayToMat(g)
	defer mat.Close()

	if success := gocv.IMWrite(filepath, mat); !success {
		return fmt.Errorf("failed to save image: %s", filepath)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": filepath,
		"width":    g.Width,
		"height":   g.Height,
	}).Info("Image saved successfully")

	return nil
}

func (il *ImageLoader) isSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range il.GetSupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".pgm", ".webp"}
}

// MatToGray copies a CV_8UC1 Mat into an intensity grid
func MatToGray(mat gocv.Mat) (*cii.Gray, error) {
	if mat.Empty() {
		return nil, cii.ErrEmptyImage
	}
	if mat.Channels() != 1 || mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected single-channel 8-bit image, got %d channels of type %v", mat.Channels(), mat.Type())
	}

	rows, cols := mat.Rows(), mat.Cols()
	g := cii.NewGray(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			g.Set(y, x, mat.GetUCharAt(y, x))
		}
	}
	return g, nil
}

// GrayToMat copies an intensity grid into a new CV_8UC1 Mat
func GrayToMat(g *cii.Gray) gocv.Mat {
	mat := gocv.NewMatWithSize(g.Height, g.Width, gocv.MatTypeCV8UC1)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			mat.SetUCharAt(y, x, g.At(y, x))
		}
	}
	return mat
}

// FloatToMat copies the filter output into a new CV_32FC1 Mat
func FloatToMat(f *cii.Float32) gocv.Mat {
	mat := gocv.NewMatWithSize(f.Height, f.Width, gocv.MatTypeCV32FC1)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			mat.SetFloatAt(y, x, f.At(y, x))
		}
	}
	return mat
}

// ConvertScaleAbs turns the filter output into 8-bit intensities with
// OpenCV's saturating |v·scale| conversion. Pixels outside valid are zero.
func ConvertScaleAbs(out *cii.Float32, valid image.Rectangle, scale float64) *cii.Gray {
	src := FloatToMat(out)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.ConvertScaleAbs(src, &dst, scale, 0)

	g := cii.NewGray(out.Width, out.Height)
	valid = valid.Intersect(out.Bounds())
	for y := valid.Min.Y; y < valid.Max.Y; y++ {
		for x := valid.Min.X; x < valid.Max.X; x++ {
			g.Set(y, x, dst.GetUCharAt(y, x))
		}
	}
	return g
}
