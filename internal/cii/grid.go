package cii

import (
	"fmt"
	"image"
)

// Gray is a row-major H×W grid of 8-bit intensities.
// The filter never writes to it.
type Gray struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewGray allocates a zeroed width×height intensity grid.
func NewGray(width, height int) *Gray {
	return &Gray{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// GrayFromPix wraps pix as a width×height grid without copying.
func GrayFromPix(pix []uint8, width, height int) (*Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	return &Gray{Pix: pix, Width: width, Height: height}, nil
}

// At returns the intensity at row i, column j.
func (g *Gray) At(i, j int) uint8 {
	return g.Pix[i*g.Width+j]
}

// Set stores v at row i, column j.
func (g *Gray) Set(i, j int, v uint8) {
	g.Pix[i*g.Width+j] = v
}

// Bounds returns the grid rectangle with x as column and y as row.
func (g *Gray) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Empty reports whether the grid has no pixels.
func (g *Gray) Empty() bool {
	return g == nil || g.Width <= 0 || g.Height <= 0
}

// Crop copies the part of g inside r into a new grid.
func (g *Gray) Crop(r image.Rectangle) *Gray {
	r = r.Intersect(g.Bounds())
	out := NewGray(r.Dx(), r.Dy())
	for i := 0; i < out.Height; i++ {
		src := (r.Min.Y+i)*g.Width + r.Min.X
		copy(out.Pix[i*out.Width:(i+1)*out.Width], g.Pix[src:src+out.Width])
	}
	return out
}

// Float32 is the filter output grid.
type Float32 struct {
	Pix    []float32
	Width  int
	Height int
}

// NewFloat32 allocates a zeroed width×height float grid.
func NewFloat32(width, height int) *Float32 {
	return &Float32{
		Pix:    make([]float32, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the value at row i, column j.
func (f *Float32) At(i, j int) float32 {
	return f.Pix[i*f.Width+j]
}

// Set stores v at row i, column j.
func (f *Float32) Set(i, j int, v float32) {
	f.Pix[i*f.Width+j] = v
}

// Fill sets every sample to v.
func (f *Float32) Fill(v float32) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Bounds returns the grid rectangle with x as column and y as row.
func (f *Float32) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// ToGray rescales by scale, rounds, and saturates to [0,255] inside r.
// Samples outside r are zero in the returned grid.
func (f *Float32) ToGray(r image.Rectangle, scale float64) *Gray {
	out := NewGray(f.Width, f.Height)
	r = r.Intersect(f.Bounds())
	for i := r.Min.Y; i < r.Max.Y; i++ {
		for j := r.Min.X; j < r.Max.X; j++ {
			out.Set(i, j, saturate(float64(f.At(i, j))*scale))
		}
	}
	return out
}

// Float64 holds the numerator and denominator planes exposed as diagnostics.
type Float64 struct {
	Pix    []float64
	Width  int
	Height int
}

// At returns the value at row i, column j.
func (f *Float64) At(i, j int) float64 {
	return f.Pix[i*f.Width+j]
}

// saturate mirrors an absolute-value 8-bit conversion: |v| rounded, clamped to 255.
func saturate(v float64) uint8 {
	if v < 0 {
		v = -v
	}
	v += 0.5
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
