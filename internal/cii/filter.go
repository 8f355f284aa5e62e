package cii

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidRangeStd is returned for a range std outside (0,1].
	ErrInvalidRangeStd = errors.New("range std out of range")
	// ErrInvalidRadius is returned for a negative radius or a window wider
	// than the image.
	ErrInvalidRadius = errors.New("spatial radius out of range")
	// ErrEmptyImage is returned for a zero-area image.
	ErrEmptyImage = errors.New("empty image")
	// ErrSizeMismatch is returned when buffers disagree on dimensions.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrInvalidKernel is returned for supplied coefficients that cannot
	// describe a Gaussian range kernel.
	ErrInvalidKernel = errors.New("invalid kernel")
)

// Params are the two scalar filter parameters.
type Params struct {
	// RangeStd is the range kernel std, normalized to the 0–255 domain.
	RangeStd float64
	// Radius is the spatial radius; the window is (2r+1)×(2r+1).
	Radius int
}

// Validate checks p against a width×height image.
func (p Params) Validate(width, height int) error {
	if err := ValidateRangeStd(p.RangeStd); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	if p.Radius < 0 || p.Radius > (min(width, height)-1)/2 {
		return fmt.Errorf("%w: radius %d for %dx%d image", ErrInvalidRadius, p.Radius, width, height)
	}
	return nil
}

// ValidRegion returns the pixels with a defined output: rows [r, H-r),
// columns [r, W-r).
func (p Params) ValidRegion(width, height int) image.Rectangle {
	return image.Rect(p.Radius, p.Radius, width-p.Radius, height-p.Radius)
}

// Options tune execution without changing the result.
type Options struct {
	// Workers is the number of goroutines sharing the window passes.
	// Values below 2 run sequentially.
	Workers int
	// Diagnostics keeps the numerator and denominator planes in the Result.
	Diagnostics bool
	// Logger receives debug timings and degenerate-weight warnings.
	// Nil discards.
	Logger logrus.FieldLogger
}

// Result is the outcome of one filter call.
type Result struct {
	// Output holds numerator/(denominator·256) inside Valid. Values are
	// filtered intensities divided by 256, not clamped.
	Output *Float32
	// Valid is the region written by the filter.
	Valid  image.Rectangle
	Kernel Kernel

	// Numerator and Denominator are set only with Options.Diagnostics.
	Numerator   *Float64
	Denominator *Float64

	// DegeneratePixels counts valid pixels whose accumulated weight was not
	// positive and fell back to their own intensity.
	DegeneratePixels int
}

// Filterer applies a CII box bilateral filter with fixed parameters.
// It holds only immutable tables, so one Filterer may serve concurrent calls.
type Filterer struct {
	params  Params
	kernel  Kernel
	tables  *HarmonicTables
	plan    plan
	workers int
	diag    bool
	logger  logrus.FieldLogger
}

// New approximates the range kernel and builds its tables.
func New(p Params, opts Options) (*Filterer, error) {
	kernel, err := ApproximateKernel(p.RangeStd)
	if err != nil {
		return nil, err
	}
	return NewWithKernel(p, kernel, opts)
}

// NewWithKernel builds a Filterer from precomputed coefficients, for
// example ones produced by another DCT implementation.
func NewWithKernel(p Params, kernel Kernel, opts Options) (*Filterer, error) {
	if err := ValidateRangeStd(p.RangeStd); err != nil {
		return nil, err
	}
	if n := kernel.Len(); n == 0 || n > RangeLevels {
		return nil, fmt.Errorf("%w: %d coefficients", ErrInvalidKernel, n)
	}
	if !(kernel.Coefficients[0] > 0) {
		return nil, fmt.Errorf("%w: DC coefficient %v must be positive", ErrInvalidKernel, kernel.Coefficients[0])
	}
	if p.Radius < 0 {
		return nil, fmt.Errorf("%w: radius %d", ErrInvalidRadius, p.Radius)
	}

	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	tables := BuildHarmonicTables(kernel)
	return &Filterer{
		params:  p,
		kernel:  kernel,
		tables:  tables,
		plan:    newPlan(tables),
		workers: opts.Workers,
		diag:    opts.Diagnostics,
		logger:  logger,
	}, nil
}

// Params returns the filter parameters.
func (f *Filterer) Params() Params {
	return f.params
}

// Kernel returns the approximated range kernel.
func (f *Filterer) Kernel() Kernel {
	return f.kernel
}

// Apply filters img into a freshly allocated grid whose margin is zero.
func (f *Filterer) Apply(ctx context.Context, img *Gray) (*Result, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	return f.ApplyInto(ctx, NewFloat32(img.Width, img.Height), img)
}

// ApplyInto filters img into dst. Only the valid region of dst is written;
// the outer Radius-pixel margin keeps whatever the caller stored there.
func (f *Filterer) ApplyInto(ctx context.Context, dst *Float32, img *Gray) (*Result, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	if err := f.params.Validate(img.Width, img.Height); err != nil {
		return nil, err
	}
	if len(img.Pix) != img.Width*img.Height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d image", ErrSizeMismatch, len(img.Pix), img.Width, img.Height)
	}
	if dst == nil || dst.Width != img.Width || dst.Height != img.Height || len(dst.Pix) != len(img.Pix) {
		return nil, fmt.Errorf("%w: output grid does not match %dx%d image", ErrSizeMismatch, img.Width, img.Height)
	}

	start := time.Now()
	valid := f.params.ValidRegion(img.Width, img.Height)

	acc, err := accumulate(ctx, img, f.params.Radius, valid, f.tables, f.plan, f.workers)
	if err != nil {
		return nil, fmt.Errorf("accumulate: %w", err)
	}
	degenerate := divide(dst, img, acc, valid)

	log := f.logger.WithFields(logrus.Fields{
		"width":        img.Width,
		"height":       img.Height,
		"radius":       f.params.Radius,
		"range_std":    f.params.RangeStd,
		"coefficients": f.kernel.Len(),
		"passes":       f.plan.len(),
	})
	if degenerate > 0 {
		log.WithField("pixels", degenerate).Warn("non-positive kernel weight, kept source intensity")
	}
	log.WithField("elapsed", time.Since(start)).Debug("cii filter done")

	res := &Result{
		Output:           dst,
		Valid:            valid,
		Kernel:           f.kernel,
		DegeneratePixels: degenerate,
	}
	if f.diag {
		res.Numerator = &Float64{Pix: acc.num, Width: img.Width, Height: img.Height}
		res.Denominator = &Float64{Pix: acc.den, Width: img.Width, Height: img.Height}
	}
	return res, nil
}

// Filter is the one-shot entry point: a sequential run of the box bilateral
// filter with the given range std and spatial radius.
func Filter(img *Gray, rangeStd float64, radius int) (*Float32, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	p := Params{RangeStd: rangeStd, Radius: radius}
	if err := p.Validate(img.Width, img.Height); err != nil {
		return nil, err
	}
	f, err := New(p, Options{})
	if err != nil {
		return nil, err
	}
	res, err := f.Apply(context.Background(), img)
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}
