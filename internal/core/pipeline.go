// Load → filter → evaluate → save job around the cosine-integral filter
package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/metrics"
)

// Margin selects what the r-pixel border without a defined output becomes
type Margin int

const (
	// MarginSource copies the input pixels into the border
	MarginSource Margin = iota
	// MarginZero leaves the border black
	MarginZero
	// MarginCrop drops the border, shrinking the image by 2r per axis
	MarginCrop
)

var marginNames = map[Margin]string{
	MarginSource: "source",
	MarginZero:   "zero",
	MarginCrop:   "crop",
}

func (m Margin) String() string {
	if name, ok := marginNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Margin(%d)", int(m))
}

// ParseMargin maps "source", "zero" or "crop" to a Margin
func ParseMargin(s string) (Margin, error) {
	for m, name := range marginNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown margin policy %q", s)
}

// ErrInvalidJob is returned for job settings the pipeline cannot run
var ErrInvalidJob = errors.New("invalid job")

// Reference produces a full-size image to compare the filter against
type Reference func(ctx context.Context, src *cii.Gray) (*cii.Gray, error)

// Job describes one filtering run
type Job struct {
	Params  cii.Params
	Passes  int
	Workers int
	// Scale multiplies the filter output before 8-bit conversion.
	// Zero means cii.RangeLevels, which restores the input intensity range.
	Scale  float64
	Margin Margin

	Reference     Reference
	ReferenceName string
}

func (j Job) validate() error {
	if j.Passes < 1 {
		return fmt.Errorf("%w: passes %d", ErrInvalidJob, j.Passes)
	}
	if j.Scale < 0 {
		return fmt.Errorf("%w: scale %v", ErrInvalidJob, j.Scale)
	}
	if _, ok := marginNames[j.Margin]; !ok {
		return fmt.Errorf("%w: margin %v", ErrInvalidJob, j.Margin)
	}
	return nil
}

func (j Job) scale() float64 {
	if j.Scale == 0 {
		return cii.RangeLevels
	}
	return j.Scale
}

// Report describes a finished run
type Report struct {
	Width, Height    int
	Coefficients     int
	Passes           int
	Valid            image.Rectangle
	DegeneratePixels int
	Quality          metrics.QualityReport
	// Reference holds metrics of the filtered image against the reference
	// filter, nil without one
	Reference map[string]float64
	Durations map[string]time.Duration
}

// Pipeline runs jobs on one backend
type Pipeline struct {
	backend   Backend
	evaluator *metrics.Evaluator
	logger    logrus.FieldLogger
}

// NewPipeline creates a pipeline. A backend without a converter uses
// SaturatingConverter; one without an evaluator uses the pure-Go metrics.
func NewPipeline(backend Backend, logger logrus.FieldLogger) *Pipeline {
	if backend.Convert == nil {
		backend.Convert = SaturatingConverter
	}
	if backend.Evaluator == nil {
		backend.Evaluator = metrics.NewEvaluator()
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Pipeline{
		backend:   backend,
		evaluator: backend.Evaluator,
		logger:    logger.WithField("backend", backend.Name),
	}
}

// Backend returns the backend the pipeline was built with
func (p *Pipeline) Backend() Backend {
	return p.backend
}

// Run loads from src, filters, evaluates and saves to dst
func (p *Pipeline) Run(ctx context.Context, job Job, src Source, dst Sink) (*Report, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	input, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(start)

	out, report, err := p.Process(ctx, job, input)
	if err != nil {
		return nil, err
	}
	report.Durations["load"] = loadTime

	start = time.Now()
	if err := dst.Save(ctx, out); err != nil {
		return nil, err
	}
	report.Durations["save"] = time.Since(start)

	p.logger.WithFields(logrus.Fields{
		"width":  out.Width,
		"height": out.Height,
		"total":  sumDurations(report.Durations),
	}).Info("Job completed")

	return report, nil
}

// Process filters input job.Passes times and evaluates the result. The
// returned image has the margin policy applied.
func (p *Pipeline) Process(ctx context.Context, job Job, input *cii.Gray) (*cii.Gray, *Report, error) {
	if err := job.validate(); err != nil {
		return nil, nil, err
	}
	if input.Empty() {
		return nil, nil, cii.ErrEmptyImage
	}

	f, err := p.filterer(job)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{
		Width:        input.Width,
		Height:       input.Height,
		Coefficients: f.Kernel().Len(),
		Passes:       job.Passes,
		Durations:    make(map[string]time.Duration),
	}

	start := time.Now()
	cur := input
	for pass := 1; pass <= job.Passes; pass++ {
		res, err := f.Apply(ctx, cur)
		if err != nil {
			return nil, nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		report.Valid = res.Valid
		report.DegeneratePixels += res.DegeneratePixels

		next := p.backend.Convert(res.Output, res.Valid, job.scale())
		fillMargin(next, input, res.Valid)
		cur = next

		p.logger.WithFields(logrus.Fields{
			"pass":       pass,
			"degenerate": res.DegeneratePixels,
		}).Debug("Filter pass finished")
	}
	report.Durations["filter"] = time.Since(start)

	start = time.Now()
	report.Quality = p.evaluator.GenerateReport(input, cur, report.Valid)
	report.Durations["evaluate"] = time.Since(start)

	if job.Reference != nil {
		start = time.Now()
		ref, err := job.Reference(ctx, input)
		if err != nil {
			return nil, nil, fmt.Errorf("reference %s: %w", job.ReferenceName, err)
		}
		report.Reference = p.evaluator.CalculateAll(ref, cur, report.Valid)
		report.Durations["reference"] = time.Since(start)

		p.logger.WithFields(logrus.Fields{
			"reference": job.ReferenceName,
			"psnr":      report.Reference["psnr"],
			"max_diff":  report.Reference["max_abs_diff"],
		}).Info("Compared against reference filter")
	}

	p.logger.WithFields(logrus.Fields{
		"radius":       job.Params.Radius,
		"range_std":    job.Params.RangeStd,
		"coefficients": report.Coefficients,
		"passes":       job.Passes,
		"smoothing":    report.Quality.Smoothing,
		"duration":     report.Durations["filter"],
	}).Info("Filtering completed")

	switch job.Margin {
	case MarginZero:
		clearMargin(cur, report.Valid)
	case MarginCrop:
		cur = cur.Crop(report.Valid)
	}
	return cur, report, nil
}

func (p *Pipeline) filterer(job Job) (*cii.Filterer, error) {
	opts := cii.Options{Workers: job.Workers, Logger: p.logger}
	if p.backend.Kernel == nil {
		return cii.New(job.Params, opts)
	}

	k, err := p.backend.Kernel(job.Params.RangeStd)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	return cii.NewWithKernel(job.Params, k, opts)
}

// fillMargin copies src into every pixel of dst outside valid
func fillMargin(dst, src *cii.Gray, valid image.Rectangle) {
	for i := 0; i < dst.Height; i++ {
		for j := 0; j < dst.Width; j++ {
			if !image.Pt(j, i).In(valid) {
				dst.Set(i, j, src.At(i, j))
			}
		}
	}
}

func clearMargin(g *cii.Gray, valid image.Rectangle) {
	for i := 0; i < g.Height; i++ {
		for j := 0; j < g.Width; j++ {
			if !image.Pt(j, i).In(valid) {
				g.Set(i, j, 0)
			}
		}
	}
}

func sumDurations(d map[string]time.Duration) time.Duration {
	var total time.Duration
	for _, v := range d {
		total += v
	}
	return total
}
