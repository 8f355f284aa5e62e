// Command-line configuration for the ciibf tool
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/core"
)

const (
	BackendGo     = "go"
	BackendOpenCV = "opencv"

	// ReferenceExact is the brute-force Gaussian box bilateral filter
	ReferenceExact = "exact"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the parsed flags
type Config struct {
	Input       string
	Output      string
	Radius      int
	RangeStd    float64
	Workers     int
	Backend     string
	Margin      string
	Crop        bool
	Passes      int
	Scale       float64
	Compare     bool
	Reference   string
	MaxSize     int
	JPEGQuality int
	Debug       bool
}

// Default returns the configuration used when no flags are given
func Default() *Config {
	return &Config{
		Radius:      5,
		RangeStd:    0.1,
		Workers:     runtime.GOMAXPROCS(0),
		Backend:     BackendGo,
		Margin:      core.MarginSource.String(),
		Passes:      1,
		Scale:       256,
		Reference:   ReferenceExact,
		JPEGQuality: 95,
	}
}

// ParseFlags parses args (without the program name). Usage and flag errors
// go to output. algorithms lists the registered filters -reference may name
// besides ReferenceExact.
func ParseFlags(args []string, output io.Writer, algorithms []string) (*Config, error) {
	cfg := Default()
	references := append([]string{ReferenceExact}, algorithms...)

	fs := flag.NewFlagSet("ciibf", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Input, "in", "", "Input image path (required)")
	fs.StringVar(&cfg.Output, "out", "", "Output image path (default <input>_cii.png)")
	fs.IntVar(&cfg.Radius, "r", cfg.Radius, "Spatial radius; the box window is (2r+1)x(2r+1)")
	fs.Float64Var(&cfg.RangeStd, "std", cfg.RangeStd, "Range kernel std on a 0-1 intensity scale")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Goroutines sharing the harmonic passes")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Image stack: go or opencv")
	fs.StringVar(&cfg.Margin, "margin", cfg.Margin, "Border without a filtered value: source, zero or crop")
	fs.BoolVar(&cfg.Crop, "crop", false, "Write only the valid region (same as -margin crop)")
	fs.IntVar(&cfg.Passes, "passes", cfg.Passes, "Times to filter, feeding the 8-bit result back in")
	fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "Output multiplier before 8-bit conversion (255 matches the OpenCV demo)")
	fs.BoolVar(&cfg.Compare, "compare", false, "Also run the -reference filter and report PSNR")
	fs.StringVar(&cfg.Reference, "reference", cfg.Reference,
		"Filter -compare runs against: "+strings.Join(references, ", "))
	fs.IntVar(&cfg.MaxSize, "max-size", 0, "Down-scale the longest side to this many pixels (go backend, 0 keeps size)")
	fs.IntVar(&cfg.JPEGQuality, "quality", cfg.JPEGQuality, "JPEG output quality (go backend)")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug mode with verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrInvalidConfig, fs.Args())
	}

	if cfg.Crop {
		cfg.Margin = core.MarginCrop.String()
	}
	if cfg.Output == "" && cfg.Input != "" {
		cfg.Output = DefaultOutput(cfg.Input)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(references, cfg.Reference) {
		return nil, fmt.Errorf("%w: unknown reference %q, want one of %s",
			ErrInvalidConfig, cfg.Reference, strings.Join(references, ", "))
	}
	return cfg, nil
}

// DefaultOutput derives the output path from the input path
func DefaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_cii.png"
}

// Validate checks the configuration for values the filter cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Input == "":
		return fmt.Errorf("%w: -in is required", ErrInvalidConfig)
	case c.Output == "":
		return fmt.Errorf("%w: -out is required", ErrInvalidConfig)
	case c.Radius < 0:
		return fmt.Errorf("%w: radius %d must not be negative", ErrInvalidConfig, c.Radius)
	case math.IsNaN(c.RangeStd) || c.RangeStd <= 0 || c.RangeStd > 1:
		return fmt.Errorf("%w: std %v must be in (0,1]", ErrInvalidConfig, c.RangeStd)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalidConfig, c.Workers)
	case c.Backend != BackendGo && c.Backend != BackendOpenCV:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	case c.Passes < 1:
		return fmt.Errorf("%w: passes %d must be at least 1", ErrInvalidConfig, c.Passes)
	case !(c.Scale > 0) || math.IsInf(c.Scale, 0):
		return fmt.Errorf("%w: scale %v must be positive", ErrInvalidConfig, c.Scale)
	case c.MaxSize < 0:
		return fmt.Errorf("%w: max-size %d must not be negative", ErrInvalidConfig, c.MaxSize)
	case c.MaxSize > 0 && c.Backend != BackendGo:
		return fmt.Errorf("%w: max-size needs the %s backend", ErrInvalidConfig, BackendGo)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("%w: quality %d must be in [1,100]", ErrInvalidConfig, c.JPEGQuality)
	case c.Reference == "":
		return fmt.Errorf("%w: -reference must not be empty", ErrInvalidConfig)
	}

	if _, err := core.ParseMargin(c.Margin); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Job translates the configuration into a pipeline job
func (c *Config) Job() (core.Job, error) {
	margin, err := core.ParseMargin(c.Margin)
	if err != nil {
		return core.Job{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return core.Job{
		Params: cii.Params{
			RangeStd: c.RangeStd,
			Radius:   c.Radius,
		},
		Passes:  c.Passes,
		Workers: c.Workers,
		Scale:   c.Scale,
		Margin:  margin,
	}, nil
}
