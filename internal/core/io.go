// Intensity sources and sinks the pipeline runs between
package core

import (
	"context"
	"fmt"
	"image"

	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/metrics"
)

// Source yields the input intensity grid
type Source interface {
	Load(ctx context.Context) (*cii.Gray, error)
}

// Sink consumes the final 8-bit image
type Sink interface {
	Save(ctx context.Context, g *cii.Gray) error
}

// Loader is a path-based image reader such as imageio.Codec or
// cvio.ImageLoader
type Loader interface {
	Load(path string) (*cii.Gray, error)
}

// Saver is a path-based image writer
type Saver interface {
	Save(path string, g *cii.Gray) error
}

// Converter turns filter output into 8-bit intensities inside valid.
// Pixels outside valid are left at zero.
type Converter func(out *cii.Float32, valid image.Rectangle, scale float64) *cii.Gray

// SaturatingConverter is the pure-Go |v·scale| conversion
func SaturatingConverter(out *cii.Float32, valid image.Rectangle, scale float64) *cii.Gray {
	return out.ToGray(valid, scale)
}

type fileSource struct {
	path   string
	loader Loader
}

// FileSource reads path through loader
func FileSource(path string, loader Loader) Source {
	return &fileSource{path: path, loader: loader}
}

func (s *fileSource) Load(ctx context.Context) (*cii.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := s.loader.Load(s.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return g, nil
}

func (s *fileSource) String() string {
	return s.path
}

type fileSink struct {
	path  string
	saver Saver
}

// FileSink writes to path through saver
func FileSink(path string, saver Saver) Sink {
	return &fileSink{path: path, saver: saver}
}

func (s *fileSink) Save(ctx context.Context, g *cii.Gray) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.saver.Save(s.path, g); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSink) String() string {
	return s.path
}

// Backend bundles the I/O and conversion of one image stack
type Backend struct {
	Name    string
	Loader  Loader
	Saver   Saver
	Convert Converter
	// Kernel overrides the pure-Go coefficient computation when set
	Kernel func(rangeStd float64) (cii.Kernel, error)
	// Evaluator scores results; nil uses metrics.NewEvaluator
	Evaluator *metrics.Evaluator
}
