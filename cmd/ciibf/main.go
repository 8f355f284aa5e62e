// ciibf - constant-time box bilateral filter on grayscale images
// License: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"cii-bilateral/internal/algorithms"
	"cii-bilateral/internal/cii"
	"cii-bilateral/internal/config"
	"cii-bilateral/internal/core"
	"cii-bilateral/internal/cvio"
	"cii-bilateral/internal/imageio"
	"cii-bilateral/internal/metrics/cvmetrics"
)

const (
	AppName    = "ciibf"
	AppVersion = "1.0.0"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:], os.Stderr, algorithms.Names())
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(2)
	}

	logger := initLogger(cfg.Debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Debug,
		"backend":    cfg.Backend,
	}).Info("Starting box bilateral filter")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).WithField("input", cfg.Input).Error("Filtering failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	job, err := cfg.Job()
	if err != nil {
		return err
	}

	backend := newBackend(cfg, logger)
	if cfg.Compare {
		job.ReferenceName, job.Reference = newReference(cfg)
	}

	pipeline := core.NewPipeline(backend, logger)
	report, err := pipeline.Run(ctx, job,
		core.FileSource(cfg.Input, backend.Loader),
		core.FileSink(cfg.Output, backend.Saver))
	if err != nil {
		return err
	}

	fmt.Printf("Number of DCT coefficients used: %d\n", report.Coefficients)
	fmt.Printf("Filtered %dx%d image in %v, wrote %s\n", report.Width, report.Height, report.Durations["filter"], cfg.Output)
	if report.Reference != nil {
		fmt.Printf("PSNR against %s: %.2f dB (max difference %.0f)\n",
			job.ReferenceName, report.Reference["psnr"], report.Reference["max_abs_diff"])
	}
	return nil
}

func newBackend(cfg *config.Config, logger *logrus.Logger) core.Backend {
	if cfg.Backend == config.BackendOpenCV {
		loader := cvio.NewImageLoader(logger)
		return core.Backend{
			Name:      config.BackendOpenCV,
			Loader:    loader,
			Saver:     loader,
			Convert:   cvio.ConvertScaleAbs,
			Kernel:    cvio.ApproximateKernel,
			Evaluator: cvmetrics.NewEvaluator(),
		}
	}

	codec := imageio.NewCodec(logger)
	codec.MaxSize = cfg.MaxSize
	codec.JPEGQuality = cfg.JPEGQuality
	return core.Backend{
		Name:    config.BackendGo,
		Loader:  codec,
		Saver:   codec,
		Convert: core.SaturatingConverter,
	}
}

// newReference builds the filter -compare runs: the brute-force Gaussian
// box bilateral in Go, or any registered OpenCV-side algorithm with
// parameters derived from the filter window.
func newReference(cfg *config.Config) (string, core.Reference) {
	if cfg.Reference == config.ReferenceExact {
		return "exact box bilateral", func(ctx context.Context, src *cii.Gray) (*cii.Gray, error) {
			out, err := cii.ExactBoxBilateral(src, cfg.RangeStd, cfg.Radius)
			if err != nil {
				return nil, err
			}
			valid := cii.Params{RangeStd: cfg.RangeStd, Radius: cfg.Radius}.ValidRegion(src.Width, src.Height)
			return cii.Merge(src, out, valid, cfg.Scale), nil
		}
	}

	name := cfg.Reference
	return name, func(ctx context.Context, src *cii.Gray) (*cii.Gray, error) {
		params, err := algorithms.WindowParams(name, cfg.Radius, cfg.RangeStd)
		if err != nil {
			return nil, err
		}

		mat := cvio.GrayToMat(src)
		defer mat.Close()

		out, err := algorithms.Apply(name, mat, params)
		if err != nil {
			return nil, err
		}
		defer out.Close()
		return cvio.MatToGray(out)
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
