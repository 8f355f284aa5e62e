// Quality metrics comparing a source intensity grid with its filtered version
package metrics

import (
	"fmt"
	"image"
	"sort"
	"time"

	"cii-bilateral/internal/cii"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric over roi, the region both images define
	Calculate(original, processed *cii.Gray, roi image.Rectangle) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("psnr", NewPSNR())
	e.Register("mse", NewMSE())
	e.Register("max_abs_diff", NewMaxAbsDiff())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed *cii.Gray, roi image.Rectangle) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(original, processed, roi)
}

// CalculateAll calculates all registered metrics, skipping those that fail
func (e *Evaluator) CalculateAll(original, processed *cii.Gray, roi image.Rectangle) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed, roi); err == nil {
			results[name] = value
		}
	}

	return results
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)

	for name, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		}
	}

	return info
}

// QualityReport summarizes one comparison
type QualityReport struct {
	Metrics   map[string]float64 `json:"metrics"`
	Smoothing string             `json:"smoothing"` // "none", "light", "strong"
	Timestamp string             `json:"timestamp"`
}

// GenerateReport calculates every metric and classifies how much the
// processed image was smoothed relative to the original
func (e *Evaluator) GenerateReport(original, processed *cii.Gray, roi image.Rectangle) QualityReport {
	values := e.CalculateAll(original, processed, roi)

	return QualityReport{
		Metrics:   values,
		Smoothing: classifySmoothing(values),
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}
}

func classifySmoothing(values map[string]float64) string {
	ratio, ok := values["contrast_ratio"]
	if !ok {
		return "unknown"
	}

	switch {
	case ratio >= 0.98:
		return "none"
	case ratio >= 0.8:
		return "light"
	default:
		return "strong"
	}
}
