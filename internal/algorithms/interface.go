// Smoothing algorithm registry over OpenCV matrices
package algorithms

import (
	"fmt"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm defines the interface for image processing algorithms
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for flag and help generation
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

// Apply validates params against the algorithm's ranges and runs it.
// Missing params take their defaults.
func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}
	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
	}

	return algorithm.Apply(input, withDefaults(algorithm, params))
}

// Names returns the registered algorithm names in sorted order
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WindowParams derives parameters for a filter comparable to a box
// bilateral filter of the given radius and range std. Values are clamped
// into each parameter's range.
func WindowParams(name string, radius int, rangeStd float64) (map[string]interface{}, error) {
	algorithm, exists := Get(name)
	if !exists {
		return nil, fmt.Errorf("algorithm not found: %s", name)
	}

	side := 2*float64(radius) + 1
	var params map[string]interface{}
	switch name {
	case "cii_bilateral":
		params = map[string]interface{}{"radius": float64(radius), "range_std": rangeStd}
	case "bilateral":
		params = map[string]interface{}{"d": side, "sigma_color": rangeStd * 255}
	case "gaussian":
		params = map[string]interface{}{"kernel_size": side, "sigma": side / 6}
	case "median":
		params = map[string]interface{}{"kernel_size": side}
	default:
		params = algorithm.GetDefaultParams()
	}

	clampRanges(algorithm.GetParameterInfo(), params)
	return params, nil
}

func withDefaults(algorithm Algorithm, params map[string]interface{}) map[string]interface{} {
	merged := algorithm.GetDefaultParams()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// validateRanges checks every numeric param against its ParameterInfo bounds
func validateRanges(infos []ParameterInfo, params map[string]interface{}) error {
	for _, info := range infos {
		val, ok := params[info.Name]
		if !ok {
			continue
		}
		v, ok := val.(float64)
		if !ok {
			return fmt.Errorf("%s must be a number, got %T", info.Name, val)
		}
		lo, hi := info.Min.(float64), info.Max.(float64)
		if v < lo || v > hi {
			return fmt.Errorf("%s must be between %v and %v", info.Name, lo, hi)
		}
	}
	return nil
}

// clampRanges pulls every numeric param into its ParameterInfo bounds
func clampRanges(infos []ParameterInfo, params map[string]interface{}) {
	for _, info := range infos {
		v, ok := params[info.Name].(float64)
		if !ok {
			continue
		}
		lo, hi := info.Min.(float64), info.Max.(float64)
		params[info.Name] = math.Min(math.Max(v, lo), hi)
	}
}

func floatParam(params map[string]interface{}, name string, fallback float64) float64 {
	if val, ok := params[name]; ok {
		if v, ok := val.(float64); ok {
			return v
		}
	}
	return fallback
}

func intParam(params map[string]interface{}, name string, fallback int) int {
	return int(floatParam(params, name, float64(fallback)))
}

func init() {
	Register("cii_bilateral", NewBoxBilateral())
	Register("bilateral", NewBilateralFilter())
	Register("gaussian", NewGaussianFilter())
	Register("median", NewMedianFilter())
}
