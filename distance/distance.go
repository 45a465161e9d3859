package distance

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var d float32
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

// Euclidean calculates the L2 distance between two vectors.
func Euclidean(a, b []float32) float32 {
	return float32(math.Sqrt(float64(SquaredL2(a, b))))
}

// CosineDistance calculates 1 - cosine similarity.
// A zero vector has distance 1 to everything.
func CosineDistance(a, b []float32) float32 {
	na := Dot(a, a)
	nb := Dot(b, b)
	if na == 0 || nb == 0 {
		return 1
	}
	sim := Dot(a, b) / float32(math.Sqrt(float64(na)*float64(nb)))
	// Clamp rounding noise so identical directions yield exactly 0.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return 1 - sim
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name as used in configuration files.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "euclidean", "":
		return MetricL2, nil
	case "cosine", "cos":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", s)
	}
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	return m == MetricL2 || m == MetricCosine
}

// Embed maps v into the Euclidean space indexes search in.
// For MetricL2 it returns a copy of v; for MetricCosine the unit-normalized
// copy (a zero vector stays zero).
func (m Metric) Embed(v []float32) []float32 {
	if m == MetricCosine {
		if n, ok := NormalizeL2Copy(v); ok {
			return n
		}
	}
	return slices.Clone(v)
}

// FromEmbedded converts a Euclidean distance between embedded vectors into
// the metric's distance. For cosine, |a-b|² = 2(1-cos) on the unit sphere.
func (m Metric) FromEmbedded(d float64) float64 {
	if m == MetricCosine {
		return d * d / 2
	}
	return d
}

// ToEmbedded is the inverse of FromEmbedded.
func (m Metric) ToEmbedded(d float64) float64 {
	if m == MetricCosine {
		if d <= 0 {
			return 0
		}
		return math.Sqrt(2 * d)
	}
	return d
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return Euclidean, nil
	case MetricCosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unsupported metric for float32: %v", m)
	}
}
