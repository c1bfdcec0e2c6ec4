// Package distance provides the public API for vector distance calculations.
// All functions route through the kernels in internal/simd, which are
// selected once at startup for the running CPU (AVX2/AVX-512 on x86-64,
// NEON/SVE2 on ARM64).
package distance

import (
	"fmt"
	"math"
	"slices"

	"github.com/vektordb/vektor/internal/simd"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two
// vectors. Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// SquaredL2Func returns the squared-L2 kernel for the given dimension.
// Common embedding widths (128, 256, 384, 512, 768) get specialized
// fixed-trip-count kernels; other dimensions use the generic one.
func SquaredL2Func(dim int) Func {
	return simd.ForDimension(dim)
}

// SquaredL2Batch computes squared L2 distances between query and n
// contiguous dim-sized rows of targets, one distance per out slot.
func SquaredL2Batch(query, targets []float32, dim int, out []float32) {
	simd.SquaredL2Batch(query, targets, dim, out)
}

// Hamming counts differing bits between two packed bit vectors.
// Assumes slices are the same length.
func Hamming(a, b []uint64) int {
	return simd.Hamming(a, b)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(simd.Dot(v, v))))
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := simd.Dot(v, v)
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
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric. For MetricL2
// the function is specialized to dim when a specialized kernel exists.
func Provider(m Metric, dim int) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2Func(dim), nil
	case MetricCosine, MetricDot:
		// Smaller dot product means less similar; negate so smaller is closer.
		return func(a, b []float32) float32 { return -simd.Dot(a, b) }, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
