// Package quantization provides vector quantization for memory-efficient
// candidate scoring.
package quantization

import (
	"fmt"
	"math"
	"slices"

	"github.com/vektordb/vektor/internal/simd"
)

// ThresholdPolicy selects how the per-vector bit threshold is derived.
type ThresholdPolicy int

const (
	// ThresholdZero uses sign-based quantization: component >= 0 becomes 1.
	// The right choice for centered (e.g. L2-normalized) embeddings.
	ThresholdZero ThresholdPolicy = iota
	// ThresholdMean thresholds each vector at its own component mean.
	ThresholdMean
	// ThresholdMedian thresholds each vector at its component median,
	// producing balanced codes with roughly half the bits set.
	ThresholdMedian
)

func (p ThresholdPolicy) String() string {
	switch p {
	case ThresholdZero:
		return "zero"
	case ThresholdMean:
		return "mean"
	case ThresholdMedian:
		return "median"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// Code is the binary representation of a vector: one bit per dimension
// packed into ceil(dim/64) uint64 words, plus the L2 norm of the source
// vector. The norm scales Hamming distances so that codes of vectors with
// very different magnitudes remain comparable.
type Code struct {
	Words []uint64
	Norm  float32
}

// Words returns the number of uint64 words needed for dim dimensions.
func Words(dim int) int {
	return (dim + 63) / 64
}

// BinaryQuantizer compresses float32 vectors (4 bytes/dim) to single bits
// (32x smaller). Distances between codes are Hamming distances (XOR +
// POPCNT), roughly an order of magnitude cheaper than float L2. Accuracy
// loss is significant, so quantized scores are used for candidate ordering
// only and survivors are re-ranked with exact distances.
//
// The quantizer is stateless apart from its configuration; Encode derives
// the threshold per vector.
type BinaryQuantizer struct {
	dimension int
	policy    ThresholdPolicy
}

// NewBinaryQuantizer creates a binary quantizer for the given dimension.
func NewBinaryQuantizer(dimension int, policy ThresholdPolicy) *BinaryQuantizer {
	return &BinaryQuantizer{
		dimension: dimension,
		policy:    policy,
	}
}

// Dimension returns the expected vector dimension.
func (bq *BinaryQuantizer) Dimension() int {
	return bq.dimension
}

// Policy returns the configured threshold policy.
func (bq *BinaryQuantizer) Policy() ThresholdPolicy {
	return bq.policy
}

// Encode quantizes v into a fresh Code.
func (bq *BinaryQuantizer) Encode(v []float32) Code {
	code := Code{Words: make([]uint64, Words(len(v)))}
	bq.EncodeTo(v, &code)
	return code
}

// EncodeTo quantizes v into code, reusing code.Words when already sized.
func (bq *BinaryQuantizer) EncodeTo(v []float32, code *Code) {
	numWords := Words(len(v))
	if cap(code.Words) < numWords {
		code.Words = make([]uint64, numWords)
	} else {
		code.Words = code.Words[:numWords]
		clear(code.Words)
	}

	threshold := bq.threshold(v)
	for i, val := range v {
		if val >= threshold {
			code.Words[i>>6] |= 1 << (uint(i) & 63)
		}
	}
	code.Norm = float32(math.Sqrt(float64(simd.Dot(v, v))))
}

// EncodeBatch quantizes each vector, returning one code per input.
func (bq *BinaryQuantizer) EncodeBatch(vectors [][]float32) []Code {
	codes := make([]Code, len(vectors))
	for i, v := range vectors {
		bq.EncodeTo(v, &codes[i])
	}
	return codes
}

// Decode reconstructs a lossy float32 vector from a code. Bits map to the
// two representative values around the zero threshold, scaled so the result
// carries the stored norm.
func (bq *BinaryQuantizer) Decode(code Code) []float32 {
	decoded := make([]float32, bq.dimension)
	unit := code.Norm / float32(math.Sqrt(float64(bq.dimension)))
	if unit == 0 {
		unit = 1
	}
	for i := range decoded {
		if code.Words[i>>6]&(1<<(uint(i)&63)) != 0 {
			decoded[i] = unit
		} else {
			decoded[i] = -unit
		}
	}
	return decoded
}

// Distance returns the approximate distance between two codes: the Hamming
// distance scaled by the product of the source norms. Not a metric, but it
// preserves enough ordering for shortlist construction.
func Distance(a, b Code) float32 {
	return float32(simd.Hamming(a.Words, b.Words)) * a.Norm * b.Norm
}

// HammingDistance counts differing bits between two codes.
func HammingDistance(a, b Code) int {
	return simd.Hamming(a.Words, b.Words)
}

// CompressionRatio returns the compression ratio vs float32 storage.
func (bq *BinaryQuantizer) CompressionRatio() float32 {
	return 32.0
}

func (bq *BinaryQuantizer) threshold(v []float32) float32 {
	switch bq.policy {
	case ThresholdMean:
		if len(v) == 0 {
			return 0
		}
		var sum float64
		for _, val := range v {
			sum += float64(val)
		}
		return float32(sum / float64(len(v)))
	case ThresholdMedian:
		if len(v) == 0 {
			return 0
		}
		sorted := slices.Clone(v)
		slices.Sort(sorted)
		return sorted[len(sorted)/2]
	default:
		return 0
	}
}
