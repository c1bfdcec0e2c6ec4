package simd

import "math/bits"

// Kernel function pointers - set once by installKernels during init,
// zero dispatch overhead afterwards.
var (
	kernelDot            = dotGeneric
	kernelSquaredL2      = squaredL2Generic
	kernelSquaredL2Batch = squaredL2BatchGeneric
	kernelDotBatch       = dotBatchGeneric
	kernelHamming        = hammingGeneric
)

// installKernels wires the best implementations for the active ISA.
// Called from initCapabilities after CPU detection.
func installKernels() {
	if activeISA == Generic {
		return
	}
	// Any vector ISA: the unrolled bodies keep 4 independent accumulator
	// chains, which the compiler maps onto vector registers.
	kernelDot = dotUnrolled
	kernelSquaredL2 = squaredL2Unrolled
	kernelHamming = hammingUnrolled
}

// ============================================================================
// Public API - dispatch through function pointers
// ============================================================================

// Dot calculates the dot product of two vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func Dot(a, b []float32) float32 {
	return kernelDot(a, b)
}

// SquaredL2 calculates the squared L2 distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return kernelSquaredL2(a, b)
}

// SquaredL2Batch calculates squared L2 distances between query and n
// contiguous dim-sized vectors in targets, writing one distance per out slot.
func SquaredL2Batch(query []float32, targets []float32, dim int, out []float32) {
	kernelSquaredL2Batch(query, targets, dim, out)
}

// DotBatch calculates dot products for a batch of contiguous vectors.
func DotBatch(query []float32, targets []float32, dim int, out []float32) {
	kernelDotBatch(query, targets, dim, out)
}

// Hamming counts differing bits between two packed bit vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func Hamming(a, b []uint64) int {
	return kernelHamming(a, b)
}

// SquaredL2Bounded computes squared L2 distance with early exit once the
// partial sum exceeds bound. Returns (distance, exceeded). The check runs
// every 64 dimensions, cheap enough to keep and frequent enough to matter
// on wide embeddings.
func SquaredL2Bounded(a, b []float32, bound float32) (float32, bool) {
	var distance float32
	n := len(a)

	i := 0
	for ; i+64 <= n; i += 64 {
		for j := i; j < i+64; j += 8 {
			d0 := a[j] - b[j]
			d1 := a[j+1] - b[j+1]
			d2 := a[j+2] - b[j+2]
			d3 := a[j+3] - b[j+3]
			d4 := a[j+4] - b[j+4]
			d5 := a[j+5] - b[j+5]
			d6 := a[j+6] - b[j+6]
			d7 := a[j+7] - b[j+7]
			distance += d0*d0 + d1*d1 + d2*d2 + d3*d3 + d4*d4 + d5*d5 + d6*d6 + d7*d7
		}
		if distance > bound {
			return distance, true
		}
	}

	for ; i < n; i++ {
		d := a[i] - b[i]
		distance += d * d
	}

	return distance, distance > bound
}

// ============================================================================
// Generic implementations (pure Go fallbacks)
// ============================================================================

func dotGeneric(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

func squaredL2Generic(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

func hammingGeneric(a, b []uint64) int {
	total := 0
	for i := range a {
		total += bits.OnesCount64(a[i] ^ b[i])
	}
	return total
}

func squaredL2BatchGeneric(query []float32, targets []float32, dim int, out []float32) {
	if dim <= 0 || len(out) == 0 || len(query) < dim {
		return
	}
	q := query[:dim]
	kernel := ForDimension(dim)
	n := min(len(out), len(targets)/dim)
	for i := 0; i < n; i++ {
		offset := i * dim
		out[i] = kernel(q, targets[offset:offset+dim])
	}
}

func dotBatchGeneric(query []float32, targets []float32, dim int, out []float32) {
	if dim <= 0 || len(out) == 0 || len(query) < dim {
		return
	}
	q := query[:dim]
	n := min(len(out), len(targets)/dim)
	for i := 0; i < n; i++ {
		offset := i * dim
		out[i] = kernelDot(q, targets[offset:offset+dim])
	}
}

// ============================================================================
// Unrolled implementations - 4 accumulator chains, 8 elements per trip
// ============================================================================

func dotUnrolled(a, b []float32) float32 {
	var acc0, acc1, acc2, acc3 float32
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		acc0 += a[i]*b[i] + a[i+4]*b[i+4]
		acc1 += a[i+1]*b[i+1] + a[i+5]*b[i+5]
		acc2 += a[i+2]*b[i+2] + a[i+6]*b[i+6]
		acc3 += a[i+3]*b[i+3] + a[i+7]*b[i+7]
	}
	ret := acc0 + acc1 + acc2 + acc3
	for ; i < n; i++ {
		ret += a[i] * b[i]
	}
	return ret
}

func squaredL2Unrolled(a, b []float32) float32 {
	var acc0, acc1, acc2, acc3 float32
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		d4 := a[i+4] - b[i+4]
		d5 := a[i+5] - b[i+5]
		d6 := a[i+6] - b[i+6]
		d7 := a[i+7] - b[i+7]
		acc0 += d0*d0 + d4*d4
		acc1 += d1*d1 + d5*d5
		acc2 += d2*d2 + d6*d6
		acc3 += d3*d3 + d7*d7
	}
	distance := acc0 + acc1 + acc2 + acc3
	for ; i < n; i++ {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

func hammingUnrolled(a, b []uint64) int {
	var c0, c1, c2, c3 int
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		c0 += bits.OnesCount64(a[i] ^ b[i])
		c1 += bits.OnesCount64(a[i+1] ^ b[i+1])
		c2 += bits.OnesCount64(a[i+2] ^ b[i+2])
		c3 += bits.OnesCount64(a[i+3] ^ b[i+3])
	}
	total := c0 + c1 + c2 + c3
	for ; i < n; i++ {
		total += bits.OnesCount64(a[i] ^ b[i])
	}
	return total
}
