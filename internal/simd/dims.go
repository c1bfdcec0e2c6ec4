package simd

// Dimension-specialized squared-L2 kernels. The reslice up front pins the
// length, so the constant-bound loops run without bounds checks and the
// compiler is free to unroll the whole trip. The common embedding widths
// get their own entry points; everything else goes through the generic
// kernel.

// ForDimension returns the squared-L2 kernel specialized for dim, falling
// back to the generic kernel when no specialization exists.
func ForDimension(dim int) func(a, b []float32) float32 {
	switch dim {
	case 128:
		return squaredL2Dim128
	case 256:
		return squaredL2Dim256
	case 384:
		return squaredL2Dim384
	case 512:
		return squaredL2Dim512
	case 768:
		return squaredL2Dim768
	default:
		return kernelSquaredL2
	}
}

func squaredL2Dim128(a, b []float32) float32 {
	a = a[:128]
	b = b[:128]
	var acc0, acc1, acc2, acc3 float32
	for i := 0; i < 128; i += 8 {
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
	return acc0 + acc1 + acc2 + acc3
}

func squaredL2Dim256(a, b []float32) float32 {
	a = a[:256]
	b = b[:256]
	var acc0, acc1, acc2, acc3 float32
	for i := 0; i < 256; i += 8 {
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
	return acc0 + acc1 + acc2 + acc3
}

func squaredL2Dim384(a, b []float32) float32 {
	a = a[:384]
	b = b[:384]
	var acc0, acc1, acc2, acc3 float32
	for i := 0; i < 384; i += 8 {
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
	return acc0 + acc1 + acc2 + acc3
}

func squaredL2Dim512(a, b []float32) float32 {
	a = a[:512]
	b = b[:512]
	var acc0, acc1, acc2, acc3 float32
	for i := 0; i < 512; i += 8 {
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
	return acc0 + acc1 + acc2 + acc3
}

func squaredL2Dim768(a, b []float32) float32 {
	a = a[:768]
	b = b[:768]
	var acc0, acc1, acc2, acc3 float32
	for i := 0; i < 768; i += 8 {
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
	return acc0 + acc1 + acc2 + acc3
}
