// Package simd provides the low-level distance kernels used by the index
// implementations. Kernels are selected once at package init: the CPU is
// probed for SIMD capabilities (AVX2/AVX-512 on amd64, NEON/SVE2 on arm64)
// and the best available implementation is installed behind function
// pointers, so the hot path pays no dispatch cost.
//
// The selection can be forced with the VEKTOR_SIMD environment variable
// ("generic", "neon", "sve2", "avx2", "avx512"). An override naming an ISA
// the CPU does not support falls back to auto-detection.
//
// In addition to the generic kernels, the package carries squared-L2 kernels
// specialized for the embedding dimensions that dominate real workloads
// (128, 256, 384, 512, 768). These run fixed-trip-count loops sized to the
// active register width, which the compiler unrolls and vectorizes far
// better than the variable-length generic loop.
package simd
