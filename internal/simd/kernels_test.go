package simd

import (
	"math"
	"math/rand"
	"testing"
)

func refSquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func refDot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func almostEqual(got float32, want float64, n int) bool {
	// float32 accumulation order differs between kernels; allow relative
	// error proportional to the reduction length.
	tol := 1e-4 * math.Max(1, want) * math.Sqrt(float64(n))
	return math.Abs(float64(got)-want) <= tol
}

func TestSquaredL2MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 7, 8, 15, 64, 100, 128, 256, 384, 512, 768, 1000} {
		a := randVec(rng, n)
		b := randVec(rng, n)
		want := refSquaredL2(a, b)

		if got := SquaredL2(a, b); !almostEqual(got, want, n) {
			t.Errorf("SquaredL2 n=%d: got %v want %v", n, got, want)
		}
		if got := squaredL2Generic(a, b); !almostEqual(got, want, n) {
			t.Errorf("squaredL2Generic n=%d: got %v want %v", n, got, want)
		}
		if got := squaredL2Unrolled(a, b); !almostEqual(got, want, n) {
			t.Errorf("squaredL2Unrolled n=%d: got %v want %v", n, got, want)
		}
		if got := ForDimension(n)(a, b); !almostEqual(got, want, n) {
			t.Errorf("ForDimension(%d): got %v want %v", n, got, want)
		}
	}
}

func TestDotMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, n := range []int{1, 8, 33, 128, 768} {
		a := randVec(rng, n)
		b := randVec(rng, n)
		want := refDot(a, b)

		if got := Dot(a, b); !almostEqual(got, want, n) {
			t.Errorf("Dot n=%d: got %v want %v", n, got, want)
		}
		if got := dotUnrolled(a, b); !almostEqual(got, want, n) {
			t.Errorf("dotUnrolled n=%d: got %v want %v", n, got, want)
		}
	}
}

func TestSquaredL2Batch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	dim := 128
	n := 9
	query := randVec(rng, dim)
	targets := randVec(rng, dim*n)
	out := make([]float32, n)

	SquaredL2Batch(query, targets, dim, out)

	for i := 0; i < n; i++ {
		want := refSquaredL2(query, targets[i*dim:(i+1)*dim])
		if !almostEqual(out[i], want, dim) {
			t.Errorf("batch row %d: got %v want %v", i, out[i], want)
		}
	}
}

func TestHamming(t *testing.T) {
	a := []uint64{0, ^uint64(0), 0xAAAAAAAAAAAAAAAA, 1}
	b := []uint64{0, 0, 0x5555555555555555, 0}

	want := 0 + 64 + 64 + 1
	if got := Hamming(a, b); got != want {
		t.Errorf("Hamming: got %d want %d", got, want)
	}
	if got := hammingGeneric(a, b); got != want {
		t.Errorf("hammingGeneric: got %d want %d", got, want)
	}
	if got := hammingUnrolled(a, b); got != want {
		t.Errorf("hammingUnrolled: got %d want %d", got, want)
	}
	if got := Hamming(a, a); got != 0 {
		t.Errorf("Hamming self: got %d want 0", got)
	}
}

func TestSquaredL2Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := randVec(rng, 768)
	b := randVec(rng, 768)
	full := SquaredL2(a, b)

	d, exceeded := SquaredL2Bounded(a, b, full*2)
	if exceeded {
		t.Errorf("bound %v not exceeded by %v but flagged", full*2, d)
	}
	if !almostEqual(d, float64(full), 768) {
		t.Errorf("bounded distance %v differs from full %v", d, full)
	}

	if _, exceeded := SquaredL2Bounded(a, b, full/100); !exceeded {
		t.Error("tight bound not flagged as exceeded")
	}
}

func TestParseISA(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ISA
		ok   bool
	}{
		{"generic", Generic, true},
		{" AVX2 ", AVX2, true},
		{"avx512", AVX512, true},
		{"neon", NEON, true},
		{"sve2", SVE2, true},
		{"pentium", Generic, false},
	} {
		got, ok := ParseISA(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseISA(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func BenchmarkSquaredL2Dim128(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	x := randVec(rng, 128)
	y := randVec(rng, 128)
	kernel := ForDimension(128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = kernel(x, y)
	}
}

func BenchmarkSquaredL2Generic128(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	x := randVec(rng, 128)
	y := randVec(rng, 128)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = squaredL2Generic(x, y)
	}
}
