package distance

import (
	"math"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}

	if got := SquaredL2(a, b); got != 25 {
		t.Errorf("SquaredL2 = %v, want 25", got)
	}
	if got := SquaredL2(a, a); got != 0 {
		t.Errorf("SquaredL2 self = %v, want 0", got)
	}
}

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	if got := Dot(a, b); got != 32 {
		t.Errorf("Dot = %v, want 32", got)
	}
}

func TestNorm(t *testing.T) {
	if got := Norm([]float32{3, 4}); got != 5 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	if !NormalizeL2InPlace(v) {
		t.Fatal("NormalizeL2InPlace returned false")
	}
	if math.Abs(float64(Norm(v))-1) > 1e-6 {
		t.Errorf("norm after normalize = %v", Norm(v))
	}

	if NormalizeL2InPlace([]float32{0, 0}) {
		t.Error("zero vector normalized")
	}
	if NormalizeL2InPlace(nil) {
		t.Error("nil vector normalized")
	}

	src := []float32{1, 1}
	cp, ok := NormalizeL2Copy(src)
	if !ok {
		t.Fatal("NormalizeL2Copy returned false")
	}
	if src[0] != 1 {
		t.Error("NormalizeL2Copy mutated source")
	}
	if math.Abs(float64(Norm(cp))-1) > 1e-6 {
		t.Errorf("copy norm = %v", Norm(cp))
	}
}

func TestHamming(t *testing.T) {
	a := []uint64{0b1010, 0}
	b := []uint64{0b0110, 1}

	if got := Hamming(a, b); got != 3 {
		t.Errorf("Hamming = %d, want 3", got)
	}
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricL2, 128)
	if err != nil {
		t.Fatalf("Provider(MetricL2): %v", err)
	}
	a := make([]float32, 128)
	b := make([]float32, 128)
	a[0] = 2
	if got := fn(a, b); got != 4 {
		t.Errorf("L2 provider = %v, want 4", got)
	}

	fn, err = Provider(MetricDot, 3)
	if err != nil {
		t.Fatalf("Provider(MetricDot): %v", err)
	}
	if got := fn([]float32{1, 0, 0}, []float32{1, 0, 0}); got != -1 {
		t.Errorf("Dot provider = %v, want -1", got)
	}

	if _, err := Provider(Metric(99), 3); err == nil {
		t.Error("unknown metric accepted")
	}
}
