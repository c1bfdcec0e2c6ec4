package testutil

import (
	"math"
	"testing"
)

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(1).UniformVectors(3, 8)
	b := NewRNG(1).UniformVectors(3, 8)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("vectors diverge at [%d][%d]", i, j)
			}
		}
	}

	r := NewRNG(2)
	first := r.UniformVectors(1, 4)
	r.Reset()
	second := r.UniformVectors(1, 4)
	for j := range first[0] {
		if first[0][j] != second[0][j] {
			t.Fatal("Reset did not rewind the generator")
		}
	}
}

func TestUnitVectorsAreNormalized(t *testing.T) {
	vectors := NewRNG(3).UnitVectors(10, 32)
	for i, v := range vectors {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(norm-1) > 1e-4 {
			t.Fatalf("vector %d has squared norm %f", i, norm)
		}
	}
}

func TestBruteForceSearch(t *testing.T) {
	vectors := [][]float32{
		{0, 0},
		{3, 0},
		{1, 0},
	}
	res := BruteForceSearch(vectors, []float32{0.9, 0}, 2)
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].ID != 2 || res[1].ID != 0 {
		t.Fatalf("wrong order: %+v", res)
	}
}

func TestComputeRecall(t *testing.T) {
	truth := []SearchResult{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	if got := ComputeRecall(truth, []uint32{1, 2, 3, 4}); got != 1.0 {
		t.Fatalf("full match recall = %f", got)
	}
	if got := ComputeRecall(truth, []uint32{1, 2, 9, 9}); got != 0.5 {
		t.Fatalf("half match recall = %f", got)
	}
	if got := ComputeRecall(nil, []uint32{1}); got != 1.0 {
		t.Fatalf("empty truth recall = %f", got)
	}
}
