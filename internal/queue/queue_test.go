package queue

import (
	"math/rand"
	"sort"
	"testing"
)

func TestMinHeapOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pq := NewMin(16)

	n := 200
	dists := make([]float32, n)
	for i := range dists {
		dists[i] = rng.Float32()
		pq.Push(Item{Node: uint32(i), Distance: dists[i]})
	}

	sort.Slice(dists, func(i, j int) bool { return dists[i] < dists[j] })

	for i := 0; i < n; i++ {
		item, ok := pq.Pop()
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if item.Distance != dists[i] {
			t.Fatalf("pop %d: got %v want %v", i, item.Distance, dists[i])
		}
	}
	if _, ok := pq.Pop(); ok {
		t.Fatal("pop on empty queue returned ok")
	}
}

func TestMaxHeapOrder(t *testing.T) {
	pq := NewMax(4)
	for _, d := range []float32{0.5, 0.1, 0.9, 0.3} {
		pq.Push(Item{Distance: d})
	}

	want := []float32{0.9, 0.5, 0.3, 0.1}
	for i, w := range want {
		item, _ := pq.Pop()
		if item.Distance != w {
			t.Fatalf("pop %d: got %v want %v", i, item.Distance, w)
		}
	}
}

func TestMinOnMaxHeap(t *testing.T) {
	pq := NewMax(4)
	pq.Push(Item{Node: 1, Distance: 0.5})
	pq.Push(Item{Node: 2, Distance: 0.1})
	pq.Push(Item{Node: 3, Distance: 0.9})

	min, ok := pq.Min()
	if !ok || min.Node != 2 {
		t.Fatalf("Min = %+v, %v; want node 2", min, ok)
	}
}

func TestReset(t *testing.T) {
	pq := NewMin(4)
	pq.Push(Item{Distance: 1})
	pq.Push(Item{Distance: 2})
	pq.Reset()

	if pq.Len() != 0 {
		t.Fatalf("Len after Reset = %d", pq.Len())
	}
	if _, ok := pq.Top(); ok {
		t.Fatal("Top after Reset returned ok")
	}
}
