// Package index provides the contracts shared by the vector index
// implementations.
package index

import (
	"fmt"
	"math"
)

// ErrDimensionMismatch reports a vector whose length differs from the index
// dimension.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrCapacityExceeded reports an insertion into a full index. Capacity is
// fixed at creation; the caller must build a larger index to grow.
type ErrCapacityExceeded struct {
	Capacity int // Fixed capacity the index was created with
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: index is full at %d vectors", e.Capacity)
}

// ErrInvalidComponent reports a NaN or infinite vector component. Such
// values poison distance comparisons, so they are rejected at insertion.
type ErrInvalidComponent struct {
	Index int     // Component position within the vector
	Value float32 // Offending value
}

func (e *ErrInvalidComponent) Error() string {
	return fmt.Sprintf("invalid vector component at index %d: %v", e.Index, e.Value)
}

// ErrInvalidK reports a non-positive neighbor count.
type ErrInvalidK struct {
	K int
}

func (e *ErrInvalidK) Error() string {
	return fmt.Sprintf("invalid k: %d (must be positive)", e.K)
}

// ValidateVector checks v against the expected dimension and rejects NaN and
// ±Inf components.
func ValidateVector(v []float32, dimension int) error {
	if len(v) != dimension {
		return &ErrDimensionMismatch{Expected: dimension, Actual: len(v)}
	}
	for i, val := range v {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return &ErrInvalidComponent{Index: i, Value: val}
		}
	}
	return nil
}

// SearchResult represents a single nearest-neighbor hit.
type SearchResult struct {
	// ID is the index-local identifier of the hit.
	ID uint32

	// Distance is the distance between the query vector and the hit.
	Distance float32
}

// FilterFunc restricts a search to ids for which it returns true.
// A nil filter admits everything.
type FilterFunc func(id uint32) bool

// Index is a vector search index over a fixed-capacity node pool.
type Index interface {
	// Insert adds a vector, returning its index-local id. Ids are dense
	// and assigned in insertion order.
	Insert(v []float32) (uint32, error)

	// KNNSearch returns the k nearest neighbors of q, closest first.
	// efSearch widens the candidate beam for graph indexes; exact indexes
	// ignore it.
	KNNSearch(q []float32, k int, efSearch int, filter FilterFunc) ([]SearchResult, error)

	// BruteSearch performs an exact linear scan, bypassing any graph.
	BruteSearch(q []float32, k int, filter FilterFunc) ([]SearchResult, error)

	// Count returns the number of stored vectors.
	Count() int

	// Capacity returns the fixed capacity.
	Capacity() int

	// Vector returns the stored vector for an id.
	Vector(id uint32) ([]float32, bool)

	// Reset removes all vectors, keeping the allocated pool for reuse.
	Reset()
}
