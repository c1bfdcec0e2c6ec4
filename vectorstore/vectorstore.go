// Package vectorstore provides the canonical vector memory owner used by the
// index implementations.
//
// Stores are sized once at creation for a fixed capacity and dimension; they
// never grow. Slot ids are dense, assigned by the caller in insertion order.
package vectorstore

import "errors"

var (
	// ErrWrongDimension is returned when a vector doesn't match the store dimension.
	ErrWrongDimension = errors.New("wrong vector dimension")

	// ErrSlotOutOfRange is returned when a slot id is outside the fixed capacity.
	ErrSlotOutOfRange = errors.New("slot id out of range")
)

// Store is the canonical storage for vectors.
//
// Implementations must treat the configured dimension as authoritative.
// Returned slices may alias internal memory unless the implementation
// documents otherwise. Concurrent reads are safe; writes require external
// synchronization.
type Store interface {
	// Dimension returns the vector dimensionality.
	Dimension() int

	// Capacity returns the fixed number of slots.
	Capacity() int

	// Count returns the number of populated slots.
	Count() int

	// Set writes v into the given slot. Slots must be filled densely in
	// increasing order.
	Set(id uint32, v []float32) error

	// Get returns the vector in the given slot, or false if unpopulated.
	Get(id uint32) ([]float32, bool)

	// Reset unpopulates all slots, keeping the backing memory.
	Reset()
}

// Precision selects the storage representation.
type Precision int

const (
	// PrecisionFull stores float32 components verbatim.
	PrecisionFull Precision = iota
	// PrecisionHalf stores float16 components, halving memory at a small
	// accuracy cost.
	PrecisionHalf
)

func (p Precision) String() string {
	switch p {
	case PrecisionFull:
		return "float32"
	case PrecisionHalf:
		return "float16"
	default:
		return "unknown"
	}
}

// New creates a store of the given precision.
func New(precision Precision, dimension, capacity int) (Store, error) {
	switch precision {
	case PrecisionFull:
		return NewDense(dimension, capacity), nil
	case PrecisionHalf:
		return NewHalf(dimension, capacity), nil
	default:
		return nil, errors.New("unsupported precision")
	}
}
