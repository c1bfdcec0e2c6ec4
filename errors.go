package vektor

import (
	"errors"
	"fmt"

	"github.com/vektordb/vektor/index"
)

// ErrNotFound is returned when a node id has no stored vector.
var ErrNotFound = errors.New("vektor: not found")

// ErrInvalidDimension is returned when a collection is created with a
// non-positive dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("vektor: invalid dimension %d, must be positive", e.Dimension)
}

// ErrInvalidCapacity is returned when a collection is created with a
// non-positive capacity.
type ErrInvalidCapacity struct {
	Capacity int
}

func (e *ErrInvalidCapacity) Error() string {
	return fmt.Sprintf("vektor: invalid capacity %d, must be positive", e.Capacity)
}

// ErrBatchMismatch is returned when InsertBatch receives id and vector
// slices of different lengths.
type ErrBatchMismatch struct {
	IDs     int
	Vectors int
}

func (e *ErrBatchMismatch) Error() string {
	return fmt.Sprintf("vektor: batch mismatch: %d ids, %d vectors", e.IDs, e.Vectors)
}

// Index error types surface unchanged through the collection API.
type (
	ErrDimensionMismatch = index.ErrDimensionMismatch
	ErrCapacityExceeded  = index.ErrCapacityExceeded
	ErrInvalidComponent  = index.ErrInvalidComponent
	ErrInvalidK          = index.ErrInvalidK
)
