package vectorstore

import "github.com/x448/float16"

// Half is a columnar float16 store. Components are converted to IEEE 754
// half precision on write, halving memory versus Dense at a small accuracy
// cost. Good fit for normalized embeddings whose components sit well inside
// the float16 range.
type Half struct {
	dim   int
	count int
	bits  []uint16
}

// NewHalf creates a half-precision store for capacity vectors.
func NewHalf(dimension, capacity int) *Half {
	return &Half{
		dim:  dimension,
		bits: make([]uint16, dimension*capacity),
	}
}

// Dimension returns the vector dimensionality.
func (s *Half) Dimension() int { return s.dim }

// Capacity returns the fixed number of slots.
func (s *Half) Capacity() int { return len(s.bits) / s.dim }

// Count returns the number of populated slots.
func (s *Half) Count() int { return s.count }

// Set writes v into the given slot, rounding each component to float16.
func (s *Half) Set(id uint32, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}
	offset := int(id) * s.dim
	if offset+s.dim > len(s.bits) {
		return ErrSlotOutOfRange
	}
	for i, val := range v {
		s.bits[offset+i] = float16.Fromfloat32(val).Bits()
	}
	if int(id) >= s.count {
		s.count = int(id) + 1
	}
	return nil
}

// Get returns the vector in the given slot, materialized as float32. The
// returned slice is freshly allocated and owned by the caller.
func (s *Half) Get(id uint32) ([]float32, bool) {
	v := make([]float32, s.dim)
	if !s.GetInto(id, v) {
		return nil, false
	}
	return v, true
}

// GetInto decodes the vector in the given slot into dst, avoiding the
// allocation in Get. dst must have the store dimension.
func (s *Half) GetInto(id uint32, dst []float32) bool {
	if int(id) >= s.count || len(dst) != s.dim {
		return false
	}
	offset := int(id) * s.dim
	for i := range dst {
		dst[i] = float16.Frombits(s.bits[offset+i]).Float32()
	}
	return true
}

// Reset unpopulates all slots, keeping the backing memory.
func (s *Half) Reset() {
	clear(s.bits[:s.count*s.dim])
	s.count = 0
}
