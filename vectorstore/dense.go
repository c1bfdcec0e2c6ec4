package vectorstore

// Dense is a columnar float32 store. Vectors live contiguously in a single
// slice, so vector i is data[i*dim : (i+1)*dim]; sequential scans and the
// batch distance kernels get full cache locality out of the layout.
//
// All memory is allocated once at creation. Get returns a slice aliasing the
// backing array.
type Dense struct {
	dim   int
	count int
	data  []float32
}

// NewDense creates a full-precision store for capacity vectors.
func NewDense(dimension, capacity int) *Dense {
	return &Dense{
		dim:  dimension,
		data: make([]float32, dimension*capacity),
	}
}

// Dimension returns the vector dimensionality.
func (s *Dense) Dimension() int { return s.dim }

// Capacity returns the fixed number of slots.
func (s *Dense) Capacity() int { return len(s.data) / s.dim }

// Count returns the number of populated slots.
func (s *Dense) Count() int { return s.count }

// Set writes v into the given slot.
func (s *Dense) Set(id uint32, v []float32) error {
	if len(v) != s.dim {
		return ErrWrongDimension
	}
	offset := int(id) * s.dim
	if offset+s.dim > len(s.data) {
		return ErrSlotOutOfRange
	}
	copy(s.data[offset:offset+s.dim], v)
	if int(id) >= s.count {
		s.count = int(id) + 1
	}
	return nil
}

// Get returns the vector in the given slot. The returned slice aliases the
// store's memory; callers must not mutate it.
func (s *Dense) Get(id uint32) ([]float32, bool) {
	if int(id) >= s.count {
		return nil, false
	}
	offset := int(id) * s.dim
	return s.data[offset : offset+s.dim : offset+s.dim], true
}

// Rows exposes the populated region as one contiguous slice of count*dim
// floats, in slot order. Valid until the next Set or Reset.
func (s *Dense) Rows() []float32 {
	return s.data[:s.count*s.dim]
}

// Reset unpopulates all slots, keeping the backing memory.
func (s *Dense) Reset() {
	clear(s.data[:s.count*s.dim])
	s.count = 0
}
