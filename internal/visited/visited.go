// Package visited tracks which nodes a traversal has already expanded.
package visited

// Set is a bitset with a dirty list for O(visited) reset. Sized once for a
// fixed node capacity; ids past the capacity are a caller bug.
type Set struct {
	bits  []uint64
	dirty []uint32
}

// New creates a set for node ids in [0, capacity).
func New(capacity int) *Set {
	return &Set{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]uint32, 0, 128),
	}
}

// Visit marks a node as visited.
func (v *Set) Visit(id uint32) {
	wordIdx := id >> 6
	bitMask := uint64(1) << (id & 63)
	if v.bits[wordIdx]&bitMask == 0 {
		v.bits[wordIdx] |= bitMask
		v.dirty = append(v.dirty, id)
	}
}

// Visited returns true if the node has been visited since the last Reset.
func (v *Set) Visited(id uint32) bool {
	return v.bits[id>>6]&(uint64(1)<<(id&63)) != 0
}

// Reset clears only the bits touched since the previous Reset.
func (v *Set) Reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

// Capacity returns the number of node ids the set can hold.
func (v *Set) Capacity() int {
	return len(v.bits) * 64
}
