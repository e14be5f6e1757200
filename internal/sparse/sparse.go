// Package sparse provides a sparse set of small integers.
//
// A sparse set supports O(1) insertion, membership testing and clearing while
// keeping a dense list of members in insertion order. The engine uses it to
// record which element positions of a conjunction have matched.
package sparse

// SparseSet is a set of uint32 values below a fixed capacity.
// The sparse array maps values to indices in the dense array.
type SparseSet struct {
	sparse []uint32 // value -> index in dense
	dense  []uint32
}

// NewSparseSet creates a set able to hold values in [0, capacity).
func NewSparseSet(capacity uint32) *SparseSet {
	return &SparseSet{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Capacity returns the exclusive upper bound of storable values.
func (s *SparseSet) Capacity() int {
	return len(s.sparse)
}

// Insert adds value and reports whether it was absent.
// Panics if value >= capacity.
func (s *SparseSet) Insert(value uint32) bool {
	if s.Contains(value) {
		return false
	}
	//nolint:gosec // G115: dense never exceeds capacity, which is a uint32
	s.sparse[value] = uint32(len(s.dense))
	s.dense = append(s.dense, value)
	return true
}

// Contains returns true if the value is in the set
func (s *SparseSet) Contains(value uint32) bool {
	if int(value) >= len(s.sparse) {
		return false
	}
	idx := s.sparse[value]
	return int(idx) < len(s.dense) && s.dense[idx] == value
}

// Remove deletes value if present. The last member takes its dense slot.
func (s *SparseSet) Remove(value uint32) {
	if !s.Contains(value) {
		return
	}
	idx := s.sparse[value]
	last := s.dense[len(s.dense)-1]
	s.dense[idx] = last
	s.sparse[last] = idx
	s.dense = s.dense[:len(s.dense)-1]
}

// Clear removes all elements in O(1)
func (s *SparseSet) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of elements in the set
func (s *SparseSet) Len() int {
	return len(s.dense)
}

// IsEmpty returns true if the set contains no elements
func (s *SparseSet) IsEmpty() bool {
	return len(s.dense) == 0
}

// Values returns the members in insertion order (until the first Remove).
// The returned slice is valid until the next mutation.
func (s *SparseSet) Values() []uint32 {
	return s.dense
}

// Clone returns an independent copy. Both backing arrays are copied, so
// mutating either set never affects the other.
func (s *SparseSet) Clone() *SparseSet {
	c := &SparseSet{
		sparse: make([]uint32, len(s.sparse)),
		dense:  make([]uint32, len(s.dense), cap(s.dense)),
	}
	copy(c.sparse, s.sparse)
	copy(c.dense, s.dense)
	return c
}
