// Package sparse provides a sparse set of small integers with O(1) clear.
//
// The step engine uses it as the per-feed record of quantifier indices that
// were already entered: the set is cleared at the start of every token feed,
// which must not cost time proportional to the number of quantifiers.
package sparse

// SparseSet is a set of uint32 values drawn from [0, capacity).
// It keeps a sparse array (value -> dense position) for membership tests and
// a dense array for iteration in insertion order.
type SparseSet struct {
	sparse []uint32
	dense  []uint32
}

// NewSparseSet creates a set able to hold values in [0, capacity).
func NewSparseSet(capacity uint32) *SparseSet {
	return &SparseSet{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Insert adds value to the set. Inserting a present value is a no-op.
// Panics if value >= capacity.
func (s *SparseSet) Insert(value uint32) {
	if s.Contains(value) {
		return
	}
	//nolint:gosec // G115: dense never grows past capacity
	s.sparse[value] = uint32(len(s.dense))
	s.dense = append(s.dense, value)
}

// Contains reports whether value is in the set.
// Values outside the capacity are never members.
func (s *SparseSet) Contains(value uint32) bool {
	if uint64(value) >= uint64(len(s.sparse)) {
		return false
	}
	idx := s.sparse[value]
	return int(idx) < len(s.dense) && s.dense[idx] == value
}

// Clear removes every element in O(1).
func (s *SparseSet) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of elements.
func (s *SparseSet) Len() int {
	return len(s.dense)
}

// Cap returns the exclusive upper bound of storable values.
func (s *SparseSet) Cap() int {
	return len(s.sparse)
}

// Values returns the elements in insertion order.
// The returned slice is valid until the next mutation.
func (s *SparseSet) Values() []uint32 {
	return s.dense
}
