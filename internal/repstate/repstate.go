// Package repstate implements the persistent map from quantifier index to the
// repetition bounds still owed by a match branch.
//
// A Map is an immutable balanced binary search tree. Set returns a new version
// that shares every untouched subtree with its predecessor (path copying), so
// forking a branch is a struct copy and every older version stays valid.
// The key set is fixed when the map is built; the tree shape never changes.
package repstate

import (
	"fmt"
	"iter"
	"strings"
)

// Unbounded marks a repetition without an upper limit.
const Unbounded = -1

// Bounds is the remaining repetition requirement for one quantifier:
// at least Min more iterations, at most Max more (Unbounded for no limit).
type Bounds struct {
	Min int
	Max int
}

// Next returns the bounds after one more iteration has started.
// Both bounds are decremented and floored at zero; Unbounded stays Unbounded.
func (b Bounds) Next() Bounds {
	if b.Min > 0 {
		b.Min--
	}
	if b.Max > 0 {
		b.Max--
	}
	return b
}

// Exhausted reports whether no further iteration is permitted.
func (b Bounds) Exhausted() bool {
	return b.Max == 0
}

// String renders the bounds in quantifier notation, e.g. "{1,}".
func (b Bounds) String() string {
	if b.Max == Unbounded {
		return fmt.Sprintf("{%d,}", b.Min)
	}
	return fmt.Sprintf("{%d,%d}", b.Min, b.Max)
}

type node struct {
	key         int
	bounds      Bounds
	left, right *node
}

// Map is a persistent map from quantifier index to Bounds.
// The zero Map is empty.
type Map struct {
	root *node
	size int
}

// New builds a map holding table[i] under key i.
// The tree is perfectly balanced and built in O(len(table)).
func New(table []Bounds) Map {
	return Map{root: build(table, 0, len(table)), size: len(table)}
}

func build(table []Bounds, lo, hi int) *node {
	if lo >= hi {
		return nil
	}
	mid := lo + (hi-lo)/2
	return &node{
		key:    mid,
		bounds: table[mid],
		left:   build(table, lo, mid),
		right:  build(table, mid+1, hi),
	}
}

// Len returns the number of keys.
func (m Map) Len() int {
	return m.size
}

// Get returns the bounds stored under key i.
// The second result is false if i is not a key of the map.
func (m Map) Get(i int) (Bounds, bool) {
	n := m.root
	for n != nil {
		switch {
		case i < n.key:
			n = n.left
		case i > n.key:
			n = n.right
		default:
			return n.bounds, true
		}
	}
	return Bounds{}, false
}

// Set returns a new version of the map with key i bound to b.
// The receiver is not modified. Set panics if i is not a key of the map:
// the key set is fixed at construction.
func (m Map) Set(i int, b Bounds) Map {
	return Map{root: set(m.root, i, b), size: m.size}
}

func set(n *node, i int, b Bounds) *node {
	if n == nil {
		panic(fmt.Sprintf("repstate: unknown quantifier index %d", i))
	}
	cp := *n
	switch {
	case i < n.key:
		cp.left = set(n.left, i, b)
	case i > n.key:
		cp.right = set(n.right, i, b)
	default:
		cp.bounds = b
	}
	return &cp
}

// All yields every (index, bounds) pair in ascending index order.
func (m Map) All() iter.Seq2[int, Bounds] {
	return func(yield func(int, Bounds) bool) {
		walk(m.root, yield)
	}
}

func walk(n *node, yield func(int, Bounds) bool) bool {
	if n == nil {
		return true
	}
	return walk(n.left, yield) && yield(n.key, n.bounds) && walk(n.right, yield)
}

// String renders the map as "[0:{1,2} 1:{0,}]".
func (m Map) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	for k, b := range m.All() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&sb, "%d:%s", k, b)
	}
	sb.WriteByte(']')
	return sb.String()
}
