package matcher

import (
	"fmt"

	"github.com/coregx/spamex/internal/repstate"
)

// Builder constructs graphs incrementally. It is used by the Compiler.
type Builder struct {
	nodes []Node
}

// NewBuilder creates a new graph builder with default capacity
func NewBuilder() *Builder {
	return NewBuilderWithCapacity(16)
}

// NewBuilderWithCapacity creates a new graph builder with specified initial capacity
func NewBuilderWithCapacity(capacity int) *Builder {
	return &Builder{nodes: make([]Node, 0, capacity)}
}

func (b *Builder) add(n Node) NodeID {
	//nolint:gosec // G115: graph size is bounded by the compiler's recursion limit
	id := NodeID(len(b.nodes))
	n.id = id
	n.body = InvalidNode
	n.choice = InvalidNode
	b.nodes = append(b.nodes, n)
	return id
}

// AddTerm adds the success node.
func (b *Builder) AddTerm(global bool) NodeID {
	return b.add(Node{kind: KindTerm, next: InvalidNode, global: global})
}

// AddExpression adds a node offering alts in priority order.
// The slice is copied.
func (b *Builder) AddExpression(alts ...NodeID) NodeID {
	cp := make([]NodeID, len(alts))
	copy(cp, alts)
	return b.add(Node{kind: KindExpression, next: InvalidNode, alts: cp})
}

// AddRepeat adds a quantifier step for index. Its body and choice are set
// later with PatchRepeat, since the body loops back to the repeat itself.
func (b *Builder) AddRepeat(index int, greedy bool, next NodeID) NodeID {
	return b.add(Node{kind: KindRepeat, next: next, index: index, greedy: greedy})
}

// AddReset adds a node restoring the initial bounds of indices [lo, hi).
func (b *Builder) AddReset(lo, hi int, next NodeID) NodeID {
	return b.add(Node{kind: KindReset, next: next, index: lo, end: hi})
}

// AddMark adds a node recording where a match attempt begins.
func (b *Builder) AddMark(next NodeID) NodeID {
	return b.add(Node{kind: KindMark, next: next})
}

// AddGap adds a gap matcher.
func (b *Builder) AddGap(next NodeID) NodeID {
	return b.add(Node{kind: KindGap, next: next})
}

// AddOpen adds a node consuming the open tag of a node of type typ.
func (b *Builder) AddOpen(typ string, next NodeID) NodeID {
	return b.add(Node{kind: KindOpen, next: next, typ: typ})
}

// AddClose adds a node consuming a close tag.
func (b *Builder) AddClose(next NodeID) NodeID {
	return b.add(Node{kind: KindClose, next: next})
}

// AddAny adds a node consuming one token or one subtree.
func (b *Builder) AddAny(next NodeID) NodeID {
	return b.add(Node{kind: KindAny, next: next})
}

// AddDeepAny adds a node consuming any one token.
func (b *Builder) AddDeepAny(next NodeID) NodeID {
	return b.add(Node{kind: KindDeepAny, next: next})
}

// PatchRepeat sets the loop-again entry and the pre-built choice Expression
// of a Repeat node.
func (b *Builder) PatchRepeat(id, body, choice NodeID) error {
	if int(id) >= len(b.nodes) {
		return &BuildError{Message: "node ID out of bounds", NodeID: id}
	}
	n := &b.nodes[id]
	if n.kind != KindRepeat {
		return &BuildError{Message: fmt.Sprintf("expected Repeat node, got %s", n.kind), NodeID: id}
	}
	n.body = body
	n.choice = choice
	return nil
}

// Len returns the current number of nodes
func (b *Builder) Len() int {
	return len(b.nodes)
}

func (b *Builder) valid(id NodeID) bool {
	return int(id) < len(b.nodes)
}

// Validate checks that every reference points at an existing node and that
// every quantifier index is covered by bounds.
func (b *Builder) Validate(entry NodeID, bounds []repstate.Bounds) error {
	if !b.valid(entry) {
		return &BuildError{Message: "entry node out of bounds", NodeID: entry}
	}
	for i := range b.nodes {
		n := &b.nodes[i]
		switch n.kind {
		case KindTerm:
		case KindExpression:
			for j, a := range n.alts {
				if !b.valid(a) {
					return &BuildError{Message: fmt.Sprintf("invalid alternative %d target %d", j, a), NodeID: n.id}
				}
			}
		default:
			if !b.valid(n.next) {
				return &BuildError{Message: fmt.Sprintf("invalid next node %d", n.next), NodeID: n.id}
			}
		}
		switch n.kind {
		case KindRepeat:
			if !b.valid(n.body) || !b.valid(n.choice) {
				return &BuildError{Message: "repeat node not patched", NodeID: n.id}
			}
			if n.index < 0 || n.index >= len(bounds) {
				return &BuildError{Message: fmt.Sprintf("quantifier index %d out of range", n.index), NodeID: n.id}
			}
		case KindReset:
			if n.index < 0 || n.end > len(bounds) || n.index > n.end {
				return &BuildError{Message: fmt.Sprintf("reset range [%d,%d) out of range", n.index, n.end), NodeID: n.id}
			}
		}
	}
	return nil
}

// Build validates and returns the graph. The builder must not be used
// afterwards.
func (b *Builder) Build(entry NodeID, bounds []repstate.Bounds) (*Graph, error) {
	if err := b.Validate(entry, bounds); err != nil {
		return nil, err
	}
	cp := make([]repstate.Bounds, len(bounds))
	copy(cp, bounds)
	return &Graph{nodes: b.nodes, entry: entry, bounds: cp}, nil
}
