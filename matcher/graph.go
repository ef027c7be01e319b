// Package matcher compiles spamex pattern syntax trees into matcher graphs
// and evaluates graph nodes against a stream of document tokens.
//
// A graph is an arena of nodes addressed by NodeID. Every node is either a
// continuation, which inspects the current step and names the node to go to
// next, or an Expression, which offers several continuations in priority
// order. Continuations have a width: width-1 nodes consume the current
// token, width-0 nodes are followed immediately. The only cycles in a graph
// run through Repeat nodes, which guard them with per-step bookkeeping.
package matcher

import (
	"fmt"
	"strings"

	"github.com/coregx/spamex/internal/repstate"
)

// NodeID addresses a node within a Graph.
type NodeID uint32

// InvalidNode is returned when a branch fails and marks unset references.
const InvalidNode NodeID = 0xFFFFFFFF

// Kind is the tag of a matcher node.
type Kind uint8

const (
	// KindTerm reports a successful match.
	KindTerm Kind = iota
	// KindExpression offers its alternatives in priority order.
	KindExpression
	// KindRepeat performs one quantifier iteration step.
	KindRepeat
	// KindReset restores the initial bounds of a range of quantifiers.
	KindReset
	// KindMark records the step at which a match attempt begins.
	KindMark
	// KindGap matches a gap. It currently passes through unchanged.
	KindGap
	// KindOpen consumes the open tag of a node with a matching type.
	KindOpen
	// KindClose consumes a close tag.
	KindClose
	// KindAny consumes one token, or one whole subtree when it starts at an
	// open tag. It never consumes the close tag of its enclosing node.
	KindAny
	// KindDeepAny consumes any one token.
	KindDeepAny
)

var kindNames = [...]string{
	KindTerm:       "Term",
	KindExpression: "Expression",
	KindRepeat:     "Repeat",
	KindReset:      "Reset",
	KindMark:       "Mark",
	KindGap:        "Gap",
	KindOpen:       "Open",
	KindClose:      "Close",
	KindAny:        "Any",
	KindDeepAny:    "DeepAny",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width returns the number of tokens a node of this kind consumes.
func (k Kind) Width() int {
	switch k {
	case KindOpen, KindClose, KindAny, KindDeepAny:
		return 1
	default:
		return 0
	}
}

// Node is one matcher in a Graph.
type Node struct {
	id     NodeID
	kind   Kind
	next   NodeID
	body   NodeID
	choice NodeID
	alts   []NodeID
	index  int
	end    int
	greedy bool
	typ    string
	global bool
}

func (n *Node) ID() NodeID { return n.id }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Width() int { return n.kind.Width() }
func (n *Node) Next() NodeID { return n.next }

// Alternatives returns the continuations of an Expression node, highest
// priority first. The slice must not be modified.
func (n *Node) Alternatives() []NodeID { return n.alts }

// Index returns the quantifier index of a Repeat node, or the first index
// of a Reset node's range.
func (n *Node) Index() int { return n.index }

// Type returns the type constraint of an Open node.
func (n *Node) Type() string { return n.typ }

// Greedy reports whether a Repeat node prefers another iteration over exiting.
func (n *Node) Greedy() bool { return n.greedy }

// Global reports whether a Term node belongs to a global pattern.
func (n *Node) Global() bool { return n.global }

func (n *Node) String() string {
	switch n.kind {
	case KindTerm:
		if n.global {
			return "Term(global)"
		}
		return "Term"
	case KindExpression:
		parts := make([]string, len(n.alts))
		for i, a := range n.alts {
			parts[i] = fmt.Sprintf("%d", a)
		}
		return "Expression[" + strings.Join(parts, ", ") + "]"
	case KindRepeat:
		mode := "lazy"
		if n.greedy {
			mode = "greedy"
		}
		return fmt.Sprintf("Repeat(#%d %s body=%d exit=%d)", n.index, mode, n.body, n.next)
	case KindReset:
		return fmt.Sprintf("Reset(#%d..#%d) -> %d", n.index, n.end-1, n.next)
	case KindOpen:
		return fmt.Sprintf("Open(%s) -> %d", n.typ, n.next)
	default:
		return fmt.Sprintf("%s -> %d", n.kind, n.next)
	}
}

// Graph is an immutable matcher graph. It is safe for concurrent use.
type Graph struct {
	nodes  []Node
	entry  NodeID
	bounds []repstate.Bounds
}

// Entry returns the node every match attempt starts from.
func (g *Graph) Entry() NodeID { return g.entry }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

// Quantifiers returns the number of quantifier indices used by the graph.
func (g *Graph) Quantifiers() int { return len(g.bounds) }

// InitialBounds returns the bounds every quantifier starts with.
func (g *Graph) InitialBounds(index int) repstate.Bounds { return g.bounds[index] }

// String dumps the graph, one node per line.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "entry=%d quantifiers=%d\n", g.entry, len(g.bounds))
	for i := range g.nodes {
		fmt.Fprintf(&sb, "%4d: %s\n", i, g.nodes[i].String())
	}
	for i, b := range g.bounds {
		fmt.Fprintf(&sb, "  #%d %s\n", i, b)
	}
	return sb.String()
}
