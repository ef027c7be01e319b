// Package syntax parses spamex patterns into an abstract syntax tree.
//
// A pattern describes a sequence of sibling nodes of a document tree:
//
//	<Call/>           a node of type Call, with any content
//	<? />             a node of any concrete type
//	<//>              a gap
//	x* x+ x? x{n,m}   repetition, greedy; append ? for lazy (x*?)
//	x | y             alternation
//	( ... )           grouping
//
// Whitespace between terms is insignificant. The tree is immutable once
// returned by Parse.
package syntax

import (
	"strconv"
	"strings"
)

// Op identifies the variant of an AST node.
type Op uint8

const (
	OpPattern Op = iota + 1
	OpGroup
	OpAlternative
	OpNodeMatcher
	OpQuantifier
	OpGap
)

var opNames = [...]string{
	OpPattern:     "Pattern",
	OpGroup:       "Group",
	OpAlternative: "Alternative",
	OpNodeMatcher: "NodeMatcher",
	OpQuantifier:  "Quantifier",
	OpGap:         "Gap",
}

func (o Op) String() string {
	if o > 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Wildcard is the NodeMatcher type that accepts any concrete node type.
const Wildcard = "?"

// Unbounded is the Quantifier.Max of an open-ended repetition.
const Unbounded = -1

// Node is a pattern AST node.
type Node interface {
	Op() Op
	// Position is the byte offset of the node in the pattern text, or -1 for
	// nodes built in code.
	Position() int
	String() string
}

// Pattern is the root of a pattern AST.
type Pattern struct {
	Matcher Node
	Pos     int
}

// Group is an ordered set of alternatives; earlier alternatives take priority.
type Group struct {
	Alternatives []*Alternative
	Pos          int
}

// Alternative is a sequence of sibling matchers.
type Alternative struct {
	Elements []Node
	Pos      int
}

// NodeMatcher matches one complete node: its open tag, any content, and its
// close tag. Type is a concrete type name or Wildcard.
type NodeMatcher struct {
	Type string
	Pos  int
}

// Quantifier repeats Element between Min and Max times
// (Max == Unbounded for no limit).
type Quantifier struct {
	Element Node
	Min     int
	Max     int
	Greedy  bool
	Pos     int
}

// Gap matches a gap in the document.
type Gap struct {
	Pos int
}

func (*Pattern) Op() Op { return OpPattern }
func (*Group) Op() Op { return OpGroup }
func (*Alternative) Op() Op { return OpAlternative }
func (*NodeMatcher) Op() Op { return OpNodeMatcher }
func (*Quantifier) Op() Op { return OpQuantifier }
func (*Gap) Op() Op { return OpGap }

func (p *Pattern) Position() int { return p.Pos }
func (g *Group) Position() int { return g.Pos }
func (a *Alternative) Position() int { return a.Pos }
func (n *NodeMatcher) Position() int { return n.Pos }
func (q *Quantifier) Position() int { return q.Pos }
func (g *Gap) Position() int { return g.Pos }

// String renders the pattern back into its textual form.
func (p *Pattern) String() string {
	if p.Matcher == nil {
		return ""
	}
	if g, ok := p.Matcher.(*Group); ok {
		return joinAlternatives(g.Alternatives)
	}
	return p.Matcher.String()
}

func (g *Group) String() string {
	return "(" + joinAlternatives(g.Alternatives) + ")"
}

func joinAlternatives(alts []*Alternative) string {
	parts := make([]string, len(alts))
	for i, a := range alts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (a *Alternative) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

func (n *NodeMatcher) String() string {
	if n.Type == Wildcard {
		return "<? />"
	}
	return "<" + n.Type + " />"
}

func (q *Quantifier) String() string {
	var sb strings.Builder
	sb.WriteString(q.Element.String())
	switch {
	case q.Min == 0 && q.Max == Unbounded:
		sb.WriteByte('*')
	case q.Min == 1 && q.Max == Unbounded:
		sb.WriteByte('+')
	case q.Min == 0 && q.Max == 1:
		sb.WriteByte('?')
	case q.Max == Unbounded:
		sb.WriteString("{" + strconv.Itoa(q.Min) + ",}")
	case q.Min == q.Max:
		sb.WriteString("{" + strconv.Itoa(q.Min) + "}")
	default:
		sb.WriteString("{" + strconv.Itoa(q.Min) + "," + strconv.Itoa(q.Max) + "}")
	}
	if !q.Greedy {
		sb.WriteByte('?')
	}
	return sb.String()
}

func (*Gap) String() string { return "<//>" }

// Walk traverses the tree rooted at n in depth-first order, calling fn for
// each node. Children are skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Pattern:
		Walk(n.Matcher, fn)
	case *Group:
		for _, a := range n.Alternatives {
			Walk(a, fn)
		}
	case *Alternative:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	case *Quantifier:
		Walk(n.Element, fn)
	}
}
