// Package tree builds document trees from structural token streams.
//
// A Node is open while its tokens are still arriving and becomes immutable
// once finalized. Each node keeps its own tokens as children, in stream
// order, starting with its open tag; nodes stored under a Reference live in
// the parent's properties, while escape and trivia nodes are embedded
// directly among the parent's children.
package tree

import (
	"github.com/coregx/spamex/token"
)

// Child is one element of a node's children: either a token of the node
// itself or an embedded node.
type Child struct {
	Token token.Token
	Node  *Node
}

// IsEmbedded reports whether the child is an embedded node.
func (c Child) IsEmbedded() bool {
	return c.Node != nil
}

// Node is a document node.
type Node struct {
	flags      token.Flags
	language   string
	typ        string
	attributes map[string]any
	children   []Child
	properties map[string][]*Node
	finalized  bool
}

// NewNode creates an open node. Nodes passed to Builder.Hold are created
// this way.
func NewNode(flags token.Flags, language, typ string, attributes map[string]any) *Node {
	return &Node{
		flags:      flags,
		language:   language,
		typ:        typ,
		attributes: attributes,
	}
}

func newNullNode() *Node {
	return NewNode(token.Flags{}, "", token.TypeNull, nil)
}

func (n *Node) Type() string { return n.typ }
func (n *Node) Language() string { return n.language }
func (n *Node) Flags() token.Flags { return n.flags }
func (n *Node) Finalized() bool { return n.finalized }
func (n *Node) IsNull() bool { return n.typ == token.TypeNull }
func (n *Node) NumChildren() int { return len(n.children) }
func (n *Node) Child(i int) Child { return n.children[i] }
func (n *Node) Attributes() map[string]any {
	return n.attributes
}

// Children returns a copy of the node's children.
func (n *Node) Children() []Child {
	out := make([]Child, len(n.children))
	copy(out, n.children)
	return out
}

// Property returns the first node stored under name, or nil.
func (n *Node) Property(name string) *Node {
	if nodes := n.properties[name]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// Properties returns every node stored under name, in stream order.
func (n *Node) Properties(name string) []*Node {
	return append([]*Node(nil), n.properties[name]...)
}

// OpenTag returns the token that opened the node. Placeholder nodes
// created for Null and Gap return that token instead.
func (n *Node) OpenTag() token.Token {
	if len(n.children) == 0 || n.children[0].IsEmbedded() {
		return token.Token{Kind: token.OpenNode, Type: n.typ, Flags: n.flags}
	}
	return n.children[0].Token
}

// PrintOpenTag renders the node's open tag, e.g. "<Foo>".
func PrintOpenTag(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.OpenTag().String()
}

func (n *Node) appendChild(c Child) error {
	if n.finalized {
		return ErrFinalized
	}
	n.children = append(n.children, c)
	return nil
}

func (n *Node) addProperty(ref token.Token, child *Node) error {
	if n.finalized {
		return ErrFinalized
	}
	if n.properties == nil {
		n.properties = make(map[string][]*Node)
	}
	if !ref.IsArray && len(n.properties[ref.Name]) > 0 {
		return ErrDuplicateProperty
	}
	n.properties[ref.Name] = append(n.properties[ref.Name], child)
	return nil
}

// finalize marks the node immutable. A node is finalized exactly once.
func (n *Node) finalize() error {
	if n.finalized {
		return ErrFinalized
	}
	n.finalized = true
	return nil
}

func (n *Node) lastChild() (Child, bool) {
	if len(n.children) == 0 {
		return Child{}, false
	}
	return n.children[len(n.children)-1], true
}
