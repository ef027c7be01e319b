package tree

import (
	"github.com/coregx/spamex/token"
)

// Path identifies the innermost open node at some point of the stream.
// Depth is 0 for the root and -1 when no node is open.
type Path struct {
	Node  *Node
	Depth int
}

// NoPath is the Path outside of every node.
var NoPath = Path{Depth: -1}

// Step describes the effect of one token on the builder.
type Step struct {
	// Before and After are the innermost open nodes around the token.
	Before Path
	After  Path
	// Node is the node the token created (OpenNode, Null, Gap) or
	// closed (CloseNode), if any.
	Node *Node
}

// LexicalSink receives the text of Literal tokens and the cooked text of
// escape nodes, one rune at a time. Text-level matching is not part of the
// pattern language yet; the default sink discards everything.
type LexicalSink interface {
	WriteRune(r rune)
}

type discardSink struct{}

func (discardSink) WriteRune(rune) {}

type frame struct {
	node *Node
	// bound is set once the Reference that is currently the node's last
	// child has received its node.
	bound bool
}

// Builder assembles a document tree from a token stream, one token at a time.
// Frames form an explicit stack; each frame owns its node until the node
// is finalized.
type Builder struct {
	doctype *token.Token
	frames  []frame
	root    *Node
	held    *Node
	lexical LexicalSink
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{lexical: discardSink{}}
}

// SetLexicalSink installs the receiver of literal text.
func (b *Builder) SetLexicalSink(s LexicalSink) {
	if s == nil {
		s = discardSink{}
	}
	b.lexical = s
}

// Doctype returns the recorded doctype, if any.
func (b *Builder) Doctype() (token.Token, bool) {
	if b.doctype == nil {
		return token.Token{}, false
	}
	return *b.doctype, true
}

// Root returns the root node, or nil before the first OpenNode.
func (b *Builder) Root() *Node {
	return b.root
}

// Path returns the innermost open node.
func (b *Builder) Path() Path {
	if len(b.frames) == 0 {
		return NoPath
	}
	return Path{Node: b.frames[len(b.frames)-1].node, Depth: len(b.frames) - 1}
}

// Held returns the held node, or nil.
func (b *Builder) Held() *Node {
	return b.held
}

// Hold sets the node the next Gap token will resolve to. While a node is
// held only OpenNode and Gap tokens are accepted.
func (b *Builder) Hold(n *Node) error {
	if b.held != nil {
		return ErrAlreadyHolding
	}
	if n == nil || n.finalized {
		return ErrFinalized
	}
	b.held = n
	return nil
}

func (b *Builder) top() *frame {
	if len(b.frames) == 0 {
		return nil
	}
	return &b.frames[len(b.frames)-1]
}

func (b *Builder) push(n *Node) {
	b.frames = append(b.frames, frame{node: n})
}

func (b *Builder) pop() {
	b.frames = b.frames[:len(b.frames)-1]
}

func (b *Builder) fail(tok token.Token, err error) (Step, error) {
	return Step{}, &ProtocolError{Token: tok, Err: err}
}

// Feed applies one token. On error the builder is left unchanged except
// where noted by the error, and the stream must not be continued.
func (b *Builder) Feed(tok token.Token) (Step, error) {
	step := Step{Before: b.Path()}

	if b.held != nil && tok.Kind != token.OpenNode && tok.Kind != token.Gap {
		return b.fail(tok, ErrHeld)
	}

	switch tok.Kind {
	case token.Doctype:
		if b.doctype != nil {
			return b.fail(tok, ErrDoctypeRedeclared)
		}
		dt := tok
		b.doctype = &dt

	case token.OpenFragment, token.CloseFragment:
		if f := b.top(); f != nil {
			if err := f.node.appendChild(Child{Token: tok}); err != nil {
				return b.fail(tok, err)
			}
		}

	case token.Reference:
		f := b.top()
		if f == nil {
			return b.fail(tok, ErrNoOpenNode)
		}
		if err := f.node.appendChild(Child{Token: tok}); err != nil {
			return b.fail(tok, err)
		}
		f.bound = false

	case token.Literal:
		f := b.top()
		if f == nil {
			return b.fail(tok, ErrNoOpenNode)
		}
		if err := f.node.appendChild(Child{Token: tok}); err != nil {
			return b.fail(tok, err)
		}
		b.writeText(tok.Value)

	case token.Null, token.Gap:
		node, err := b.placeholder(tok)
		if err != nil {
			return b.fail(tok, err)
		}
		step.Node = node

	case token.OpenNode:
		node, err := b.open(tok)
		if err != nil {
			return b.fail(tok, err)
		}
		step.Node = node

	case token.CloseNode:
		f := b.top()
		if f == nil {
			return b.fail(tok, ErrUnbalancedClose)
		}
		if err := f.node.appendChild(Child{Token: tok}); err != nil {
			return b.fail(tok, err)
		}
		if err := f.node.finalize(); err != nil {
			return b.fail(tok, err)
		}
		step.Node = f.node
		b.pop()

	case token.Shift:
		return b.fail(tok, ErrShiftUnimplemented)

	default:
		return b.fail(tok, ErrUnknownToken)
	}

	step.After = b.Path()
	return step, nil
}

// bindReference returns the Reference the next node of f attaches to.
func bindReference(f *frame) (token.Token, bool) {
	last, ok := f.node.lastChild()
	if !ok || last.IsEmbedded() || last.Token.Kind != token.Reference || f.bound {
		return token.Token{}, false
	}
	f.bound = true
	return last.Token, true
}

func (b *Builder) placeholder(tok token.Token) (*Node, error) {
	parent := b.top()
	if parent == nil {
		return nil, ErrMissingReference
	}
	ref, ok := bindReference(parent)
	if !ok {
		return nil, ErrMissingReference
	}

	var node *Node
	if tok.Kind == token.Gap && b.held != nil {
		node, b.held = b.held, nil
	} else {
		node = newNullNode()
	}

	if err := parent.node.addProperty(ref, node); err != nil {
		return nil, err
	}
	if err := node.appendChild(Child{Token: tok}); err != nil {
		return nil, err
	}
	return node, node.finalize()
}

func (b *Builder) open(tok token.Token) (*Node, error) {
	language, attributes := tok.Language, tok.Attributes
	if tok.Type == "" {
		if b.doctype == nil {
			return nil, ErrMissingDoctype
		}
		attributes = b.doctype.Attributes
		language, _ = attributes[token.LanguageAttribute].(string)
	}
	node := NewNode(tok.Flags, language, tok.Type, attributes)

	if parent := b.top(); parent != nil {
		if tok.Flags.Embedded() {
			if err := parent.node.appendChild(Child{Node: node}); err != nil {
				return nil, err
			}
		} else {
			ref, ok := bindReference(parent)
			if !ok {
				return nil, ErrMissingReference
			}
			if err := parent.node.addProperty(ref, node); err != nil {
				return nil, err
			}
		}
	} else {
		if b.root != nil {
			return nil, ErrMultipleRoots
		}
		b.root = node
	}

	if tok.Flags.Escape {
		if cooked, ok := attributes[token.CookedAttribute].(string); ok {
			b.writeText(cooked)
		}
	}

	b.push(node)
	return node, node.appendChild(Child{Token: tok})
}

func (b *Builder) writeText(s string) {
	for _, r := range s {
		b.lexical.WriteRune(r)
	}
}
