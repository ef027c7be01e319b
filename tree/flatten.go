package tree

import (
	"iter"

	"github.com/coregx/spamex/token"
)

// Document is a complete or partial document: its doctype and root node.
type Document struct {
	Doctype token.Token
	Root    *Node
}

// Document returns the document built so far.
func (b *Builder) Document() *Document {
	doc := &Document{Root: b.root}
	if b.doctype != nil {
		doc.Doctype = *b.doctype
	}
	return doc
}

// Tokens yields the token stream that describes doc, starting with its
// doctype. Feeding the result to a new Builder reproduces the document.
func Tokens(doc *Document) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		if doc.Doctype.Kind == token.Doctype && !yield(doc.Doctype) {
			return
		}
		if doc.Root != nil {
			emit(doc.Root, yield)
		}
	}
}

// Flatten returns the token stream of doc as a slice.
func Flatten(doc *Document) []token.Token {
	var out []token.Token
	for tok := range Tokens(doc) {
		out = append(out, tok)
	}
	return out
}

func emit(n *Node, yield func(token.Token) bool) bool {
	var seen map[string]int
	for _, c := range n.children {
		if c.IsEmbedded() {
			if !emit(c.Node, yield) {
				return false
			}
			continue
		}
		if !yield(c.Token) {
			return false
		}
		if c.Token.Kind != token.Reference {
			continue
		}
		if seen == nil {
			seen = make(map[string]int)
		}
		name := c.Token.Name
		props := n.properties[name]
		if i := seen[name]; i < len(props) {
			seen[name]++
			if !emit(props[i], yield) {
				return false
			}
		}
	}
	return true
}
