package stream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
)

// ErrInvalidDocument reports a YAML document that does not describe a tree.
var ErrInvalidDocument = errors.New("stream: invalid document")

// yamlDocument is the YAML form of a document:
//
//	language: test
//	root:
//	  children:
//	    - ref: foo
//	      node:
//	        type: Foo
//	    - ref: items[]
//	      gap: true
//	    - ref: missing
//	    - node: {type: Space, flags: {trivia: true}}
//	    - literal: "x"
//
// A child is a reference followed by its node (a gap placeholder when gap
// is set, null when neither is given), an embedded node, or literal text.
// A reference name ending in "[]" is an array reference.
type yamlDocument struct {
	Language   string         `yaml:"language"`
	Attributes map[string]any `yaml:"attributes"`
	Root       *yamlNode      `yaml:"root"`
}

type yamlNode struct {
	Type       string         `yaml:"type"`
	Language   string         `yaml:"language"`
	Flags      token.Flags    `yaml:"flags"`
	Attributes map[string]any `yaml:"attributes"`
	Children   []yamlChild    `yaml:"children"`
}

type yamlChild struct {
	Ref     string    `yaml:"ref"`
	Node    *yamlNode `yaml:"node"`
	Gap     bool      `yaml:"gap"`
	Literal *string   `yaml:"literal"`
}

// DecodeYAML reads a YAML document and returns its token stream, starting
// with the doctype.
func DecodeYAML(r io.Reader) ([]token.Token, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("stream: decoding document: %w", err)
	}

	attrs := make(map[string]any, len(doc.Attributes)+1)
	for k, v := range doc.Attributes {
		attrs[k] = v
	}
	if doc.Language != "" {
		attrs[token.LanguageAttribute] = doc.Language
	}
	toks := []token.Token{{Kind: token.Doctype, Attributes: attrs}}
	if doc.Root == nil {
		return toks, nil
	}
	return appendNode(toks, doc.Root, "root")
}

func appendNode(toks []token.Token, n *yamlNode, path string) ([]token.Token, error) {
	toks = append(toks, token.Token{
		Kind:       token.OpenNode,
		Type:       n.Type,
		Language:   n.Language,
		Flags:      n.Flags,
		Attributes: n.Attributes,
	})
	for i, c := range n.Children {
		where := fmt.Sprintf("%s.children[%d]", path, i)
		var err error
		switch {
		case c.Literal != nil:
			if c.Ref != "" || c.Node != nil || c.Gap {
				return nil, fmt.Errorf("%w: %s: literal cannot carry a reference or node", ErrInvalidDocument, where)
			}
			toks = append(toks, token.NewLiteral(*c.Literal))
		case c.Ref != "":
			name, isArray := strings.CutSuffix(c.Ref, "[]")
			toks = append(toks, token.NewReference(name, isArray))
			switch {
			case c.Node != nil && c.Gap:
				return nil, fmt.Errorf("%w: %s: reference has both a node and a gap", ErrInvalidDocument, where)
			case c.Node != nil:
				toks, err = appendNode(toks, c.Node, where+".node")
			case c.Gap:
				toks = append(toks, token.Token{Kind: token.Gap})
			default:
				toks = append(toks, token.Token{Kind: token.Null})
			}
		case c.Node != nil:
			toks, err = appendNode(toks, c.Node, where+".node")
		default:
			return nil, fmt.Errorf("%w: %s: empty child", ErrInvalidDocument, where)
		}
		if err != nil {
			return nil, err
		}
	}
	return append(toks, token.NewClose()), nil
}

// NewYAMLSource decodes a YAML document and returns a Source over its tokens.
func NewYAMLSource(r io.Reader) (Source, error) {
	toks, err := DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	return FromTokens(toks...), nil
}

// ParseDocument decodes a YAML document and builds its tree.
func ParseDocument(r io.Reader) (*tree.Document, error) {
	toks, err := DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	b := tree.NewBuilder()
	for _, tok := range toks {
		if _, err := b.Feed(tok); err != nil {
			return nil, err
		}
	}
	return b.Document(), nil
}
