// Package token defines the structural token stream a spamex document is
// delivered as.
//
// A stream starts with a Doctype, then describes a tree depth-first:
// OpenNode/CloseNode bracket a node, Reference names the property the next
// node is stored under, Null and Gap stand for absent or not-yet-known nodes,
// and Literal carries source text. The engine additionally brackets every
// stream with the BOS and EOS sentinels, which never appear in documents.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Token.
type Kind uint8

const (
	// Invalid is the zero Kind. Documents never contain it.
	Invalid Kind = iota
	Doctype
	OpenFragment
	CloseFragment
	Reference
	OpenNode
	CloseNode
	Null
	Gap
	Literal
	Shift

	// BOS and EOS are the begin- and end-of-stream sentinels.
	BOS
	EOS
)

var kindNames = [...]string{
	Invalid:       "invalid",
	Doctype:       "doctype",
	OpenFragment:  "openFragment",
	CloseFragment: "closeFragment",
	Reference:     "reference",
	OpenNode:      "openNode",
	CloseNode:     "closeNode",
	Null:          "null",
	Gap:           "gap",
	Literal:       "literal",
	Shift:         "shift",
	BOS:           "bos",
	EOS:           "eos",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsSentinel reports whether k is BOS or EOS.
func (k Kind) IsSentinel() bool {
	return k == BOS || k == EOS
}

// MarshalText encodes the kind by its wire name.
func (k Kind) MarshalText() ([]byte, error) {
	if k == Invalid || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("token: cannot encode kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	s := string(text)
	for i, name := range kindNames {
		if i != int(Invalid) && name == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("token: unknown kind %q", s)
}

// TypeNull is the type of the placeholder node created for Null and Gap
// tokens. It cannot be spelled as a type in a pattern.
const TypeNull = "#null"

// Flags are the node flags carried by an OpenNode token.
type Flags struct {
	Token      bool `json:"token,omitempty" yaml:"token,omitempty"`
	Escape     bool `json:"escape,omitempty" yaml:"escape,omitempty"`
	Trivia     bool `json:"trivia,omitempty" yaml:"trivia,omitempty"`
	Expression bool `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Embedded reports whether a node with these flags is stored inline among
// its parent's children instead of under a reference.
func (f Flags) Embedded() bool {
	return f.Escape || f.Trivia
}

func (f Flags) String() string {
	var sb strings.Builder
	if f.Token {
		sb.WriteByte('*')
	}
	if f.Escape {
		sb.WriteByte('@')
	}
	if f.Trivia {
		sb.WriteByte('#')
	}
	if f.Expression {
		sb.WriteByte('+')
	}
	return sb.String()
}

// Token is one element of a structural token stream.
// Which fields are meaningful depends on Kind:
//
//	Doctype   Attributes (the document defaults, e.g. "bablr-language")
//	Reference Name, IsArray
//	OpenNode  Type, Language, Flags, Attributes; Type == "" for the untyped root
//	Literal   Value
type Token struct {
	Kind       Kind           `json:"kind" yaml:"kind"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	Language   string         `json:"language,omitempty" yaml:"language,omitempty"`
	Flags      Flags          `json:"flags,omitzero" yaml:"flags,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	IsArray    bool           `json:"isArray,omitempty" yaml:"isArray,omitempty"`
	Value      string         `json:"value,omitempty" yaml:"value,omitempty"`
}

// Sentinel tokens.
var (
	BOSToken = Token{Kind: BOS}
	EOSToken = Token{Kind: EOS}
)

// LanguageAttribute is the doctype attribute naming the default language.
const LanguageAttribute = "bablr-language"

// CookedAttribute is the escape-node attribute holding the unescaped text.
const CookedAttribute = "cooked"

// NewDoctype returns a Doctype token whose default language is lang.
func NewDoctype(lang string) Token {
	return Token{Kind: Doctype, Attributes: map[string]any{LanguageAttribute: lang}}
}

// NewOpen returns an OpenNode token of the given type.
func NewOpen(typ string) Token {
	return Token{Kind: OpenNode, Type: typ}
}

// NewClose returns a CloseNode token.
func NewClose() Token {
	return Token{Kind: CloseNode}
}

// NewReference returns a Reference token.
func NewReference(name string, isArray bool) Token {
	return Token{Kind: Reference, Name: name, IsArray: isArray}
}

// NewLiteral returns a Literal token.
func NewLiteral(text string) Token {
	return Token{Kind: Literal, Value: text}
}

// String renders the token in CSTML-like notation, for diagnostics:
//
//	<!0:cstml bablr-language="test">  <Foo>  </>  bar:  items[]:  null  <//>  'text'
func (t Token) String() string {
	switch t.Kind {
	case Doctype:
		return "<!0:cstml" + formatAttributes(t.Attributes) + ">"
	case OpenFragment:
		return "<>"
	case CloseFragment, CloseNode:
		return "</>"
	case Reference:
		if t.IsArray {
			return t.Name + "[]:"
		}
		return t.Name + ":"
	case OpenNode:
		return "<" + t.Flags.String() + t.Type + formatAttributes(t.Attributes) + ">"
	case Null:
		return "null"
	case Gap:
		return "<//>"
	case Literal:
		return strconv.Quote(t.Value)
	case Shift:
		return "^^^"
	default:
		return "<" + t.Kind.String() + ">"
	}
}

func formatAttributes(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteByte('=')
		if s, ok := attrs[k].(string); ok {
			sb.WriteString(strconv.Quote(s))
		} else {
			fmt.Fprintf(&sb, "%v", attrs[k])
		}
	}
	return sb.String()
}
