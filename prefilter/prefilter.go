// Package prefilter rejects raw input that cannot contain a match before any
// tokens are decoded.
//
// Every match of a pattern like "(<Call/> | <New/>) <Args/>" contains a node
// of type Call or New. Encoded token streams spell node types out verbatim,
// so input in which none of those names occurs cannot match. The prefilter
// searches for all required names at once with an Aho-Corasick automaton.
//
// Example usage:
//
//	pf, _ := prefilter.New(prefilter.Extract(ast))
//	if !pf.MayMatch(data) {
//	    // skip decoding and matching data
//	}
//
// A nil *Prefilter accepts everything.
package prefilter

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// Prefilter checks raw input for the node types a pattern requires.
type Prefilter struct {
	types []string
	ac    *ahocorasick.Automaton
}

// New builds a prefilter over types. It returns nil, and no error, when
// types is empty or contains a name that an encoding might not spell
// verbatim; such patterns cannot be prefiltered.
func New(types []string) (*Prefilter, error) {
	if len(types) == 0 {
		return nil, nil
	}
	for _, t := range types {
		if !isPlain(t) {
			return nil, nil
		}
	}

	builder := ahocorasick.NewBuilder()
	for _, t := range types {
		builder.AddPattern([]byte(t))
	}
	ac, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &Prefilter{types: types, ac: ac}, nil
}

// isPlain reports whether name is an ASCII identifier, which JSON and YAML
// encoders never escape or quote differently.
func isPlain(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// MayMatch reports whether data contains any of the required types.
func (p *Prefilter) MayMatch(data []byte) bool {
	if p == nil {
		return true
	}
	return p.ac.IsMatch(data)
}

// Find returns the byte range of the first required type in data, or
// (-1, -1) if there is none. A nil prefilter reports (0, 0).
func (p *Prefilter) Find(data []byte) (start, end int) {
	if p == nil {
		return 0, 0
	}
	m := p.ac.Find(data, 0)
	if m == nil {
		return -1, -1
	}
	return m.Start, m.End
}

// Types returns the required types.
func (p *Prefilter) Types() []string {
	if p == nil {
		return nil
	}
	return p.types
}

func (p *Prefilter) String() string {
	if p == nil {
		return "prefilter(none)"
	}
	return "prefilter(" + strings.Join(p.types, "|") + ")"
}
