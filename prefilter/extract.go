package prefilter

import (
	"slices"

	"github.com/coregx/spamex/syntax"
)

// Extract returns a set of node types such that every match of p contains
// a node of at least one of them. It returns nil when no such set exists,
// for example when p can match a wildcard, a gap, or nothing at all.
//
// The result is sorted and free of duplicates.
func Extract(p *syntax.Pattern) []string {
	if p == nil || p.Matcher == nil {
		return nil
	}
	types := required(p.Matcher)
	if len(types) == 0 {
		return nil
	}
	slices.Sort(types)
	return slices.Compact(types)
}

func required(n syntax.Node) []string {
	switch n := n.(type) {
	case *syntax.NodeMatcher:
		if n.Type == syntax.Wildcard {
			return nil
		}
		return []string{n.Type}

	case *syntax.Quantifier:
		if n.Min == 0 {
			return nil
		}
		return required(n.Element)

	case *syntax.Alternative:
		// Every element is required; one of them is enough.
		for _, e := range n.Elements {
			if types := required(e); len(types) > 0 {
				return types
			}
		}
		return nil

	case *syntax.Group:
		if len(n.Alternatives) == 0 {
			return nil
		}
		var union []string
		for _, alt := range n.Alternatives {
			types := required(alt)
			if len(types) == 0 {
				return nil
			}
			union = append(union, types...)
		}
		return union

	case *syntax.Pattern:
		return required(n.Matcher)

	default:
		return nil
	}
}
