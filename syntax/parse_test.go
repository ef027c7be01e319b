package syntax

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"<Foo/>", "<Foo />"},
		{"<? />", "<? />"},
		{"<?/>", "<? />"},
		{"  <Bar   />  ", "<Bar />"},
		{"<//>", "<//>"},
		{"<A/><B/>", "<A /> <B />"},
		{"<A/>|<B/>", "<A /> | <B />"},
		{"<A/>*", "<A />*"},
		{"<A/>+?", "<A />+?"},
		{"<A/>??", "<A />??"},
		{"<A/>{2}", "<A />{2}"},
		{"<A/>{2,}", "<A />{2,}"},
		{"<A/>{2,5}?", "<A />{2,5}?"},
		{"(<A/>|<B/>)+ <C/>", "(<A /> | <B />)+ <C />"},
		{"(<A/>)", "(<A />)"},
		{"<ns:Type-1.x/>", "<ns:Type-1.x />"},
		{"", ""},
		{"<A/>|", "<A /> | "},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Parse(tt.pattern)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.pattern, err)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestParseShapes(t *testing.T) {
	p := MustParse("<A/>{1,3}? | (<? />)")

	g, ok := p.Matcher.(*Group)
	if !ok || len(g.Alternatives) != 2 {
		t.Fatalf("top-level matcher = %#v, want a two-way Group", p.Matcher)
	}

	q, ok := g.Alternatives[0].Elements[0].(*Quantifier)
	if !ok {
		t.Fatalf("first element = %T, want *Quantifier", g.Alternatives[0].Elements[0])
	}
	if q.Min != 1 || q.Max != 3 || q.Greedy {
		t.Errorf("quantifier = {%d,%d} greedy=%v, want {1,3} lazy", q.Min, q.Max, q.Greedy)
	}
	if nm := q.Element.(*NodeMatcher); nm.Type != "A" || nm.Pos != 0 {
		t.Errorf("quantified element = %+v", nm)
	}

	inner := g.Alternatives[1].Elements[0].(*Group)
	if nm := inner.Alternatives[0].Elements[0].(*NodeMatcher); nm.Type != Wildcard {
		t.Errorf("wildcard type = %q, want %q", nm.Type, Wildcard)
	}
}

func TestParseInvertedRangeIsAccepted(t *testing.T) {
	p, err := Parse("<A/>{5,2}")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	q := p.Matcher.(*Alternative).Elements[0].(*Quantifier)
	if q.Min != 5 || q.Max != 2 {
		t.Errorf("range = {%d,%d}, want {5,2}", q.Min, q.Max)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		pattern string
		code    ErrorCode
		pos     int
	}{
		{"(<A/>", ErrMissingParen, 0},
		{"<A/>)", ErrUnexpectedParen, 4},
		{"*", ErrMissingRepeatArgument, 0},
		{"<A/>|+", ErrMissingRepeatArgument, 5},
		{"<A/>**", ErrInvalidRepeatOp, 5},
		{"<A/>{2}{3}", ErrInvalidRepeatOp, 7},
		{"<A/>+? *", ErrInvalidRepeatOp, 7},
		{"<A/>{1001}", ErrInvalidRepeatSize, 4},
		{"<A/>{x}", ErrInvalidRepeatSize, 4},
		{"<A/>{1,2", ErrInvalidRepeatSize, 4},
		{"<A>", ErrInvalidNodeMatcher, 0},
		{"</>", ErrInvalidNodeMatcher, 0},
		{"<A/> foo", ErrUnexpectedCharacter, 5},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := Parse(tt.pattern)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%q) error = %v, want *Error", tt.pattern, err)
			}
			if perr.Code != tt.code || perr.Pos != tt.pos {
				t.Errorf("Parse(%q) = %s at %d, want %s at %d", tt.pattern, perr.Code, perr.Pos, tt.code, tt.pos)
			}
		})
	}
}

func TestWalk(t *testing.T) {
	p := MustParse("(<A/> <//>)* <B/>")
	var ops []Op
	Walk(p, func(n Node) bool {
		ops = append(ops, n.Op())
		return n.Op() != OpQuantifier
	})
	want := []Op{OpPattern, OpAlternative, OpQuantifier, OpNodeMatcher}
	if len(ops) != len(want) {
		t.Fatalf("Walk visited %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("Walk visit %d = %v, want %v", i, ops[i], want[i])
		}
	}
}
