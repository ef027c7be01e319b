package matcher

import (
	"testing"

	"github.com/coregx/spamex/internal/repstate"
	"github.com/coregx/spamex/internal/sparse"
	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
)

func newContext(tok token.Token) *Context {
	return &Context{Token: tok, Before: tree.NoPath, After: tree.NoPath, Seen: sparse.NewSparseSet(4)}
}

func TestMatchRepeat(t *testing.T) {
	b := NewBuilder()
	term := b.AddTerm(false)
	rep := b.AddRepeat(0, true, term)
	body := b.AddClose(rep)
	choice := b.AddExpression(body, term)
	if err := b.PatchRepeat(rep, body, choice); err != nil {
		t.Fatal(err)
	}
	bounds := []repstate.Bounds{{Min: 1, Max: 2}}
	g, err := b.Build(rep, bounds)
	if err != nil {
		t.Fatal(err)
	}

	st := State{Reps: repstate.New(bounds), Start: -1, Anchor: -1}
	ctx := newContext(token.NewClose())

	steps := []struct {
		want   NodeID
		bounds repstate.Bounds
	}{
		{body, repstate.Bounds{Min: 0, Max: 1}},   // min owed: loop only
		{choice, repstate.Bounds{Min: 0, Max: 0}}, // optional: both continuations
		{term, repstate.Bounds{Min: 0, Max: 0}},   // exhausted: exit
	}
	for i, s := range steps {
		ctx.Seen.Clear()
		if got := g.Match(rep, &st, ctx); got != s.want {
			t.Fatalf("step %d: Match = %d, want %d", i, got, s.want)
		}
		if got, _ := st.Reps.Get(0); got != s.bounds {
			t.Errorf("step %d: bounds = %v, want %v", i, got, s.bounds)
		}
	}

	st = State{Reps: repstate.New(bounds), Start: -1, Anchor: -1}
	ctx.Seen.Clear()
	g.Match(rep, &st, ctx)
	if got := g.Match(rep, &st, ctx); got != InvalidNode {
		t.Errorf("second entry in one step = %d, want InvalidNode", got)
	}
}

func TestMatchAny(t *testing.T) {
	b := NewBuilder()
	term := b.AddTerm(false)
	anyID := b.AddAny(term)
	g, err := b.Build(anyID, nil)
	if err != nil {
		t.Fatal(err)
	}

	st := State{Start: -1, Anchor: -1}
	run := func(tok token.Token, before, after int) NodeID {
		ctx := newContext(tok)
		ctx.Before.Depth = before
		ctx.After.Depth = after
		return g.Match(anyID, &st, ctx)
	}

	if got := run(token.NewReference("x", false), 1, 1); got != term {
		t.Errorf("reference: Match = %d, want %d", got, term)
	}
	if got := run(token.NewLiteral("x"), 1, 1); got != term {
		t.Errorf("literal: Match = %d, want %d", got, term)
	}
	if got := run(token.NewOpen("A"), 1, 2); got != anyID || st.Anchor != 2 {
		t.Errorf("open: Match = %d anchor %d, want %d anchor 2", got, st.Anchor, anyID)
	}
	if got := run(token.NewOpen("B"), 2, 3); got != anyID {
		t.Errorf("nested open while skipping: Match = %d, want %d", got, anyID)
	}
	if got := run(token.NewClose(), 3, 2); got != anyID {
		t.Errorf("nested close while skipping: Match = %d, want %d", got, anyID)
	}
	if got := run(token.NewClose(), 2, 1); got != term || st.Anchor != -1 {
		t.Errorf("closing skipped subtree: Match = %d anchor %d, want %d anchor -1", got, st.Anchor, term)
	}
	if got := run(token.NewClose(), 1, 0); got != InvalidNode {
		t.Errorf("enclosing close: Match = %d, want InvalidNode", got)
	}
	if got := run(token.EOSToken, 1, 1); got != InvalidNode {
		t.Errorf("eos: Match = %d, want InvalidNode", got)
	}
}

func TestMatchOpen(t *testing.T) {
	tests := []struct {
		pattern string
		tok     token.Token
		want    bool
	}{
		{"Foo", token.NewOpen("Foo"), true},
		{"Foo", token.NewOpen("Bar"), false},
		{"?", token.NewOpen("Bar"), true},
		{"?", token.NewOpen(""), false},
		{"?", token.NewOpen(token.TypeNull), false},
		{"?", token.NewClose(), false},
		{"?", token.BOSToken, false},
	}
	for _, tt := range tests {
		b := NewBuilder()
		term := b.AddTerm(false)
		open := b.AddOpen(tt.pattern, term)
		g, err := b.Build(open, nil)
		if err != nil {
			t.Fatal(err)
		}

		node := tree.NewNode(token.Flags{}, "", tt.tok.Type, nil)
		ctx := newContext(tt.tok)
		ctx.Node = node
		st := State{Start: -1, Anchor: -1}

		got := g.Match(open, &st, ctx) == term
		if got != tt.want {
			t.Errorf("Open(%q) on %s = %v, want %v", tt.pattern, tt.tok, got, tt.want)
		}
		if got && st.Result != node {
			t.Errorf("Open(%q) did not record the opened node", tt.pattern)
		}
	}
}

func TestMatchMarkAndReset(t *testing.T) {
	bounds := []repstate.Bounds{{Min: 2, Max: 3}, {Min: 0, Max: repstate.Unbounded}}
	b := NewBuilder()
	term := b.AddTerm(true)
	mark := b.AddMark(term)
	reset := b.AddReset(0, 2, mark)
	g, err := b.Build(reset, bounds)
	if err != nil {
		t.Fatal(err)
	}

	st := State{Reps: repstate.New([]repstate.Bounds{{}, {}}), Start: -1, Anchor: -1}
	ctx := newContext(token.BOSToken)
	ctx.Step = 7

	if got := g.Match(reset, &st, ctx); got != mark {
		t.Fatalf("Reset: Match = %d, want %d", got, mark)
	}
	for i, want := range bounds {
		if got, _ := st.Reps.Get(i); got != want {
			t.Errorf("after Reset, bounds[%d] = %v, want %v", i, got, want)
		}
	}
	if got := g.Match(mark, &st, ctx); got != term || st.Start != 7 {
		t.Errorf("Mark: Match = %d start %d, want %d start 7", got, st.Start, term)
	}
	if !g.Node(term).Global() {
		t.Error("Term lost its global flag")
	}
}
