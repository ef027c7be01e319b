package matcher

import (
	"github.com/coregx/spamex/internal/repstate"
	"github.com/coregx/spamex/internal/sparse"
	"github.com/coregx/spamex/syntax"
	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
)

// State is the match state of one branch. It is a value: forking a branch
// copies it, and the persistent Reps map makes the copy cheap.
type State struct {
	// Result is the node most recently opened by an Open matcher.
	Result *tree.Node
	// Reps holds the remaining bounds of every quantifier.
	Reps repstate.Map
	// Start is the step at which the branch left the search prefix, or -1.
	Start int
	// Anchor is the depth of the subtree an Any matcher is skipping, or -1.
	Anchor int
}

// Context describes the token being processed. One Context is shared by
// every branch during a step.
type Context struct {
	Token token.Token
	// Before and After are the innermost open nodes around Token.
	Before tree.Path
	After  tree.Path
	// Node is the node Token created or closed, if any.
	Node *tree.Node
	// Step numbers the tokens fed so far, starting at 0 for BOS.
	Step int
	// Seen holds the quantifier indices already entered during this step.
	Seen *sparse.SparseSet
}

// Match evaluates the continuation id for one branch. It may update st and
// returns the node the branch continues into, or InvalidNode if the branch
// fails. Expression and Term nodes are interpreted by the caller and always
// return InvalidNode here.
func (g *Graph) Match(id NodeID, st *State, ctx *Context) NodeID {
	n := &g.nodes[id]
	switch n.kind {
	case KindRepeat:
		return g.repeat(n, st, ctx)

	case KindReset:
		for i := n.index; i < n.end; i++ {
			st.Reps = st.Reps.Set(i, g.bounds[i])
		}
		return n.next

	case KindMark:
		st.Start = ctx.Step
		return n.next

	case KindGap:
		return n.next

	case KindOpen:
		if ctx.Token.Kind != token.OpenNode || !typeMatches(n.typ, ctx.Token.Type) {
			return InvalidNode
		}
		st.Result = ctx.Node
		return n.next

	case KindClose:
		if ctx.Token.Kind != token.CloseNode {
			return InvalidNode
		}
		return n.next

	case KindAny:
		return anyToken(n, st, ctx)

	case KindDeepAny:
		if ctx.Token.Kind.IsSentinel() {
			return InvalidNode
		}
		return n.next
	}
	return InvalidNode
}

// repeat performs one iteration step of quantifier n.index. A quantifier is
// entered at most once per step across all branches, which also cuts
// zero-width loops.
func (g *Graph) repeat(n *Node, st *State, ctx *Context) NodeID {
	//nolint:gosec // G115: quantifier indices are small and non-negative
	idx := uint32(n.index)
	if ctx.Seen.Contains(idx) {
		return InvalidNode
	}

	bounds, _ := st.Reps.Get(n.index)
	if bounds.Exhausted() {
		return n.next
	}

	ctx.Seen.Insert(idx)
	st.Reps = st.Reps.Set(n.index, bounds.Next())

	if bounds.Min > 0 {
		return n.body
	}
	return n.choice
}

func anyToken(n *Node, st *State, ctx *Context) NodeID {
	kind := ctx.Token.Kind
	if kind.IsSentinel() {
		return InvalidNode
	}

	if st.Anchor >= 0 {
		if kind == token.CloseNode && ctx.Before.Depth == st.Anchor {
			st.Anchor = -1
			return n.next
		}
		return n.id
	}

	switch kind {
	case token.OpenNode:
		st.Anchor = ctx.After.Depth
		return n.id
	case token.CloseNode:
		return InvalidNode
	default:
		return n.next
	}
}

func typeMatches(want, got string) bool {
	if want == syntax.Wildcard {
		return got != "" && got != token.TypeNull
	}
	return want == got
}
