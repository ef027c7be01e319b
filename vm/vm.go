// Package vm executes compiled matcher graphs over a token stream.
//
// The VM keeps every live branch of the search as a thread: a graph node of
// width 1 waiting for the next token, plus the branch's match state.
// Threads are kept in priority order. Each Feed advances all threads by one
// token, following width-0 nodes immediately (the closure), and collects
// the matches that became final.
//
// Bookkeeping lives in two Generation records. Feed reads the current one
// and writes the next; Traverse1 swaps them.
package vm

import (
	"errors"
	"iter"

	"github.com/coregx/spamex/internal/sparse"
	"github.com/coregx/spamex/matcher"
	"github.com/coregx/spamex/tree"
)

// ErrBranchLimit is returned by Feed when more branches are alive than
// Config.MaxBranches allows.
var ErrBranchLimit = errors.New("too many live match branches")

// Config controls VM limits.
type Config struct {
	// MaxBranches caps the number of live threads after any step.
	// Zero means no limit.
	// Default: 10000
	MaxBranches int
}

// DefaultConfig returns the default VM configuration.
func DefaultConfig() Config {
	return Config{MaxBranches: 10000}
}

// Match is a successful match.
type Match struct {
	Global bool
	// Captures is the node most recently opened by the match, or nil when
	// the pattern matched without opening a node.
	Captures *tree.Node
	// Start is the step after which the match begins; End is the step
	// whose token completed it.
	Start int
	End   int
}

type thread struct {
	node  matcher.NodeID
	state matcher.State
}

// Generation is the per-step record: the threads waiting for the next
// token, the quantifiers entered while building them, and the step context
// they were built under.
type Generation struct {
	threads []thread
	seen    *sparse.SparseSet
	ctx     matcher.Context
}

func newGeneration(quantifiers int) Generation {
	//nolint:gosec // G115: quantifier count is bounded by pattern size
	return Generation{seen: sparse.NewSparseSet(uint32(quantifiers))}
}

// Len returns the number of threads in the generation.
func (g *Generation) Len() int {
	return len(g.threads)
}

// VM runs one program over one token stream. It is not safe for
// concurrent use.
type VM struct {
	prog   *matcher.Program
	graph  *matcher.Graph
	config Config

	gens [2]Generation
	cur  int

	step    int
	started bool
	done    bool

	// pending holds completed matches that may still be superseded by a
	// higher-priority branch of the same attempt, ordered by Start.
	pending []Match
	ready   []Match
	cut     map[int]bool
	live    map[int]bool
}

// New returns a VM for prog.
func New(prog *matcher.Program, config Config) *VM {
	q := prog.Graph.Quantifiers()
	return &VM{
		prog:   prog,
		graph:  prog.Graph,
		config: config,
		gens:   [2]Generation{newGeneration(q), newGeneration(q)},
		cut:    make(map[int]bool),
		live:   make(map[int]bool),
	}
}

// Current returns the generation the next Feed reads from.
func (v *VM) Current() *Generation {
	return &v.gens[v.cur]
}

// Next returns the generation the last Feed wrote.
func (v *VM) Next() *Generation {
	return &v.gens[1-v.cur]
}

// Done reports whether no further match can be produced.
func (v *VM) Done() bool {
	return v.done
}

// Step returns the number of tokens fed so far.
func (v *VM) Step() int {
	return v.step
}

// Feed advances the search by one step. The first Feed seeds the search
// and should carry the BOS sentinel; the last should carry EOS. ctx.Seen
// and ctx.Step are filled in by the VM. Feeding a done VM is a no-op.
func (v *VM) Feed(ctx matcher.Context) error {
	if v.done {
		v.ready = v.ready[:0]
		return nil
	}

	cur := &v.gens[v.cur]
	next := &v.gens[1-v.cur]
	next.threads = next.threads[:0]
	next.seen.Clear()
	ctx.Seen = next.seen
	ctx.Step = v.step
	next.ctx = ctx

	v.ready = v.ready[:0]
	clear(v.cut)

	if !v.started {
		v.started = true
		v.addThread(next, v.graph.Entry(), v.prog.InitialState())
	} else {
		for _, t := range cur.threads {
			if v.cutOff(t.state.Start) {
				continue
			}
			st := t.state
			id := v.graph.Match(t.node, &st, &next.ctx)
			if id == matcher.InvalidNode {
				continue
			}
			v.addThread(next, id, st)
		}
	}

	v.step++
	v.resolve(next)

	if v.config.MaxBranches > 0 && len(next.threads) > v.config.MaxBranches {
		return ErrBranchLimit
	}
	return nil
}

// Traverse0 yields the matches that became final during the last Feed.
func (v *VM) Traverse0() iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, m := range v.ready {
			if !yield(m) {
				return
			}
		}
	}
}

// Traverse1 commits the last Feed, making its generation current.
func (v *VM) Traverse1() {
	v.cur = 1 - v.cur
}

// addThread follows width-0 nodes from id depth-first, in priority order,
// and appends the width-1 nodes it reaches to g.
func (v *VM) addThread(g *Generation, id matcher.NodeID, st matcher.State) {
	if v.cutOff(st.Start) {
		return
	}
	n := v.graph.Node(id)
	switch n.Kind() {
	case matcher.KindExpression:
		for _, alt := range n.Alternatives() {
			v.addThread(g, alt, st)
		}
	case matcher.KindTerm:
		v.complete(st, n.Global())
	default:
		if n.Width() > 0 {
			g.threads = append(g.threads, thread{node: id, state: st})
			return
		}
		if next := v.graph.Match(id, &st, &g.ctx); next != matcher.InvalidNode {
			v.addThread(g, next, st)
		}
	}
}

// cutOff reports whether branches of the attempt that started at start can
// no longer contribute a match: a higher-priority branch of the same
// attempt completed during this step, or, for a non-global program, an
// earlier attempt has already completed.
func (v *VM) cutOff(start int) bool {
	if v.cut[start] {
		return true
	}
	if !v.prog.Global && len(v.pending) > 0 {
		return start < 0 || start > v.pending[0].Start
	}
	return false
}

// complete records a branch reaching Term. Every later branch of the same
// attempt has lower priority and is cut for the rest of the step.
func (v *VM) complete(st matcher.State, global bool) {
	m := Match{Global: global, Captures: st.Result, Start: st.Start, End: v.step}
	v.cut[st.Start] = true

	if !v.prog.Global {
		v.pending = append(v.pending[:0], m)
		return
	}

	i := 0
	for i < len(v.pending) && v.pending[i].Start < m.Start {
		i++
	}
	if i < len(v.pending) && v.pending[i].Start == m.Start {
		v.pending[i] = m
		return
	}
	v.pending = append(v.pending, Match{})
	copy(v.pending[i+1:], v.pending[i:])
	v.pending[i] = m
}

// resolve moves pending matches that can no longer be superseded to ready.
func (v *VM) resolve(g *Generation) {
	// Only later attempts are dropped here. Threads of the pending match's
	// own attempt that were queued before its Term outrank it and stay.
	if !v.prog.Global && len(v.pending) > 0 {
		first := v.pending[0].Start
		kept := g.threads[:0]
		for _, t := range g.threads {
			if t.state.Start >= 0 && t.state.Start <= first {
				kept = append(kept, t)
			}
		}
		g.threads = kept
	}

	clear(v.live)
	for _, t := range g.threads {
		v.live[t.state.Start] = true
	}

	if v.prog.Global {
		kept := v.pending[:0]
		for _, m := range v.pending {
			if v.live[m.Start] {
				kept = append(kept, m)
			} else {
				v.ready = append(v.ready, m)
			}
		}
		v.pending = kept
		if len(g.threads) == 0 && len(v.pending) == 0 {
			v.done = true
		}
		return
	}

	if len(v.pending) == 0 {
		if len(g.threads) == 0 {
			v.done = true
		}
		return
	}

	best := v.pending[0]
	for start := range v.live {
		if start <= best.Start {
			return
		}
	}
	v.ready = append(v.ready, best)
	v.pending = v.pending[:0]
	g.threads = g.threads[:0]
	v.done = true
}
