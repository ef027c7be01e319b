package matcher

import (
	"fmt"

	"github.com/coregx/spamex/internal/repstate"
	"github.com/coregx/spamex/syntax"
)

// CompilerConfig configures graph compilation
type CompilerConfig struct {
	// Global makes the pattern report every match instead of the first.
	Global bool

	// MaxRecursionDepth limits the nesting depth of the pattern tree.
	// Default: 100
	MaxRecursionDepth int
}

// DefaultCompilerConfig returns a compiler configuration with sensible defaults
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		Global:            false,
		MaxRecursionDepth: 100,
	}
}

// Program is a compiled pattern.
type Program struct {
	Graph   *Graph
	Initial repstate.Map
	Global  bool
	Pattern string
}

// InitialState returns the match state every branch starts from.
func (p *Program) InitialState() State {
	return State{Reps: p.Initial, Start: -1, Anchor: -1}
}

// Compiler translates pattern syntax trees into matcher graphs.
//
// Translation is continuation-passing: each AST node is compiled with the
// node it must continue into and returns its own entry, so a sequence is
// compiled from its last element to its first.
type Compiler struct {
	config  CompilerConfig
	builder *Builder
	bounds  []repstate.Bounds
	depth   int
}

// NewCompiler creates a new compiler with the given configuration
func NewCompiler(config CompilerConfig) *Compiler {
	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = 100
	}
	return &Compiler{config: config}
}

// Compile is shorthand for NewCompiler(config).Compile(p).
func Compile(p *syntax.Pattern, config CompilerConfig) (*Program, error) {
	return NewCompiler(config).Compile(p)
}

// Compile translates p into a Program.
//
// The resulting graph is
//
//	Reset(all) -> Repeat(DeepAny, lazy) -> Mark -> pattern -> Term
//
// where the lazy DeepAny repetition lets a match begin at any token.
func (c *Compiler) Compile(p *syntax.Pattern) (*Program, error) {
	c.builder = NewBuilder()
	c.bounds = nil
	c.depth = 0

	text := p.String()
	entry, err := c.compilePattern(p)
	if err != nil {
		return nil, &CompileError{Pattern: text, Err: err}
	}

	graph, err := c.builder.Build(entry, c.bounds)
	if err != nil {
		return nil, &CompileError{Pattern: text, Err: err}
	}

	return &Program{
		Graph:   graph,
		Initial: repstate.New(c.bounds),
		Global:  c.config.Global,
		Pattern: text,
	}, nil
}

func (c *Compiler) compilePattern(p *syntax.Pattern) (NodeID, error) {
	term := c.builder.AddTerm(c.config.Global)

	inner := term
	if p.Matcher != nil {
		var err error
		if inner, err = c.compile(p.Matcher, term); err != nil {
			return InvalidNode, err
		}
	}

	mark := c.builder.AddMark(inner)
	prefix := c.newIndex(0, repstate.Unbounded)
	search, err := c.compileRepeat(prefix, false, mark, func(next NodeID) (NodeID, error) {
		return c.builder.AddDeepAny(next), nil
	})
	if err != nil {
		return InvalidNode, err
	}

	return c.builder.AddReset(0, len(c.bounds), search), nil
}

func (c *Compiler) newIndex(min, max int) int {
	c.bounds = append(c.bounds, repstate.Bounds{Min: min, Max: max})
	return len(c.bounds) - 1
}

func (c *Compiler) compile(n syntax.Node, next NodeID) (NodeID, error) {
	c.depth++
	if c.depth > c.config.MaxRecursionDepth {
		return InvalidNode, ErrTooComplex
	}
	defer func() { c.depth-- }()

	switch n := n.(type) {
	case *syntax.Alternative:
		return c.compileAlternative(n, next)
	case *syntax.Group:
		return c.compileGroup(n, next)
	case *syntax.Quantifier:
		return c.compileQuantifier(n, next)
	case *syntax.NodeMatcher:
		return c.compileNodeMatcher(n, next)
	case *syntax.Gap:
		return c.builder.AddGap(next), nil
	default:
		return InvalidNode, fmt.Errorf("%w: %T", ErrUnsupported, n)
	}
}

func (c *Compiler) compileAlternative(a *syntax.Alternative, next NodeID) (NodeID, error) {
	for i := len(a.Elements) - 1; i >= 0; i-- {
		var err error
		if next, err = c.compile(a.Elements[i], next); err != nil {
			return InvalidNode, err
		}
	}
	return next, nil
}

// compileGroup prefixes every alternative with a reset of the quantifiers
// it introduced, so re-entering a group starts its repetitions afresh.
func (c *Compiler) compileGroup(g *syntax.Group, next NodeID) (NodeID, error) {
	alts := make([]NodeID, 0, len(g.Alternatives))
	for _, a := range g.Alternatives {
		lo := len(c.bounds)
		entry, err := c.compile(a, next)
		if err != nil {
			return InvalidNode, err
		}
		if hi := len(c.bounds); hi > lo {
			entry = c.builder.AddReset(lo, hi, entry)
		}
		alts = append(alts, entry)
	}

	switch len(alts) {
	case 0:
		return next, nil
	case 1:
		return alts[0], nil
	default:
		return c.builder.AddExpression(alts...), nil
	}
}

func (c *Compiler) compileQuantifier(q *syntax.Quantifier, next NodeID) (NodeID, error) {
	if q.Min < 0 || q.Max < syntax.Unbounded || (q.Max != syntax.Unbounded && q.Min > q.Max) {
		return InvalidNode, fmt.Errorf("%w: {%d,%d}", ErrRepeatRange, q.Min, q.Max)
	}
	index := c.newIndex(q.Min, q.Max)
	return c.compileRepeat(index, q.Greedy, next, func(loop NodeID) (NodeID, error) {
		return c.compile(q.Element, loop)
	})
}

// compileNodeMatcher produces Open -> Repeat(Any, lazy) -> Close.
func (c *Compiler) compileNodeMatcher(m *syntax.NodeMatcher, next NodeID) (NodeID, error) {
	closeID := c.builder.AddClose(next)
	index := c.newIndex(0, repstate.Unbounded)
	content, err := c.compileRepeat(index, false, closeID, func(loop NodeID) (NodeID, error) {
		return c.builder.AddAny(loop), nil
	})
	if err != nil {
		return InvalidNode, err
	}
	return c.builder.AddOpen(m.Type, content), nil
}

// compileRepeat builds the Repeat node for index. element compiles one
// iteration given the node to loop back to. The exit continuation is next;
// the choice between another iteration and exiting is ordered by greed.
func (c *Compiler) compileRepeat(index int, greedy bool, next NodeID, element func(loop NodeID) (NodeID, error)) (NodeID, error) {
	rep := c.builder.AddRepeat(index, greedy, next)
	body, err := element(rep)
	if err != nil {
		return InvalidNode, err
	}

	var choice NodeID
	if greedy {
		choice = c.builder.AddExpression(body, next)
	} else {
		choice = c.builder.AddExpression(next, body)
	}

	if err := c.builder.PatchRepeat(rep, body, choice); err != nil {
		return InvalidNode, err
	}
	return rep, nil
}
