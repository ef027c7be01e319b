// Package spamex matches tree patterns against streams of structural tokens.
//
// A document arrives as a token stream (see package token): a Doctype,
// then open and close tags, references, and literals describing a concrete
// syntax tree depth-first. A pattern describes one or more sibling nodes:
//
//	<Call/>            a node of type Call with any content
//	<? />              a node of any type
//	(<A/> | <B/>)+     one or more A or B siblings
//
// Matching is incremental: the tree is built as tokens arrive and matches
// are reported as soon as they are final, without waiting for the whole
// document.
//
// Basic usage:
//
//	p := spamex.MustCompile("<Call/>")
//	for m, err := range p.Matches(ctx, stream.FromTokens(toks...)) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(tree.PrintOpenTag(m.Captures))
//	}
//
// By default only the first (leftmost) match is reported; set
// Config.Global to report every match.
package spamex

import (
	"github.com/coregx/spamex/matcher"
	"github.com/coregx/spamex/prefilter"
	"github.com/coregx/spamex/syntax"
	"github.com/coregx/spamex/tree"
)

// Pattern is a compiled spamex pattern.
//
// A Pattern is immutable and safe for concurrent use; every match sequence
// owns its own engine state.
type Pattern struct {
	expr   string
	ast    *syntax.Pattern
	prog   *matcher.Program
	config Config
	filter *prefilter.Prefilter
}

// Match is a successful match.
type Match struct {
	// Global reports whether the pattern was compiled in global mode.
	Global bool
	// Captures is the node most recently opened by the match: for a
	// single-node pattern, the matched node.
	Captures *tree.Node
	// Start and End are stream step numbers: the match covers the tokens
	// after step Start up to and including step End. Step 0 is the
	// begin-of-stream sentinel and step 1 the token after the doctype.
	Start int
	End   int
}

// Compile parses a pattern and compiles it with the default configuration.
func Compile(expr string) (*Pattern, error) {
	return CompileWithConfig(expr, DefaultConfig())
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic("spamex: Compile(`" + expr + "`): " + err.Error())
	}
	return p
}

// CompileWithConfig parses and compiles a pattern with a custom configuration.
func CompileWithConfig(expr string, config Config) (*Pattern, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ast, err := syntax.Parse(expr)
	if err != nil {
		return nil, err
	}
	p, err := CompileSyntax(ast, config)
	if err != nil {
		return nil, err
	}
	p.expr = expr
	return p, nil
}

// CompileSyntax compiles an already parsed pattern.
func CompileSyntax(ast *syntax.Pattern, config Config) (*Pattern, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	prog, err := matcher.Compile(ast, matcher.CompilerConfig{
		Global:            config.Global,
		MaxRecursionDepth: config.MaxRecursionDepth,
	})
	if err != nil {
		return nil, err
	}

	p := &Pattern{
		expr:   ast.String(),
		ast:    ast,
		prog:   prog,
		config: config,
	}
	if config.EnablePrefilter {
		if p.filter, err = prefilter.New(prefilter.Extract(ast)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// String returns the source text of the pattern.
func (p *Pattern) String() string {
	return p.expr
}

// Syntax returns the parsed pattern.
func (p *Pattern) Syntax() *syntax.Pattern {
	return p.ast
}

// Program returns the compiled matcher graph.
func (p *Pattern) Program() *matcher.Program {
	return p.prog
}

// Global reports whether the pattern reports every match.
func (p *Pattern) Global() bool {
	return p.config.Global
}

// Prefilter returns the prefilter over the node types every match
// requires, or nil when the pattern cannot be prefiltered.
func (p *Pattern) Prefilter() *prefilter.Prefilter {
	return p.filter
}

// MayMatch reports whether raw input, such as an encoded token stream,
// could contain a match. It returns false only when a node type every match
// requires does not occur in data. Without a usable prefilter it returns true.
func (p *Pattern) MayMatch(data []byte) bool {
	return p.filter.MayMatch(data)
}
