// Package engine couples the document tree builder with the matcher VM.
//
// Every token first updates the tree under construction; the VM then
// advances with a step context describing the token and the tree position
// before and after it. An Engine matches one pattern against one stream.
package engine

import (
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/coregx/spamex/matcher"
	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
	"github.com/coregx/spamex/vm"
)

// ErrNotDoctype is returned by SetDoctype for any other token kind.
var ErrNotDoctype = errors.New("expected a doctype token")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithVMConfig sets the VM limits.
func WithVMConfig(c vm.Config) Option {
	return func(e *Engine) {
		e.vmConfig = c
	}
}

// WithLexicalSink installs the receiver of literal text.
func WithLexicalSink(s tree.LexicalSink) Option {
	return func(e *Engine) {
		e.builder.SetLexicalSink(s)
	}
}

// Engine drives one match run.
type Engine struct {
	prog     *matcher.Program
	vm       *vm.VM
	vmConfig vm.Config
	builder  *tree.Builder
	logger   *zap.Logger
}

// New returns an Engine running prog.
func New(prog *matcher.Program, opts ...Option) *Engine {
	e := &Engine{
		prog:     prog,
		vmConfig: vm.DefaultConfig(),
		builder:  tree.NewBuilder(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.vm = vm.New(prog, e.vmConfig)
	return e
}

// SetDoctype records the stream's doctype without advancing the search.
func (e *Engine) SetDoctype(tok token.Token) error {
	if tok.Kind != token.Doctype {
		return &tree.ProtocolError{Token: tok, Err: ErrNotDoctype}
	}
	if _, err := e.builder.Feed(tok); err != nil {
		return err
	}
	lang, _ := tok.Attributes[token.LanguageAttribute].(string)
	e.logger.Debug("doctype recorded", zap.String("language", lang))
	return nil
}

// Feed applies one token, or a BOS/EOS sentinel, to the tree and the search.
func (e *Engine) Feed(tok token.Token) error {
	ctx := matcher.Context{Token: tok}

	if tok.Kind.IsSentinel() {
		p := e.builder.Path()
		ctx.Before, ctx.After = p, p
	} else {
		step, err := e.builder.Feed(tok)
		if err != nil {
			e.logger.Warn("protocol error", zap.Stringer("token", tok), zap.Error(err))
			return err
		}
		ctx.Before, ctx.After, ctx.Node = step.Before, step.After, step.Node
	}

	if err := e.vm.Feed(ctx); err != nil {
		e.logger.Warn("search aborted",
			zap.Int("step", e.vm.Step()),
			zap.Int("branches", e.vm.Next().Len()),
			zap.Error(err))
		return fmt.Errorf("spamex: step %d: %w", e.vm.Step(), err)
	}
	return nil
}

// Traverse0 yields the matches completed by the last Feed.
func (e *Engine) Traverse0() iter.Seq[vm.Match] {
	return e.vm.Traverse0()
}

// Traverse1 commits the last Feed.
func (e *Engine) Traverse1() {
	e.vm.Traverse1()
}

// Done reports whether the search can produce no further match.
func (e *Engine) Done() bool {
	return e.vm.Done()
}

// Hold sets the node the next Gap token resolves to.
func (e *Engine) Hold(n *tree.Node) error {
	return e.builder.Hold(n)
}

// Document returns the document built so far.
func (e *Engine) Document() *tree.Document {
	return e.builder.Document()
}
