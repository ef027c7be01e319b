package spamex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/coregx/spamex/engine"
	"github.com/coregx/spamex/stream"
	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
	"github.com/coregx/spamex/vm"
)

// MatchOption configures a match sequence.
type MatchOption func(*matchOptions)

type matchOptions struct {
	logger *zap.Logger
	sink   tree.LexicalSink
}

// WithLogger logs stream progress and failures to l.
func WithLogger(l *zap.Logger) MatchOption {
	return func(o *matchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLexicalSink receives the text of literal tokens and escape nodes.
func WithLexicalSink(s tree.LexicalSink) MatchOption {
	return func(o *matchOptions) {
		o.sink = s
	}
}

// Matches returns the lazy sequence of matches of p in the token stream
// read from src.
//
// Tokens are pulled only as the sequence is consumed, and reading stops as
// soon as no further match is possible. A failure is yielded once, as the
// last element. src is closed exactly once when the sequence ends, whether
// it ran to completion, failed, or was abandoned by the consumer.
//
// The returned sequence is single-use.
func (p *Pattern) Matches(ctx context.Context, src stream.Source, opts ...MatchOption) iter.Seq2[Match, error] {
	o := matchOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var used atomic.Bool
	return func(yield func(Match, error) bool) {
		if used.Swap(true) {
			yield(Match{}, ErrSequenceReused)
			return
		}
		defer src.Close()
		p.run(ctx, src, &o, yield)
	}
}

func (p *Pattern) run(ctx context.Context, src stream.Source, o *matchOptions, yield func(Match, error) bool) {
	log := o.logger.With(zap.String("pattern", p.expr))
	engOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithVMConfig(vm.Config{MaxBranches: p.config.MaxBranches}),
	}
	if o.sink != nil {
		engOpts = append(engOpts, engine.WithLexicalSink(o.sink))
	}
	eng := engine.New(p.prog, engOpts...)

	fail := func(err error) {
		yield(Match{}, err)
	}

	first, err := src.Next(ctx)
	switch {
	case errors.Is(err, io.EOF):
		log.Warn("empty stream")
		fail(&StreamError{Err: ErrMissingDoctype})
		return
	case err != nil:
		fail(&StreamError{Err: fmt.Errorf("reading doctype: %w", err)})
		return
	case first.Kind != token.Doctype:
		log.Warn("stream does not start with a doctype", zap.Stringer("token", first))
		fail(&StreamError{Err: ErrMissingDoctype})
		return
	}
	if err := eng.SetDoctype(first); err != nil {
		fail(err)
		return
	}
	log.Debug("stream started", zap.Bool("global", p.config.Global))

	found := 0
	emit := func() bool {
		for m := range eng.Traverse0() {
			found++
			if !yield(Match{Global: m.Global, Captures: m.Captures, Start: m.Start, End: m.End}, nil) {
				return false
			}
		}
		eng.Traverse1()
		return true
	}

	if err := eng.Feed(token.BOSToken); err != nil {
		fail(err)
		return
	}
	if !emit() {
		return
	}

	for n := 1; !eng.Done(); n++ {
		tok, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := eng.Feed(token.EOSToken); err != nil {
				fail(err)
				return
			}
			if emit() {
				log.Debug("stream finished", zap.Int("tokens", n-1), zap.Int("matches", found))
			}
			return
		}
		if err != nil {
			log.Warn("stream failed", zap.Int("token", n), zap.Error(err))
			fail(&StreamError{Err: fmt.Errorf("reading token %d: %w", n, err)})
			return
		}
		if err := eng.Feed(tok); err != nil {
			fail(err)
			return
		}
		if !emit() {
			return
		}
	}
	log.Debug("search complete", zap.Int("matches", found))
}

// FindAll returns every match the sequence produces: all matches in global
// mode, at most one otherwise.
func (p *Pattern) FindAll(ctx context.Context, src stream.Source, opts ...MatchOption) ([]Match, error) {
	var out []Match
	for m, err := range p.Matches(ctx, src, opts...) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Find returns the first match. The source is closed as soon as it is found.
func (p *Pattern) Find(ctx context.Context, src stream.Source, opts ...MatchOption) (Match, bool, error) {
	for m, err := range p.Matches(ctx, src, opts...) {
		if err != nil {
			return Match{}, false, err
		}
		return m, true, nil
	}
	return Match{}, false, nil
}

// MatchTokens matches p against an in-memory token stream.
func (p *Pattern) MatchTokens(toks ...token.Token) ([]Match, error) {
	return p.FindAll(context.Background(), stream.FromTokens(toks...))
}
