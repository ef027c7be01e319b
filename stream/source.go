// Package stream provides token sources for spamex match sequences.
//
// A Source is pulled one token at a time. Sources backed by memory return
// immediately; asynchronous sources (channels, websockets) block inside
// Next until the upstream produces the next token. Every Source must be
// closed exactly once to release what it holds.
package stream

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/coregx/spamex/token"
	"github.com/coregx/spamex/tree"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("stream: source closed")

// Source is a pull-based token source.
type Source interface {
	// Next returns the next token, or io.EOF once the stream is complete.
	Next(ctx context.Context) (token.Token, error)
	// Close releases the upstream. Close is idempotent.
	Close() error
}

// SliceSource reads tokens from memory.
type SliceSource struct {
	toks   []token.Token
	pos    int
	closed bool
}

// FromTokens returns a Source over toks. The slice is not copied.
func FromTokens(toks ...token.Token) *SliceSource {
	return &SliceSource{toks: toks}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (token.Token, error) {
	if s.closed {
		return token.Token{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return token.Token{}, err
	}
	if s.pos >= len(s.toks) {
		return token.Token{}, io.EOF
	}
	tok := s.toks[s.pos]
	s.pos++
	return tok, nil
}

// Close implements Source.
func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	return s.closed
}

type seqSource struct {
	next func() (token.Token, bool)
	stop func()
}

// FromSeq returns a Source pulling from seq. Closing the source stops the
// underlying iterator.
func FromSeq(seq iter.Seq[token.Token]) Source {
	next, stop := iter.Pull(seq)
	return &seqSource{next: next, stop: stop}
}

// FromTree returns a Source over the token stream describing doc.
func FromTree(doc *tree.Document) Source {
	return FromSeq(tree.Tokens(doc))
}

func (s *seqSource) Next(ctx context.Context) (token.Token, error) {
	if s.next == nil {
		return token.Token{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return token.Token{}, err
	}
	tok, ok := s.next()
	if !ok {
		return token.Token{}, io.EOF
	}
	return tok, nil
}

func (s *seqSource) Close() error {
	if s.stop != nil {
		s.stop()
		s.next, s.stop = nil, nil
	}
	return nil
}

// Collect reads src to the end and closes it.
func Collect(ctx context.Context, src Source) ([]token.Token, error) {
	defer src.Close()
	var out []token.Token
	for {
		tok, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}
