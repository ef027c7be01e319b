package stream

import (
	"context"
	"io"
	"sync"

	"github.com/coregx/spamex/token"
)

// Emit hands one token to the consumer of an asynchronous source. It blocks
// until the consumer asks for the token and fails once the source is closed.
type Emit func(token.Token) error

// Producer writes a token stream through emit and returns nil at the end of
// the stream. It runs on its own goroutine and must return when ctx is
// cancelled.
type Producer func(ctx context.Context, emit Emit) error

type item struct {
	tok token.Token
	err error
}

type asyncSource struct {
	items  chan item
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// Async runs produce on a new goroutine and returns a Source reading what
// it emits. Tokens are handed over one at a time; the producer never runs
// ahead of the consumer by more than one token.
func Async(ctx context.Context, produce Producer) Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &asyncSource{
		items:  make(chan item),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, produce)
	return s
}

// FromChan returns a Source reading ch until it is closed.
func FromChan(ch <-chan token.Token) Source {
	return Async(context.Background(), func(ctx context.Context, emit Emit) error {
		for {
			select {
			case tok, ok := <-ch:
				if !ok {
					return nil
				}
				if err := emit(tok); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

func (s *asyncSource) run(ctx context.Context, produce Producer) {
	defer close(s.done)

	err := produce(ctx, func(tok token.Token) error {
		select {
		case s.items <- item{tok: tok}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err == nil {
		err = io.EOF
	}
	select {
	case s.items <- item{err: err}:
	case <-ctx.Done():
	}
}

func (s *asyncSource) Next(ctx context.Context) (token.Token, error) {
	if s.err != nil {
		return token.Token{}, s.err
	}
	select {
	case it := <-s.items:
		if it.err != nil {
			s.err = it.err
			return token.Token{}, it.err
		}
		return it.tok, nil
	case <-s.done:
		s.err = ErrClosed
		return token.Token{}, ErrClosed
	case <-ctx.Done():
		return token.Token{}, ctx.Err()
	}
}

// Close cancels the producer and waits for it to return.
func (s *asyncSource) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		if s.err == nil {
			s.err = ErrClosed
		}
	})
	return nil
}
