package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/coregx/spamex/token"
)

// JSONSource decodes newline-delimited JSON tokens, one object per token:
//
//	{"kind":"doctype","attributes":{"bablr-language":"test"}}
//	{"kind":"openNode"}
//	{"kind":"reference","name":"foo"}
//	{"kind":"openNode","type":"Foo"}
type JSONSource struct {
	dec    *json.Decoder
	closer io.Closer
	line   int
	closed bool
}

// NewJSONSource returns a Source decoding r. If r is an io.Closer it is
// closed with the source.
func NewJSONSource(r io.Reader) *JSONSource {
	s := &JSONSource{dec: json.NewDecoder(r)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Next implements Source.
func (s *JSONSource) Next(ctx context.Context) (token.Token, error) {
	if s.closed {
		return token.Token{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return token.Token{}, err
	}
	var tok token.Token
	if err := s.dec.Decode(&tok); err != nil {
		if errors.Is(err, io.EOF) {
			return token.Token{}, io.EOF
		}
		return token.Token{}, fmt.Errorf("stream: decoding token %d: %w", s.line+1, err)
	}
	s.line++
	return tok, nil
}

// Close implements Source.
func (s *JSONSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// WriteJSON writes toks to w as newline-delimited JSON.
func WriteJSON(w io.Writer, toks iter.Seq[token.Token]) error {
	enc := json.NewEncoder(w)
	for tok := range toks {
		if err := enc.Encode(tok); err != nil {
			return fmt.Errorf("stream: encoding %v: %w", tok, err)
		}
	}
	return nil
}
