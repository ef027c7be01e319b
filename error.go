package spamex

import (
	"errors"

	"github.com/coregx/spamex/matcher"
	"github.com/coregx/spamex/tree"
)

// Errors reported while reading the token stream.
var (
	// ErrMissingDoctype is reported when the first token is not a Doctype.
	ErrMissingDoctype = errors.New("stream must start with a doctype")

	// ErrSequenceReused is reported when a match sequence is iterated twice.
	ErrSequenceReused = errors.New("match sequence already consumed")
)

// StreamError reports a problem with the token source.
type StreamError struct {
	Err error
}

// Error implements the error interface
func (e *StreamError) Error() string {
	return "spamex: stream error: " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *StreamError) Unwrap() error {
	return e.Err
}

// The error types of the lower layers are part of this package's API.
type (
	// CompileError reports a pattern that cannot be compiled.
	CompileError = matcher.CompileError
	// ProtocolError reports a token that violates the stream protocol.
	ProtocolError = tree.ProtocolError
)
