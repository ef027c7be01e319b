package tree

import (
	"errors"

	"github.com/coregx/spamex/token"
)

// Protocol violations reported by the Builder.
var (
	// ErrHeld is returned for any token other than OpenNode or Gap while a
	// node is held.
	ErrHeld = errors.New("cannot accept this token while holding a node")

	// ErrAlreadyHolding is returned by Hold when a node is already held.
	ErrAlreadyHolding = errors.New("a node is already held")

	// ErrMissingReference is returned when a node is not preceded by an
	// unbound Reference in its parent.
	ErrMissingReference = errors.New("node must follow a reference")

	ErrDoctypeRedeclared = errors.New("doctype already declared")
	ErrMissingDoctype    = errors.New("untyped node requires a doctype")
	ErrMultipleRoots     = errors.New("document already has a root node")
	ErrNoOpenNode        = errors.New("token outside of any node")
	ErrUnbalancedClose   = errors.New("close without an open node")
	ErrDuplicateProperty = errors.New("duplicate property")
	ErrFinalized         = errors.New("node is already finalized")

	// ErrShiftUnimplemented is returned for Shift tokens.
	ErrShiftUnimplemented = errors.New("shift is not implemented")

	ErrUnknownToken = errors.New("unrecognized token kind")
)

// ProtocolError reports a token that violates the stream protocol.
type ProtocolError struct {
	Token token.Token
	Err   error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return "spamex: protocol error at " + e.Token.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
