package matcher

import (
	"errors"
	"fmt"
)

// Compilation errors
var (
	// ErrRepeatRange indicates a quantifier whose minimum exceeds its maximum.
	ErrRepeatRange = errors.New("numbers out of order in {} quantifier")

	// ErrTooComplex indicates the pattern nests deeper than the compiler allows.
	ErrTooComplex = errors.New("pattern too complex")

	// ErrUnsupported indicates an AST node the compiler cannot translate.
	ErrUnsupported = errors.New("unsupported pattern node")
)

// CompileError wraps compilation errors with the pattern being compiled.
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("spamex: compiling %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("spamex: compiling pattern: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// BuildError represents an error during graph construction via the Builder API
type BuildError struct {
	Message string
	NodeID  NodeID
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.NodeID != InvalidNode {
		return fmt.Sprintf("matcher build error at node %d: %s", e.NodeID, e.Message)
	}
	return "matcher build error: " + e.Message
}
