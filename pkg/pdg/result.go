package pdg

import (
	"errors"
	"fmt"
)

// ClearSentinel occupies the error slot of a Result without making it an error.
const ClearSentinel = "clear"

// ErrorKind classifies analysis failures.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindParse        ErrorKind = "parse"         // Source could not be parsed into a line
	KindInvalidNode  ErrorKind = "invalid_node"  // Handle does not refer to a live node
	KindInvalidWrite ErrorKind = "invalid_write" // Write or read record is malformed
	KindUnsupported  ErrorKind = "unsupported"   // Input language or construct not handled
	KindNotFound     ErrorKind = "not_found"     // Requested function or line does not exist
)

// Sentinel errors for errors.Is matching against *AnalysisError.
var (
	ErrParse        = errors.New("parse failure")
	ErrInvalidNode  = errors.New("invalid node reference")
	ErrInvalidWrite = errors.New("invalid variable record")
	ErrUnsupported  = errors.New("unsupported input")
	ErrNotFound     = errors.New("not found")
)

// AnalysisError is the error form of a failed Result.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
}

func (e *AnalysisError) Error() string {
	if e.Kind == KindNone {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the sentinel error of the same kind.
func (e *AnalysisError) Is(target error) bool {
	return kindSentinel(e.Kind) == target && target != nil
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindParse:
		return ErrParse
	case KindInvalidNode:
		return ErrInvalidNode
	case KindInvalidWrite:
		return ErrInvalidWrite
	case KindUnsupported:
		return ErrUnsupported
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// NewAnalysisError creates an AnalysisError with a formatted message.
func NewAnalysisError(kind ErrorKind, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Result carries either a produced node or a failure message.
//
// The error slot has three states: unset, set to ClearSentinel, and set to a
// real message. Only the last one counts as an error. Callers must check
// HasError before using Node, and must still expect a nil Node from a
// cleared Result.
type Result struct {
	node    *LineNode
	handle  Handle
	message string
	kind    ErrorKind
	failed  bool
}

// Ok wraps a successfully produced node.
func Ok(node *LineNode) Result {
	return Result{node: node, handle: InvalidHandle}
}

// OkAt wraps a node together with its graph handle.
func OkAt(h Handle, node *LineNode) Result {
	return Result{node: node, handle: h}
}

// Fail creates a failed Result carrying message.
func Fail(message string) Result {
	return Result{message: message, handle: InvalidHandle, failed: true}
}

// FailKind creates a failed Result with a classified kind.
func FailKind(kind ErrorKind, format string, args ...any) Result {
	return Result{
		message: fmt.Sprintf(format, args...),
		kind:    kind,
		handle:  InvalidHandle,
		failed:  true,
	}
}

// Skipped returns a Result whose error slot holds ClearSentinel: nothing was
// produced, and nothing went wrong.
func Skipped() Result {
	return Fail(ClearSentinel)
}

// HasError reports whether the Result holds a real failure.
func (r Result) HasError() bool {
	return r.failed && r.message != ClearSentinel
}

// IsCleared reports whether the error slot holds ClearSentinel.
func (r Result) IsCleared() bool {
	return r.failed && r.message == ClearSentinel
}

// Message returns the error slot and whether it is set.
func (r Result) Message() (string, bool) {
	return r.message, r.failed
}

// Kind returns the failure classification, KindNone for successes.
func (r Result) Kind() ErrorKind {
	if !r.HasError() {
		return KindNone
	}
	return r.kind
}

// Node returns the produced node, nil for failed or cleared results.
func (r Result) Node() *LineNode {
	return r.node
}

// Handle returns the graph handle of the node, InvalidHandle if unknown.
func (r Result) Handle() Handle {
	return r.handle
}

// Err converts a failure into an *AnalysisError, nil otherwise.
func (r Result) Err() error {
	if !r.HasError() {
		return nil
	}
	return &AnalysisError{Kind: r.kind, Message: r.message}
}

func (r Result) String() string {
	switch {
	case r.HasError():
		return "error: " + r.message
	case r.IsCleared():
		return "cleared"
	case r.node != nil:
		return r.node.String()
	default:
		return "<empty>"
	}
}
