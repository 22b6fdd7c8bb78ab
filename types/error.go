package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Definition and graph errors (structural, raised at build time)
const (
	ErrMalformedDefinition ErrorCode = "MALFORMED_DEFINITION"
	ErrDuplicateNode       ErrorCode = "DUPLICATE_NODE"
	ErrDanglingReference   ErrorCode = "DANGLING_REFERENCE"
	ErrUnreachableNode     ErrorCode = "UNREACHABLE_NODE"
	ErrNoEntryPoint        ErrorCode = "NO_ENTRY_POINT"
)

// Registry errors
const (
	ErrUnknownAgentType   ErrorCode = "UNKNOWN_AGENT_TYPE"
	ErrDuplicateAgentType ErrorCode = "DUPLICATE_AGENT_TYPE"
)

// Runtime errors (captured per node, drive failure-path routing)
const (
	ErrNoRouteMatched       ErrorCode = "NO_ROUTE_MATCHED"
	ErrInvalidDynamicTarget ErrorCode = "INVALID_DYNAMIC_TARGET"
	ErrMissingField         ErrorCode = "MISSING_FIELD"
	ErrAgentExecution       ErrorCode = "AGENT_EXECUTION"
)

// Error represents a structured error with code, message, and location
// metadata pointing at the offending definition row or graph node.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Graph   string    `json:"graph,omitempty"`
	Node    string    `json:"node,omitempty"`
	Row     int       `json:"row,omitempty"`
	Field   string    `json:"field,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithGraph sets the graph name the error belongs to.
func (e *Error) WithGraph(graph string) *Error {
	e.Graph = graph
	return e
}

// WithNode sets the node name the error points at.
func (e *Error) WithNode(node string) *Error {
	e.Node = node
	return e
}

// WithRow sets the 1-based definition row the error points at.
func (e *Error) WithRow(row int) *Error {
	e.Row = row
	return e
}

// WithField sets the definition field the error points at.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsStructural reports whether the code belongs to the build-time family.
// Structural errors must prevent a run from ever starting.
func IsStructural(code ErrorCode) bool {
	switch code {
	case ErrMalformedDefinition, ErrDuplicateNode, ErrDanglingReference,
		ErrUnreachableNode, ErrNoEntryPoint:
		return true
	}
	return false
}
