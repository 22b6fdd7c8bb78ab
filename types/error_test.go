package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrDuplicateNode, "node defined twice").
		WithGraph("support").WithNode("classify").WithRow(3)

	assert.Equal(t, "[DUPLICATE_NODE] node defined twice", err.Error())
	assert.Equal(t, "support", err.Graph)
	assert.Equal(t, "classify", err.Node)
	assert.Equal(t, 3, err.Row)
}

func TestErrorCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewError(ErrAgentExecution, "agent failed").WithCause(cause)

	assert.Contains(t, err.Error(), "root cause")
	assert.ErrorIs(t, err, cause)
}

func TestGetErrorCode(t *testing.T) {
	err := NewError(ErrMissingField, "missing").WithField("user")
	assert.Equal(t, ErrMissingField, GetErrorCode(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, ErrMissingField, GetErrorCode(wrapped))

	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))

	assert.True(t, HasCode(wrapped, ErrMissingField))
	assert.False(t, HasCode(wrapped, ErrNoRouteMatched))
}

func TestIsStructural(t *testing.T) {
	structural := []ErrorCode{
		ErrMalformedDefinition, ErrDuplicateNode, ErrDanglingReference,
		ErrUnreachableNode, ErrNoEntryPoint,
	}
	for _, code := range structural {
		assert.True(t, IsStructural(code), code)
	}

	runtime := []ErrorCode{
		ErrUnknownAgentType, ErrDuplicateAgentType, ErrNoRouteMatched,
		ErrInvalidDynamicTarget, ErrMissingField, ErrAgentExecution,
	}
	for _, code := range runtime {
		assert.False(t, IsStructural(code), code)
	}
}

func TestErrorAsTarget(t *testing.T) {
	var typed *Error
	err := fmt.Errorf("wrap: %w", NewError(ErrNoEntryPoint, "no entry"))
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ErrNoEntryPoint, typed.Code)
}
