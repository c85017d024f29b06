// Package toolerrors provides a structured error type for tool invocation
// failures that preserves message and causal context while still
// implementing the standard error interface and errors.Is/As.
package toolerrors

import (
	"errors"
	"fmt"
)

// ToolError represents a structured tool failure. A Code classifies the
// failure per the orchestration core's error taxonomy (E_UNKNOWN_TOOL,
// E_BAD_ARGS, ...); Cause links to a wrapped error when one exists.
type ToolError struct {
	Code    string
	Message string
	Cause   *ToolError
}

// New constructs a ToolError with the given code and message.
func New(code, message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Code: code, Message: message}
}

// NewWithCause constructs a ToolError that wraps an underlying error.
func NewWithCause(code, message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Code: code, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a ToolError chain, preserving an
// existing ToolError's code if the error already is one.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Errorf formats a message and returns it as an uncoded ToolError.
func Errorf(format string, args ...any) *ToolError {
	return New("", fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap supports errors.Is/As against the cause chain.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}
