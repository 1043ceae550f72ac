// Package simerr provides the error taxonomy shared by the simulation engine,
// the checkpoint store and the session manager.
package simerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation   Code = "VALIDATION"    // Parameter out of range or malformed payload
	CodeInvalidState Code = "INVALID_STATE" // Operation not allowed in the current lifecycle state
	CodeNotFound     Code = "NOT_FOUND"     // Unknown team, player or checkpoint id
	CodeFormat       Code = "FORMAT"        // Structurally invalid import/export payload
)

// Sentinels for errors.Is matching by code.
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidState = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrFormat       = &Error{Code: CodeFormat, Message: "invalid format"}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code    Code
	Message string
	Fields  []string // Violated field names, set for validation errors
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s (fields: %s)", msg, strings.Join(e.Fields, ", "))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Validation creates a validation error naming the violated fields.
func Validation(message string, fields ...string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// InvalidState creates an invalid-state error.
func InvalidState(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error for the given kind and id.
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}

// Format wraps a decoding or shape failure.
func Format(message string, cause error) *Error {
	return &Error{Code: CodeFormat, Message: message, Cause: cause}
}

// Fields extracts violated field names from a validation error.
func Fields(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeValidation {
		return e.Fields
	}
	return nil
}

// CodeOf returns the code of the first *Error in the chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
