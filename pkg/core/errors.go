package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the expected failure modes of the module system.
type ErrorKind string

// Error kinds.
const (
	// ErrInvalidInput means a required name, source, or path was missing.
	ErrInvalidInput ErrorKind = "invalid_input"
	// ErrPermissionDenied means the target module is core-classified.
	ErrPermissionDenied ErrorKind = "permission_denied"
	// ErrNotFound means an artifact or backup does not exist.
	ErrNotFound ErrorKind = "not_found"
	// ErrCompileFailure means the source failed to compile.
	ErrCompileFailure ErrorKind = "compile_failure"
	// ErrValidationFailure means the staged artifact failed validation.
	ErrValidationFailure ErrorKind = "validation_failure"
	// ErrSwapFailure means a reload failed and a rollback occurred.
	ErrSwapFailure ErrorKind = "swap_failure"
	// ErrConflict means a reload for the same module was already in flight.
	ErrConflict ErrorKind = "conflict"
	// ErrInternalFault means an unexpected fault was caught at a stage
	// boundary and converted into a structured result.
	ErrInternalFault ErrorKind = "internal_fault"
)

// Error is the structured error carried across component boundaries.
// Callers never see a raw panic or stack trace.
type Error struct {
	Kind    ErrorKind
	Module  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Module != "" {
		return fmt.Sprintf("%s: module %q: %s", e.Kind, e.Module, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds a structured error for the given kind and module.
func NewError(kind ErrorKind, module, format string, args ...any) *Error {
	return &Error{Kind: kind, Module: module, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying cause with a kind and module.
func WrapError(kind ErrorKind, module string, err error) *Error {
	return &Error{Kind: kind, Module: module, Err: err}
}

// KindOf extracts the ErrorKind from err, or ErrInternalFault if err is
// not a structured Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternalFault
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
