// Package common defines the error taxonomy shared across the auth core.
// Callers match errors with errors.Is against the sentinel values below;
// matching is by Code, so wrapped errors created with Wrap compare equal to
// the sentinel of the same code.
package common

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error class. Codes are part of the
// public contract and never change between releases.
type Code string

const (
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeRequiresPassword   Code = "REQUIRES_PASSWORD"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInternal           Code = "INTERNAL"
)

// Error pairs a taxonomy Code with a human-readable message. The wrapped
// cause, if any, is reachable through Unwrap but is never included in the
// user-visible message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error carrying the same Code. This makes
// errors.Is(err, ErrNotFound) hold for any NOT_FOUND error regardless of
// message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New builds a taxonomy error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a taxonomy error that keeps cause for diagnostics while
// exposing only code and message to callers.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Sentinel values for errors.Is matching.
var (
	ErrUnauthenticated    = New(CodeUnauthenticated, "unauthenticated")
	ErrNotFound           = New(CodeNotFound, "not found")
	ErrAlreadyExists      = New(CodeAlreadyExists, "already exists")
	ErrRequiresPassword   = New(CodeRequiresPassword, "password must be set first")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "incorrect credentials")
	ErrInternal           = New(CodeInternal, "internal error")
)
