// Package apperr carries the error taxonomy of the delivery core. Handler
// failures are translated to a safe wire message by SafeMessage; only
// authentication errors terminate a connection.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an AppError.
type Code string

const (
	// CodeUnauthorized missing or invalid token, fatal to the connection
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeValidation not a participant, blocked conversation, malformed content
	CodeValidation Code = "VALIDATION"
	// CodeNotFound conversation or message absent
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict duplicate block, self block, self conversation
	CodeConflict Code = "CONFLICT"
	// CodeStore document or key-value store unavailable
	CodeStore Code = "STORE"
)

// AppError is a code-classified error, optionally wrapping its origin.
type AppError struct {
	Code    Code
	Message string
	Origin  error
}

func (e *AppError) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

// Unwrap exposes the origin to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Origin
}

// New creates an AppError without an origin.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(code Code, message string, origin error) *AppError {
	return &AppError{Code: code, Message: message, Origin: origin}
}

// Unauthorized shorthand for CodeUnauthorized.
func Unauthorized(message string) *AppError { return New(CodeUnauthorized, message) }

// Validation shorthand for CodeValidation.
func Validation(message string) *AppError { return New(CodeValidation, message) }

// NotFound shorthand for CodeNotFound.
func NotFound(message string) *AppError { return New(CodeNotFound, message) }

// Conflict shorthand for CodeConflict.
func Conflict(message string) *AppError { return New(CodeConflict, message) }

// Store wraps a store failure.
func Store(message string, origin error) *AppError { return Wrap(CodeStore, message, origin) }

// CodeOf returns the code of err, or CodeStore when err is not an AppError.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStore
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// SafeMessage is the message surfaced to the wire error event. Store failures
// collapse to a generic message so internals never leak to clients.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeStore {
		return appErr.Message
	}
	return "operation failed"
}
