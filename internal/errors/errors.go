// Package errors defines the coded application errors that cross layer
// boundaries. Transports map codes to status codes; nothing else inspects them.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
	// ErrCodeUnavailable means a backing store could not be reached.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeUnauthorized means no session material accompanied the request.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeForbidden means a session was present but lacks the privilege.
	ErrCodeForbidden ErrorCode = "forbidden"
)

// AppError is a coded error. Field names the offending input for validation
// errors and doubles as the audit reason for rejected session material.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func isCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool     { return isCode(err, ErrCodeNotFound) }
func IsConflict(err error) bool     { return isCode(err, ErrCodeConflict) }
func IsValidation(err error) bool   { return isCode(err, ErrCodeValidation) }
func IsTimeout(err error) bool      { return isCode(err, ErrCodeTimeout) }
func IsUnavailable(err error) bool  { return isCode(err, ErrCodeUnavailable) }
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }
func IsForbidden(err error) bool    { return isCode(err, ErrCodeForbidden) }

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the outermost AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
