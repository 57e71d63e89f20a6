// Package apperror defines the typed errors shared by every layer.
//
// The service and repository layers return these; internal/response is the
// only place that turns them into HTTP status codes. Everything that is not
// an *AppError is reported to clients as a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel
	Message string       // human-readable error message
	Field   string       // optional: first field causing the error
	Fields  []FieldError // optional: every invalid field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound for lookups that are not keyed by id
// (usernames, emails).
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Invalid reports several invalid fields at once. The first field's message
// becomes the top-level message.
func Invalid(fields ...FieldError) *AppError {
	msg := "invalid request"
	field := ""
	if len(fields) > 0 {
		msg = fields[0].Message
		field = fields[0].Field
	}
	return &AppError{
		Err:     ErrValidation,
		Message: msg,
		Field:   field,
		Fields:  fields,
	}
}

// Conflict reports a uniqueness clash, e.g. a username that is already taken.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized marks a missing, invalid or expired credential (401).
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// IsAppError reports whether err wraps an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
