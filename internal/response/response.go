// Package response writes the JSON envelope every endpoint returns.
//
// RESPONSE SHAPES:
// Success:
//
//	{"statusCode":200,"data":{...},"message":"Video fetched","success":true}
//
// Failure:
//
//	{"statusCode":404,"message":"video not found with id ...","errors":[],"success":false}
//
// The statusCode in the body is always the HTTP status that was written, so
// clients can rely on either one.
//
// WHY A SEPARATE PACKAGE?
// Both the handlers and the auth middleware need to emit failures in the
// same shape. Putting the helpers here keeps auth from importing handler.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/vidtube/internal/apperror"
)

// Envelope is the success body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope is the failure body. Errors is never null so clients can
// always iterate it.
type ErrorEnvelope struct {
	StatusCode int                   `json:"statusCode"`
	Message    string                `json:"message"`
	Errors     []apperror.FieldError `json:"errors"`
	Success    bool                  `json:"success"`
}

// JSON wraps data in the success envelope.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error maps err to an HTTP status and writes the failure envelope.
//
// ERROR MAPPING:
// This is the only place where domain errors become HTTP codes. errors.Is
// walks the whole Unwrap chain, so a service that returns
// fmt.Errorf("liking video: %w", apperror.NotFound(...)) still maps to 404.
func Error(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never leak driver messages, paths or SQL to clients.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		Fail(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	}

	Fail(w, status, appErr.Message, appErr.Fields)
}

// Fail writes a failure envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, message string, fields []apperror.FieldError) {
	if fields == nil {
		fields = []apperror.FieldError{}
	}
	write(w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		Errors:     fields,
		Success:    false,
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; logging is all that is left.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
