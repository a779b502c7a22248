// Package apperr defines the error kinds shared by the trip and document
// pipelines. Callers wrap one of the sentinels with %w and the HTTP layer maps
// the kind to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks missing or malformed request fields.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks a missing or rejected identity token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks a record that does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a failed call to an external service or an unexpected response shape.
	ErrUpstream = errors.New("upstream error")
	// ErrDecode marks image bytes that could not be decoded.
	ErrDecode = errors.New("decode error")
	// ErrRecognition marks an OCR engine failure.
	ErrRecognition = errors.New("recognition error")
)

// MaxPayload is the number of bytes of an upstream payload kept in error messages.
const MaxPayload = 500

// Truncate shortens payload to at most n bytes, marking the cut.
func Truncate(payload string, n int) string {
	if n <= 0 || len(payload) <= n {
		return payload
	}
	return payload[:n] + "...(truncated)"
}

// Upstream returns an ErrUpstream carrying a truncated copy of the upstream payload.
func Upstream(msg string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	return fmt.Errorf("%w: %s: %s", ErrUpstream, msg, Truncate(string(payload), MaxPayload))
}

// Validation returns an ErrValidation with the given message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Status maps an error kind to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
