package http

import (
	"errors"
	"net/http"
)

// Error is an error carrying the HTTP status it should be reported with.
// Handlers return it to produce {"message": ...} with that status.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// NewError returns an *Error. An empty message falls back to the status text.
func NewError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message}
}

// BadRequest is a 400 error.
func BadRequest(message string) *Error { return NewError(http.StatusBadRequest, message) }

// Unauthorized is a 401 error.
func Unauthorized(message string) *Error { return NewError(http.StatusUnauthorized, message) }

// Forbidden is a 403 error.
func Forbidden(message string) *Error { return NewError(http.StatusForbidden, message) }

// NotFound is a 404 error.
func NotFound(message string) *Error { return NewError(http.StatusNotFound, message) }

// MethodNotAllowed is a 405 error.
func MethodNotAllowed(message string) *Error {
	return NewError(http.StatusMethodNotAllowed, message)
}

// TooLarge is a 413 error.
func TooLarge(message string) *Error { return NewError(http.StatusRequestEntityTooLarge, message) }

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var he *Error
	if errors.As(err, &he) {
		return he.Status
	}
	return http.StatusInternalServerError
}
