package http

import (
	"encoding/json"
	"net/http"
)

// envelope is the simple JSON wrapper used by the helpers below.
type envelope map[string]any

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends v as JSON with the given status.
//
//	res.JSON(http.StatusOK, map[string]any{"login": true})
func (res *Response) JSON(status int, v any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(v)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends {"message": message} with the given status.
//
//	res.Error(http.StatusBadRequest, "No such user")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// Fail reports an *Error with its own status and anything else as a 500.
func (res *Response) Fail(err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		res.ServerError()
		return
	}
	res.Error(status, err.Error())
}

// Unauthorized sends 401.
func (res *Response) Unauthorized(message ...string) {
	res.Error(http.StatusUnauthorized, first(message, "Unauthorized"))
}

// Forbidden sends 403.
func (res *Response) Forbidden(message ...string) {
	res.Error(http.StatusForbidden, first(message, "Forbidden"))
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found"))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Internal server error"))
}

// ── Redirects ────────────────────────────────────────────────────────────────

// Redirect performs an HTTP redirect with the given status.
//
//	res.Redirect(http.StatusFound, "/login")
func (res *Response) Redirect(status int, url string) {
	res.w.Header().Set("Location", url)
	res.w.WriteHeader(status)
}

// RedirectTo performs a 302 redirect.
func (res *Response) RedirectTo(url string) {
	res.Redirect(http.StatusFound, url)
}

func first(vals []string, fallback string) string {
	if len(vals) > 0 && vals[0] != "" {
		return vals[0]
	}
	return fallback
}
