// Package endpoint turns Handler values into http.HandlerFuncs: the
// handler returns a result or an error and the processor writes the
// response.
//
//	type loginBody struct {
//	    User string `json:"user" validate:"required"`
//	    Pass string `json:"pass" validate:"required"`
//	}
//
//	router.Post("/login", proc.Serve(endpoint.Body(func(c *endpoint.Context, b loginBody) (any, error) {
//	    ...
//	    return map[string]any{"login": true}, nil
//	})))
package endpoint

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	khttp "github.com/km-arc/katapult/framework/http"
	"github.com/km-arc/katapult/framework/session"
)

// ── Context ──────────────────────────────────────────────────────────────────

// Context is what a handler sees of its request.
type Context struct {
	Request  *khttp.Request
	Response *khttp.Response

	w      http.ResponseWriter
	r      *http.Request
	logger *zap.Logger
}

// NewContext wraps a request and its writer.
func NewContext(w http.ResponseWriter, r *http.Request, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Request:  khttp.NewRequest(r),
		Response: khttp.NewResponse(w),
		w:        w,
		r:        r,
		logger:   logger,
	}
}

// Raw returns the underlying request.
func (c *Context) Raw() *http.Request { return c.r }

// Writer returns the underlying response writer.
func (c *Context) Writer() http.ResponseWriter { return c.w }

// Context returns the request context.
func (c *Context) Context() context.Context { return c.r.Context() }

// Session returns the request's session.
func (c *Context) Session() *session.Session { return session.From(c.r.Context()) }

// Logger returns the endpoint logger.
func (c *Context) Logger() *zap.Logger { return c.logger }

// Param returns a route parameter.
func (c *Context) Param(key string) string { return c.Request.RouteParam(key) }

// ── Handlers ─────────────────────────────────────────────────────────────────

// Handler is an endpoint. A nil result with a nil error means the handler
// wrote the response itself, or that there is nothing to write.
type Handler interface {
	Handle(c *Context) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(c *Context) (any, error)

// Handle calls f(c).
func (f HandlerFunc) Handle(c *Context) (any, error) { return f(c) }

// Func adapts a function to Handler.
func Func(fn func(c *Context) (any, error)) Handler { return HandlerFunc(fn) }

// Body decodes and validates the request body into B before calling fn.
// Decoding and validation failures are 400 errors.
func Body[B any](fn func(c *Context, body B) (any, error)) Handler {
	return HandlerFunc(func(c *Context) (any, error) {
		var body B
		if err := c.Request.BindValid(&body); err != nil {
			return nil, err
		}
		return fn(c, body)
	})
}

// Result lets a handler pick the status of a successful response.
type Result struct {
	Status int
	Body   any
}

// Created is a 201 result.
func Created(body any) Result { return Result{Status: http.StatusCreated, Body: body} }
