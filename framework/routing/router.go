package routing

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Filter runs before routing. Returning false stops the request; the filter
// is then responsible for having written a response.
type Filter func(w http.ResponseWriter, r *http.Request) bool

type filterEntry struct {
	pattern string
	fn      Filter
}

// filterChain is shared by a router and every group or prefix derived from it.
type filterChain struct {
	mu      sync.RWMutex
	entries []filterEntry
}

func (c *filterChain) add(pattern string, fn Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, filterEntry{pattern: pattern, fn: fn})
}

func (c *filterChain) run(w http.ResponseWriter, r *http.Request) bool {
	c.mu.RLock()
	entries := c.entries
	c.mu.RUnlock()
	for _, e := range entries {
		if Match(e.pattern, r.URL.Path) && !e.fn(w, r) {
			return false
		}
	}
	return true
}

// Router wraps chi.Router with Javalin-style before filters.
type Router struct {
	mux     chi.Router
	filters *filterChain
}

// New creates a Router with RealIP installed.
func New() *Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	return &Router{mux: r, filters: &filterChain{}}
}

func (r *Router) derive(mx chi.Router) *Router {
	return &Router{mux: mx, filters: r.filters}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, h)
	}
}

// Handle mounts an http.Handler for every method.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's path.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(r.derive(mx))
	})
}

// Prefix creates a sub-router mounted under pattern, e.g. "/api/auth".
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(r.derive(mx))
	})
}

// ── Middleware & Filters ─────────────────────────────────────────────────────

// Middleware adds chi middleware. As with chi, it must be added before any
// route on the same router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// Before registers a filter for an absolute path pattern: either an exact
// path ("/login") or a prefix glob ("/api/admin/*", "/*"). Filters may be
// added at any time and run in registration order, before route matching.
//
//	router.Before("/api/admin/*", func(w http.ResponseWriter, r *http.Request) bool {
//	    if !isAdmin(r) {
//	        khttp.NewResponse(w).Unauthorized("Unauthorized")
//	        return false
//	    }
//	    return true
//	})
func (r *Router) Before(pattern string, fn Filter) {
	r.filters.add(pattern, fn)
}

// Match reports whether path matches a filter pattern.
func Match(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return pattern == path
}

// NotFound sets the handler used when no route matches.
func (r *Router) NotFound(h http.HandlerFunc) {
	r.mux.NotFound(h)
}

// ── Static files ─────────────────────────────────────────────────────────────

// Static serves a directory at the given prefix.
// e.g. router.Static("/public", "./public")
func (r *Router) Static(prefix, dir string) {
	prefix = strings.TrimSuffix(prefix, "/")
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.mux.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Introspection ────────────────────────────────────────────────────────────

// Route is one registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

// Routes walks the routing tree and returns every route, sorted by pattern
// then method.
func (r *Router) Routes() []Route {
	var out []Route
	_ = chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{Method: method, Pattern: route})
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP runs the before filters, then the chi mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !r.filters.run(w, req) {
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Handler returns r as an http.Handler.
func (r *Router) Handler() http.Handler {
	return r
}
