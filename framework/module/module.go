// Package module defines the lifecycle hooks a Katapult module may expose
// and the phased registration that calls them.
package module

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/routing"
	"github.com/km-arc/katapult/framework/server"
)

// ── Capability interfaces ────────────────────────────────────────────────────

// AppConfigurer installs application-wide behaviour: middleware, sessions,
// CORS, request loggers and not-found fallbacks.
type AppConfigurer interface {
	ConfigureApp(app *App)
}

// ServerConfigurer adds listeners and start/stop hooks.
type ServerConfigurer interface {
	ConfigureServer(srv *server.Server)
}

// RoutingConfigurer adds routes and before filters.
type RoutingConfigurer interface {
	ConfigureRouting(router *routing.Router)
}

// BaseModule is an embeddable no-op for all three hooks. Embed it and
// override only what the module needs.
//
//	type HealthModule struct{ module.BaseModule }
//
//	func (m *HealthModule) ConfigureRouting(r *routing.Router) {
//	    r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
//	}
type BaseModule struct{}

func (BaseModule) ConfigureApp(*App)                {}
func (BaseModule) ConfigureServer(*server.Server)   {}
func (BaseModule) ConfigureRouting(*routing.Router) {}

// IsModule reports whether v exposes at least one lifecycle hook.
func IsModule(v any) bool {
	switch v.(type) {
	case AppConfigurer, ServerConfigurer, RoutingConfigurer:
		return true
	}
	return false
}

// ── App ──────────────────────────────────────────────────────────────────────

// Fallback handles a request no route matched. It returns false to pass the
// request on to the next fallback.
type Fallback func(w http.ResponseWriter, r *http.Request) bool

// App is the application-level configuration that AppConfigurer modules
// write to.
type App struct {
	logger     *zap.Logger
	middleware []func(http.Handler) http.Handler
	fallbacks  []Fallback
}

// NewApp returns an empty App.
func NewApp(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Use adds middleware around the whole application, router and filters
// included. The first middleware added is the outermost.
func (a *App) Use(mw ...func(http.Handler) http.Handler) {
	a.middleware = append(a.middleware, mw...)
}

// NotFound adds a fallback for unmatched requests. Fallbacks run in the
// order added; when all decline the response is a JSON 404.
func (a *App) NotFound(fb Fallback) {
	a.fallbacks = append(a.fallbacks, fb)
}

// Wrap applies the middleware to h.
func (a *App) Wrap(h http.Handler) http.Handler {
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}
	return h
}

// NotFoundHandler chains the fallbacks.
func (a *App) NotFoundHandler() http.HandlerFunc {
	fallbacks := append([]Fallback(nil), a.fallbacks...)
	return func(w http.ResponseWriter, r *http.Request) {
		for _, fb := range fallbacks {
			if fb(w, r) {
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not found"}` + "\n"))
	}
}
