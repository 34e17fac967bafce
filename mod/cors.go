package mod

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/km-arc/katapult/framework/module"
)

// CorsSpec lists the allowed origins. Entries may use one "*" wildcard,
// e.g. "https://*.example.com".
type CorsSpec struct {
	Origins []string
}

// CorsModule answers preflight requests and sets CORS headers for the
// allowed origins.
type CorsModule struct {
	module.BaseModule
	handler func(http.Handler) http.Handler
}

func NewCorsModule(spec CorsSpec) *CorsModule {
	return &CorsModule{handler: cors.Handler(corsOptions(spec.Origins, true))}
}

// CorsAllOrigins allows every origin without credentials.
type CorsAllOrigins struct {
	CorsModule
}

func NewCorsAllOrigins() *CorsAllOrigins {
	return &CorsAllOrigins{CorsModule{handler: cors.Handler(corsOptions([]string{"*"}, false))}}
}

func corsOptions(origins []string, credentials bool) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}

func (m *CorsModule) ConfigureApp(app *module.App) {
	app.Use(m.handler)
}
