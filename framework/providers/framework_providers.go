// Package providers binds the framework services every Katapult
// application draws on. Each provider leaves an existing binding alone, so
// an application can register its own first.
package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/config"
	"github.com/km-arc/katapult/framework/container"
	"github.com/km-arc/katapult/framework/endpoint"
)

// ── LoggerServiceProvider ─────────────────────────────────────────────────────

// LoggerServiceProvider binds *zap.Logger. A nil Logger binds a no-op
// logger.
//
// Bound types:
//   - *zap.Logger
type LoggerServiceProvider struct {
	Logger *zap.Logger
}

func (p *LoggerServiceProvider) Register(app *container.Container) {
	if app.Bound(container.TypeOf[*zap.Logger]()) {
		return
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	container.Instance(app, logger)
}

// ── EndpointServiceProvider ───────────────────────────────────────────────────

// EndpointServiceProvider binds the shared endpoint processor. It logs to
// the bound *zap.Logger, so register LoggerServiceProvider first.
//
// Bound types:
//   - *endpoint.Processor (singleton)
type EndpointServiceProvider struct{}

func (p *EndpointServiceProvider) Register(app *container.Container) {
	if app.Bound(container.TypeOf[*endpoint.Processor]()) {
		return
	}
	container.Singleton(app, func() *endpoint.Processor {
		logger, _ := container.Make[*zap.Logger](app)
		return endpoint.NewProcessor(logger)
	})
}

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded configuration.
//
// Bound types:
//   - *config.Config
type ConfigServiceProvider struct {
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	if p.Config == nil || app.Bound(container.TypeOf[*config.Config]()) {
		return
	}
	container.Instance(app, p.Config)
}

// Framework returns the providers the kernel applies before resolving.
func Framework(logger *zap.Logger) []container.Provider {
	return []container.Provider{
		&LoggerServiceProvider{Logger: logger},
		&EndpointServiceProvider{},
	}
}
