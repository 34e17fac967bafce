package container

import "reflect"

// ── Provider ──────────────────────────────────────────────────────────────────

// Provider is a unit of registry setup: it binds the singletons and instances
// a group of components will draw on.
//
//	type InfraProvider struct{ Logger *zap.Logger }
//
//	func (p InfraProvider) Register(c *container.Container) {
//	    container.Instance(c, p.Logger)
//	    container.Singleton(c, func() *mod.RequestLog {
//	        return mod.NewRequestLog(mod.NewAccessLogger(p.Logger))
//	    })
//	}
type Provider interface {
	Register(c *Container)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(c *Container)

// Register calls f(c).
func (f ProviderFunc) Register(c *Container) { f(c) }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry applies providers to a container once each.
type ProviderRegistry struct {
	app        *Container
	providers  []Provider
	registered map[Provider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[Provider]bool),
	}
}

// Register applies provider unless an equal provider value was already
// applied. Providers of non-comparable types, ProviderFunc included, are
// applied every time.
func (r *ProviderRegistry) Register(provider Provider) {
	if reflect.TypeOf(provider).Comparable() {
		if r.registered[provider] {
			return
		}
		r.registered[provider] = true
	}
	provider.Register(r.app)
	r.providers = append(r.providers, provider)
}

// Providers returns every applied provider in order.
func (r *ProviderRegistry) Providers() []Provider { return r.providers }
