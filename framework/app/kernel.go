// Package app holds the Katapult kernel: it resolves the module group,
// registers every module's hooks and runs the server.
//
//	k := app.New(
//	    []any{mod.HTTPSpec{Port: 8080}},
//	    []container.Descriptor{
//	        container.New1(mod.NewHTTPModule),
//	        container.New1(NewHelloModule),
//	    },
//	    app.WithLogger(logger),
//	)
//	if err := k.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/container"
	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/providers"
	"github.com/km-arc/katapult/framework/routing"
	"github.com/km-arc/katapult/framework/server"
)

// ErrAlreadyStarted is returned by every Start after the first successful one.
var ErrAlreadyStarted = errors.New("katapult: already started")

// StopTimeout bounds the graceful shutdown in Run.
const StopTimeout = 10 * time.Second

// Katapult is the application kernel.
type Katapult struct {
	mu sync.Mutex

	given       []any
	descriptors []container.Descriptor

	registry *container.Container
	logger   *zap.Logger
	srv      *server.Server
	router   *routing.Router
	app      *module.App

	group        *container.Group
	registration *module.Registration
	handler      http.Handler

	prepared bool
	started  bool
	running  bool
}

// Option configures a Katapult.
type Option func(*Katapult)

// WithContainer resolves against c instead of a fresh registry. Bindings
// made on c before New take part in resolution.
func WithContainer(c *container.Container) Option {
	return func(k *Katapult) { k.registry = c }
}

// WithLogger sets the kernel logger. It is also bound as *zap.Logger when
// the registry has none.
func WithLogger(l *zap.Logger) Option {
	return func(k *Katapult) { k.logger = l }
}

// WithServer replaces the default server, e.g. to change its timeouts.
func WithServer(s *server.Server) Option {
	return func(k *Katapult) { k.srv = s }
}

// New returns an unprepared kernel. given supplies configuration values;
// descriptors name the modules and components to build.
func New(given []any, descriptors []container.Descriptor, opts ...Option) *Katapult {
	k := &Katapult{
		given:       append([]any(nil), given...),
		descriptors: append([]container.Descriptor(nil), descriptors...),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = zap.L()
	}
	if k.registry == nil {
		k.registry = container.NewContainer()
	}
	if k.srv == nil {
		k.srv = server.New(k.logger)
	}
	return k
}

// Prepare resolves the group and configures every module without opening
// any listener. It is idempotent; a failed Prepare may be retried.
func (k *Katapult) Prepare() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.prepare()
}

func (k *Katapult) prepare() error {
	if k.prepared {
		return nil
	}

	reg := container.NewProviderRegistry(k.registry)
	for _, p := range providers.Framework(k.logger) {
		reg.Register(p)
	}

	resolver := container.NewResolver(k.registry, container.WithLogger(k.logger.Named("resolver")))
	group, err := resolver.ResolveGroup(k.descriptors, k.given...)
	if err != nil {
		return fmt.Errorf("katapult: %w", err)
	}

	k.app = module.NewApp(k.logger)
	k.router = routing.New()
	k.registration = module.Register(group.Instances, k.app, k.srv, k.router)
	k.router.NotFound(k.app.NotFoundHandler())
	k.handler = k.app.Wrap(k.router)
	k.group = group
	k.prepared = true

	k.logger.Info("prepared",
		zap.Int("components", group.Len()),
		zap.Int("modules", len(k.registration.Modules())),
		zap.Int("passes", group.Passes),
	)
	return nil
}

// Start prepares the kernel if needed and opens the listeners. Only the
// first successful call starts; later calls return ErrAlreadyStarted. A
// failed Start leaves the kernel unstarted.
func (k *Katapult) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return ErrAlreadyStarted
	}
	if err := k.prepare(); err != nil {
		return err
	}
	if err := k.srv.Start(ctx, k.handler); err != nil {
		return fmt.Errorf("katapult: start: %w", err)
	}
	k.started = true
	k.running = true
	return nil
}

// Stop shuts the server down gracefully. It does nothing unless running.
func (k *Katapult) Stop(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.running {
		return nil
	}
	k.running = false
	if err := k.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("katapult: stop: %w", err)
	}
	return nil
}

// Run starts the kernel, blocks until ctx is done, then stops it. When
// Start fails, Run releases the server's resources before returning.
func (k *Katapult) Run(ctx context.Context) error {
	if err := k.Start(ctx); err != nil {
		if errors.Is(err, ErrAlreadyStarted) {
			return err
		}
		return errors.Join(err, k.srv.Release(context.WithoutCancel(ctx)))
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StopTimeout)
	defer cancel()
	return k.Stop(stopCtx)
}

// ── Accessors ────────────────────────────────────────────────────────────────

// Handler returns the root handler, or nil before Prepare.
func (k *Katapult) Handler() http.Handler {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.handler
}

// Modules returns the resolved instances that expose lifecycle hooks, in
// resolution order.
func (k *Katapult) Modules() []any {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.registration == nil {
		return nil
	}
	return k.registration.Modules()
}

// Order returns the declared types of every resolved component in the
// order they were built.
func (k *Katapult) Order() []reflect.Type {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.group == nil {
		return nil
	}
	return append([]reflect.Type(nil), k.group.Types...)
}

// Group returns the resolved group, or nil before Prepare.
func (k *Katapult) Group() *container.Group {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.group
}

// Router returns the router, or nil before Prepare.
func (k *Katapult) Router() *routing.Router {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.router
}

func (k *Katapult) Server() *server.Server          { return k.srv }
func (k *Katapult) Container() *container.Container { return k.registry }
func (k *Katapult) Logger() *zap.Logger             { return k.logger }
