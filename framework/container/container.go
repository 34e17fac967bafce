package container

import (
	"reflect"
	"sort"
	"sync"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a value for a registry entry. Factories take no arguments;
// one that needs collaborators captures them when it is bound.
type Factory func() any

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the process-wide registry of component factories, keyed by
// exact type identity.
//
// It supports:
//   - Bind / Singleton / Instance (untyped and generic)
//   - Lookup / Provide / Make
//   - Forget / Flush
//   - Resolved event callbacks
//
// Keys never match by interface satisfaction: an entry registered under
// *SqliteDriver does not answer a lookup for the Driver interface it
// implements. Register under the interface type when that is what callers ask
// for.
type Container struct {
	mu sync.RWMutex

	// type → binding
	bindings map[reflect.Type]*binding

	// type → pre-built or cached singleton value
	instances map[reflect.Type]any

	// resolved callbacks: []func(type, instance)
	afterResolving []func(reflect.Type, any)
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		bindings:  make(map[reflect.Type]*binding),
		instances: make(map[reflect.Type]any),
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory: every lookup calls it again.
// Registering a type twice replaces the earlier entry.
func (c *Container) Bind(t reflect.Type, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(t, factory, false)
}

// BindSingleton registers a factory whose first result is cached and returned
// by every later lookup.
func (c *Container) BindSingleton(t reflect.Type, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(t, factory, true)
}

// Set registers a pre-built value under t.
func (c *Container) Set(t reflect.Type, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, t)
	c.instances[t] = instance
}

func (c *Container) bind(t reflect.Type, factory Factory, singleton bool) {
	delete(c.instances, t)
	c.bindings[t] = &binding{factory: factory, singleton: singleton}
}

// ── Lookup ────────────────────────────────────────────────────────────────────

// Lookup returns the value registered for exactly t. The boolean is false
// when nothing is registered; a missing entry is not an error at this level.
func (c *Container) Lookup(t reflect.Type) (any, bool) {
	c.mu.RLock()
	if inst, ok := c.instances[t]; ok {
		c.mu.RUnlock()
		c.fireAfterResolving(t, inst)
		return inst, true
	}
	b, ok := c.bindings[t]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	// The factory runs outside the lock so it may consult the container.
	inst := b.factory()

	if b.singleton {
		c.mu.Lock()
		if cached, ok := c.instances[t]; ok {
			inst = cached
		} else if c.bindings[t] == b {
			c.instances[t] = inst
		}
		c.mu.Unlock()
	}

	c.fireAfterResolving(t, inst)
	return inst, true
}

// Provide is Lookup with the miss reported as a *ResolutionError.
func (c *Container) Provide(t reflect.Type) (any, error) {
	inst, ok := c.Lookup(t)
	if !ok {
		return nil, &ResolutionError{Param: t}
	}
	return inst, nil
}

// Bound reports whether t has a binding or an instance.
func (c *Container) Bound(t reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, b := c.bindings[t]
	_, i := c.instances[t]
	return b || i
}

// Types lists every registered type, sorted by name.
func (c *Container) Types() []reflect.Type {
	c.mu.RLock()
	seen := make(map[reflect.Type]bool, len(c.bindings)+len(c.instances))
	for t := range c.bindings {
		seen[t] = true
	}
	for t := range c.instances {
		seen[t] = true
	}
	c.mu.RUnlock()

	out := make([]reflect.Type, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return TypeName(out[i]) < TypeName(out[j]) })
	return out
}

// Bindings lists the registered type names, sorted. Used for debug output.
func (c *Container) Bindings() []string {
	types := c.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = TypeName(t)
	}
	return names
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Forget removes the binding and any cached instance for t.
func (c *Container) Forget(t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings, t)
	delete(c.instances, t)
}

// Flush clears the whole registry.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[reflect.Type]*binding)
	c.instances = make(map[reflect.Type]any)
	c.afterResolving = nil
}

// AfterResolving registers a callback fired after every successful lookup.
func (c *Container) AfterResolving(fn func(reflect.Type, any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, fn)
}

func (c *Container) fireAfterResolving(t reflect.Type, inst any) {
	c.mu.RLock()
	cbs := make([]func(reflect.Type, any), len(c.afterResolving))
	copy(cbs, c.afterResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(t, inst)
	}
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Bind registers a transient factory under T.
//
//	container.Bind(c, func() *Clock { return &Clock{} })
func Bind[T any](c *Container, factory func() T) {
	c.Bind(reflect.TypeFor[T](), func() any { return factory() })
}

// Singleton registers a cached factory under T.
//
//	container.Singleton(c, func() *mod.RequestLog {
//	    return mod.NewRequestLog(mod.NewAccessLogger(logger))
//	})
func Singleton[T any](c *Container, factory func() T) {
	c.BindSingleton(reflect.TypeFor[T](), func() any { return factory() })
}

// Instance registers v under T. Pass the interface type explicitly when the
// value should answer for it:
//
//	container.Instance[session.Store](c, session.NewMemoryStore(time.Hour))
func Instance[T any](c *Container, v T) {
	c.Set(reflect.TypeFor[T](), v)
}

// InstanceOf registers v under its own dynamic type. A nil v is ignored.
func InstanceOf(c *Container, v any) {
	if v == nil {
		return
	}
	c.Set(reflect.TypeOf(v), v)
}

// Make looks up T and asserts the result.
//
//	logger, err := container.Make[*zap.Logger](c)
func Make[T any](c *Container) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	raw, err := c.Provide(t)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &ResolutionError{Param: t, Cause: wrongTypeError(t, raw)}
	}
	return v, nil
}

// MustMake is Make that panics on failure.
func MustMake[T any](c *Container) T {
	v, err := Make[T](c)
	if err != nil {
		panic(err)
	}
	return v
}
