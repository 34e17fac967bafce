package container

import (
	"reflect"

	"go.uber.org/zap"
)

// ── Pool ──────────────────────────────────────────────────────────────────────

type entry struct {
	typ   reflect.Type
	value any
}

// Pool is the set of values a resolution may draw constructor arguments from:
// the caller's given data plus everything resolved so far. Each value is keyed
// by exactly one type.
type Pool struct {
	entries []entry
}

// Given builds a pool keyed by each value's dynamic type. Nil values are
// skipped.
func Given(values ...any) *Pool {
	p := &Pool{entries: make([]entry, 0, len(values))}
	for _, v := range values {
		if v == nil {
			continue
		}
		p.entries = append(p.entries, entry{typ: reflect.TypeOf(v), value: v})
	}
	return p
}

// Add appends v under t.
func (p *Pool) Add(t reflect.Type, v any) {
	p.entries = append(p.entries, entry{typ: t, value: v})
}

// Len returns the number of entries.
func (p *Pool) Len() int { return len(p.entries) }

func (p *Pool) matches(t reflect.Type) []any {
	var out []any
	for _, e := range p.entries {
		if e.typ == t {
			out = append(out, e.value)
		}
	}
	return out
}

// ── Outcome ───────────────────────────────────────────────────────────────────

// OutcomeKind classifies a single resolution attempt.
type OutcomeKind int

const (
	// KindResolved means the component was built.
	KindResolved OutcomeKind = iota + 1
	// KindPending means a dependency is not available yet; only best-effort
	// attempts produce it.
	KindPending
	// KindFailed means the attempt hit an error no later pass can fix.
	KindFailed
)

// String implements fmt.Stringer.
func (k OutcomeKind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindPending:
		return "pending"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of Resolver.Attempt. Exactly one of Value, Missing
// and Err is meaningful, selected by Kind.
type Outcome struct {
	kind    OutcomeKind
	value   any
	missing reflect.Type
	err     error
}

func resolved(v any) Outcome { return Outcome{kind: KindResolved, value: v} }

func pending(t reflect.Type) Outcome { return Outcome{kind: KindPending, missing: t} }

func failed(err error) Outcome { return Outcome{kind: KindFailed, err: err} }

// Kind reports which of the three results this is.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// Value is the built component for KindResolved.
func (o Outcome) Value() any { return o.value }

// Missing is the first unavailable parameter type for KindPending.
func (o Outcome) Missing() reflect.Type { return o.missing }

// Err is the failure for KindFailed.
func (o Outcome) Err() error { return o.err }

// ── Resolver ──────────────────────────────────────────────────────────────────

// Mode selects what happens when a constructor parameter has no source.
type Mode int

const (
	// Strict fails the attempt with a ResolutionError.
	Strict Mode = iota
	// BestEffort reports the attempt as pending so a later pass can retry.
	BestEffort
)

// Resolver builds components from descriptors, drawing arguments first from
// a pool and then from the registry.
type Resolver struct {
	registry *Container
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a resolver backed by registry, which may be nil.
func NewResolver(registry *Container, opts ...Option) *Resolver {
	r := &Resolver{registry: registry, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Registry returns the backing container.
func (r *Resolver) Registry() *Container { return r.registry }

// Attempt tries to build d once. Each parameter is taken from the pool when
// exactly one entry has that type, otherwise from the registry. More than one
// pool match is always an AmbiguousDependencyError.
func (r *Resolver) Attempt(d Descriptor, pool *Pool, mode Mode) Outcome {
	if d.isObject {
		return resolved(d.object)
	}
	params, err := d.Params()
	if err != nil {
		return failed(err)
	}
	if pool == nil {
		pool = Given()
	}

	args := make([]reflect.Value, len(params))
	for i, p := range params {
		v, found, err := r.find(d.typ, p, pool)
		if err != nil {
			return failed(err)
		}
		if !found {
			if mode == Strict {
				return failed(&ResolutionError{Component: d.typ, Param: p})
			}
			return pending(p)
		}
		if v == nil {
			args[i] = reflect.Zero(p)
		} else {
			args[i] = reflect.ValueOf(v)
		}
	}

	inst, err := d.construct(args)
	if err != nil {
		return failed(&ResolutionError{Component: d.typ, Cause: err})
	}
	return resolved(inst)
}

func (r *Resolver) find(component, param reflect.Type, pool *Pool) (any, bool, error) {
	switch m := pool.matches(param); len(m) {
	case 0:
	case 1:
		return m[0], true, nil
	default:
		return nil, false, &AmbiguousDependencyError{Component: component, Param: param, Matches: len(m)}
	}

	if r.registry == nil {
		return nil, false, nil
	}
	v, ok := r.registry.Lookup(param)
	if !ok {
		return nil, false, nil
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(param) {
		return nil, false, &ResolutionError{Component: component, Param: param, Cause: wrongTypeError(param, v)}
	}
	return v, true, nil
}

// Resolve builds d in strict mode against the given values.
func (r *Resolver) Resolve(d Descriptor, given ...any) (any, error) {
	out := r.Attempt(d, Given(given...), Strict)
	if out.kind == KindFailed {
		return nil, out.err
	}
	return out.value, nil
}

// Call invokes fn with arguments resolved the same way as a constructor's and
// returns its results. fn may return nothing, a value, an error, or a value
// and an error; a trailing non-nil error is returned as err.
//
//	out, err := r.Call(func(l *zap.Logger) int { ... })
func (r *Resolver) Call(fn any, given ...any) ([]any, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, &InvalidComponentError{Component: reflect.TypeOf(fn), Reason: "not a function"}
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return nil, &InvalidComponentError{Component: ft, Reason: "variadic functions are not supported"}
	}

	pool := Given(given...)
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		p := ft.In(i)
		arg, found, err := r.find(ft, p, pool)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &ResolutionError{Component: ft, Param: p}
		}
		if arg == nil {
			args[i] = reflect.Zero(p)
		} else {
			args[i] = reflect.ValueOf(arg)
		}
	}

	out := v.Call(args)
	results := make([]any, 0, len(out))
	for i, o := range out {
		if i == len(out)-1 && ft.Out(i) == errorType {
			if !o.IsNil() {
				return results, o.Interface().(error)
			}
			break
		}
		results = append(results, o.Interface())
	}
	return results, nil
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// ResolveAs builds d strictly and asserts the result as T.
func ResolveAs[T any](r *Resolver, d Descriptor, given ...any) (T, error) {
	var zero T
	raw, err := r.Resolve(d, given...)
	if err != nil || raw == nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		t := reflect.TypeFor[T]()
		return zero, &ResolutionError{Component: d.typ, Cause: wrongTypeError(t, raw)}
	}
	return v, nil
}
