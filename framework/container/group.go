package container

import (
	"reflect"

	"go.uber.org/zap"
)

// Group is the result of a successful group resolution.
type Group struct {
	// Instances holds the built components in resolution order: every
	// component appears after every pool-drawn dependency it consumed.
	Instances []any

	// Types is parallel to Instances and holds each descriptor's type.
	Types []reflect.Type

	// Passes counts the loop iterations it took.
	Passes int
}

// Get returns the instance resolved for t.
func (g *Group) Get(t reflect.Type) (any, bool) {
	for i, gt := range g.Types {
		if gt == t {
			return g.Instances[i], true
		}
	}
	return nil, false
}

// Len returns the number of resolved components.
func (g *Group) Len() int { return len(g.Instances) }

// Get returns the group member resolved as T.
//
//	auth, ok := container.Get[*app.AuthModule](group)
func Get[T any](g *Group) (T, bool) {
	var zero T
	raw, ok := g.Get(reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// ResolveGroup builds every descriptor, letting members depend on each other
// regardless of the order they are listed in.
//
// Before any constructor runs it rejects invalid descriptors, duplicate given
// types, duplicate descriptor types and types present in both lists. It then
// makes best-effort passes over the unresolved descriptors, adding each built
// component to the pool at once, until everything is built or a pass makes no
// progress. Dependency cycles never make progress and are reported as
// unresolved.
func (r *Resolver) ResolveGroup(descriptors []Descriptor, given ...any) (*Group, error) {
	if err := precheck(descriptors, given); err != nil {
		return nil, err
	}

	pool := Given(given...)
	g := &Group{
		Instances: make([]any, 0, len(descriptors)),
		Types:     make([]reflect.Type, 0, len(descriptors)),
	}
	unresolved := append([]Descriptor(nil), descriptors...)
	missing := make(map[reflect.Type]reflect.Type)

	for len(unresolved) > 0 {
		g.Passes++
		progress := false
		remaining := make([]Descriptor, 0, len(unresolved))

		for _, d := range unresolved {
			out := r.Attempt(d, pool, BestEffort)
			switch out.Kind() {
			case KindFailed:
				r.logger.Debug("group resolution failed",
					zap.Int("pass", g.Passes),
					zap.Stringer("component", d.typ),
					zap.Error(out.Err()),
				)
				return nil, out.Err()
			case KindPending:
				missing[d.typ] = out.Missing()
				remaining = append(remaining, d)
			case KindResolved:
				pool.Add(d.typ, out.Value())
				g.Instances = append(g.Instances, out.Value())
				g.Types = append(g.Types, d.typ)
				delete(missing, d.typ)
				progress = true
			}
		}

		r.logger.Debug("group resolution pass",
			zap.Int("pass", g.Passes),
			zap.Int("resolved", len(g.Instances)),
			zap.Int("pending", len(remaining)),
		)
		unresolved = remaining
		if !progress {
			break
		}
	}

	if len(unresolved) > 0 {
		e := &UnresolvedDependenciesError{
			Components: make([]reflect.Type, 0, len(unresolved)),
			Missing:    make(map[reflect.Type]reflect.Type, len(unresolved)),
		}
		for _, d := range unresolved {
			e.Components = append(e.Components, d.typ)
			e.Missing[d.typ] = missing[d.typ]
		}
		return nil, e
	}
	return g, nil
}

func precheck(descriptors []Descriptor, given []any) error {
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}
	}

	givenTypes := make(map[reflect.Type]bool, len(given))
	for _, v := range given {
		if v == nil {
			continue
		}
		t := reflect.TypeOf(v)
		if givenTypes[t] {
			return &DuplicateConfigurationError{Role: RoleGiven, Type: t}
		}
		givenTypes[t] = true
	}

	descTypes := make(map[reflect.Type]bool, len(descriptors))
	for _, d := range descriptors {
		if descTypes[d.typ] {
			return &DuplicateConfigurationError{Role: RoleDescriptors, Type: d.typ}
		}
		descTypes[d.typ] = true
	}

	for _, d := range descriptors {
		if givenTypes[d.typ] {
			return &DuplicateConfigurationError{Role: RoleOverlap, Type: d.typ}
		}
	}
	return nil
}
