package container

import (
	"fmt"
	"reflect"
)

// Descriptor describes one component that can take part in resolution: either
// a ready-made object or a single constructor function whose parameter types
// name what it needs.
//
// Build descriptors with Object, Component or the typed New helpers. The zero
// Descriptor is invalid.
type Descriptor struct {
	typ      reflect.Type
	object   any
	isObject bool
	ctors    []reflect.Value
}

// Object describes a component that requires no construction.
//
//	container.Object(&InstMod{})
func Object[T any](v T) Descriptor {
	return Descriptor{typ: reflect.TypeFor[T](), object: v, isObject: true}
}

// Component describes T through its constructor functions. Exactly one must
// be given; anything else is reported as an InvalidComponentError when the
// descriptor is resolved. A constructor returns T (or something assignable to
// it) and optionally an error:
//
//	container.Component[db.Driver](db.NewSqliteDriver)
func Component[T any](ctors ...any) Descriptor {
	d := Descriptor{typ: reflect.TypeFor[T]()}
	for _, c := range ctors {
		d.ctors = append(d.ctors, reflect.ValueOf(c))
	}
	return d
}

// New describes T through a constructor with no parameters.
func New[T any](fn func() T) Descriptor { return Component[T](fn) }

// NewE is New for a constructor that can fail.
func NewE[T any](fn func() (T, error)) Descriptor { return Component[T](fn) }

// New1 describes T through a one-parameter constructor.
func New1[T, A any](fn func(A) T) Descriptor { return Component[T](fn) }

// New1E is New1 for a constructor that can fail.
func New1E[T, A any](fn func(A) (T, error)) Descriptor { return Component[T](fn) }

// New2 describes T through a two-parameter constructor.
func New2[T, A, B any](fn func(A, B) T) Descriptor { return Component[T](fn) }

// New2E is New2 for a constructor that can fail.
func New2E[T, A, B any](fn func(A, B) (T, error)) Descriptor { return Component[T](fn) }

// New3 describes T through a three-parameter constructor.
func New3[T, A, B, C any](fn func(A, B, C) T) Descriptor { return Component[T](fn) }

// New3E is New3 for a constructor that can fail.
func New3E[T, A, B, C any](fn func(A, B, C) (T, error)) Descriptor {
	return Component[T](fn)
}

// Type is the identity of the component: the type it is resolved as and the
// type dependents ask for.
func (d Descriptor) Type() reflect.Type { return d.typ }

// IsObject reports whether d wraps a ready-made object.
func (d Descriptor) IsObject() bool { return d.isObject }

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	if d.isObject {
		return "object " + TypeName(d.typ)
	}
	return "component " + TypeName(d.typ)
}

// Validate checks that d can be constructed at all. Objects are always valid.
func (d Descriptor) Validate() error {
	if d.typ == nil {
		return &InvalidComponentError{Reason: "zero descriptor"}
	}
	if d.isObject {
		return nil
	}
	if len(d.ctors) != 1 {
		return &InvalidComponentError{
			Component: d.typ,
			Reason:    fmt.Sprintf("must expose exactly one constructor, found %d", len(d.ctors)),
		}
	}

	ctor := d.ctors[0]
	if !ctor.IsValid() || ctor.Kind() != reflect.Func || ctor.IsNil() {
		return &InvalidComponentError{Component: d.typ, Reason: "constructor is not a function"}
	}
	ft := ctor.Type()
	if ft.IsVariadic() {
		return &InvalidComponentError{Component: d.typ, Reason: "variadic constructors are not supported"}
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return &InvalidComponentError{
				Component: d.typ,
				Reason:    "second constructor result must be error, got " + TypeName(ft.Out(1)),
			}
		}
	default:
		return &InvalidComponentError{
			Component: d.typ,
			Reason:    fmt.Sprintf("constructor must return (T) or (T, error), got %d results", ft.NumOut()),
		}
	}
	if !ft.Out(0).AssignableTo(d.typ) {
		return &InvalidComponentError{
			Component: d.typ,
			Reason:    "constructor returns " + TypeName(ft.Out(0)),
		}
	}
	return nil
}

// Params lists the constructor's parameter types in declaration order.
// Objects have none.
func (d Descriptor) Params() ([]reflect.Type, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.isObject {
		return nil, nil
	}
	ft := d.ctors[0].Type()
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return params, nil
}

// construct calls the constructor. A panic inside it is returned as an error.
func (d Descriptor) construct(args []reflect.Value) (inst any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	out := d.ctors[0].Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
