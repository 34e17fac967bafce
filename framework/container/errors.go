package container

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Sentinels for errors.Is. Every typed error below matches exactly one.
var (
	ErrInvalidComponent       = errors.New("container: invalid component")
	ErrAmbiguousDependency    = errors.New("container: ambiguous dependency")
	ErrResolution             = errors.New("container: resolution failed")
	ErrUnresolvedDependencies = errors.New("container: unresolved dependencies")
	ErrDuplicateConfiguration = errors.New("container: duplicate configuration")
)

// InvalidComponentError reports a descriptor that cannot be constructed:
// zero or several constructors, a non-function constructor, or a constructor
// whose results do not fit the declared type.
type InvalidComponentError struct {
	Component reflect.Type
	Reason    string
}

// Error implements the error interface.
func (e *InvalidComponentError) Error() string {
	// Example: container: invalid component "*app.AuthModule": must expose exactly one constructor, found 2
	return "container: invalid component " + strconv.Quote(TypeName(e.Component)) + ": " + e.Reason
}

// Is matches ErrInvalidComponent.
func (e *InvalidComponentError) Is(target error) bool { return target == ErrInvalidComponent }

// AmbiguousDependencyError reports a constructor parameter that more than one
// pool entry satisfies. It is fatal in every mode.
type AmbiguousDependencyError struct {
	Component reflect.Type
	Param     reflect.Type
	Matches   int
}

// Error implements the error interface.
func (e *AmbiguousDependencyError) Error() string {
	// Example: container: ambiguous dependency "app.Config" for "*app.Mod": 2 candidates in pool
	return fmt.Sprintf("container: ambiguous dependency %s for %s: %d candidates in pool",
		strconv.Quote(TypeName(e.Param)), strconv.Quote(TypeName(e.Component)), e.Matches)
}

// Is matches ErrAmbiguousDependency.
func (e *AmbiguousDependencyError) Is(target error) bool { return target == ErrAmbiguousDependency }

// ResolutionError reports a strict-mode miss, a registry entry of the wrong
// type, or a constructor that failed. Component is nil for plain registry
// lookups; Param is nil when the constructor itself failed.
type ResolutionError struct {
	Component reflect.Type
	Param     reflect.Type
	Cause     error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("container: unable to resolve")
	if e.Component != nil {
		b.WriteString(" " + strconv.Quote(TypeName(e.Component)))
	}
	if e.Param != nil {
		b.WriteString(": missing parameter " + strconv.Quote(TypeName(e.Param)))
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Is matches ErrResolution.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// Unwrap exposes the constructor failure, if any.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// UnresolvedDependenciesError lists the components a group resolution could
// not build, with the first parameter each one was still missing.
type UnresolvedDependenciesError struct {
	Components []reflect.Type
	Missing    map[reflect.Type]reflect.Type
}

// Error implements the error interface.
func (e *UnresolvedDependenciesError) Error() string {
	parts := make([]string, 0, len(e.Components))
	for _, c := range e.Components {
		part := TypeName(c)
		if m, ok := e.Missing[c]; ok {
			part += " (needs " + TypeName(m) + ")"
		}
		parts = append(parts, part)
	}
	// Example: container: unresolved dependencies: *app.SubB (needs app.SubBConf)
	return "container: unresolved dependencies: " + strings.Join(parts, ", ")
}

// Is matches ErrUnresolvedDependencies.
func (e *UnresolvedDependenciesError) Is(target error) bool {
	return target == ErrUnresolvedDependencies
}

// ConfigRole names where a duplicated type was found.
type ConfigRole string

const (
	RoleGiven       ConfigRole = "given data"
	RoleDescriptors ConfigRole = "descriptor list"
	RoleOverlap     ConfigRole = "given data and descriptor list"
)

// DuplicateConfigurationError reports a type that occurs twice in the given
// data, twice in the descriptor list, or once in each.
type DuplicateConfigurationError struct {
	Role ConfigRole
	Type reflect.Type
}

// Error implements the error interface.
func (e *DuplicateConfigurationError) Error() string {
	// Example: container: duplicate "app.SubBConf" in given data
	return "container: duplicate " + strconv.Quote(TypeName(e.Type)) + " in " + string(e.Role)
}

// Is matches ErrDuplicateConfiguration.
func (e *DuplicateConfigurationError) Is(target error) bool {
	return target == ErrDuplicateConfiguration
}

func wrongTypeError(want reflect.Type, got any) error {
	return fmt.Errorf("registry entry is %s, not %s", TypeName(reflect.TypeOf(got)), TypeName(want))
}
