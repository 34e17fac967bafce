package container

import "reflect"

// TypeName renders t the way it appears in error messages and logs, e.g.
// "*app.AuthModule" or "db.Driver".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// TypeOf returns the registry key for T. For interface types it is the
// interface itself, not the type of any implementation.
//
//	container.TypeOf[db.Driver]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

var errorType = reflect.TypeFor[error]()
