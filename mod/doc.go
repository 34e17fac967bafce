// Package mod holds the stock Katapult modules: listeners, sessions, CORS,
// static files, request logging, API statistics and error reporting.
//
// Each module is built from a descriptor and configured by the kernel.
// Modules with settings take a *Spec value, which is normally supplied as
// given data:
//
//	k := app.New(
//	    []any{mod.HTTPSpec{Port: 8080}, mod.SessionSpec{}},
//	    []container.Descriptor{
//	        container.New1(mod.NewHTTPModule),
//	        container.New2E(mod.NewSessionModule),
//	    },
//	)
package mod
