// Package container provides the type-keyed component registry and the
// resolver that wires Katapult modules together.
//
// # Overview
//
// Components declare what they need through the parameter types of a single
// constructor. The resolver fills each parameter from a pool of values
// (given data plus components built earlier in the same resolution) and,
// failing that, from the registry. Matching is by exact type; there is no
// subtype or interface-satisfaction matching.
//
// # Registry
//
//	c := container.NewContainer()
//
//	// Pre-built value under its own type
//	container.Instance(c, logger)
//
//	// Pre-built value under an interface
//	container.Instance[session.Store](c, session.NewMemoryStore(time.Hour))
//
//	// Singleton: built on first lookup, then cached
//	container.Singleton(c, func() *mod.RequestLog {
//	    return mod.NewRequestLog(mod.NewAccessLogger(logger))
//	})
//
//	// Transient: built on every lookup
//	container.Bind(c, func() *Clock { return &Clock{} })
//
//	log, err := container.Make[*zap.Logger](c)
//
// # Descriptors
//
//	container.Object(&InstMod{})                        // no construction
//	container.New1(NewSubA)                             // func(*InstMod) *SubA
//	container.New2E(NewAuthModule)                      // func(AuthConfig, UserStore) (*AuthModule, error)
//	container.Component[db.Driver](db.NewSqliteDriver)  // declared as the interface
//
// # Single resolution
//
//	r := container.NewResolver(c)
//	sub, err := container.ResolveAs[*SubA](r, container.New1(NewSubA), &InstMod{})
//
// Resolve is strict: a parameter that is in neither the given data nor the
// registry fails with a *ResolutionError. Attempt exposes best-effort mode,
// which reports such a parameter as pending instead.
//
// # Group resolution
//
//	group, err := r.ResolveGroup([]container.Descriptor{
//	    container.New2(NewTestMod),
//	    container.New1(NewSubA),
//	    container.New2(NewSubB),
//	    container.Object(&InstMod{}),
//	}, SubBConf{})
//
// Descriptors may be listed in any order. Group members are added to the
// pool as soon as they are built, so later members can depend on earlier
// ones. group.Instances is in resolution order. Failures are reported as:
//
//   - *InvalidComponentError: a descriptor without exactly one usable constructor
//   - *DuplicateConfigurationError: a type repeated in the given data, the
//     descriptor list, or across both
//   - *AmbiguousDependencyError: more than one pool value of a parameter type
//   - *UnresolvedDependenciesError: no further progress possible, cycles included
//
// Each matches a sentinel with errors.Is, e.g. errors.Is(err, ErrUnresolvedDependencies).
package container
