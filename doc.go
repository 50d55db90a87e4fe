// Package staterouter wires a hierarchical state router together.
//
// An application is modelled as a tree of named states. Each state may own a
// URL fragment, params, dependencies to resolve before it is entered, and
// named views. The router keeps the active state in sync with a location in
// both directions: changing the URL activates the matching state, and a
// transition writes the URL of the state it entered.
//
// # Packages
//
//   - core/params: param types, params and param sets
//   - core/urlmatcher: URL patterns with typed placeholders
//   - core/injector: named services and invocables
//   - core/resolve: asynchronous dependency resolution with inheritance
//   - core/location: the observable current URL (in memory or over a WebSocket)
//   - core/urlrouter: URL rules, redirects and href generation
//   - core/state: the state tree and the transition machine
//   - core/event: the bus carrying state change notifications
//   - core/config: environment configuration
//   - core/logger: slog construction and attributes
//   - pkg/async: futures
//
// # Usage
//
//	r, err := staterouter.New(staterouter.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	r.MustRegister(
//		state.Config{Name: "home", URL: "/"},
//		state.Config{Name: "contacts", URL: "/contacts", Abstract: true},
//		state.Config{Name: "contacts.detail", URL: "/{id:int}"},
//	)
//	if err := r.Start(ctx); err != nil {
//		return err
//	}
//	defer r.Close()
//
//	s, err := r.Go(ctx, "contacts.detail", params.Values{"id": 42}).Await()
//
// Configuration can come from the environment through LoadConfig; see Config
// for the variables.
package staterouter
