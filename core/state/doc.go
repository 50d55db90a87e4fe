// Package state keeps a tree of named states and moves between them.
//
// States are registered from a Config. A dotted name places the state below
// its parent; children registered before their parent wait in a queue. Each
// state is derived through a pipeline of builder stages (parent, data, url,
// navigable, ownParams, params, views, path, includes) which Decorator can
// wrap.
//
//	m, _ := state.NewManager(urls, factory, resolver, container)
//	m.MustRegister(
//		state.Config{Name: "contacts", URL: "/contacts", Abstract: true},
//		state.Config{Name: "contacts.detail", URL: "/{id:int}", Resolve: resolve.Invocables{
//			"contact": injector.Fn(loadContact, state.StateParamsKey),
//		}},
//	)
//	s, err := m.TransitionTo(ctx, "contacts.detail", params.Values{"id": 42}).Await()
//
// A transition keeps the levels whose own params did not change, resolves
// the dependencies and view templates of the levels it enters, runs the exit
// and enter callbacks and then commits. Observers on the event bus can veto
// it through StateChangeStart. Starting another transition before one commits
// supersedes it; its future rejects with ErrTransitionSuperseded.
package state
