package state

import (
	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/pkg/async"
)

// StateChangeStart is published before a transition resolves. Preventing it
// cancels the transition.
type StateChangeStart struct {
	event.Cancelable
	To         *State
	ToParams   params.Values
	From       *State
	FromParams params.Values
	Options    TransitionOptions
}

// StateChangeCancel is published when a StateChangeStart was prevented.
type StateChangeCancel struct {
	To         *State
	ToParams   params.Values
	From       *State
	FromParams params.Values
}

// StateChangeSuccess is published after a transition committed.
type StateChangeSuccess struct {
	To         *State
	ToParams   params.Values
	From       *State
	FromParams params.Values
}

// StateChangeError is published when resolving or entering failed. Preventing
// it keeps the URL as it is instead of restoring the last committed one.
type StateChangeError struct {
	event.Cancelable
	To         *State
	ToParams   params.Values
	From       *State
	FromParams params.Values
	Err        error
}

// StateNotFound is published when the target of a transition is unknown.
// Observers may prevent it, point To and ToParams elsewhere, or set Retry to
// a future after which the lookup is attempted once more.
type StateNotFound struct {
	event.Cancelable
	To         string
	ToParams   params.Values
	Options    TransitionOptions
	From       *State
	FromParams params.Values
	Retry      async.Awaitable
}

// ViewContentLoading is published before the template of a view is loaded.
type ViewContentLoading struct {
	View   string
	State  *State
	Params params.Values
}
