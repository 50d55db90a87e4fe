package state

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStateName is returned for an empty name or a name containing "@".
	ErrInvalidStateName = errors.New("state: invalid state name")

	// ErrDuplicateState is returned when a name is registered or queued twice.
	ErrDuplicateState = errors.New("state: state already defined")

	// ErrInvalidURL is returned when a state URL does not compile.
	ErrInvalidURL = errors.New("state: invalid url")

	// ErrUnknownStage is returned by Decorator for a stage that does not exist.
	ErrUnknownStage = errors.New("state: unknown builder stage")

	// ErrInvalidBuilderResult is returned when a builder returns a value of the wrong type.
	ErrInvalidBuilderResult = errors.New("state: builder returned an unexpected value")

	// ErrInvalidTemplate is returned for a view template that is neither a string nor a component.
	ErrInvalidTemplate = errors.New("state: invalid view template")

	// ErrStateNotFound is returned when a target state cannot be found.
	ErrStateNotFound = errors.New("state: no such state")

	// ErrInvalidReference is returned for a relative reference that cannot be resolved.
	ErrInvalidReference = errors.New("state: invalid relative reference")

	// ErrAbstractState is returned when transitioning to an abstract state.
	ErrAbstractState = errors.New("state: cannot transition to abstract state")

	// ErrInvalidReloadState is returned when the reload option names an unknown state.
	ErrInvalidReloadState = errors.New("state: no such reload state")

	// ErrTransitionSuperseded rejects a transition replaced by a newer one.
	ErrTransitionSuperseded = errors.New("state: transition superseded")

	// ErrTransitionPrevented rejects a transition vetoed by a StateChangeStart observer.
	ErrTransitionPrevented = errors.New("state: transition prevented")

	// ErrTransitionAborted rejects a transition vetoed by a StateNotFound observer
	// or whose retry failed.
	ErrTransitionAborted = errors.New("state: transition aborted")

	// ErrTransitionFailed rejects a transition whose params do not validate or
	// whose retry did not find the state.
	ErrTransitionFailed = errors.New("state: transition failed")
)

// TransitionError wraps the failure of a transition that started resolving.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("state: transition from %q to %q: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
