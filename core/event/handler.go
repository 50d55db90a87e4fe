package event

import (
	"context"
	"fmt"
)

// HandlerFunc is a type-safe function signature for observing events of type T.
type HandlerFunc[T any] func(context.Context, T) error

// Handler observes events published on a Bus.
type Handler interface {
	// EventName returns the event name this handler observes.
	EventName() string

	// Handle executes the handler with the given event payload.
	Handle(ctx context.Context, payload any) error
}

// NewHandler creates a handler with a manually specified event name.
func NewHandler[T any](eventName string, fn HandlerFunc[T]) Handler {
	return &handlerFuncWrapper[T]{
		name: eventName,
		fn:   fn,
	}
}

// NewHandlerFunc creates a type-safe handler whose event name is derived from T.
//
// Example:
//
//	bus.Subscribe(event.NewHandlerFunc(func(ctx context.Context, evt *state.StateChangeStart) error {
//	    if evt.To.Name == "admin" {
//	        evt.Prevent()
//	    }
//	    return nil
//	}))
func NewHandlerFunc[T any](fn HandlerFunc[T]) Handler {
	var zero T
	return &handlerFuncWrapper[T]{
		name: nameOfType[T](zero),
		fn:   fn,
	}
}

type handlerFuncWrapper[T any] struct {
	name string
	fn   HandlerFunc[T]
}

func (h *handlerFuncWrapper[T]) EventName() string {
	return h.name
}

func (h *handlerFuncWrapper[T]) Handle(ctx context.Context, payload any) error {
	typed, ok := payload.(T)
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, payload, h.name)
	}
	return h.fn(ctx, typed)
}

// nameOfType handles nil pointer zero values, for which reflect.TypeOf still reports the pointer type.
func nameOfType[T any](zero T) string {
	if name := NameOf(zero); name != "" {
		return name
	}
	return NameOf(new(T))
}
