package event

import "errors"

var (
	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("event: nil handler")

	// ErrHandlerPanic wraps a value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("event: handler panicked")

	// ErrUnexpectedPayload is returned when a handler receives a payload of the wrong type.
	ErrUnexpectedPayload = errors.New("event: unexpected payload type")
)
