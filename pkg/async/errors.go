package async

import "errors"

var (
	// ErrTimeout is returned by AwaitWithTimeout when the future does not settle in time.
	ErrTimeout = errors.New("async: timeout waiting for future")

	// ErrNoFutures is returned by WaitAny and ExecAny when called without futures.
	ErrNoFutures = errors.New("async: no futures provided")

	// ErrPanic wraps a value recovered from a panicking function.
	ErrPanic = errors.New("async: function panicked")
)
