package injector

import "errors"

var (
	// ErrUnknownProvider is returned when a dependency is neither a local nor a registered service.
	ErrUnknownProvider = errors.New("injector: unknown provider")

	// ErrCircularProvider is returned when lazy providers depend on each other.
	ErrCircularProvider = errors.New("injector: circular provider dependency")

	// ErrInvocationPanic wraps a value recovered from a panicking invocable.
	ErrInvocationPanic = errors.New("injector: invocable panicked")

	// ErrInvalidInvocable is returned for an invocable with neither a function nor a service name.
	ErrInvalidInvocable = errors.New("injector: invocable has no function")

	// ErrDuplicateService is returned when registering a name twice.
	ErrDuplicateService = errors.New("injector: service already registered")
)
