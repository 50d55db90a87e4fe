package params

import "errors"

var (
	// ErrDuplicateType is returned when registering a type name twice.
	ErrDuplicateType = errors.New("params: type already defined")

	// ErrUnknownType is returned when a param refers to an unregistered type name.
	ErrUnknownType = errors.New("params: unknown type")

	// ErrInvalidPattern is returned when a type pattern does not compile.
	ErrInvalidPattern = errors.New("params: invalid type pattern")

	// ErrInvalidDefinition is returned when a deferred definition function yields something other than a Definition.
	ErrInvalidDefinition = errors.New("params: invalid type definition")

	// ErrAutoArrayMode is returned when "auto" array mode is requested for a path parameter.
	ErrAutoArrayMode = errors.New("params: 'auto' array mode is for query parameters only")

	// ErrTwoTypeConfigs is returned when a param is typed both in the URL and in its config.
	ErrTwoTypeConfigs = errors.New("params: param has two type configurations")

	// ErrInvalidSquashPolicy is returned for squash values other than bool or string.
	ErrInvalidSquashPolicy = errors.New("params: invalid squash policy, valid policies are false, true or a string")

	// ErrInvalidDefault is returned when a default value is not accepted by the param type.
	ErrInvalidDefault = errors.New("params: default value is not an instance of the param type")

	// ErrInjectorUnavailable is returned when an injectable default is evaluated before the registry is flushed.
	ErrInjectorUnavailable = errors.New("params: injectable defaults cannot be evaluated before start")

	// ErrInvalidArrayMode is returned when decoding an unrecognised array mode.
	ErrInvalidArrayMode = errors.New("params: invalid array mode")
)
