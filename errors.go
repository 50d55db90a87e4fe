package staterouter

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("staterouter: already started")

	// ErrInvalidConfig is returned when a Config value cannot be applied.
	ErrInvalidConfig = errors.New("staterouter: invalid config")
)
