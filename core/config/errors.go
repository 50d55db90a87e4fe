package config

import "errors"

var (
	// ErrNilDestination is returned when Load receives a nil pointer.
	ErrNilDestination = errors.New("config: nil destination")

	// ErrParse is returned when environment variables cannot be parsed into the target struct.
	ErrParse = errors.New("config: failed to parse environment")
)
