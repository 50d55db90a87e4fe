package location

import "errors"

var (
	// ErrInvalidURL is returned when a URL cannot be parsed.
	ErrInvalidURL = errors.New("location: invalid url")

	// ErrNoHistory is returned by Back when there is no previous entry.
	ErrNoHistory = errors.New("location: no previous history entry")

	// ErrUnknownMessage is returned for frames with an unsupported type.
	ErrUnknownMessage = errors.New("location: unknown message type")
)
