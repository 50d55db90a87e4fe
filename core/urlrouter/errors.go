package urlrouter

import "errors"

var (
	// ErrInvalidRule is returned when a nil rule is added.
	ErrInvalidRule = errors.New("urlrouter: invalid rule")

	// ErrInvalidHandler is returned by When and Otherwise for a nil handler.
	ErrInvalidHandler = errors.New("urlrouter: invalid handler")

	// ErrInvalidWhat is returned by When when the rule has nothing to match.
	ErrInvalidWhat = errors.New("urlrouter: invalid match target")

	// ErrInvalidParams is returned by Push when the values do not format.
	ErrInvalidParams = errors.New("urlrouter: invalid parameter values")
)
