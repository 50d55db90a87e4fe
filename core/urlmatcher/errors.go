package urlmatcher

import "errors"

var (
	// ErrInvalidParameterName is returned for placeholder names outside \w+(-+\w+)*([])?.
	ErrInvalidParameterName = errors.New("urlmatcher: invalid parameter name")

	// ErrDuplicateParameter is returned when a pattern names the same parameter twice.
	ErrDuplicateParameter = errors.New("urlmatcher: duplicate parameter name")

	// ErrInvalidPattern is returned when the compiled expression is not a valid regular expression.
	ErrInvalidPattern = errors.New("urlmatcher: invalid pattern")

	// ErrUnbalancedCaptureGroup is returned by Exec when a custom parameter expression contains capture groups.
	ErrUnbalancedCaptureGroup = errors.New("urlmatcher: unbalanced capture group")

	// ErrInvalidParams is returned by Format when the values do not validate.
	ErrInvalidParams = errors.New("urlmatcher: invalid parameter values")
)
