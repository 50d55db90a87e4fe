package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCyclicDependency is wrapped by CyclicDependencyError.
	ErrCyclicDependency = errors.New("resolve: cyclic dependency")

	// ErrNilInvocables is returned by Study when given a nil map.
	ErrNilInvocables = errors.New("resolve: invocables must not be nil")
)

// CyclicDependencyError reports a dependency cycle found while planning.
// Path starts and ends with the same key.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// EntryError reports the failure of a single producer.
type EntryError struct {
	Key string
	Err error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Key, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
