package params

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrymomot/staterouter/core/injector"
)

// Registry holds parameter types by name. It starts with the built-in types
// string, int, bool, date, json and any.
type Registry struct {
	mu       sync.RWMutex
	types    map[string]*Type
	deferred []deferredDefinition
	injector injector.Injector
}

type deferredDefinition struct {
	name string
	fn   injector.Invocable
}

// NewRegistry creates a registry holding the built-in types.
func NewRegistry() *Registry {
	return &Registry{types: builtinTypes()}
}

// Type returns the type registered under name.
func (r *Registry) Type(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names lists registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Define registers a custom type.
func (r *Registry) Define(name string, def Definition) (*Type, error) {
	t, err := NewType(name, def)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = t
	return t, nil
}

// DefineFunc registers a type whose functions are supplied later by fn.
// fn is invoked through the injector when the registry is flushed and must
// return a Definition; its functions overlay def but never its pattern.
// After Flush, fn runs immediately.
func (r *Registry) DefineFunc(name string, def Definition, fn injector.Invocable) (*Type, error) {
	t, err := r.Define(name, def)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	inj := r.injector
	if inj == nil {
		r.deferred = append(r.deferred, deferredDefinition{name: name, fn: fn})
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	if err := r.apply(inj, t, fn); err != nil {
		return nil, err
	}
	return t, nil
}

// Flush marks the registry as started: it stores inj for injectable defaults
// and applies all deferred definitions in registration order.
func (r *Registry) Flush(inj injector.Injector) error {
	r.mu.Lock()
	r.injector = inj
	pending := r.deferred
	r.deferred = nil
	r.mu.Unlock()

	for _, d := range pending {
		t, _ := r.Type(d.name)
		if err := r.apply(inj, t, d.fn); err != nil {
			return err
		}
	}
	return nil
}

// Injector returns the injector set by Flush, or nil before start.
func (r *Registry) Injector() injector.Injector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.injector
}

func (r *Registry) apply(inj injector.Injector, t *Type, fn injector.Invocable) error {
	v, err := inj.Invoke(fn, nil)
	if err != nil {
		return fmt.Errorf("params: definition of %s: %w", t.Name, err)
	}

	var def Definition
	switch d := v.(type) {
	case Definition:
		def = d
	case *Definition:
		if d == nil {
			return fmt.Errorf("%w: %s returned nil", ErrInvalidDefinition, t.Name)
		}
		def = *d
	default:
		return fmt.Errorf("%w: %s returned %T", ErrInvalidDefinition, t.Name, v)
	}

	r.mu.Lock()
	t.merge(def)
	r.mu.Unlock()
	return nil
}
