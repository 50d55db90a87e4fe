package injector

import (
	"fmt"
	"sync"
)

// Container is an Injector holding plain values and lazily constructed singletons.
type Container struct {
	mu        sync.Mutex
	values    map[string]any
	providers map[string]Invocable
	building  map[string]bool
}

// New creates an empty container.
func New() *Container {
	return &Container{
		values:    make(map[string]any),
		providers: make(map[string]Invocable),
		building:  make(map[string]bool),
	}
}

// Register stores a ready value under name.
func (c *Container) Register(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exists(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}
	c.values[name] = value
	return nil
}

// Provide registers a provider invoked on first Get; its result is cached.
func (c *Container) Provide(name string, inv Invocable) error {
	if inv.IsZero() {
		return fmt.Errorf("%w: provider %s", ErrInvalidInvocable, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exists(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}
	c.providers[name] = inv
	return nil
}

// MustRegister is like Register but panics on failure.
func (c *Container) MustRegister(name string, value any) {
	if err := c.Register(name, value); err != nil {
		panic(err)
	}
}

func (c *Container) exists(name string) bool {
	_, v := c.values[name]
	_, p := c.providers[name]
	return v || p
}

// Has reports whether name is registered as a value or provider.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exists(name)
}

// Annotate returns the dependency names of inv.
func (c *Container) Annotate(inv Invocable) []string {
	if inv.Service != "" {
		return nil
	}
	return inv.Deps
}

// Get returns the service registered under name, constructing it if needed.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	if v, ok := c.values[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	inv, ok := c.providers[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if c.building[name] {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCircularProvider, name)
	}
	c.building[name] = true
	c.mu.Unlock()

	v, err := c.Invoke(inv, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.building, name)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.values[name]; ok {
		return cached, nil
	}
	c.values[name] = v
	return v, nil
}

// Invoke calls inv with its dependencies resolved from locals, then from services.
// A panic inside the function is returned as an error wrapping ErrInvocationPanic.
func (c *Container) Invoke(inv Invocable, locals map[string]any) (any, error) {
	if inv.Service != "" {
		if v, ok := locals[inv.Service]; ok {
			return v, nil
		}
		return c.Get(inv.Service)
	}
	if inv.Fn == nil {
		return nil, ErrInvalidInvocable
	}

	args := make([]any, len(inv.Deps))
	for i, dep := range inv.Deps {
		if v, ok := locals[dep]; ok {
			args[i] = v
			continue
		}
		v, err := c.Get(dep)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return call(inv.Fn, args)
}

func call(fn Func, args []any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrInvocationPanic, r)
		}
	}()
	return fn(args...)
}
