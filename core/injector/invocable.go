package injector

// Func is the body of an invocable. Arguments arrive in the order of the declared dependencies.
type Func func(args ...any) (any, error)

// Invocable is a function annotated with the names of the values it needs.
// When Service is set, invoking it returns the named service and Deps and Fn are ignored.
type Invocable struct {
	Service string
	Deps    []string
	Fn      Func
}

// Fn builds an invocable from a function and its dependency names.
func Fn(fn Func, deps ...string) Invocable {
	return Invocable{Deps: deps, Fn: fn}
}

// Service builds an invocable that looks up a registered service by name.
func Service(name string) Invocable {
	return Invocable{Service: name}
}

// Value builds an invocable with no dependencies that always returns v.
func Value(v any) Invocable {
	return Invocable{Fn: func(...any) (any, error) { return v, nil }}
}

// IsZero reports whether the invocable is empty.
func (i Invocable) IsZero() bool {
	return i.Service == "" && i.Fn == nil
}

// Injector invokes annotated functions, supplying their dependencies.
type Injector interface {
	// Annotate returns the dependency names of inv. Service invocables have none.
	Annotate(inv Invocable) []string

	// Get returns the service registered under name.
	Get(name string) (any, error)

	// Has reports whether a service is registered under name.
	Has(name string) bool

	// Invoke calls inv. Dependencies are looked up in locals first, then among services.
	Invoke(inv Invocable, locals map[string]any) (any, error)
}
