// Package injector invokes functions whose dependencies are declared by name.
//
// An Invocable pairs a function with the names of its arguments. The Container
// satisfies them from call-site locals first, then from registered services:
//
//	c := injector.New()
//	c.MustRegister("greeting", "hello")
//	_ = c.Provide("shout", injector.Fn(func(args ...any) (any, error) {
//		return strings.ToUpper(args[0].(string)), nil
//	}, "greeting"))
//
//	v, err := c.Invoke(injector.Fn(func(args ...any) (any, error) {
//		return fmt.Sprintf("%s %s", args[0], args[1]), nil
//	}, "shout", "name"), map[string]any{"name": "world"})
//
// Providers are constructed on first use and cached. Missing names fail with
// ErrUnknownProvider; providers that depend on themselves fail with ErrCircularProvider.
package injector
