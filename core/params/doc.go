// Package params implements typed URL parameters.
//
// A Type converts values to and from their URL representation and validates
// them against a regular expression. The Registry starts with string, int,
// bool, date, json and any, and accepts custom types:
//
//	reg := params.NewRegistry()
//	_, err := reg.Define("slug", params.Definition{
//		Pattern: `[a-z0-9-]+`,
//		Is:      func(v any) bool { _, ok := v.(string); return ok },
//	})
//
// Types whose functions depend on services are declared with DefineFunc; their
// definition function runs through the injector passed to Flush.
//
// A Param is a compiled declaration: its type (possibly wrapped by AsArray),
// location, squash policy and replace rules. Absent values fall back to the
// declared default, which makes the param optional. Path parameters of type
// string default to "" unless they are arrays.
//
// A Set is an ordered collection of params chained to a parent set, mirroring
// the nesting of URL patterns and states: Keys walks from the root, and a child
// entry shadows its parent's entry with the same name.
package params
