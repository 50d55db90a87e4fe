package params

import (
	"fmt"
	"regexp"
)

// ArrayMode controls whether a parameter holds a list of values.
type ArrayMode int

const (
	// ArrayUnset picks the location default: ArrayAuto for search parameters, ArrayOff otherwise.
	ArrayUnset ArrayMode = iota
	ArrayOff
	ArrayOn
	// ArrayAuto unwraps single-element lists into a scalar.
	ArrayAuto
)

func (m ArrayMode) String() string {
	switch m {
	case ArrayOff:
		return "false"
	case ArrayOn:
		return "true"
	case ArrayAuto:
		return "auto"
	default:
		return "unset"
	}
}

// Definition describes a custom parameter type. Nil functions fall back to
// identity codecs, an always-true Is and loose equality.
type Definition struct {
	Pattern string
	Encode  func(v any) any
	Decode  func(v any) any
	Is      func(v any) bool
	Equals  func(a, b any) bool
}

// Type is a named parameter codec with a validation pattern.
type Type struct {
	Name    string
	Pattern *regexp.Regexp

	source    string
	encode    func(any) any
	decode    func(any) any
	is        func(any) bool
	equals    func(a, b any) bool
	normalize func(any) any
	array     ArrayMode
}

// NewType compiles def into a Type. An empty pattern matches anything.
func NewType(name string, def Definition) (*Type, error) {
	source := def.Pattern
	if source == "" {
		source = ".*"
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPattern, name, err)
	}
	return &Type{
		Name:    name,
		Pattern: re,
		source:  source,
		encode:  def.Encode,
		decode:  def.Decode,
		is:      def.Is,
		equals:  def.Equals,
	}, nil
}

// MustType is like NewType but panics on failure.
func MustType(name string, def Definition) *Type {
	t, err := NewType(name, def)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the uncompiled pattern, for embedding into URL expressions.
func (t *Type) Source() string {
	return t.source
}

// Encode converts a decoded value into its URL representation.
func (t *Type) Encode(v any) any {
	if t.encode == nil {
		return v
	}
	return t.encode(v)
}

// Decode converts a URL representation into a value.
func (t *Type) Decode(v any) any {
	if t.decode == nil {
		return v
	}
	return t.decode(v)
}

// Is reports whether v is already a decoded value of this type.
func (t *Type) Is(v any) bool {
	if t.is == nil {
		return true
	}
	return t.is(v)
}

// Equals compares two decoded values.
func (t *Type) Equals(a, b any) bool {
	if t.equals == nil {
		return LooseEqual(a, b)
	}
	return t.equals(a, b)
}

// Normalize returns v if it is already decoded, otherwise decodes it.
func (t *Type) Normalize(v any) any {
	if t.normalize != nil {
		return t.normalize(v)
	}
	if t.Is(v) {
		return v
	}
	return t.Decode(v)
}

// ArrayMode reports the array mode of a type produced by AsArray, or ArrayOff.
func (t *Type) ArrayMode() ArrayMode {
	if t.array == ArrayUnset {
		return ArrayOff
	}
	return t.array
}

// WithPattern returns a copy of t validating against another expression.
func (t *Type) WithPattern(source string, caseInsensitive bool) (*Type, error) {
	expr := source
	if caseInsensitive {
		expr = "(?i)" + source
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPattern, source, err)
	}
	cp := *t
	cp.Pattern = re
	cp.source = source
	return &cp, nil
}

func (t *Type) String() string {
	return "{Type:" + t.Name + "}"
}

// merge overlays the non-nil functions of def. The pattern is never replaced.
func (t *Type) merge(def Definition) {
	if def.Encode != nil {
		t.encode = def.Encode
	}
	if def.Decode != nil {
		t.decode = def.Decode
	}
	if def.Is != nil {
		t.is = def.Is
	}
	if def.Equals != nil {
		t.equals = def.Equals
	}
}

// AsArray wraps t so that every codec function applies element-wise.
// ArrayOff and ArrayUnset return t unchanged.
func (t *Type) AsArray(mode ArrayMode, isSearch bool) (*Type, error) {
	switch mode {
	case ArrayUnset, ArrayOff:
		return t, nil
	case ArrayAuto:
		if !isSearch {
			return nil, ErrAutoArrayMode
		}
	}

	unwrap := func(vals []any) any {
		switch len(vals) {
		case 0:
			return nil
		case 1:
			if mode == ArrayAuto {
				return vals[0]
			}
			return vals
		default:
			return vals
		}
	}
	each := func(fn func(any) any) func(any) any {
		return func(v any) any {
			if n, ok := isSlice(v); ok && n == 0 {
				return v
			}
			in := wrap(v)
			out := make([]any, len(in))
			for i, item := range in {
				out[i] = fn(item)
			}
			return unwrap(out)
		}
	}

	return &Type{
		Name:      t.Name,
		Pattern:   t.Pattern,
		source:    t.source,
		encode:    each(t.Encode),
		decode:    each(t.Decode),
		normalize: each(t.Normalize),
		is: func(v any) bool {
			if n, ok := isSlice(v); ok && n == 0 {
				return true
			}
			for _, item := range wrap(v) {
				if !t.Is(item) {
					return false
				}
			}
			return true
		},
		equals: func(a, b any) bool {
			left, right := wrap(a), wrap(b)
			if len(left) != len(right) {
				return false
			}
			for i := range left {
				if !t.Equals(left[i], right[i]) {
					return false
				}
			}
			return true
		},
		array: mode,
	}, nil
}
