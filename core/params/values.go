package params

import (
	"fmt"
	"maps"
	"reflect"
)

// Values maps parameter names to raw or decoded values.
type Values map[string]any

// Clone returns a shallow copy; nil stays nil.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	return maps.Clone(v)
}

// Filter returns the entries of v whose key is in keys.
func (v Values) Filter(keys []string) Values {
	out := make(Values, len(keys))
	for _, k := range keys {
		if val, ok := v[k]; ok {
			out[k] = val
		}
	}
	return out
}

// Merge returns a copy of v overlaid with every entry of other.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	maps.Copy(out, v)
	maps.Copy(out, other)
	return out
}

// EqualForKeys compares a and b loosely for the given keys, or for every key of a
// when none are given. Values are not necessarily normalized, so 1 equals "1".
func EqualForKeys(a, b Values, keys ...string) bool {
	if len(keys) == 0 {
		for k := range a {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if !LooseEqual(a[k], b[k]) {
			return false
		}
	}
	return true
}

// LooseEqual reports whether a and b are deeply equal, or are scalars with the same text form.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isScalar(a) && isScalar(b) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return false
}

func isScalar(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// wrap turns v into a slice: slices are converted, nil becomes empty, anything else a single element.
func wrap(v any) []any {
	if v == nil {
		return []any{}
	}
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func isSlice(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.([]any); ok {
		return len(s), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return rv.Len(), true
	}
	return 0, false
}
