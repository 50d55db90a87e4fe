package params

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	TypeString = "string"
	TypeInt    = "int"
	TypeBool   = "bool"
	TypeDate   = "date"
	TypeJSON   = "json"
	TypeAny    = "any"
)

const dateLayout = "2006-01-02"

var dateCapture = regexp.MustCompile(`([0-9]{4})-(0[1-9]|1[0-2])-(0[1-9]|[1-2][0-9]|3[0-1])`)

func builtinTypes() map[string]*Type {
	return map[string]*Type{
		TypeString: MustType(TypeString, Definition{
			Pattern: `[^/]*`,
			Encode: func(v any) any {
				if v == nil {
					return nil
				}
				return strings.ReplaceAll(toString(v), "/", "%2F")
			},
			Decode: func(v any) any {
				if v == nil {
					return nil
				}
				return strings.ReplaceAll(toString(v), "%2F", "/")
			},
			Is: func(v any) bool {
				if v == nil {
					return true
				}
				_, ok := v.(string)
				return ok
			},
		}),

		TypeInt: MustType(TypeInt, Definition{
			Pattern: `\d+`,
			Encode: func(v any) any {
				if v == nil {
					return nil
				}
				return toString(v)
			},
			Decode: func(v any) any {
				if n, ok := v.(int); ok {
					return n
				}
				if v == nil {
					return nil
				}
				s := toString(v)
				n, ok := parseLeadingInt(s)
				if !ok {
					// Unparsable input stays as is, so Is rejects it.
					return s
				}
				return n
			},
			Is: func(v any) bool {
				_, ok := v.(int)
				return ok
			},
		}),

		TypeBool: MustType(TypeBool, Definition{
			Pattern: `0|1`,
			Encode: func(v any) any {
				if b, ok := v.(bool); ok && b {
					return "1"
				}
				if v == nil {
					return nil
				}
				return "0"
			},
			Decode: func(v any) any {
				if b, ok := v.(bool); ok {
					return b
				}
				if v == nil {
					return nil
				}
				n, ok := parseLeadingInt(toString(v))
				return !ok || n != 0
			},
			Is: func(v any) bool {
				_, ok := v.(bool)
				return ok
			},
		}),

		TypeDate: MustType(TypeDate, Definition{
			Pattern: `[0-9]{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[1-2][0-9]|3[0-1])`,
			Encode: func(v any) any {
				t, ok := v.(time.Time)
				if !ok {
					return nil
				}
				return t.Format(dateLayout)
			},
			Decode: func(v any) any {
				if t, ok := v.(time.Time); ok {
					return t
				}
				if v == nil {
					return nil
				}
				m := dateCapture.FindStringSubmatch(toString(v))
				if m == nil {
					return nil
				}
				y, _ := strconv.Atoi(m[1])
				mo, _ := strconv.Atoi(m[2])
				d, _ := strconv.Atoi(m[3])
				return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
			},
			Is: func(v any) bool {
				_, ok := v.(time.Time)
				return ok
			},
			Equals: func(a, b any) bool {
				ta, okA := a.(time.Time)
				tb, okB := b.(time.Time)
				return okA && okB && ta.Equal(tb)
			},
		}),

		TypeJSON: MustType(TypeJSON, Definition{
			Pattern: `[^/]*`,
			Encode: func(v any) any {
				if v == nil {
					return nil
				}
				b, err := json.Marshal(v)
				if err != nil {
					return nil
				}
				return string(b)
			},
			Decode: func(v any) any {
				s, ok := v.(string)
				if !ok {
					return v
				}
				var out any
				if err := json.Unmarshal([]byte(s), &out); err != nil {
					return nil
				}
				return out
			},
			Is: isObject,
			Equals: func(a, b any) bool {
				return reflect.DeepEqual(a, b)
			},
		}),

		TypeAny: MustType(TypeAny, Definition{
			Pattern: `.*`,
			Equals: func(a, b any) bool {
				return reflect.DeepEqual(a, b)
			},
		}),
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// parseLeadingInt parses an optional sign followed by the leading decimal digits of s.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func isObject(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return true
	default:
		return false
	}
}
