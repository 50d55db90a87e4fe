package urlmatcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrymomot/staterouter/core/params"
)

var (
	pathPlaceholder   = regexp.MustCompile(`([:*])([\w\[\]]+)|\{([\w\[\]]+)(?::\s*((?:[^{}\\]+|\\.|\{(?:[^{}\\]+|\\.)*\})+))?\}`)
	searchPlaceholder = regexp.MustCompile(`([:]?)([\w\[\].-]+)|\{([\w\[\].-]+)(?::\s*((?:[^{}\\]+|\\.|\{(?:[^{}\\]+|\\.)*\})+))?\}`)
	validParamName    = regexp.MustCompile(`^\w+(-+\w+)*(?:\[\])?$`)
)

// Config holds per-pattern settings. Nil fields take the factory defaults.
type Config struct {
	Params          map[string]params.Config
	Strict          *bool
	CaseInsensitive *bool
}

// Matcher is a compiled URL pattern.
//
// Patterns contain path placeholders (":id", "*rest", "{id}", "{id:[0-9]+}",
// "{id:int}") followed by an optional search part ("?q&page").
type Matcher struct {
	Source       string
	SourcePath   string
	SourceSearch string
	Regexp       *regexp.Regexp
	// Prefix is the literal text every matching path starts with. It ends
	// before the first placeholder, or before the slash that placeholder
	// may squash.
	Prefix string
	// Segments are the literal parts between path placeholders.
	Segments []string
	Params   *params.Set

	names           []string
	factory         *Factory
	strict          bool
	caseInsensitive bool
}

type placeholder struct {
	id      string
	pattern string
	typed   bool
}

func details(src string, m []int, isSearch bool) placeholder {
	group := func(i int) (string, bool) {
		if m[2*i] < 0 {
			return "", false
		}
		return src[m[2*i]:m[2*i+1]], true
	}

	id, ok := group(2)
	if !ok {
		id, _ = group(3)
	}
	pattern, typed := group(4)
	if !typed && !isSearch {
		if marker, _ := group(1); marker == "*" {
			pattern, typed = ".*", true
		}
	}
	return placeholder{id: id, pattern: pattern, typed: typed}
}

func (f *Factory) compile(pattern string, cfg Config, parent *Matcher) (*Matcher, error) {
	m := &Matcher{
		Source:          pattern,
		factory:         f,
		strict:          f.strict,
		caseInsensitive: f.caseInsensitive,
	}
	if cfg.Strict != nil {
		m.strict = *cfg.Strict
	}
	if cfg.CaseInsensitive != nil {
		m.caseInsensitive = *cfg.CaseInsensitive
	}

	if parent != nil {
		m.Params = parent.Params.New()
	} else {
		m.Params = params.NewSet()
	}

	var (
		compiled strings.Builder
		last     int
		prefix   string
	)
	for _, loc := range pathPlaceholder.FindAllStringSubmatchIndex(pattern, -1) {
		segment := pattern[last:loc[0]]
		if strings.Contains(segment, "?") {
			break
		}
		ph := details(pattern, loc, false)
		p, err := m.addParameter(ph, cfg, parent, params.LocationPath)
		if err != nil {
			return nil, err
		}
		compiled.WriteString(quoteRegExp(segment, p.Type.Source(), p.Squash, p.IsOptional))
		if len(m.Segments) == 0 {
			// A slash-squashed param swallows the slash before it.
			prefix = segment
			if p.Squash.IsSlash() {
				prefix = strings.TrimSuffix(segment, "/")
			}
		}
		m.Segments = append(m.Segments, segment)
		last = loc[1]
	}
	segment := pattern[last:]

	m.SourcePath = pattern
	if i := strings.Index(segment, "?"); i >= 0 {
		search := segment[i:]
		segment = segment[:i]
		m.SourcePath = pattern[:last+i]
		m.SourceSearch = search

		for _, loc := range searchPlaceholder.FindAllStringSubmatchIndex(search, -1) {
			ph := details(search, loc, true)
			if _, err := m.addParameter(ph, cfg, parent, params.LocationSearch); err != nil {
				return nil, err
			}
		}
	}

	compiled.WriteString(quoteRegExp(segment, "", params.NoSquash, false))
	if !m.strict {
		compiled.WriteString("/?")
	}
	if len(m.Segments) == 0 {
		prefix = segment
	}
	m.Segments = append(m.Segments, segment)

	expr := "^" + compiled.String() + "$"
	if m.caseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
	}
	m.Regexp = re
	m.Prefix = prefix
	return m, nil
}

func (m *Matcher) addParameter(ph placeholder, cfg Config, parent *Matcher, loc params.Location) (*params.Param, error) {
	m.names = append(m.names, ph.id)
	if parent != nil {
		if p, ok := parent.Params.Get(ph.id); ok {
			return p, nil
		}
	}
	if !validParamName.MatchString(ph.id) {
		return nil, fmt.Errorf("%w: %q in pattern %q", ErrInvalidParameterName, ph.id, m.Source)
	}
	if _, ok := m.Params.Own(ph.id); ok {
		return nil, fmt.Errorf("%w: %q in pattern %q", ErrDuplicateParameter, ph.id, m.Source)
	}

	var urlType *params.Type
	if ph.typed {
		reg := m.factory.registry
		if t, ok := reg.Type(ph.pattern); ok {
			urlType = t
		} else {
			str, _ := reg.Type(params.TypeString)
			t, err := str.WithPattern(ph.pattern, m.caseInsensitive)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, m.Source, err)
			}
			urlType = t
		}
	}

	p, err := params.NewParam(m.factory.registry, ph.id, urlType, cfg.Params[ph.id], loc, m.factory.defaultSquash)
	if err != nil {
		return nil, err
	}
	m.Params.Add(p)
	return p, nil
}

// quoteRegExp escapes a literal segment and appends the capture group of the
// following param. An empty pattern means no param follows.
func quoteRegExp(segment, pattern string, squash params.SquashPolicy, optional bool) string {
	result := regexp.QuoteMeta(segment)
	if pattern == "" {
		return result
	}
	switch {
	case squash.IsNone():
		group := "(" + pattern + ")"
		if optional {
			group += "?"
		}
		return result + group
	case squash.IsSlash():
		return strings.TrimSuffix(result, "/") + "(?:/(" + pattern + ")|/)?"
	default:
		text, _ := squash.Text()
		return result + "(" + regexp.QuoteMeta(text) + "|" + pattern + ")?"
	}
}

// Concat appends pattern to the path of m, keeping the search part of m at the end.
// Params of m are inherited by the result.
func (m *Matcher) Concat(pattern string, cfg Config) (*Matcher, error) {
	return m.factory.compile(m.SourcePath+pattern+m.SourceSearch, cfg, m)
}

// Parameters lists the names of all placeholders in the pattern, path first.
func (m *Matcher) Parameters() []string {
	return append([]string(nil), m.names...)
}

// Parameter returns the param declared for name.
func (m *Matcher) Parameter(name string) (*params.Param, bool) {
	return m.Params.Get(name)
}

// Validates reports whether values satisfy every param of the matcher.
func (m *Matcher) Validates(values params.Values) bool {
	return m.Params.Validates(values)
}

// CaseInsensitive reports whether the pattern ignores case.
func (m *Matcher) CaseInsensitive() bool {
	return m.caseInsensitive
}

func (m *Matcher) pathCount() int {
	return len(m.Segments) - 1
}

// Exec matches path against the pattern and decodes path and search values.
// It returns nil values without error when path does not match.
func (m *Matcher) Exec(path string, search url.Values) (params.Values, error) {
	loc := m.Regexp.FindStringSubmatchIndex(path)
	if loc == nil {
		return nil, nil
	}

	nPath := m.pathCount()
	if len(loc)/2-1 != nPath {
		return nil, fmt.Errorf("%w: %q", ErrUnbalancedCaptureGroup, m.Source)
	}

	values := make(params.Values, len(m.names))
	for i, name := range m.names {
		p, _ := m.Params.Get(name)

		var raw any
		if i < nPath {
			if start := loc[2*i+2]; start >= 0 {
				raw = path[start:loc[2*i+3]]
			}
			raw = p.Replaced(raw)
			if s, ok := raw.(string); ok && s != "" && p.Array == params.ArrayOn {
				raw = decodePathArray(s)
			}
		} else {
			raw = p.Replaced(searchValue(search, name))
		}

		if raw != nil {
			raw = p.Type.Decode(raw)
		}
		v, err := p.Value(raw)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

func searchValue(search url.Values, name string) any {
	vals, ok := search[name]
	if !ok || len(vals) == 0 {
		return nil
	}
	if len(vals) == 1 {
		return vals[0]
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

// Format builds a URL from values. Optional params equal to their default are
// squashed according to their policy; search params that are absent or squashed
// are omitted.
func (m *Matcher) Format(values params.Values) (string, error) {
	if !m.Validates(values) {
		return "", fmt.Errorf("%w: %q", ErrInvalidParams, m.Source)
	}

	var (
		result = m.Segments[0]
		search bool
		nPath  = m.pathCount()
	)
	for i, name := range m.names {
		p, _ := m.Params.Get(name)

		value, err := p.Value(values[name])
		if err != nil {
			return "", err
		}
		def, err := p.Value(nil)
		if err != nil {
			return "", err
		}
		isDefault := p.IsOptional && p.Type.Equals(def, value)
		squash := params.NoSquash
		if isDefault {
			squash = p.Squash
		}
		encoded := p.Type.Encode(value)

		if i < nPath {
			next := m.Segments[i+1]
			switch {
			case squash.IsNone():
				if encoded != nil {
					result += encodePathValue(encoded)
				}
				result += next
			case squash.IsSlash():
				if strings.HasSuffix(result, "/") {
					next = strings.TrimPrefix(next, "/")
				}
				result += next
			default:
				text, _ := squash.Text()
				result += text + next
			}
			if i+1 == nPath && squash.IsSlash() && m.Segments[i+1] == "" && strings.HasSuffix(result, "/") {
				result = result[:len(result)-1]
			}
			continue
		}

		if encoded == nil || (isDefault && !squash.IsNone()) {
			continue
		}
		list, ok := encoded.([]any)
		if !ok {
			list = []any{encoded}
		}
		if len(list) == 0 {
			continue
		}
		parts := make([]string, len(list))
		for j, item := range list {
			parts[j] = encodeURIComponent(fmt.Sprint(item))
		}
		if search {
			result += "&"
		} else {
			result += "?"
		}
		result += name + "=" + strings.Join(parts, "&"+name+"=")
		search = true
	}
	return result, nil
}

func encodePathValue(encoded any) string {
	list, ok := encoded.([]any)
	if !ok {
		return encodeURIComponent(fmt.Sprint(encoded))
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = encodeDashes(fmt.Sprint(item))
	}
	return strings.Join(parts, "-")
}

func (m *Matcher) String() string {
	return m.Source
}
