package state

import (
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/urlrouter"
)

// Is reports whether ref is exactly the current state and, when values are
// given, whether they equal the current params. found is false when ref does
// not resolve to a state.
func (m *Manager) Is(ref any, values params.Values, opts ...TransitionOption) (is, found bool) {
	cur, curParams := m.snapshot()
	o := TransitionOptions{Relative: cur}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := m.find(ref, o.Relative)
	if err != nil || st == nil {
		return false, false
	}
	if st != cur {
		return false, true
	}
	if values == nil {
		return true, true
	}
	expected, err := st.Params.Values(values)
	if err != nil {
		return false, true
	}
	return params.EqualForKeys(expected, curParams), true
}

// Includes reports whether ref is the current state or one of its ancestors.
// String references may be globs such as "*.detail" or "contacts.**". When
// values are given, the listed params must equal the current ones.
func (m *Manager) Includes(ref any, values params.Values, opts ...TransitionOption) (included, found bool) {
	cur, curParams := m.snapshot()
	o := TransitionOptions{Relative: cur}
	for _, opt := range opts {
		opt(&o)
	}

	if s, ok := ref.(string); ok && isGlob(s) {
		if !MatchGlob(s, cur.Name) {
			return false, true
		}
		ref = cur.Name
	}

	st, err := m.find(ref, o.Relative)
	if err != nil || st == nil {
		return false, false
	}
	if !cur.Includes[st.Name] {
		return false, true
	}
	if values == nil {
		return true, true
	}
	expected, err := st.Params.Values(values)
	if err != nil {
		return false, true
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return params.EqualForKeys(expected, curParams, keys...), true
}

// Href builds the URL of ref with values. By default params are inherited
// from the current state and a state without a URL links to its nearest
// navigable ancestor. It reports false when no URL can be built.
func (m *Manager) Href(ref any, values params.Values, opts ...TransitionOption) (string, bool) {
	cur, curParams := m.snapshot()
	o := TransitionOptions{Lossy: true, Inherit: true, Relative: cur}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := m.find(ref, o.Relative)
	if err != nil || st == nil {
		return "", false
	}
	if values == nil {
		values = params.Values{}
	}
	if o.Inherit {
		values = inheritParams(curParams, values, cur, st)
	}

	nav := st
	if o.Lossy {
		nav = st.Navigable
	}
	if nav == nil || nav.URL == nil {
		return "", false
	}
	keys := append(st.Params.Keys(), urlrouter.HashParam)
	return m.urls.Href(nav.URL, values.Filter(keys), urlrouter.HrefOptions{Absolute: o.Absolute})
}
