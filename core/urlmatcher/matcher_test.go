package urlmatcher_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

func TestExec(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)

	tests := []struct {
		name    string
		pattern string
		path    string
		search  url.Values
		want    params.Values
	}{
		{
			name:    "colon placeholder",
			pattern: "/users/:id",
			path:    "/users/42",
			want:    params.Values{"id": "42"},
		},
		{
			name:    "typed placeholder with search",
			pattern: "/users/{id:int}?page&sort",
			path:    "/users/7",
			search:  url.Values{"page": {"2"}},
			want:    params.Values{"id": 7, "page": "2", "sort": nil},
		},
		{
			name:    "inline regexp",
			pattern: "/posts/{slug:[a-z]+}",
			path:    "/posts/hello",
			want:    params.Values{"slug": "hello"},
		},
		{
			name:    "nested braces in regexp",
			pattern: "/codes/{code:[0-9]{3}}",
			path:    "/codes/404",
			want:    params.Values{"code": "404"},
		},
		{
			name:    "catch-all",
			pattern: "/files/*path",
			path:    "/files/a/b/c.txt",
			want:    params.Values{"path": "a/b/c.txt"},
		},
		{
			name:    "empty optional string",
			pattern: "/users/:id",
			path:    "/users/",
			want:    params.Values{"id": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := f.Compile(tt.pattern, urlmatcher.Config{})
			require.NoError(t, err)

			got, err := m.Exec(tt.path, tt.search)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecNoMatch(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/users/{id:int}", urlmatcher.Config{})

	got, err := m.Exec("/users/abc", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.Exec("/accounts/1", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)

	m := f.MustCompile("/users/{id:int}?page&sort", urlmatcher.Config{})
	got, err := m.Format(params.Values{"id": 7, "page": "2"})
	require.NoError(t, err)
	assert.Equal(t, "/users/7?page=2", got)

	got, err = m.Format(params.Values{"id": 7, "page": "2", "sort": "name asc"})
	require.NoError(t, err)
	assert.Equal(t, "/users/7?page=2&sort=name%20asc", got)

	_, err = m.Format(params.Values{"id": "abc"})
	require.ErrorIs(t, err, urlmatcher.ErrInvalidParams)

	_, err = m.Format(params.Values{})
	require.ErrorIs(t, err, urlmatcher.ErrInvalidParams, "required path param is missing")
}

func TestFormatEncodesPathValues(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/search/:term", urlmatcher.Config{})

	got, err := m.Format(params.Values{"term": "a b&c"})
	require.NoError(t, err)
	assert.Equal(t, "/search/a%20b%26c", got)
}

func TestPrefixAndParameters(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/users/:id/posts/{postId}?q", urlmatcher.Config{})

	assert.Equal(t, "/users/", m.Prefix)
	assert.Equal(t, "/users/:id/posts/{postId}", m.SourcePath)
	assert.Equal(t, "?q", m.SourceSearch)
	assert.Equal(t, []string{"id", "postId", "q"}, m.Parameters())

	p, ok := m.Parameter("q")
	require.True(t, ok)
	assert.Equal(t, params.LocationSearch, p.Location)
	assert.Equal(t, "/users/:id/posts/{postId}?q", m.String())
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)

	tests := []struct {
		name    string
		pattern string
		err     error
	}{
		{name: "duplicate path param", pattern: "/:id/:id", err: urlmatcher.ErrDuplicateParameter},
		{name: "duplicate across path and search", pattern: "/:id?id", err: urlmatcher.ErrDuplicateParameter},
		{name: "brackets inside name", pattern: "/:a[]b", err: urlmatcher.ErrInvalidParameterName},
		{name: "dotted search name", pattern: "/x?a.b", err: urlmatcher.ErrInvalidParameterName},
		{name: "bad inline regexp", pattern: "/x/{id:[a-}", err: params.ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.Compile(tt.pattern, urlmatcher.Config{})
			require.ErrorIs(t, err, tt.err)
			assert.False(t, f.Validates(tt.pattern))
		})
	}
}

func TestUnbalancedCaptureGroup(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)

	m := f.MustCompile("/a/{x:(foo|bar)}", urlmatcher.Config{})
	_, err := m.Exec("/a/foo", nil)
	require.ErrorIs(t, err, urlmatcher.ErrUnbalancedCaptureGroup)

	m = f.MustCompile("/a/{x:(?:foo|bar)}", urlmatcher.Config{})
	got, err := m.Exec("/a/bar", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"x": "bar"}, got)
}

func TestStrictAndCaseInsensitive(t *testing.T) {
	t.Parallel()

	strict := urlmatcher.NewFactory(nil).MustCompile("/users", urlmatcher.Config{})
	got, err := strict.Exec("/users/", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	loose := urlmatcher.NewFactory(nil, urlmatcher.WithStrict(false)).MustCompile("/users", urlmatcher.Config{})
	got, err = loose.Exec("/users/", nil)
	require.NoError(t, err)
	assert.NotNil(t, got)

	f := urlmatcher.NewFactory(nil, urlmatcher.WithCaseInsensitive(true))
	assert.True(t, f.CaseInsensitive())
	m := f.MustCompile("/Users/{name:[a-z]+}", urlmatcher.Config{})
	got, err = m.Exec("/USERS/BOB", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"name": "BOB"}, got)

	off := false
	m = f.MustCompile("/Users", urlmatcher.Config{CaseInsensitive: &off})
	got, err = m.Exec("/users", nil)
	require.NoError(t, err)
	assert.Nil(t, got, "per-pattern config overrides the factory")
}

func TestSlashSquash(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/list/:page/items", urlmatcher.Config{
		Params: map[string]params.Config{"page": {Value: "1", Squash: true}},
	})

	got, err := m.Exec("/list/items", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"page": "1"}, got)

	got, err = m.Exec("/list/3/items", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"page": "3"}, got)

	href, err := m.Format(params.Values{"page": "1"})
	require.NoError(t, err)
	assert.Equal(t, "/list/items", href)

	href, err = m.Format(params.Values{"page": "3"})
	require.NoError(t, err)
	assert.Equal(t, "/list/3/items", href)
}

func TestTrailingSlashSquash(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil, urlmatcher.WithDefaultSquashPolicy(params.SlashSquash)).
		MustCompile("/list/:page", urlmatcher.Config{
			Params: map[string]params.Config{"page": {Value: "1"}},
		})

	href, err := m.Format(params.Values{})
	require.NoError(t, err)
	assert.Equal(t, "/list", href)

	got, err := m.Exec("/list", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"page": "1"}, got)
}

func TestStringSquash(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/list/:page", urlmatcher.Config{
		Params: map[string]params.Config{"page": {Value: "1", Squash: "~"}},
	})

	href, err := m.Format(params.Values{"page": "1"})
	require.NoError(t, err)
	assert.Equal(t, "/list/~", href)

	got, err := m.Exec("/list/~", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"page": "1"}, got)
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)
	optional := func(squash any) urlmatcher.Config {
		return urlmatcher.Config{Params: map[string]params.Config{"p": {Value: "d", Squash: squash}}}
	}

	tests := []struct {
		name    string
		pattern string
		cfg     urlmatcher.Config
		values  params.Values
		want    string
	}{
		{name: "slash squash default", pattern: "/x/{p}", cfg: optional(true), values: params.Values{"p": "d"}, want: "/x"},
		{name: "slash squash value", pattern: "/x/{p}", cfg: optional(true), values: params.Values{"p": "abc"}, want: "/x/abc"},
		{name: "slash squash default before trailing slash", pattern: "/x/{p}/", cfg: optional(true), values: params.Values{"p": "d"}, want: "/x/"},
		{name: "slash squash value before trailing slash", pattern: "/x/{p}/", cfg: optional(true), values: params.Values{"p": "abc"}, want: "/x/abc/"},
		{name: "slash squash default mid path", pattern: "/x/{p}/y", cfg: optional(true), values: params.Values{"p": "d"}, want: "/x/y"},
		{name: "slash squash value mid path", pattern: "/x/{p}/y", cfg: optional(true), values: params.Values{"p": "abc"}, want: "/x/abc/y"},
		{name: "text squash default", pattern: "/x/{p}", cfg: optional("~"), values: params.Values{"p": "d"}, want: "/x/~"},
		{name: "text squash value", pattern: "/x/{p}", cfg: optional("~"), values: params.Values{"p": "abc"}, want: "/x/abc"},
		{name: "no squash default", pattern: "/x/{p}", cfg: optional(false), values: params.Values{"p": "d"}, want: "/x/d"},
		{name: "path array", pattern: "/tags/{tags[]}", values: params.Values{"tags[]": []any{"a", "b"}}, want: "/tags/a-b"},
		{
			name:    "squashed search default",
			pattern: "/s/{id:int}?page",
			cfg:     urlmatcher.Config{Params: map[string]params.Config{"page": {Value: 1, Type: params.TypeInt, Squash: true}}},
			values:  params.Values{"id": 3, "page": 1},
			want:    "/s/3",
		},
		{
			name:    "search value",
			pattern: "/s/{id:int}?page",
			cfg:     urlmatcher.Config{Params: map[string]params.Config{"page": {Value: 1, Type: params.TypeInt, Squash: true}}},
			values:  params.Values{"id": 3, "page": 4},
			want:    "/s/3?page=4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := f.Compile(tt.pattern, tt.cfg)
			require.NoError(t, err)

			href, err := m.Format(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, href)
			assert.True(t, strings.HasPrefix(href, m.Prefix), "%q does not start with %q", href, m.Prefix)

			u, err := url.Parse(href)
			require.NoError(t, err)
			got, err := m.Exec(u.Path, u.Query())
			require.NoError(t, err)
			assert.Equal(t, tt.values, got)
		})
	}
}

func TestSlashSquashPrefix(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/x/{p}", urlmatcher.Config{
		Params: map[string]params.Config{"p": {Value: "d", Squash: true}},
	})
	assert.Equal(t, "/x", m.Prefix)

	got, err := m.Exec("/x", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"p": "d"}, got)
}

func TestSearchDefaultsSquashed(t *testing.T) {
	t.Parallel()
	cfg := urlmatcher.Config{
		Params: map[string]params.Config{"page": {Value: 1, Type: params.TypeInt}},
	}

	m := urlmatcher.NewFactory(nil).MustCompile("/s?page", cfg)
	href, err := m.Format(params.Values{"page": 1})
	require.NoError(t, err)
	assert.Equal(t, "/s?page=1", href, "defaults are written without a squash policy")

	m = urlmatcher.NewFactory(nil, urlmatcher.WithDefaultSquashPolicy(params.SlashSquash)).MustCompile("/s?page", cfg)
	href, err = m.Format(params.Values{"page": 1})
	require.NoError(t, err)
	assert.Equal(t, "/s", href)

	href, err = m.Format(params.Values{"page": 4})
	require.NoError(t, err)
	assert.Equal(t, "/s?page=4", href)
}

func TestPathArrays(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/tags/{tags[]}", urlmatcher.Config{})

	got, err := m.Exec(`/tags/a-b\-c`, nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"tags[]": []any{"a", "b-c"}}, got)

	href, err := m.Format(params.Values{"tags[]": []any{"a", "b-c"}})
	require.NoError(t, err)
	assert.Equal(t, "/tags/a-b%5C%2Dc", href)
}

func TestSearchArrays(t *testing.T) {
	t.Parallel()
	m := urlmatcher.NewFactory(nil).MustCompile("/s?tag", urlmatcher.Config{})

	got, err := m.Exec("/s", url.Values{"tag": {"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, params.Values{"tag": []any{"a", "b"}}, got)

	got, err = m.Exec("/s", url.Values{"tag": {"a"}})
	require.NoError(t, err)
	assert.Equal(t, params.Values{"tag": "a"}, got, "single values unwrap in auto mode")

	out, err := m.Format(params.Values{"tag": []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "/s?tag=a&tag=b", out)
}

func TestConcat(t *testing.T) {
	t.Parallel()
	f := urlmatcher.NewFactory(nil)
	base := f.MustCompile("/users/:id?q", urlmatcher.Config{})

	m, err := base.Concat("/posts/{postId:int}", urlmatcher.Config{})
	require.NoError(t, err)

	assert.Equal(t, "/users/:id/posts/{postId:int}?q", m.Source)
	assert.Equal(t, []string{"id", "postId", "q"}, m.Parameters())

	inherited, ok := m.Parameter("id")
	require.True(t, ok)
	own, _ := base.Parameter("id")
	assert.Same(t, own, inherited)

	got, err := m.Exec("/users/1/posts/2", url.Values{"q": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, params.Values{"id": "1", "postId": 2, "q": "x"}, got)
}

func TestCustomTypeInPlaceholder(t *testing.T) {
	t.Parallel()
	reg := params.NewRegistry()
	_, err := reg.Define("upper", params.Definition{
		Pattern: `[A-Z]+`,
		Is:      func(v any) bool { _, ok := v.(string); return ok },
	})
	require.NoError(t, err)

	m := urlmatcher.NewFactory(reg).MustCompile("/codes/{code:upper}", urlmatcher.Config{})
	got, err := m.Exec("/codes/ABC", nil)
	require.NoError(t, err)
	assert.Equal(t, params.Values{"code": "ABC"}, got)

	got, err = m.Exec("/codes/abc", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
