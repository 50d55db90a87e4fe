// Package urlmatcher compiles URL patterns into matchers.
//
// A pattern is a path with placeholders, optionally followed by a search part:
//
//	/users/:id
//	/users/{id:int}/posts/{slug:[a-z-]+}?page&sort
//	/files/*path
//
// Placeholders name a registered parameter type or an inline regular
// expression. Search parameters are listed after "?" and separated by "&".
//
//	f := urlmatcher.NewFactory(params.NewRegistry())
//	m, err := f.Compile("/users/{id:int}?page", urlmatcher.Config{})
//	values, err := m.Exec("/users/7", url.Values{"page": {"2"}})
//	// values == params.Values{"id": 7, "page": "2"}
//	href, err := m.Format(values)
//	// href == "/users/7?page=2"
//
// Concat appends a pattern to an existing matcher; the result shares the
// parent's params, which is how nested states build their URLs.
package urlmatcher
