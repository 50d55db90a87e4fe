package location

import (
	"fmt"
	"net/url"

	"github.com/dmitrymomot/staterouter/core/event"
)

// Location is the observable current URL of the application.
type Location interface {
	// Current returns a copy of the parsed current URL.
	Current() *url.URL
	// URL returns the current URL as path?query#fragment.
	URL() string
	// Set changes the current URL. Replace overwrites the current history entry.
	Set(rawURL string, replace bool) error
	// OnChange registers fn to run after every URL change and returns a function removing it.
	OnChange(fn func(*ChangeEvent)) func()
}

// ChangeEvent describes a URL change. A listener may call Prevent to tell
// listeners that run after it to leave the change alone.
type ChangeEvent struct {
	event.Cancelable
	OldURL string
	NewURL string
}

// Format renders u as path?query#fragment, keeping its original escaping.
func Format(u *url.URL) string {
	if u == nil {
		return ""
	}
	s := u.EscapedPath()
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.EscapedFragment()
	}
	return s
}

func parse(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	// Only the path, query and fragment are tracked.
	u.Scheme, u.Host, u.User, u.Opaque = "", "", nil, ""
	if u.Path == "" {
		u.Path, u.RawPath = "/", ""
	}
	return u, nil
}

// Normalize returns raw the way a location reports it after Set.
func Normalize(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
	}
	return Format(u), nil
}
