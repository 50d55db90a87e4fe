package urlrouter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/location"
	"github.com/dmitrymomot/staterouter/core/logger"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

// HashParam is the special parameter written as the URL fragment.
const HashParam = "#"

// Router keeps an ordered list of rules and applies the first one that
// handles the current location, or the otherwise rule when none does.
type Router struct {
	mu        sync.Mutex
	rules     []Rule
	otherwise Rule
	unlisten  func()
	// lastPushed suppresses the notification caused by our own Push.
	lastPushed string
	// known is the last URL recorded with Update(true).
	known string

	loc      location.Location
	injector injector.Injector
	factory  *urlmatcher.Factory
	logger   *slog.Logger

	html5             bool
	hashPrefix        string
	baseHref          string
	origin            *url.URL
	caseInsensitive   bool
	interceptDeferred bool
}

// Option configures a Router.
type Option func(*Router)

// WithHTML5Mode switches hrefs from "#<prefix>/path" to clean "/path" URLs.
func WithHTML5Mode(enabled bool) Option {
	return func(r *Router) {
		r.html5 = enabled
	}
}

// WithHashPrefix sets the text between "#" and the path in hash mode, "!" for example.
func WithHashPrefix(prefix string) Option {
	return func(r *Router) {
		r.hashPrefix = prefix
	}
}

// WithBaseHref sets the base path prepended to hrefs. Default "/".
func WithBaseHref(base string) Option {
	return func(r *Router) {
		if base == "" {
			return
		}
		if !strings.HasPrefix(base, "/") {
			base = "/" + base
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		r.baseHref = base
	}
}

// WithOrigin sets the scheme, host and port used by absolute hrefs.
func WithOrigin(origin *url.URL) Option {
	return func(r *Router) {
		if origin != nil {
			r.origin = origin
		}
	}
}

// WithCaseInsensitive makes the prefix filter ignore case for rules that do
// not carry their own setting. It defaults to the setting of the matcher factory.
func WithCaseInsensitive(caseInsensitive bool) Option {
	return func(r *Router) {
		r.caseInsensitive = caseInsensitive
	}
}

// WithDeferIntercept leaves listening to the caller, who calls Listen and Sync when ready.
func WithDeferIntercept(deferIntercept bool) Option {
	return func(r *Router) {
		r.interceptDeferred = deferIntercept
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a router observing loc. Handlers are invoked through inj and
// string patterns are compiled by factory.
func New(loc location.Location, inj injector.Injector, factory *urlmatcher.Factory, opts ...Option) *Router {
	if inj == nil {
		inj = injector.New()
	}
	if factory == nil {
		factory = urlmatcher.NewFactory(nil)
	}
	r := &Router{
		loc:             loc,
		injector:        inj,
		factory:         factory,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		baseHref:        "/",
		origin:          &url.URL{Scheme: "http", Host: "localhost"},
		caseInsensitive: factory.CaseInsensitive(),
		known:           loc.URL(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("urlrouter"))
	return r
}

// Rule appends a rule.
func (r *Router) Rule(rule Rule) error {
	if rule == nil {
		return ErrInvalidRule
	}
	r.mu.Lock()
	r.rules = append(r.rules, rule)
	r.mu.Unlock()
	return nil
}

// When appends a rule built from a match target and a handler.
func (r *Router) When(what What, handler Handler) error {
	if handler == nil {
		return ErrInvalidHandler
	}

	var (
		rl  Rule
		err error
	)
	switch w := what.(type) {
	case patternWhat:
		m, cerr := r.factory.Compile(string(w), urlmatcher.Config{})
		if cerr != nil {
			return cerr
		}
		rl, err = r.matcherRule(m, handler)
	case matcherWhat:
		if w.m == nil {
			return ErrInvalidWhat
		}
		rl, err = r.matcherRule(w.m, handler)
	case regexpWhat:
		if w.re == nil {
			return ErrInvalidWhat
		}
		rl = r.regexpRule(w.re, handler)
	default:
		return ErrInvalidWhat
	}
	if err != nil {
		return err
	}
	return r.Rule(rl)
}

func (r *Router) matcherRule(m *urlmatcher.Matcher, handler Handler) (Rule, error) {
	var redirect *urlmatcher.Matcher
	if tpl, ok := handler.(redirectHandler); ok {
		var err error
		if redirect, err = r.factory.Compile(string(tpl), urlmatcher.Config{}); err != nil {
			return nil, err
		}
	}

	caseInsensitive := m.CaseInsensitive()
	return &rule{
		prefix:          m.Prefix,
		caseInsensitive: &caseInsensitive,
		match: func(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool) {
			cur := loc.Current()
			values, err := m.Exec(cur.Path, cur.Query())
			if err != nil {
				r.logger.Error("url rule failed", logger.Path(m.Source), logger.Error(err))
				return "", false
			}
			if values == nil {
				return "", false
			}
			if redirect != nil {
				target, err := redirect.Format(values)
				if err != nil {
					r.logger.Error("redirect failed", logger.Path(redirect.Source), logger.Error(err))
					return "", false
				}
				return target, true
			}
			return r.invoke(ctx, inj, handler, values)
		},
	}, nil
}

func (r *Router) regexpRule(re *regexp.Regexp, handler Handler) Rule {
	return &rule{
		prefix: regexpPrefix(re),
		match: func(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool) {
			match := re.FindStringSubmatch(loc.Current().Path)
			if match == nil {
				return "", false
			}
			if tpl, ok := handler.(redirectHandler); ok {
				return interpolate(string(tpl), match), true
			}
			return r.invoke(ctx, inj, handler, match)
		},
	}
}

func (r *Router) invoke(ctx context.Context, inj injector.Injector, handler Handler, match any) (string, bool) {
	switch h := handler.(type) {
	case redirectHandler:
		return string(h), string(h) != ""
	case invokeHandler:
		res, err := inj.Invoke(injector.Invocable(h), map[string]any{MatchKey: match, ContextKey: ctx})
		if err != nil {
			// The location was recognised; a failing handler stops the search.
			r.logger.Error("url handler failed", logger.Error(err))
			return "", true
		}
		return interpret(res)
	default:
		return "", false
	}
}

// Otherwise sets the rule applied when no other rule handles the location.
func (r *Router) Otherwise(handler Handler) error {
	var rl Rule
	switch h := handler.(type) {
	case redirectHandler:
		target := string(h)
		rl = RuleFunc(func(context.Context, injector.Injector, location.Location) (string, bool) {
			return target, true
		})
	case invokeHandler:
		rl = RuleFunc(func(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool) {
			return r.invoke(ctx, inj, h, nil)
		})
	default:
		return ErrInvalidHandler
	}
	r.mu.Lock()
	r.otherwise = rl
	r.mu.Unlock()
	return nil
}

// OtherwiseRule sets a custom fallback rule.
func (r *Router) OtherwiseRule(rule Rule) error {
	if rule == nil {
		return ErrInvalidRule
	}
	r.mu.Lock()
	r.otherwise = rule
	r.mu.Unlock()
	return nil
}

// InterceptDeferred reports whether listening is left to the caller.
func (r *Router) InterceptDeferred() bool {
	return r.interceptDeferred
}

// Listen starts reacting to location changes and returns a function that stops it.
// Calling Listen again while listening returns the same function.
func (r *Router) Listen(ctx context.Context) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unlisten != nil {
		return r.unlisten
	}

	stop := r.loc.OnChange(func(evt *location.ChangeEvent) {
		r.update(ctx, evt)
	})
	var once sync.Once
	r.unlisten = func() {
		once.Do(func() {
			stop()
			r.mu.Lock()
			r.unlisten = nil
			r.mu.Unlock()
		})
	}
	return r.unlisten
}

// Sync evaluates the rules against the current location.
func (r *Router) Sync(ctx context.Context) {
	r.update(ctx, nil)
}

func (r *Router) update(ctx context.Context, evt *location.ChangeEvent) {
	if evt != nil && evt.Prevented() {
		return
	}

	current := r.loc.URL()
	r.mu.Lock()
	ignore := r.lastPushed != "" && current == r.lastPushed
	r.lastPushed = ""
	rules := append([]Rule(nil), r.rules...)
	otherwise := r.otherwise
	r.mu.Unlock()

	if ignore {
		r.logger.Debug("skipping self-pushed url", logger.URL(current))
		return
	}

	path := r.loc.Current().Path
	for _, rl := range rules {
		if !hasPrefix(path, rl.Prefix(), r.fold(rl)) {
			continue
		}
		if r.check(ctx, rl) {
			return
		}
	}
	if otherwise != nil {
		r.check(ctx, otherwise)
	}
}

// fold returns the case folding for the prefix filter of rl, nil when the
// filter compares exactly.
func (r *Router) fold(rl Rule) func(string) string {
	caseInsensitive := r.caseInsensitive
	if own, ok := rl.(*rule); ok && own.caseInsensitive != nil {
		caseInsensitive = *own.caseInsensitive
	}
	if !caseInsensitive {
		return nil
	}
	return func(s string) string { return cases.Fold().String(s) }
}

func (r *Router) check(ctx context.Context, rl Rule) bool {
	redirect, handled := rl.Match(ctx, r.injector, r.loc)
	if !handled {
		return false
	}
	if redirect != "" {
		r.logger.Debug("redirecting", logger.URL(redirect))
		if err := r.loc.Set(redirect, true); err != nil {
			r.logger.Error("redirect failed", logger.URL(redirect), logger.Error(err))
		}
	}
	return true
}

// Update restores the location to the last recorded URL, or with read set,
// records the current URL instead.
func (r *Router) Update(read bool) {
	current := r.loc.URL()
	r.mu.Lock()
	if read {
		r.known = current
		r.mu.Unlock()
		return
	}
	known := r.known
	r.mu.Unlock()

	if current == known {
		return
	}
	if err := r.loc.Set(known, true); err != nil {
		r.logger.Error("failed to restore url", logger.URL(known), logger.Error(err))
	}
}

// PushOptions control Push.
type PushOptions struct {
	// Replace overwrites the current history entry.
	Replace bool
	// AvoidResync skips the rule evaluation the push itself triggers.
	AvoidResync bool
}

// Push formats values with m and writes the URL to the location.
// The "#" value, when set, becomes the fragment.
func (r *Router) Push(m *urlmatcher.Matcher, values params.Values, opts PushOptions) error {
	target, err := m.Format(values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	target += fragment(values)

	pushed := ""
	if opts.AvoidResync {
		if pushed, err = location.Normalize(target); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.lastPushed = pushed
	r.mu.Unlock()

	return r.loc.Set(target, opts.Replace)
}

// HrefOptions control Href.
type HrefOptions struct {
	// Absolute adds the scheme, host and port.
	Absolute bool
}

// Href builds a displayable URL for m and values. It reports false when the
// values do not validate.
func (r *Router) Href(m *urlmatcher.Matcher, values params.Values, opts HrefOptions) (string, bool) {
	if !m.Validates(values) {
		return "", false
	}
	href, err := m.Format(values)
	if err != nil {
		return "", false
	}
	if !r.html5 {
		href = "#" + r.hashPrefix + href
	}
	href += fragment(values)
	href = r.appendBasePath(href, opts.Absolute)
	if !opts.Absolute {
		return href, true
	}

	slash := ""
	if !r.html5 {
		slash = "/"
	}
	port := r.origin.Port()
	if port == "80" || port == "443" {
		port = ""
	}
	if port != "" {
		port = ":" + port
	}
	return r.origin.Scheme + "://" + r.origin.Hostname() + port + slash + href, true
}

func (r *Router) appendBasePath(href string, absolute bool) string {
	switch {
	case r.baseHref == "/":
		return href
	case r.html5:
		return strings.TrimSuffix(r.baseHref, "/") + href
	case absolute:
		return strings.TrimPrefix(r.baseHref, "/") + href
	default:
		return href
	}
}

func fragment(values params.Values) string {
	h, ok := values[HashParam]
	if !ok || h == nil {
		return ""
	}
	s := fmt.Sprint(h)
	if s == "" {
		return ""
	}
	return "#" + s
}
