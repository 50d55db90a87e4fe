package urlrouter

import (
	"context"
	"regexp"
	"regexp/syntax"
	"strconv"
	"strings"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/location"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

// Locals available to Handle invocables.
const (
	// MatchKey holds params.Values for matcher rules and []string submatches for regexp rules.
	MatchKey = "$match"
	// ContextKey holds the context of the location change.
	ContextKey = "$ctx"
)

// Rule inspects the location and reports whether it handled it.
// A non-empty redirect is written to the location, replacing the current entry.
type Rule interface {
	Match(ctx context.Context, inj injector.Injector, loc location.Location) (redirect string, handled bool)
	// Prefix is literal text every matching path starts with, or "".
	Prefix() string
}

// RuleFunc adapts a function to a Rule without a prefix.
type RuleFunc func(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool)

// Match calls f.
func (f RuleFunc) Match(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool) {
	return f(ctx, inj, loc)
}

// Prefix returns "".
func (f RuleFunc) Prefix() string { return "" }

// What is the target of a When rule: a compiled matcher, a regular expression or a pattern.
type What interface {
	what()
}

type (
	matcherWhat struct{ m *urlmatcher.Matcher }
	regexpWhat  struct{ re *regexp.Regexp }
	patternWhat string
)

func (matcherWhat) what() {}
func (regexpWhat) what()  {}
func (patternWhat) what() {}

// Matcher targets a compiled URL pattern. The path and search are both matched.
func Matcher(m *urlmatcher.Matcher) What { return matcherWhat{m: m} }

// Regexp targets a regular expression matched against the path only.
func Regexp(re *regexp.Regexp) What { return regexpWhat{re: re} }

// Pattern targets a URL pattern compiled with the router's factory.
func Pattern(pattern string) What { return patternWhat(pattern) }

// Handler is the effect of a When rule.
type Handler interface {
	handler()
}

type (
	redirectHandler string
	invokeHandler   injector.Invocable
)

func (redirectHandler) handler() {}
func (invokeHandler) handler()   {}

// Redirect redirects to a template. For matcher rules the template is a URL
// pattern formatted with the match; for regexp rules $0 to $99 are replaced by
// submatches and $$ by the whole match.
func Redirect(template string) Handler { return redirectHandler(template) }

// Handle invokes inv with $match and $ctx available as locals. Its result
// decides the outcome: nil or true means handled, false or "" means the rule
// did not apply after all, a string redirects, anything else means handled.
func Handle(inv injector.Invocable) Handler { return invokeHandler(inv) }

type rule struct {
	prefix          string
	caseInsensitive *bool
	match           func(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool)
}

func (r *rule) Match(ctx context.Context, inj injector.Injector, loc location.Location) (string, bool) {
	return r.match(ctx, inj, loc)
}

func (r *rule) Prefix() string { return r.prefix }

// interpret converts a handler result into a rule outcome.
func interpret(result any) (string, bool) {
	switch v := result.(type) {
	case nil:
		return "", true
	case bool:
		return "", v
	case string:
		return v, v != ""
	default:
		return "", true
	}
}

var interpolation = regexp.MustCompile(`\$(\$|\d{1,2})`)

// interpolate replaces $n with submatch n and $$ with the whole match.
func interpolate(template string, match []string) string {
	return interpolation.ReplaceAllStringFunc(template, func(ref string) string {
		what := ref[1:]
		if what == "$" {
			return match[0]
		}
		n, _ := strconv.Atoi(what)
		if n >= len(match) {
			return ""
		}
		return match[n]
	})
}

// regexpPrefix returns the literal text after a leading ^, if any.
func regexpPrefix(re *regexp.Regexp) string {
	tree, err := syntax.Parse(re.String(), syntax.Perl)
	if err != nil {
		return ""
	}
	if tree.Op != syntax.OpConcat || len(tree.Sub) < 2 || tree.Sub[0].Op != syntax.OpBeginText {
		return ""
	}
	lit := tree.Sub[1]
	if lit.Op != syntax.OpLiteral || lit.Flags&syntax.FoldCase != 0 {
		return ""
	}
	return string(lit.Rune)
}

func hasPrefix(path, prefix string, fold func(string) string) bool {
	if prefix == "" {
		return true
	}
	if fold != nil {
		return strings.HasPrefix(fold(path), fold(prefix))
	}
	return strings.HasPrefix(path, prefix)
}
