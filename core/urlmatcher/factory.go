package urlmatcher

import (
	"github.com/dmitrymomot/staterouter/core/params"
)

// Factory compiles URL patterns with shared defaults and a shared type registry.
type Factory struct {
	registry        *params.Registry
	strict          bool
	caseInsensitive bool
	defaultSquash   params.SquashPolicy
}

// Option configures a Factory.
type Option func(*Factory)

// WithStrict controls whether a trailing slash is significant. Default true.
func WithStrict(strict bool) Option {
	return func(f *Factory) {
		f.strict = strict
	}
}

// WithCaseInsensitive makes compiled patterns ignore case.
func WithCaseInsensitive(caseInsensitive bool) Option {
	return func(f *Factory) {
		f.caseInsensitive = caseInsensitive
	}
}

// WithDefaultSquashPolicy sets the squash policy of optional params that do not declare one.
func WithDefaultSquashPolicy(policy params.SquashPolicy) Option {
	return func(f *Factory) {
		f.defaultSquash = policy
	}
}

// NewFactory creates a factory backed by reg. A nil reg gets a fresh registry.
func NewFactory(reg *params.Registry, opts ...Option) *Factory {
	if reg == nil {
		reg = params.NewRegistry()
	}
	f := &Factory{
		registry: reg,
		strict:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the parameter type registry.
func (f *Factory) Registry() *params.Registry {
	return f.registry
}

// Strict reports the default strict mode.
func (f *Factory) Strict() bool {
	return f.strict
}

// CaseInsensitive reports the default case sensitivity.
func (f *Factory) CaseInsensitive() bool {
	return f.caseInsensitive
}

// DefaultSquashPolicy returns the squash policy for params that do not declare one.
func (f *Factory) DefaultSquashPolicy() params.SquashPolicy {
	return f.defaultSquash
}

// Compile compiles pattern into a Matcher.
func (f *Factory) Compile(pattern string, cfg Config) (*Matcher, error) {
	return f.compile(pattern, cfg, nil)
}

// MustCompile is like Compile but panics on failure.
func (f *Factory) MustCompile(pattern string, cfg Config) *Matcher {
	m, err := f.Compile(pattern, cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// Validates reports whether pattern compiles.
func (f *Factory) Validates(pattern string) bool {
	_, err := f.Compile(pattern, Config{})
	return err == nil
}
