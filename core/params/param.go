package params

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrymomot/staterouter/core/injector"
)

// Location tells where a parameter is carried.
type Location string

const (
	LocationPath   Location = "path"
	LocationSearch Location = "search"
	LocationConfig Location = "config"
)

type squashMode int

const (
	squashNone squashMode = iota
	squashSlash
	squashText
)

// SquashPolicy controls how an optional parameter equal to its default is written into a URL.
type SquashPolicy struct {
	mode squashMode
	text string
}

var (
	// NoSquash writes default values like any other value.
	NoSquash = SquashPolicy{}
	// SlashSquash drops the value together with one adjacent slash.
	SlashSquash = SquashPolicy{mode: squashSlash}
)

// SquashWith replaces default values with a fixed string.
func SquashWith(text string) SquashPolicy {
	return SquashPolicy{mode: squashText, text: text}
}

// ParseSquash converts false, true or a string into a policy. Nil yields ok=false.
func ParseSquash(v any) (policy SquashPolicy, ok bool, err error) {
	switch s := v.(type) {
	case nil:
		return NoSquash, false, nil
	case bool:
		if s {
			return SlashSquash, true, nil
		}
		return NoSquash, true, nil
	case string:
		return SquashWith(s), true, nil
	case SquashPolicy:
		return s, true, nil
	default:
		return NoSquash, false, fmt.Errorf("%w: %v", ErrInvalidSquashPolicy, v)
	}
}

// IsNone reports whether defaults are written out.
func (p SquashPolicy) IsNone() bool { return p.mode == squashNone }

// IsSlash reports whether defaults are dropped together with a slash.
func (p SquashPolicy) IsSlash() bool { return p.mode == squashSlash }

// Text returns the replacement string of a string policy.
func (p SquashPolicy) Text() (string, bool) {
	return p.text, p.mode == squashText
}

func (p SquashPolicy) String() string {
	switch p.mode {
	case squashSlash:
		return "true"
	case squashText:
		return p.text
	default:
		return "false"
	}
}

// Replace maps an incoming raw value to another one before decoding.
// A nil To means "absent", so the parameter falls back to its default.
type Replace struct {
	From any `yaml:"from"`
	To   any `yaml:"to"`
}

// Config is the declaration of a parameter.
type Config struct {
	// Value is the default. A param with a default is optional.
	Value any `yaml:"value"`
	// ValueFunc computes the default through the injector; it takes precedence over Value.
	ValueFunc *injector.Invocable `yaml:"-"`
	// Type names a registered type.
	Type string `yaml:"type"`
	// TypeDef supplies a type directly.
	TypeDef *Type `yaml:"-"`
	// Array overrides the array mode.
	Array ArrayMode `yaml:"array"`
	// Squash is nil (factory default), a bool or a string.
	Squash  any       `yaml:"squash"`
	Replace []Replace `yaml:"replace"`
}

func (c Config) hasDefault() bool {
	return c.Value != nil || c.ValueFunc != nil
}

func (c Config) hasType() bool {
	return c.Type != "" || c.TypeDef != nil
}

// Param is a compiled parameter declaration.
type Param struct {
	ID         string
	Type       *Type
	Location   Location
	Array      ArrayMode
	Squash     SquashPolicy
	Replace    []Replace
	IsOptional bool
	Config     Config

	registry *Registry
}

// NewParam compiles a parameter. urlType is the type given inline in a URL pattern, if any.
// defaultSquash applies to optional params whose config leaves Squash unset.
func NewParam(reg *Registry, id string, urlType *Type, cfg Config, loc Location, defaultSquash SquashPolicy) (*Param, error) {
	typ, err := paramType(reg, id, urlType, cfg, loc)
	if err != nil {
		return nil, err
	}

	mode := arrayMode(id, cfg, loc)
	typ, err = typ.AsArray(mode, loc == LocationSearch)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", id, err)
	}

	if typ.Name == TypeString && mode == ArrayOff && loc == LocationPath && !cfg.hasDefault() {
		cfg.Value = ""
	}

	optional := cfg.hasDefault()
	squash, err := squashPolicy(cfg, optional, defaultSquash)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", id, err)
	}

	return &Param{
		ID:         id,
		Type:       typ,
		Location:   loc,
		Array:      mode,
		Squash:     squash,
		Replace:    replaceRules(cfg, mode, optional, squash),
		IsOptional: optional,
		Config:     cfg,
		registry:   reg,
	}, nil
}

func paramType(reg *Registry, id string, urlType *Type, cfg Config, loc Location) (*Type, error) {
	if cfg.hasType() && urlType != nil {
		return nil, fmt.Errorf("%w: %q", ErrTwoTypeConfigs, id)
	}
	if urlType != nil {
		return urlType, nil
	}
	if cfg.TypeDef != nil {
		return cfg.TypeDef, nil
	}

	name := cfg.Type
	if name == "" {
		name = TypeString
		if loc == LocationConfig {
			name = TypeAny
		}
	}
	t, ok := reg.Type(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q for param %q", ErrUnknownType, name, id)
	}
	return t, nil
}

// arrayMode: location default, then the "name[]" convention, then explicit config.
func arrayMode(id string, cfg Config, loc Location) ArrayMode {
	mode := ArrayOff
	if loc == LocationSearch {
		mode = ArrayAuto
	}
	if strings.HasSuffix(id, "[]") {
		mode = ArrayOn
	}
	if cfg.Array != ArrayUnset {
		mode = cfg.Array
	}
	return mode
}

func squashPolicy(cfg Config, optional bool, defaultSquash SquashPolicy) (SquashPolicy, error) {
	policy, set, err := ParseSquash(cfg.Squash)
	if err != nil {
		return NoSquash, err
	}
	if !optional || (set && policy.IsNone()) {
		return NoSquash, nil
	}
	if !set {
		return defaultSquash, nil
	}
	return policy, nil
}

func replaceRules(cfg Config, mode ArrayMode, optional bool, squash SquashPolicy) []Replace {
	var to any = ""
	if optional || mode != ArrayOff {
		to = nil
	}

	configured := append([]Replace(nil), cfg.Replace...)
	if text, ok := squash.Text(); ok {
		configured = append(configured, Replace{From: text, To: nil})
	}

	// nil already means absent, so only the empty string needs a default rule.
	rules := make([]Replace, 0, len(configured)+1)
	overridden := false
	for _, c := range configured {
		if sameValue(c.From, "") {
			overridden = true
			break
		}
	}
	if !overridden {
		rules = append(rules, Replace{From: "", To: to})
	}
	return append(rules, configured...)
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// Default evaluates the default value, invoking ValueFunc through the registry's injector.
func (p *Param) Default() (any, error) {
	v := p.Config.Value
	if p.Config.ValueFunc != nil {
		inj := p.registry.Injector()
		if inj == nil {
			return nil, fmt.Errorf("%w: %q", ErrInjectorUnavailable, p.ID)
		}
		var err error
		v, err = inj.Invoke(*p.Config.ValueFunc, nil)
		if err != nil {
			return nil, fmt.Errorf("param %q default: %w", p.ID, err)
		}
	}
	if v != nil && !p.Type.Is(v) {
		return nil, fmt.Errorf("%w: %v for %q (%s)", ErrInvalidDefault, v, p.ID, p.Type.Name)
	}
	return v, nil
}

// Value applies replace rules to raw, then returns the default for absent
// values or the normalized value otherwise.
func (p *Param) Value(raw any) (any, error) {
	v := p.Replaced(raw)
	if v == nil {
		return p.Default()
	}
	return p.Type.Normalize(v), nil
}

// Replaced returns the target of the first replace rule matching raw, or raw itself.
func (p *Param) Replaced(raw any) any {
	for _, r := range p.Replace {
		if sameValue(r.From, raw) {
			return r.To
		}
	}
	return raw
}

func (p *Param) String() string {
	return fmt.Sprintf("{Param:%s %s squash: '%s' optional: %t}", p.ID, p.Type, p.Squash, p.IsOptional)
}
