package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

// Stage names one step of the builder pipeline that derives a State from its Config.
type Stage string

// Stages run in this order; each sees the fields set by the ones before it.
const (
	StageParent    Stage = "parent"
	StageData      Stage = "data"
	StageURL       Stage = "url"
	StageNavigable Stage = "navigable"
	StageOwnParams Stage = "ownParams"
	StageParams    Stage = "params"
	StageViews     Stage = "views"
	StagePath      Stage = "path"
	StageIncludes  Stage = "includes"
)

var stages = []Stage{
	StageParent,
	StageData,
	StageURL,
	StageNavigable,
	StageOwnParams,
	StageParams,
	StageViews,
	StagePath,
	StageIncludes,
}

// BuilderFunc computes the value of one stage.
type BuilderFunc func(s *State, cfg *Config) (any, error)

// DecoratorFunc replaces a stage. It may call next for the previous builder.
type DecoratorFunc func(s *State, cfg *Config, next BuilderFunc) (any, error)

// Decorator wraps the builder of stage. It affects states registered afterwards.
func (m *Manager) Decorator(stage Stage, fn DecoratorFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := m.builders[stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if fn == nil {
		return nil
	}
	m.builders[stage] = func(s *State, cfg *Config) (any, error) {
		return fn(s, cfg, next)
	}
	return nil
}

func (m *Manager) defaultBuilders() map[Stage]BuilderFunc {
	return map[Stage]BuilderFunc{
		StageParent:    m.buildParent,
		StageData:      buildData,
		StageURL:       m.buildURL,
		StageNavigable: buildNavigable,
		StageOwnParams: m.buildOwnParams,
		StageParams:    buildParams,
		StageViews:     buildViews,
		StagePath:      buildPath,
		StageIncludes:  buildIncludes,
	}
}

// build runs the pipeline for cfg. The caller holds m.mu.
func (m *Manager) build(cfg Config) (*State, error) {
	s := &State{
		Name:     cfg.Name,
		Config:   cfg,
		Abstract: cfg.Abstract,
		Resolve:  cfg.Resolve,
	}
	if s.Resolve == nil {
		s.Resolve = resolve.Invocables{}
	}

	for _, stage := range stages {
		v, err := m.builders[stage](s, &cfg)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", cfg.Name, err)
		}
		if err := assign(s, stage, v); err != nil {
			return nil, fmt.Errorf("state %q: %w", cfg.Name, err)
		}
	}
	return s, nil
}

func assign(s *State, stage Stage, v any) error {
	var err error
	switch stage {
	case StageParent:
		s.Parent, err = as[*State](stage, v)
	case StageData:
		s.Data, err = as[map[string]any](stage, v)
	case StageURL:
		s.URL, err = as[*urlmatcher.Matcher](stage, v)
	case StageNavigable:
		s.Navigable, err = as[*State](stage, v)
	case StageOwnParams:
		s.OwnParams, err = as[*params.Set](stage, v)
	case StageParams:
		s.Params, err = as[*params.Set](stage, v)
	case StageViews:
		s.Views, err = as[map[string]*View](stage, v)
	case StagePath:
		s.Path, err = as[[]*State](stage, v)
	case StageIncludes:
		s.Includes, err = as[map[string]bool](stage, v)
	}
	return err
}

func as[T any](stage Stage, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s stage returned %T", ErrInvalidBuilderResult, stage, v)
	}
	return t, nil
}

func (m *Manager) buildParent(s *State, cfg *Config) (any, error) {
	if m.root == nil {
		return (*State)(nil), nil
	}
	name := cfg.parentName()
	if name == "" {
		return m.root, nil
	}
	parent, ok := m.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: parent %q", ErrStateNotFound, name)
	}
	return parent, nil
}

func buildData(s *State, cfg *Config) (any, error) {
	if s.Parent == nil || s.Parent.Data == nil {
		return maps.Clone(cfg.Data), nil
	}
	data := maps.Clone(s.Parent.Data)
	maps.Copy(data, cfg.Data)
	return data, nil
}

func (m *Manager) buildURL(s *State, cfg *Config) (any, error) {
	if cfg.URL == "" {
		return cfg.Matcher, nil
	}

	mcfg := urlmatcher.Config{Params: cfg.Params}
	var (
		u   *urlmatcher.Matcher
		err error
	)
	if pattern, ok := strings.CutPrefix(cfg.URL, "^"); ok {
		u, err = m.factory.Compile(pattern, mcfg)
	} else {
		base := m.root
		if s.Parent != nil && s.Parent.Navigable != nil {
			base = s.Parent.Navigable
		}
		u, err = base.URL.Concat(cfg.URL, mcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidURL, cfg.URL, err)
	}
	return u, nil
}

func buildNavigable(s *State, _ *Config) (any, error) {
	if s.URL != nil {
		return s, nil
	}
	if s.Parent != nil {
		return s.Parent.Navigable, nil
	}
	return (*State)(nil), nil
}

func (m *Manager) buildOwnParams(s *State, cfg *Config) (any, error) {
	own := params.NewSet()
	if s.URL != nil {
		for _, k := range s.URL.Params.Keys() {
			p, _ := s.URL.Params.Get(k)
			own.Add(p)
		}
	}

	ids := slices.Sorted(maps.Keys(cfg.Params))
	for _, id := range ids {
		if _, ok := own.Get(id); ok {
			continue
		}
		// Ancestors keep ownership of their params.
		if s.Parent != nil && s.Parent.Params != nil {
			if _, ok := s.Parent.Params.Get(id); ok {
				continue
			}
		}
		p, err := params.NewParam(m.factory.Registry(), id, nil, cfg.Params[id], params.LocationConfig, m.factory.DefaultSquashPolicy())
		if err != nil {
			return nil, err
		}
		own.Add(p)
	}
	return own, nil
}

func buildParams(s *State, _ *Config) (any, error) {
	if s.Parent == nil || s.Parent.Params == nil {
		return params.NewSet(), nil
	}
	set := s.Parent.Params.New()
	if s.OwnParams != nil {
		for _, k := range s.OwnParams.Keys() {
			p, _ := s.OwnParams.Get(k)
			set.Add(p)
		}
	}
	return set, nil
}

func buildViews(s *State, cfg *Config) (any, error) {
	src := cfg.Views
	if src == nil {
		src = map[string]View{"": cfg.implicitView()}
	}

	parent := ""
	if s.Parent != nil {
		parent = s.Parent.Name
	}
	views := make(map[string]*View, len(src))
	for name, v := range src {
		if !strings.Contains(name, "@") {
			name += "@" + parent
		}
		if v.ResolveAs == "" {
			v.ResolveAs = cfg.ResolveAs
		}
		if v.ResolveAs == "" {
			v.ResolveAs = "$resolve"
		}
		views[name] = &v
	}
	return views, nil
}

func buildPath(s *State, _ *Config) (any, error) {
	if s.Parent == nil {
		return []*State{}, nil
	}
	return append(slices.Clone(s.Parent.Path), s), nil
}

func buildIncludes(s *State, _ *Config) (any, error) {
	includes := map[string]bool{}
	if s.Parent != nil {
		includes = maps.Clone(s.Parent.Includes)
	}
	includes[s.Name] = true
	return includes, nil
}
