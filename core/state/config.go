package state

import (
	"strings"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

// Config declares a state.
type Config struct {
	// Name is dotted: "contacts.detail" is a child of "contacts".
	Name string `yaml:"name"`
	// Parent names the parent explicitly and wins over the dotted name.
	Parent string `yaml:"parent"`
	// URL is relative to the nearest ancestor with a URL, or absolute when it starts with "^".
	URL string `yaml:"url"`
	// Matcher is a pre-built URL matcher used when URL is empty.
	Matcher *urlmatcher.Matcher      `yaml:"-"`
	Params  map[string]params.Config `yaml:"params"`
	// Abstract states can be parents but never transition targets.
	Abstract bool               `yaml:"abstract"`
	Resolve  resolve.Invocables `yaml:"-"`
	// Views declares named views. When nil the view fields below form the
	// single unnamed view.
	Views map[string]View `yaml:"views"`

	Template           any                                 `yaml:"template"`
	TemplateFunc       func(params.Values) (string, error) `yaml:"-"`
	TemplateProvider   *injector.Invocable                 `yaml:"-"`
	Controller         any                                 `yaml:"controller"`
	ControllerProvider *injector.Invocable                 `yaml:"-"`
	ControllerAs       string                              `yaml:"controllerAs"`
	ResolveAs          string                              `yaml:"resolveAs"`

	OnEnter *injector.Invocable `yaml:"-"`
	OnExit  *injector.Invocable `yaml:"-"`
	// Data is inherited by descendants; own keys win.
	Data map[string]any `yaml:"data"`
	// ReloadOnSearch set to false keeps the state when only search params change.
	ReloadOnSearch *bool `yaml:"reloadOnSearch"`
}

// View declares the content of one view slot.
type View struct {
	// Template is a string or a templ.Component.
	Template           any                                 `yaml:"template"`
	TemplateFunc       func(params.Values) (string, error) `yaml:"-"`
	TemplateProvider   *injector.Invocable                 `yaml:"-"`
	Controller         any                                 `yaml:"controller"`
	ControllerProvider *injector.Invocable                 `yaml:"-"`
	ControllerAs       string                              `yaml:"controllerAs"`
	ResolveAs          string                              `yaml:"resolveAs"`
	// Resolve holds view-specific dependencies, resolved after the state's own.
	Resolve resolve.Invocables `yaml:"-"`
}

func (c *Config) implicitView() View {
	return View{
		Template:           c.Template,
		TemplateFunc:       c.TemplateFunc,
		TemplateProvider:   c.TemplateProvider,
		Controller:         c.Controller,
		ControllerProvider: c.ControllerProvider,
		ControllerAs:       c.ControllerAs,
		ResolveAs:          c.ResolveAs,
	}
}

func (c *Config) parentName() string {
	if c.Parent != "" {
		return c.Parent
	}
	if i := strings.LastIndex(c.Name, "."); i >= 0 {
		return c.Name[:i]
	}
	return ""
}
