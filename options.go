package staterouter

import (
	"log/slog"

	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/location"
	"github.com/dmitrymomot/staterouter/core/params"
)

// Option configures a Router.
type Option func(*options)

type options struct {
	config    Config
	logger    *slog.Logger
	location  location.Location
	container *injector.Container
	bus       *event.Bus
	registry  *params.Registry
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLocation sets the location to observe. Defaults to an in-memory
// location starting at Config.InitialURL.
func WithLocation(loc location.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithContainer sets the service container used for invocables.
func WithContainer(c *injector.Container) Option {
	return func(o *options) {
		if c != nil {
			o.container = c
		}
	}
}

// WithBus sets the bus receiving state change events.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithParamTypes sets the param type registry, for custom types defined
// before the router is built.
func WithParamTypes(reg *params.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.registry = reg
		}
	}
}
