package staterouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/location"
	"github.com/dmitrymomot/staterouter/core/logger"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/state"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
	"github.com/dmitrymomot/staterouter/core/urlrouter"
)

// Names of the services registered by Start.
const (
	StateService             = "$state"
	URLRouterService         = "$urlRouter"
	URLMatcherFactoryService = "$urlMatcherFactory"
	LocationService          = "$location"
)

// Router owns every component of a state router. The embedded state manager
// provides registration, transitions and queries.
type Router struct {
	*state.Manager

	config    Config
	registry  *params.Registry
	factory   *urlmatcher.Factory
	container *injector.Container
	resolver  *resolve.Resolver
	bus       *event.Bus
	location  location.Location
	urls      *urlrouter.Router
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	stop    func()
}

// New builds a router. Nothing observes the location until Start.
func New(opts ...Option) (*Router, error) {
	o := &options{
		config: DefaultConfig(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.config

	squash, err := cfg.squashPolicy()
	if err != nil {
		return nil, err
	}
	if o.registry == nil {
		o.registry = params.NewRegistry()
	}
	if o.container == nil {
		o.container = injector.New()
	}
	if o.bus == nil {
		o.bus = event.NewBus(event.WithBusLogger(o.logger))
	}
	if o.location == nil {
		initial := cfg.InitialURL
		if initial == "" {
			initial = "/"
		}
		loc, err := location.NewMemory(initial, location.WithLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("%w: initial url: %w", ErrInvalidConfig, err)
		}
		o.location = loc
	}

	factory := urlmatcher.NewFactory(o.registry,
		urlmatcher.WithStrict(cfg.Strict),
		urlmatcher.WithCaseInsensitive(cfg.CaseInsensitive),
		urlmatcher.WithDefaultSquashPolicy(squash),
	)
	urls := urlrouter.New(o.location, o.container, factory,
		urlrouter.WithHTML5Mode(cfg.HTML5Mode),
		urlrouter.WithHashPrefix(cfg.HashPrefix),
		urlrouter.WithBaseHref(cfg.BaseHref),
		urlrouter.WithCaseInsensitive(cfg.CaseInsensitive),
		urlrouter.WithDeferIntercept(cfg.DeferIntercept),
		urlrouter.WithLogger(o.logger),
	)
	resolver := resolve.New(o.container, resolve.WithLogger(o.logger))

	manager, err := state.NewManager(urls, factory, resolver, o.container,
		state.WithBus(o.bus),
		state.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	return &Router{
		Manager:   manager,
		config:    cfg,
		registry:  o.registry,
		factory:   factory,
		container: o.container,
		resolver:  resolver,
		bus:       o.bus,
		location:  o.location,
		urls:      urls,
		logger:    o.logger.With(logger.Component("staterouter")),
	}, nil
}

// Start applies deferred param type definitions, registers the router
// services and, unless interception is deferred, listens to the location and
// activates the state matching the current URL.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}

	if err := r.registry.Flush(r.container); err != nil {
		return err
	}
	err := errors.Join(
		r.container.Register(StateService, r.Manager),
		r.container.Register(URLRouterService, r.urls),
		r.container.Register(URLMatcherFactoryService, r.factory),
		r.container.Register(LocationService, r.location),
	)
	if err != nil {
		return err
	}
	r.started = true

	if r.urls.InterceptDeferred() {
		r.logger.InfoContext(ctx, "router started, url interception deferred")
		return nil
	}
	r.stop = r.urls.Listen(ctx)
	r.urls.Sync(ctx)
	r.logger.InfoContext(ctx, "router started", logger.URL(r.location.URL()))
	return nil
}

// Close stops observing the location.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

// Config returns the settings the router was built with.
func (r *Router) Config() Config { return r.config }

// Location returns the observed location.
func (r *Router) Location() location.Location { return r.location }

// Container returns the service container.
func (r *Router) Container() *injector.Container { return r.container }

// ParamTypes returns the param type registry.
func (r *Router) ParamTypes() *params.Registry { return r.registry }

// URLMatcherFactory returns the factory compiling URL patterns.
func (r *Router) URLMatcherFactory() *urlmatcher.Factory { return r.factory }

// Resolver returns the dependency resolver.
func (r *Router) Resolver() *resolve.Resolver { return r.resolver }
