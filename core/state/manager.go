package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/location"
	"github.com/dmitrymomot/staterouter/core/logger"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
	"github.com/dmitrymomot/staterouter/core/urlrouter"
)

// Manager owns the state tree and runs transitions between its states.
type Manager struct {
	// mu guards the registry.
	mu       sync.RWMutex
	states   map[string]*State
	order    []*State
	queue    []Config
	builders map[Stage]BuilderFunc
	root     *State

	// tmu guards the active state and the pending transition.
	tmu        sync.Mutex
	current    *State
	params     params.Values
	transition *Transition
	// commitMu serializes the exit, enter and commit phase of transitions.
	commitMu sync.Mutex

	urls     *urlrouter.Router
	factory  *urlmatcher.Factory
	resolver *resolve.Resolver
	injector injector.Injector
	bus      *event.Bus
	logger   *slog.Logger
}

// NewManager creates a manager with an active root state. States with URLs
// register their rules on urls; a nil urls gets a router over an in-memory location.
func NewManager(urls *urlrouter.Router, factory *urlmatcher.Factory, resolver *resolve.Resolver, inj injector.Injector, opts ...Option) (*Manager, error) {
	if inj == nil {
		inj = injector.New()
	}
	if factory == nil {
		factory = urlmatcher.NewFactory(nil)
	}
	if resolver == nil {
		resolver = resolve.New(inj)
	}
	if urls == nil {
		loc, err := location.NewMemory("/")
		if err != nil {
			return nil, err
		}
		urls = urlrouter.New(loc, inj, factory)
	}
	m := &Manager{
		states:   make(map[string]*State),
		urls:     urls,
		factory:  factory,
		resolver: resolver,
		injector: inj,
		bus:      event.NewBus(),
		logger:   defaultLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("state"))
	m.builders = m.defaultBuilders()

	root, err := m.build(Config{Name: "", URL: "^", Abstract: true, Views: map[string]View{}})
	if err != nil {
		return nil, err
	}
	root.Navigable = nil
	root.locals.Store(rootLocals())
	m.root = root
	m.states[""] = root
	m.current = root
	m.params = params.Values{}
	return m, nil
}

// Register adds a state. When its parent is not registered yet the state is
// queued and Register returns a nil state; it is built once the parent arrives.
// A non-nil state may come with an error reporting queued descendants that
// failed to build.
func (m *Manager) Register(cfg Config) (*State, error) {
	if cfg.Name == "" || strings.Contains(cfg.Name, "@") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStateName, cfg.Name)
	}
	if err := m.study(cfg); err != nil {
		return nil, fmt.Errorf("state %q: %w", cfg.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[cfg.Name]; ok || m.queued(cfg.Name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateState, cfg.Name)
	}
	return m.register(cfg)
}

// MustRegister is like Register but panics on failure.
func (m *Manager) MustRegister(cfgs ...Config) {
	for _, cfg := range cfgs {
		if _, err := m.Register(cfg); err != nil {
			panic(err)
		}
	}
}

func (m *Manager) study(cfg Config) error {
	if cfg.Resolve != nil {
		if _, err := m.resolver.Study(cfg.Resolve); err != nil {
			return err
		}
	}
	for name, v := range cfg.Views {
		if v.Resolve == nil {
			continue
		}
		if _, err := m.resolver.Study(v.Resolve); err != nil {
			return fmt.Errorf("view %q: %w", name, err)
		}
	}
	return nil
}

func (m *Manager) queued(name string) bool {
	for _, c := range m.queue {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (m *Manager) register(cfg Config) (*State, error) {
	if parent := cfg.parentName(); parent != "" {
		if _, ok := m.states[parent]; !ok {
			m.queue = append(m.queue, cfg)
			m.logger.Debug("state queued until parent is registered",
				logger.State(cfg.Name),
				slog.String("parent", parent))
			return nil, nil
		}
	}

	s, err := m.build(cfg)
	if err != nil {
		return nil, err
	}
	m.states[s.Name] = s
	m.order = append(m.order, s)

	if !s.Abstract && s.URL != nil {
		if err := m.urls.When(urlrouter.Matcher(s.URL), urlrouter.Handle(m.urlHandler(s))); err != nil {
			return nil, fmt.Errorf("state %q: %w", s.Name, err)
		}
	}
	m.logger.Debug("state registered", logger.State(s.Name))

	return s, m.flush(s.Name)
}

func (m *Manager) flush(parent string) error {
	var ready, pending []Config
	for _, c := range m.queue {
		if c.parentName() == parent {
			ready = append(ready, c)
		} else {
			pending = append(pending, c)
		}
	}
	m.queue = pending

	var errs []error
	for _, c := range ready {
		if _, err := m.register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// urlHandler transitions to s when its URL matches, unless s is already
// active with the same params.
func (m *Manager) urlHandler(s *State) injector.Invocable {
	return injector.Fn(func(args ...any) (any, error) {
		match, _ := args[0].(params.Values)
		ctx, _ := args[1].(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		cur, curParams := m.snapshot()
		if cur.Navigable != s || !params.EqualForKeys(match, curParams) {
			m.TransitionTo(ctx, s, match, WithInherit(true), WithLocation(LocationNone))
		}
		return nil, nil
	}, urlrouter.MatchKey, urlrouter.ContextKey)
}

func isRelative(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "^")
}

// lookup finds a state by name or pointer. Relative names ("^", "^.sibling",
// ".child") are resolved against base. The caller holds m.mu.
func (m *Manager) lookup(ref, base any) (*State, error) {
	var (
		name string
		want *State
	)
	switch r := ref.(type) {
	case string:
		if r == "" {
			return nil, nil
		}
		name = r
	case *State:
		if r == nil {
			return nil, nil
		}
		name, want = r.Name, r
	default:
		return nil, nil
	}

	if isRelative(name) {
		if base == nil {
			return nil, fmt.Errorf("%w: no reference point for %q", ErrInvalidReference, name)
		}
		from, err := m.lookup(base, nil)
		if err != nil {
			return nil, err
		}
		if from == nil {
			return nil, fmt.Errorf("%w: reference point %v of %q not found", ErrInvalidReference, refName(base), name)
		}

		cur := from
		parts := strings.Split(name, ".")
		i := 0
		for ; i < len(parts); i++ {
			if parts[i] == "" && i == 0 {
				continue
			}
			if parts[i] == "^" {
				if cur.Parent == nil {
					return nil, fmt.Errorf("%w: %q from state %q", ErrInvalidReference, name, from.Name)
				}
				cur = cur.Parent
				continue
			}
			break
		}
		rel := strings.Join(parts[i:], ".")
		name = cur.Name
		if cur.Name != "" && rel != "" {
			name += "."
		}
		name += rel
	}

	s, ok := m.states[name]
	if !ok || (want != nil && s != want) {
		return nil, nil
	}
	return s, nil
}

func refName(ref any) string {
	switch r := ref.(type) {
	case string:
		return r
	case *State:
		if r != nil {
			return r.Name
		}
	}
	return fmt.Sprint(ref)
}

// Get finds a state. relative is the base of relative references and
// defaults to the current state. It returns nil when nothing matches.
func (m *Manager) Get(ref, relative any) (*State, error) {
	if relative == nil {
		relative = m.Current()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(ref, relative)
}

// States lists the registered states in registration order, without the root.
func (m *Manager) States() []*State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*State(nil), m.order...)
}

// Pending lists the names of states waiting for their parent.
func (m *Manager) Pending() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.queue))
	for i, c := range m.queue {
		names[i] = c.Name
	}
	return names
}

// URLRouter returns the router state URLs are registered on.
func (m *Manager) URLRouter() *urlrouter.Router {
	return m.urls
}

// Bus returns the bus transition events are published on.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// Root returns the unnamed abstract root.
func (m *Manager) Root() *State {
	return m.root
}

// Current returns the active state.
func (m *Manager) Current() *State {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.current
}

// Params returns the params of the active state.
func (m *Manager) Params() params.Values {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.params.Clone()
}

// Transition returns the transition in progress, or nil.
func (m *Manager) Transition() *Transition {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.transition
}

func (m *Manager) snapshot() (*State, params.Values) {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.current, m.params.Clone()
}

func (m *Manager) find(ref, relative any) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(ref, relative)
}

func (m *Manager) publish(ctx context.Context, payload any) bool {
	prevented, err := m.bus.Publish(ctx, payload)
	if err != nil {
		m.logger.WarnContext(ctx, "event observer failed",
			logger.Event(event.NameOf(payload)),
			logger.Error(err))
	}
	return prevented
}
