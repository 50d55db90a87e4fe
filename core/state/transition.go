package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/logger"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
	"github.com/dmitrymomot/staterouter/core/urlrouter"
	"github.com/dmitrymomot/staterouter/pkg/async"
)

// Transition is a transition in progress. Starting a new transition cancels
// the context of the previous one, which then settles with ErrTransitionSuperseded.
type Transition struct {
	ID     string
	From   *State
	To     *State
	Params params.Values
	Start  time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	future  *async.Future[*State]
	resolve func(*State)
	reject  func(error)
}

// Future settles with the entered state or the reason the transition failed.
func (t *Transition) Future() *async.Future[*State] {
	return t.future
}

// Context is cancelled once the transition settles or is superseded.
func (t *Transition) Context() context.Context {
	return t.ctx
}

func (t *Transition) target() string {
	if t.To == nil {
		return ""
	}
	return t.To.Name
}

// TransitionTo activates the state referenced by to, a name or a *State.
// Defaults: push the URL, do not inherit params, notify observers.
func (m *Manager) TransitionTo(ctx context.Context, to any, toParams params.Values, opts ...TransitionOption) *async.Future[*State] {
	o := TransitionOptions{Notify: true}
	for _, opt := range opts {
		opt(&o)
	}

	fut, err := m.transitionTo(ctx, to, toParams.Clone(), o)
	if err != nil {
		m.logger.DebugContext(ctx, "transition rejected",
			logger.State(refName(to)),
			logger.Error(err))
		return async.Rejected[*State](err)
	}
	return fut
}

// Go is TransitionTo with params inherited and references relative to the current state.
func (m *Manager) Go(ctx context.Context, to any, toParams params.Values, opts ...TransitionOption) *async.Future[*State] {
	opts = append([]TransitionOption{WithInherit(true), WithRelative(m.Current())}, opts...)
	return m.TransitionTo(ctx, to, toParams, opts...)
}

// Reload re-enters the current state. A nil ref reloads every level; otherwise
// the referenced state and its descendants are resolved again.
func (m *Manager) Reload(ctx context.Context, ref any) *async.Future[*State] {
	cur, p := m.snapshot()
	target := ref
	if target == nil {
		target = true
	}
	return m.TransitionTo(ctx, cur, p, WithReload(target), WithInherit(false), WithNotify(true))
}

func (m *Manager) transitionTo(ctx context.Context, to any, toParams params.Values, o TransitionOptions) (*async.Future[*State], error) {
	if toParams == nil {
		toParams = params.Values{}
	}
	from, fromParams := m.snapshot()

	toState, err := m.find(to, o.Relative)
	if err != nil {
		return nil, err
	}
	hash, hasHash := toParams[urlrouter.HashParam]

	if toState == nil {
		evt := &StateNotFound{
			To:         refName(to),
			ToParams:   toParams,
			Options:    o,
			From:       from,
			FromParams: fromParams,
		}
		if m.publish(ctx, evt) {
			m.urls.Update(false)
			return nil, fmt.Errorf("%w: %q", ErrTransitionAborted, evt.To)
		}
		if evt.Retry != nil {
			if o.retry {
				m.urls.Update(false)
				return nil, fmt.Errorf("%w: %q", ErrTransitionFailed, evt.To)
			}
			fut := m.retry(ctx, from, evt)
			m.urls.Update(false)
			return fut, nil
		}

		// Observers may have redirected the target or registered it lazily.
		toParams, o = evt.ToParams, evt.Options
		if toParams == nil {
			toParams = params.Values{}
		}
		if toState, err = m.find(evt.To, o.Relative); err != nil {
			return nil, err
		}
		if toState == nil {
			if o.Relative == nil {
				return nil, fmt.Errorf("%w: %q", ErrStateNotFound, evt.To)
			}
			return nil, fmt.Errorf("%w: %q relative to %q", ErrStateNotFound, evt.To, refName(o.Relative))
		}
		hash, hasHash = toParams[urlrouter.HashParam]
	}

	if toState.Abstract {
		return nil, fmt.Errorf("%w: %q", ErrAbstractState, toState.Name)
	}
	if o.Inherit {
		toParams = inheritParams(fromParams, toParams, from, toState)
	}
	if !toState.Params.Validates(toParams) {
		return nil, fmt.Errorf("%w: invalid params for %q", ErrTransitionFailed, toState.Name)
	}
	if toParams, err = toState.Params.Values(toParams); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransitionFailed, err)
	}

	keep, locals, err := m.kept(toState, toParams, from, fromParams, o)
	if err != nil {
		return nil, err
	}

	if shouldSkipReload(toState, toParams, from, fromParams, locals, o) {
		if hasHash {
			toParams[urlrouter.HashParam] = hash
		}
		m.tmu.Lock()
		m.params = toParams
		prev := m.transition
		m.transition = nil
		m.tmu.Unlock()
		if prev != nil {
			prev.cancel()
		}
		if l := toState.Locals(); l != nil {
			toState.locals.Store(l.withStateParams(toParams.Filter(toState.Params.Keys())))
		}
		if o.Location != LocationNone && toState.Navigable != nil && toState.Navigable.URL != nil {
			m.push(ctx, toState.Navigable.URL, toParams, o)
			m.urls.Update(true)
		}
		m.logger.DebugContext(ctx, "state unchanged, transition skipped", logger.State(toState.Name))
		return async.Resolved(toState), nil
	}

	if hasHash {
		toParams[urlrouter.HashParam] = hash
	}

	if o.Notify {
		start := &StateChangeStart{
			To:         toState,
			ToParams:   toParams,
			From:       from,
			FromParams: fromParams,
			Options:    o,
		}
		if m.publish(ctx, start) {
			m.publish(ctx, &StateChangeCancel{
				To:         toState,
				ToParams:   toParams,
				From:       from,
				FromParams: fromParams,
			})
			if m.Transition() == nil {
				m.urls.Update(false)
			}
			return nil, fmt.Errorf("%w: %q", ErrTransitionPrevented, toState.Name)
		}
	}

	t := m.begin(ctx, from, toState, toParams, o.replaces)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrTransitionSuperseded, toState.Name)
	}
	m.logger.DebugContext(ctx, "transition started",
		logger.TransitionID(t.ID),
		logger.FromState(from.Name),
		logger.State(toState.Name),
		logger.Params(toParams))
	go m.run(t, keep, locals, fromParams, o)
	return t.future, nil
}

func (m *Manager) retry(ctx context.Context, from *State, evt *StateNotFound) *async.Future[*State] {
	t := m.begin(ctx, from, nil, evt.ToParams, nil)
	to, toParams, o := evt.To, evt.ToParams, evt.Options
	o.retry = true

	go func() {
		defer t.cancel()

		wait := async.Exec(context.WithoutCancel(t.ctx), evt.Retry, func(_ context.Context, retry async.Awaitable) error {
			_, err := retry.AwaitAny()
			return err
		})

		select {
		case <-wait.Done():
			if err := wait.Await(); err != nil {
				m.clear(t)
				t.reject(fmt.Errorf("%w: %q: %w", ErrTransitionAborted, to, err))
				return
			}
		case <-t.ctx.Done():
			m.clear(t)
			t.reject(fmt.Errorf("%w: %q", ErrTransitionSuperseded, to))
			return
		}

		if m.superseded(t) {
			t.reject(fmt.Errorf("%w: %q", ErrTransitionSuperseded, to))
			return
		}
		s, err := m.TransitionTo(ctx, to, toParams, withOptions(o)).Await()
		m.clear(t)
		if err != nil {
			t.reject(err)
			return
		}
		t.resolve(s)
	}()
	return t.future
}

// kept counts the leading levels shared by both paths that stay active, and
// returns the locals of the deepest of them.
func (m *Manager) kept(to *State, toParams params.Values, from *State, fromParams params.Values, o TransitionOptions) (int, *Locals, error) {
	keep, locals := 0, m.root.Locals()
	toPath, fromPath := to.Path, from.Path
	shared := func(i int) bool {
		return i < len(toPath) && i < len(fromPath) && toPath[i] == fromPath[i] && toPath[i].Locals() != nil
	}

	switch {
	case !o.Reload:
		for shared(keep) && toPath[keep].OwnParams.Equals(toParams, fromParams) {
			locals = toPath[keep].Locals()
			keep++
		}
	case o.ReloadState != nil:
		reload, err := m.find(o.ReloadState, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrInvalidReloadState, err)
		}
		if reload == nil {
			return 0, nil, fmt.Errorf("%w: %q", ErrInvalidReloadState, refName(o.ReloadState))
		}
		for shared(keep) && toPath[keep] != reload {
			locals = toPath[keep].Locals()
			keep++
		}
	}
	return keep, locals, nil
}

// shouldSkipReload reports whether the transition leaves every level in place,
// or only changes search params of a state that does not reload on search.
func shouldSkipReload(to *State, toParams params.Values, from *State, fromParams params.Values, locals *Locals, o TransitionOptions) bool {
	if o.Reload || to != from {
		return false
	}
	if locals == from.Locals() {
		return true
	}
	if ros := to.Config.ReloadOnSearch; ros == nil || *ros {
		return false
	}
	nonSearch := from.Params.Filter(func(p *params.Param) bool {
		return p.Location != params.LocationSearch
	})
	return nonSearch.Equals(fromParams, toParams)
}

// inheritParams fills newParams with the current values of every param owned
// by an ancestor shared between from and to.
func inheritParams(current, newParams params.Values, from, to *State) params.Values {
	inherited := params.Values{}
	seen := map[string]bool{}
	for i := 0; i < len(from.Path) && i < len(to.Path) && from.Path[i] == to.Path[i]; i++ {
		for _, k := range from.Path[i].Params.OwnKeys() {
			if seen[k] {
				continue
			}
			seen[k] = true
			inherited[k] = current[k]
		}
	}
	return inherited.Merge(newParams)
}

// begin makes a new transition the pending one. When replaces is set, it
// returns nil unless replaces is still pending.
func (m *Manager) begin(ctx context.Context, from, to *State, p params.Values, replaces *Transition) *Transition {
	tctx, cancel := context.WithCancel(ctx)
	fut, resolveFn, rejectFn := async.NewDeferred[*State]()
	t := &Transition{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		Params:  p,
		Start:   time.Now(),
		ctx:     tctx,
		cancel:  cancel,
		future:  fut,
		resolve: resolveFn,
		reject:  rejectFn,
	}

	m.tmu.Lock()
	prev := m.transition
	if replaces != nil && prev != replaces {
		m.tmu.Unlock()
		cancel()
		return nil
	}
	m.transition = t
	m.tmu.Unlock()
	if prev != nil {
		prev.cancel()
	}
	return t
}

func (m *Manager) superseded(t *Transition) bool {
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.transition != t
}

func (m *Manager) clear(t *Transition) {
	m.tmu.Lock()
	if m.transition == t {
		m.transition = nil
	}
	m.tmu.Unlock()
}

func (m *Manager) run(t *Transition, keep int, inherited *Locals, fromParams params.Values, o TransitionOptions) {
	toPath := t.To.Path
	toLocals := make([]*Locals, len(toPath))
	futures := make([]*async.Future[*Locals], 0, len(toPath)-keep)

	var prev *async.Future[*Locals]
	parent := inherited
	for l := keep; l < len(toPath); l++ {
		st := toPath[l]
		dst := newLocals(parent)
		toLocals[l] = dst
		prev = m.resolveState(t.ctx, st, t.Params, st == t.To, prev, dst, o)
		futures = append(futures, prev)
		parent = dst
	}

	if _, err := async.All(t.ctx, futures...).Await(); err != nil {
		m.fail(t, fromParams, err)
		return
	}
	if err := m.enter(t, keep, toLocals); err != nil {
		if errors.Is(err, errSourceChanged) {
			m.restart(t, o)
			return
		}
		m.fail(t, fromParams, err)
		return
	}

	ctx := context.WithoutCancel(t.ctx)
	if nav := t.To.Navigable; o.Location != LocationNone && nav != nil && nav.URL != nil {
		p := t.Params.Filter(nav.Params.Keys())
		if l := nav.Locals(); l != nil {
			p = l.stateParams
		}
		m.push(ctx, nav.URL, p, o)
	}
	if o.Notify {
		m.publish(ctx, &StateChangeSuccess{
			To:         t.To,
			ToParams:   t.Params,
			From:       t.From,
			FromParams: fromParams,
		})
	}
	m.urls.Update(true)

	m.logger.InfoContext(ctx, "transition succeeded",
		logger.TransitionID(t.ID),
		logger.FromState(t.From.Name),
		logger.State(t.To.Name),
		logger.Elapsed(t.Start))
	t.cancel()
	t.resolve(t.To)
}

// resolveState resolves the state-level dependencies of st into dst, then,
// once the level above is complete, the dependencies and template of each view.
func (m *Manager) resolveState(ctx context.Context, st *State, p params.Values, filtered bool, inherited *async.Future[*Locals], dst *Locals, o TransitionOptions) *async.Future[*Locals] {
	stateParams := p
	if !filtered {
		stateParams = p.Filter(st.Params.Keys())
	}
	dst.stateParams = stateParams

	var parent *resolve.Resolution
	if dst.parent != nil {
		parent = dst.parent.resolution
	}
	res, err := m.resolver.Resolve(ctx, st.Resolve, resolve.Values{StateParamsKey: stateParams}, parent, st)
	if err != nil {
		return async.Rejected[*Locals](err)
	}
	dst.resolution = res

	return async.Async(ctx, dst, func(ctx context.Context, dst *Locals) (*Locals, error) {
		globals, err := res.AwaitContext(ctx)
		if err != nil {
			return nil, err
		}
		dst.globals = globals
		if inherited != nil {
			if _, err := inherited.AwaitContext(ctx); err != nil {
				return nil, err
			}
		}
		if err := m.resolveViews(ctx, st, dst, o); err != nil {
			return nil, err
		}
		return dst, nil
	})
}

func (m *Manager) resolveViews(ctx context.Context, st *State, dst *Locals, o TransitionOptions) error {
	type pending struct {
		name string
		view *View
		res  *resolve.Resolution
	}

	names := slices.Sorted(maps.Keys(st.Views))
	list := make([]pending, 0, len(names))
	for _, name := range names {
		view := st.Views[name]
		inv := make(resolve.Invocables, len(view.Resolve)+1)
		maps.Copy(inv, view.Resolve)
		inv[TemplateKey] = injector.Fn(func(...any) (any, error) {
			return m.loadTemplate(ctx, name, view, st, dst, o)
		})

		res, err := m.resolver.Resolve(ctx, inv, dst.globals, dst.resolution, st)
		if err != nil {
			return fmt.Errorf("view %q: %w", name, err)
		}
		list = append(list, pending{name: name, view: view, res: res})
	}

	for _, p := range list {
		values, err := p.res.AwaitContext(ctx)
		if err != nil {
			return err
		}
		values = values.Clone()

		if p.view.ControllerProvider != nil {
			locals := dst.globals.Clone()
			maps.Copy(locals, values)
			ctrl, err := m.injector.Invoke(*p.view.ControllerProvider, locals)
			if err != nil {
				return fmt.Errorf("controller of view %q: %w", p.name, err)
			}
			values[ControllerKey] = ctrl
		} else {
			values[ControllerKey] = p.view.Controller
		}
		values[StateKey] = st
		values[ControllerAsKey] = p.view.ControllerAs
		values[ResolveAsKey] = p.view.ResolveAs
		dst.views[p.name] = values
	}
	return nil
}

func (m *Manager) loadTemplate(ctx context.Context, name string, view *View, st *State, dst *Locals, o TransitionOptions) (any, error) {
	if o.Notify {
		m.publish(ctx, &ViewContentLoading{View: name, State: st, Params: dst.stateParams})
	}

	switch {
	case view.Template != nil:
		return renderTemplate(ctx, view.Template)
	case view.TemplateFunc != nil:
		return view.TemplateFunc(dst.stateParams.Clone())
	case view.TemplateProvider != nil:
		locals := dst.globals.Clone()
		locals["params"] = dst.stateParams
		v, err := m.injector.Invoke(*view.TemplateProvider, locals)
		if err != nil || v == nil {
			return "", err
		}
		return renderTemplate(ctx, v)
	default:
		return "", nil
	}
}

func renderTemplate(ctx context.Context, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case templ.Component:
		var b strings.Builder
		if err := t.Render(ctx, &b); err != nil {
			return "", err
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidTemplate, v)
	}
}

// errSourceChanged reports that another transition committed while t was
// resolving, so the states t planned to exit are no longer active.
var errSourceChanged = errors.New("state: transition source changed")

// enter runs the exit callbacks of the states left, the enter callbacks of
// the states entered, and commits the target as the current state.
// Once the callbacks start the transition can no longer be superseded: a
// transition begun meanwhile finds its source changed and restarts.
func (m *Manager) enter(t *Transition, keep int, toLocals []*Locals) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.tmu.Lock()
	superseded, changed := m.transition != t, m.current != t.From
	m.tmu.Unlock()
	switch {
	case superseded:
		return ErrTransitionSuperseded
	case changed:
		return errSourceChanged
	}

	fromPath, toPath := t.From.Path, t.To.Path
	for l := len(fromPath) - 1; l >= keep; l-- {
		exiting := fromPath[l]
		if cb := exiting.Config.OnExit; cb != nil {
			var locals map[string]any
			if lc := exiting.Locals(); lc != nil {
				locals = lc.globals
			}
			if _, err := m.injector.Invoke(*cb, locals); err != nil {
				return fmt.Errorf("exit %q: %w", exiting.Name, err)
			}
		}
		exiting.locals.Store(nil)
	}
	for l := keep; l < len(toPath); l++ {
		entering := toPath[l]
		entering.locals.Store(toLocals[l])
		if cb := entering.Config.OnEnter; cb != nil {
			if _, err := m.injector.Invoke(*cb, toLocals[l].globals); err != nil {
				return fmt.Errorf("enter %q: %w", entering.Name, err)
			}
		}
	}

	m.tmu.Lock()
	defer m.tmu.Unlock()
	m.current = t.To
	m.params = t.Params
	if m.transition == t {
		m.transition = nil
	}
	return nil
}

// restart runs t again from the current state and settles t with the result.
func (m *Manager) restart(t *Transition, o TransitionOptions) {
	defer t.cancel()
	ctx := context.WithoutCancel(t.ctx)
	m.logger.DebugContext(ctx, "transition source changed, restarting",
		logger.TransitionID(t.ID),
		logger.FromState(t.From.Name),
		logger.State(t.To.Name))

	o.replaces = t
	fut, err := m.transitionTo(ctx, t.To, t.Params, o)
	if err == nil {
		var s *State
		if s, err = fut.Await(); err == nil {
			t.resolve(s)
			return
		}
	}
	t.reject(err)
}

func (m *Manager) fail(t *Transition, fromParams params.Values, err error) {
	defer t.cancel()
	ctx := context.WithoutCancel(t.ctx)

	m.tmu.Lock()
	if m.transition != t {
		m.tmu.Unlock()
		m.logger.DebugContext(ctx, "transition superseded",
			logger.TransitionID(t.ID),
			logger.State(t.target()))
		t.reject(fmt.Errorf("%w: %q", ErrTransitionSuperseded, t.target()))
		return
	}
	m.transition = nil
	m.tmu.Unlock()

	evt := &StateChangeError{
		To:         t.To,
		ToParams:   t.Params,
		From:       t.From,
		FromParams: fromParams,
		Err:        err,
	}
	if !m.publish(ctx, evt) {
		m.urls.Update(false)
	}

	m.logger.ErrorContext(ctx, "transition failed",
		logger.TransitionID(t.ID),
		logger.FromState(t.From.Name),
		logger.State(t.target()),
		logger.Error(err))
	t.reject(&TransitionError{From: t.From.Name, To: t.target(), Err: err})
}

func (m *Manager) push(ctx context.Context, u *urlmatcher.Matcher, p params.Values, o TransitionOptions) {
	opts := urlrouter.PushOptions{Replace: o.Location == LocationReplace, AvoidResync: true}
	if err := m.urls.Push(u, p, opts); err != nil {
		m.logger.ErrorContext(ctx, "failed to push url", logger.Path(u.Source), logger.Error(err))
	}
}
