package state_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/staterouter/core/event"
	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/state"
	"github.com/dmitrymomot/staterouter/pkg/async"
)

func counter(n *atomic.Int32, key string, deps ...string) injector.Invocable {
	return injector.Fn(func(args ...any) (any, error) {
		n.Add(1)
		if len(args) > 0 {
			if p, ok := args[0].(params.Values); ok {
				return fmt.Sprintf("%s-%v", key, p[key]), nil
			}
		}
		return key, nil
	}, deps...)
}

func TestTransitionTo(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(contactStates()...)

	s, err := await(t, f.m.TransitionTo(context.Background(), "contacts.detail", params.Values{"id": 42}))
	require.NoError(t, err)
	assert.Equal(t, "contacts.detail", s.Name)
	assert.Same(t, s, f.m.Current())
	assert.Equal(t, params.Values{"id": 42}, f.m.Params())
	assert.Equal(t, "/contacts/42", f.loc.URL())
	assert.Nil(t, f.m.Transition())

	locals := s.Locals()
	require.NotNil(t, locals)
	assert.Equal(t, params.Values{"id": 42}, locals.StateParams())
	assert.NotNil(t, f.get(t, "contacts").Locals(), "ancestors are active")
}

func TestTransitionRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		to     any
		params params.Values
		opts   []state.TransitionOption
		err    error
	}{
		{name: "unknown state", to: "nope", err: state.ErrStateNotFound},
		{name: "abstract state", to: "contacts", err: state.ErrAbstractState},
		{name: "invalid params", to: "contacts.detail", params: params.Values{"id": "abc"}, err: state.ErrTransitionFailed},
		{name: "missing required param", to: "contacts.detail", err: state.ErrTransitionFailed},
		{name: "relative without base", to: "^.detail", err: state.ErrInvalidReference},
		{name: "unknown reload state", to: "contacts.detail", params: params.Values{"id": 1}, opts: []state.TransitionOption{state.WithReload("ghost")}, err: state.ErrInvalidReloadState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, "/")
			f.m.MustRegister(contactStates()...)

			_, err := await(t, f.m.TransitionTo(context.Background(), tt.to, tt.params, tt.opts...))
			require.ErrorIs(t, err, tt.err)
			assert.True(t, f.m.Current().IsRoot())
			assert.Equal(t, "/", f.loc.URL())
		})
	}
}

func TestCallbacksRunInOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	rec := &recorder{}
	f.m.MustRegister(
		state.Config{Name: "a", URL: "/a", OnEnter: rec.callback("enter a"), OnExit: rec.callback("exit a")},
		state.Config{Name: "a.b", URL: "/b", OnEnter: rec.callback("enter a.b"), OnExit: rec.callback("exit a.b")},
		state.Config{Name: "c", URL: "/c", OnEnter: rec.callback("enter c")},
	)

	ctx := context.Background()
	_, err := await(t, f.m.TransitionTo(ctx, "a.b", nil))
	require.NoError(t, err)
	_, err = await(t, f.m.TransitionTo(ctx, "c", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"enter a", "enter a.b", "exit a.b", "exit a", "enter c"}, rec.list())
	assert.Nil(t, f.get(t, "a").Locals(), "exited states drop their locals")
	assert.Equal(t, "/c", f.loc.URL())
}

func TestUnchangedLevelsAreKept(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	var users, posts atomic.Int32
	f.m.MustRegister(
		state.Config{Name: "users", URL: "/users/:uid", Resolve: resolve.Invocables{
			"user": counter(&users, "uid", state.StateParamsKey),
		}},
		state.Config{Name: "users.posts", URL: "/posts/:pid", Resolve: resolve.Invocables{
			"post": counter(&posts, "pid", state.StateParamsKey),
		}},
	)
	ctx := context.Background()

	s, err := await(t, f.m.TransitionTo(ctx, "users.posts", params.Values{"uid": "1", "pid": "a"}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), users.Load())
	assert.Equal(t, int32(1), posts.Load())
	globals := s.Locals().Globals()
	assert.Equal(t, "uid-1", globals["user"])
	assert.Equal(t, "pid-a", globals["post"])

	s, err = await(t, f.m.TransitionTo(ctx, "users.posts", params.Values{"uid": "1", "pid": "b"}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), users.Load(), "parent is kept")
	assert.Equal(t, int32(2), posts.Load())
	assert.Equal(t, "uid-1", s.Locals().Globals()["user"])
	assert.Equal(t, "/users/1/posts/b", f.loc.URL())

	_, err = await(t, f.m.Go(ctx, "users.posts", params.Values{"uid": "2"}))
	require.NoError(t, err)
	assert.Equal(t, int32(2), users.Load())
	assert.Equal(t, int32(3), posts.Load())
	assert.Equal(t, params.Values{"uid": "2", "pid": "b"}, f.m.Params(), "Go inherits pid")

	_, err = await(t, f.m.TransitionTo(ctx, "users.posts", params.Values{"uid": "2", "pid": "b"}))
	require.NoError(t, err)
	assert.Equal(t, int32(2), users.Load(), "same state and params is a no-op")
	assert.Equal(t, int32(3), posts.Load())
}

func TestReload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	var users, posts atomic.Int32
	f.m.MustRegister(
		state.Config{Name: "users", URL: "/users/:uid", Resolve: resolve.Invocables{"user": counter(&users, "user")}},
		state.Config{Name: "users.posts", URL: "/posts", Resolve: resolve.Invocables{"post": counter(&posts, "post")}},
	)
	ctx := context.Background()
	_, err := await(t, f.m.TransitionTo(ctx, "users.posts", params.Values{"uid": "1"}))
	require.NoError(t, err)

	_, err = await(t, f.m.Reload(ctx, "users.posts"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), users.Load())
	assert.Equal(t, int32(2), posts.Load())

	_, err = await(t, f.m.Reload(ctx, nil))
	require.NoError(t, err)
	assert.Equal(t, int32(2), users.Load())
	assert.Equal(t, int32(3), posts.Load())
	assert.Equal(t, params.Values{"uid": "1"}, f.m.Params())
}

func TestReloadOnSearchDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	var calls atomic.Int32
	keep := false
	f.m.MustRegister(state.Config{
		Name:           "search",
		URL:            "/search?q",
		ReloadOnSearch: &keep,
		Resolve:        resolve.Invocables{"results": counter(&calls, "results")},
	})
	ctx := context.Background()

	_, err := await(t, f.m.TransitionTo(ctx, "search", params.Values{"q": "go"}))
	require.NoError(t, err)
	_, err = await(t, f.m.TransitionTo(ctx, "search", params.Values{"q": "rust"}))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, params.Values{"q": "rust"}, f.m.Params())
	assert.Equal(t, "/search?q=rust", f.loc.URL())
}

func TestHashParam(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(state.Config{Name: "docs", URL: "/docs"})

	_, err := await(t, f.m.TransitionTo(context.Background(), "docs", params.Values{"#": "install"}))
	require.NoError(t, err)
	assert.Equal(t, "/docs#install", f.loc.URL())
	assert.Equal(t, "install", f.m.Params()["#"])
}

func TestLocationReplace(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(state.Config{Name: "a", URL: "/a"}, state.Config{Name: "b", URL: "/b"})
	ctx := context.Background()

	_, err := await(t, f.m.TransitionTo(ctx, "a", nil))
	require.NoError(t, err)
	_, err = await(t, f.m.TransitionTo(ctx, "b", nil, state.WithLocation(state.LocationReplace)))
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/b"}, f.loc.History())

	_, err = await(t, f.m.TransitionTo(ctx, "a", nil, state.WithLocation(state.LocationNone)))
	require.NoError(t, err)
	assert.Equal(t, "/b", f.loc.URL())
}

func TestStartCanBePrevented(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(state.Config{Name: "open", URL: "/open"}, state.Config{Name: "admin", URL: "/admin"})

	var cancelled atomic.Int32
	_, err := f.bus.Subscribe(
		event.NewHandlerFunc(func(_ context.Context, evt *state.StateChangeStart) error {
			if evt.To.Name == "admin" {
				evt.Prevent()
			}
			return nil
		}),
		event.NewHandlerFunc(func(_ context.Context, evt *state.StateChangeCancel) error {
			cancelled.Add(1)
			return nil
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = await(t, f.m.TransitionTo(ctx, "admin", nil))
	require.ErrorIs(t, err, state.ErrTransitionPrevented)
	assert.Equal(t, int32(1), cancelled.Load())
	assert.True(t, f.m.Current().IsRoot())

	_, err = await(t, f.m.TransitionTo(ctx, "open", nil))
	require.NoError(t, err)

	_, err = await(t, f.m.TransitionTo(ctx, "admin", nil, state.WithNotify(false)))
	require.NoError(t, err, "without notification nobody can veto")
}

func TestNotFoundRedirect(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(state.Config{Name: "home", URL: "/home"})

	_, err := f.bus.Subscribe(event.NewHandlerFunc(func(_ context.Context, evt *state.StateNotFound) error {
		switch evt.To {
		case "legacy":
			evt.To = "home"
		case "forbidden":
			evt.Prevent()
		}
		return nil
	}))
	require.NoError(t, err)
	ctx := context.Background()

	s, err := await(t, f.m.TransitionTo(ctx, "legacy", nil))
	require.NoError(t, err)
	assert.Equal(t, "home", s.Name)

	_, err = await(t, f.m.TransitionTo(ctx, "forbidden", nil))
	require.ErrorIs(t, err, state.ErrTransitionAborted)

	_, err = await(t, f.m.TransitionTo(ctx, "unknown", nil))
	require.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestNotFoundRetry(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	var lookups atomic.Int32
	_, err := f.bus.Subscribe(event.NewHandlerFunc(func(_ context.Context, evt *state.StateNotFound) error {
		lookups.Add(1)
		if evt.To != "lazy" && evt.To != "never" {
			return nil
		}
		fut, resolveFn, _ := async.NewDeferred[any]()
		evt.Retry = fut
		go func() {
			if evt.To == "lazy" {
				_, _ = f.m.Register(state.Config{Name: "lazy", URL: "/lazy"})
			}
			resolveFn(nil)
		}()
		return nil
	}))
	require.NoError(t, err)
	ctx := context.Background()

	s, err := await(t, f.m.TransitionTo(ctx, "lazy", nil))
	require.NoError(t, err)
	assert.Equal(t, "lazy", s.Name)
	assert.Equal(t, "/lazy", f.loc.URL())
	assert.Equal(t, int32(1), lookups.Load())

	_, err = await(t, f.m.TransitionTo(ctx, "never", nil))
	require.ErrorIs(t, err, state.ErrTransitionFailed, "a retry is attempted once")
	assert.Equal(t, int32(3), lookups.Load())
}

func TestResolveFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	boom := errors.New("boom")
	f.m.MustRegister(state.Config{Name: "broken", URL: "/broken", Resolve: resolve.Invocables{
		"data": injector.Fn(func(...any) (any, error) { return nil, boom }),
	}})

	errs := make(chan error, 1)
	_, err := f.bus.Subscribe(event.NewHandlerFunc(func(_ context.Context, evt *state.StateChangeError) error {
		errs <- evt.Err
		return nil
	}))
	require.NoError(t, err)

	_, err = await(t, f.m.TransitionTo(context.Background(), "broken", nil))
	require.ErrorIs(t, err, boom)
	var terr *state.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "broken", terr.To)
	assert.ErrorIs(t, <-errs, boom)
	assert.True(t, f.m.Current().IsRoot())
	assert.Nil(t, f.m.Transition())
}

func TestNewerTransitionSupersedes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	release := make(chan struct{})
	defer close(release)
	var slowEntered atomic.Bool
	onEnter := injector.Fn(func(...any) (any, error) {
		slowEntered.Store(true)
		return nil, nil
	})
	f.m.MustRegister(
		state.Config{Name: "slow", URL: "/slow", OnEnter: &onEnter, Resolve: resolve.Invocables{
			"data": injector.Fn(func(...any) (any, error) {
				<-release
				return "slow", nil
			}),
		}},
		state.Config{Name: "fast", URL: "/fast"},
	)
	ctx := context.Background()

	slow := f.m.TransitionTo(ctx, "slow", nil)
	fast := f.m.TransitionTo(ctx, "fast", nil)

	s, err := await(t, fast)
	require.NoError(t, err)
	assert.Equal(t, "fast", s.Name)

	_, err = await(t, slow)
	require.ErrorIs(t, err, state.ErrTransitionSuperseded)
	assert.False(t, slowEntered.Load())
	assert.Equal(t, "fast", f.m.Current().Name)
	assert.Equal(t, "/fast", f.loc.URL())
}

func TestTransitionStartedDuringCommitRunsAfterIt(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	rec := &recorder{}
	entering := make(chan struct{})
	release := make(chan struct{})
	onEnterX := injector.Fn(func(...any) (any, error) {
		rec.add("enter x")
		close(entering)
		<-release
		return nil, nil
	})
	f.m.MustRegister(
		state.Config{Name: "x", URL: "/x", OnEnter: &onEnterX, OnExit: rec.callback("exit x")},
		state.Config{Name: "y", URL: "/y", OnEnter: rec.callback("enter y")},
	)
	ctx := context.Background()

	x := f.m.TransitionTo(ctx, "x", nil)
	<-entering
	y := f.m.TransitionTo(ctx, "y", nil)
	close(release)

	s, err := await(t, x)
	require.NoError(t, err, "a transition that started committing is not superseded")
	assert.Equal(t, "x", s.Name)

	s, err = await(t, y)
	require.NoError(t, err)
	assert.Equal(t, "y", s.Name)
	assert.Equal(t, "y", f.m.Current().Name)
	assert.Nil(t, f.m.Transition())
	assert.Equal(t, []string{"enter x", "exit x", "enter y"}, rec.list(), "y starts over from x")
}

func TestTransitionFromEnterCallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	next := make(chan *async.Future[*state.State], 1)
	onEnter := injector.Fn(func(...any) (any, error) {
		next <- f.m.TransitionTo(context.Background(), "y", nil)
		return nil, nil
	})
	rec := &recorder{}
	f.m.MustRegister(
		state.Config{Name: "x", URL: "/x", OnEnter: &onEnter, OnExit: rec.callback("exit x")},
		state.Config{Name: "y", URL: "/y", OnEnter: rec.callback("enter y")},
	)

	_, err := await(t, f.m.TransitionTo(context.Background(), "x", nil))
	require.NoError(t, err)

	s, err := await(t, <-next)
	require.NoError(t, err)
	assert.Equal(t, "y", s.Name)
	assert.Equal(t, "y", f.m.Current().Name)
	assert.Equal(t, []string{"exit x", "enter y"}, rec.list())
}

func TestViews(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")

	var loading atomic.Int32
	_, err := f.bus.Subscribe(event.NewHandlerFunc(func(_ context.Context, evt *state.ViewContentLoading) error {
		loading.Add(1)
		return nil
	}))
	require.NoError(t, err)

	banner := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<b>banner</b>")
		return err
	})
	f.m.MustRegister(state.Config{
		Name: "page",
		URL:  "/page/:id",
		Resolve: resolve.Invocables{
			"user": injector.Value("ann"),
		},
		ResolveAs: "$data",
		Views: map[string]state.View{
			"main": {
				Template:     "<p>main</p>",
				Controller:   "MainCtrl",
				ControllerAs: "vm",
				Resolve: resolve.Invocables{
					"extra": injector.Fn(func(args ...any) (any, error) {
						return "extra for " + args[0].(string), nil
					}, "user"),
				},
			},
			"side@": {
				TemplateFunc: func(p params.Values) (string, error) {
					return fmt.Sprintf("side %v", p["id"]), nil
				},
				ControllerProvider: ptr(injector.Fn(func(args ...any) (any, error) {
					return "ctrl-" + args[0].(string), nil
				}, "user")),
			},
			"banner": {Template: banner},
			"footer": {
				TemplateProvider: ptr(injector.Fn(func(args ...any) (any, error) {
					return fmt.Sprintf("footer %v", args[0].(params.Values)["id"]), nil
				}, "params")),
			},
		},
	})

	s, err := await(t, f.m.TransitionTo(context.Background(), "page", params.Values{"id": "7"}))
	require.NoError(t, err)
	locals := s.Locals()
	assert.Equal(t, []string{"banner@", "footer@", "main@", "side@"}, locals.Views())

	main, ok := locals.View("main@")
	require.True(t, ok)
	assert.Equal(t, "<p>main</p>", main[state.TemplateKey])
	assert.Equal(t, "MainCtrl", main[state.ControllerKey])
	assert.Equal(t, "vm", main[state.ControllerAsKey])
	assert.Equal(t, "$data", main[state.ResolveAsKey])
	assert.Same(t, s, main[state.StateKey])
	assert.Equal(t, "extra for ann", main["extra"])
	assert.Equal(t, "ann", main["user"])

	side, ok := locals.View("side@")
	require.True(t, ok)
	assert.Equal(t, "side 7", side[state.TemplateKey])
	assert.Equal(t, "ctrl-ann", side[state.ControllerKey])

	bannerView, _ := locals.View("banner@")
	assert.Equal(t, "<b>banner</b>", bannerView[state.TemplateKey])
	footer, _ := locals.View("footer@")
	assert.Equal(t, "footer 7", footer[state.TemplateKey])

	assert.Equal(t, int32(4), loading.Load())
}

func TestChildViewsSeeParentViews(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "/")
	f.m.MustRegister(
		state.Config{Name: "app", Abstract: true, Template: "<main ui-view></main>"},
		state.Config{Name: "app.home", URL: "/home", Template: "home"},
	)

	s, err := await(t, f.m.TransitionTo(context.Background(), "app.home", nil))
	require.NoError(t, err)

	own, ok := s.Locals().View("@app")
	require.True(t, ok)
	assert.Equal(t, "home", own[state.TemplateKey])

	parent, ok := s.Locals().View("@")
	require.True(t, ok, "lookup walks up to the parent level")
	assert.Equal(t, "<main ui-view></main>", parent[state.TemplateKey])
}

func ptr[T any](v T) *T {
	return &v
}
