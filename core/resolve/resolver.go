package resolve

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/dmitrymomot/staterouter/core/injector"
	"github.com/dmitrymomot/staterouter/pkg/async"
)

// SelfKey is the local under which the plan's self argument is visible to producers.
const SelfKey = "$self"

// Invocables maps result names to their producers.
type Invocables map[string]injector.Invocable

// Plan runs a studied set of invocables. It never blocks: the returned
// resolution settles asynchronously.
type Plan func(ctx context.Context, locals Values, parent *Resolution, self any) *Resolution

// Resolver orders and runs dependency producers.
type Resolver struct {
	injector injector.Injector
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for producer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a resolver invoking producers through inj.
func New(inj injector.Injector, opts ...Option) *Resolver {
	r := &Resolver{
		injector: inj,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type step struct {
	key  string
	inv  injector.Invocable
	deps []string
}

const (
	unvisited = iota
	visiting
	visited
)

// Study orders invocables so every producer runs after the producers it depends on.
// Keys are visited in sorted order. A producer may depend on its own name, which
// then refers to the value inherited from a parent resolution.
func (r *Resolver) Study(invocables Invocables) (Plan, error) {
	if invocables == nil {
		return nil, ErrNilInvocables
	}

	keys := make([]string, 0, len(invocables))
	for k := range invocables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		steps []step
		stack []string
		marks = make(map[string]int, len(keys))
	)

	var visit func(key string) error
	visit = func(key string) error {
		switch marks[key] {
		case visited:
			return nil
		case visiting:
			start := slices.Index(stack, key)
			path := append(slices.Clone(stack[start:]), key)
			return &CyclicDependencyError{Path: path}
		}

		stack = append(stack, key)
		marks[key] = visiting

		inv := invocables[key]
		deps := r.injector.Annotate(inv)
		for _, dep := range deps {
			if dep == key {
				continue
			}
			if _, ok := invocables[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		steps = append(steps, step{key: key, inv: inv, deps: deps})

		stack = stack[:len(stack)-1]
		marks[key] = visited
		return nil
	}

	for _, k := range keys {
		if err := visit(k); err != nil {
			return nil, err
		}
	}

	own := make(map[string]bool, len(keys))
	for _, k := range keys {
		own[k] = true
	}

	return func(ctx context.Context, locals Values, parent *Resolution, self any) *Resolution {
		return r.run(ctx, steps, own, locals, parent, self)
	}, nil
}

// Resolve studies invocables and runs the plan at once.
func (r *Resolver) Resolve(ctx context.Context, invocables Invocables, locals Values, parent *Resolution, self any) (*Resolution, error) {
	plan, err := r.Study(invocables)
	if err != nil {
		return nil, err
	}
	return plan(ctx, locals, parent, self), nil
}

func (r *Resolver) run(ctx context.Context, steps []step, own map[string]bool, locals Values, parent *Resolution, self any) *Resolution {
	res := newResolution()

	if parent != nil {
		if err := parent.Err(); err != nil {
			res.fail(err)
			return res
		}
	}

	values := locals.Clone()
	if values == nil {
		values = Values{}
	}
	merge := func(src Values) {
		for k, v := range src {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}

	var waits []*async.Future[any]
	parentSettled := true

	// Fields of res are only touched by this goroutine until the first producer starts.
	if parent != nil {
		pvalues, pinherited, ppromises, settled := parent.snapshot()
		merge(omit(pinherited, own))
		for k, f := range ppromises {
			res.promises[k] = f
		}
		if settled {
			merge(omit(pvalues, own))
			res.inherited = omit(pvalues, own)
		} else {
			parentSettled = false
			res.inherited = omit(pinherited, own)
			waits = append(waits, async.Then(parent.Future(), func(v Values) (any, error) {
				return v, nil
			}))
		}
	}

	type pending struct {
		key    string
		future *async.Future[any]
	}

	for _, s := range steps {
		if _, ok := locals[s.key]; ok {
			continue
		}

		var deps []pending
		for _, dep := range s.deps {
			if _, ok := locals[dep]; ok {
				continue
			}
			if f, ok := res.promises[dep]; ok {
				deps = append(deps, pending{key: dep, future: f})
			}
		}

		f, resolveStep, rejectStep := async.NewDeferred[any]()
		res.promises[s.key] = f
		waits = append(waits, f)

		fail := func(err error) {
			err = &EntryError{Key: s.key, Err: err}
			r.logger.DebugContext(ctx, "resolve producer failed",
				slog.String("key", s.key),
				slog.Any("error", err))
			rejectStep(err)
			res.fail(err)
		}

		go func() {
			for _, d := range deps {
				v, err := d.future.AwaitContext(ctx)
				if err != nil {
					rejectStep(err)
					res.fail(err)
					return
				}
				res.mu.Lock()
				values[d.key] = v
				res.mu.Unlock()
			}

			if err := res.Err(); err != nil {
				rejectStep(err)
				return
			}
			if err := ctx.Err(); err != nil {
				rejectStep(err)
				res.fail(err)
				return
			}

			res.mu.Lock()
			args := values.Clone()
			res.mu.Unlock()
			if self != nil {
				args[SelfKey] = self
			}

			v, err := r.injector.Invoke(s.inv, args)
			if err != nil {
				fail(err)
				return
			}
			if aw, ok := v.(async.Awaitable); ok {
				v, err = aw.AwaitAny()
				if err != nil {
					fail(err)
					return
				}
			}

			res.mu.Lock()
			values[s.key] = v
			res.mu.Unlock()
			resolveStep(v)
		}()
	}

	go func() {
		if _, err := async.All(ctx, waits...).Await(); err != nil {
			res.fail(err)
			return
		}
		res.mu.Lock()
		if !parentSettled {
			for k, v := range parent.Values() {
				if _, ok := values[k]; !ok {
					values[k] = v
				}
			}
		}
		out := values.Clone()
		res.mu.Unlock()
		res.succeed(out)
	}()

	return res
}

func omit(src Values, keys map[string]bool) Values {
	if src == nil {
		return nil
	}
	out := make(Values, len(src))
	for k, v := range src {
		if !keys[k] {
			out[k] = v
		}
	}
	return out
}
