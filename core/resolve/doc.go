// Package resolve runs sets of named, interdependent producers.
//
// Study orders a set of invocables topologically and reports dependency cycles
// synchronously. The returned Plan can be run many times; each run produces a
// Resolution that settles once every producer has finished:
//
//	r := resolve.New(container)
//	res, err := r.Resolve(ctx, resolve.Invocables{
//		"b": injector.Value(1),
//		"a": injector.Fn(func(args ...any) (any, error) {
//			return args[0].(int) + 1, nil
//		}, "b"),
//	}, nil, nil, nil)
//	if err != nil {
//		return err // cyclic dependency
//	}
//	values, err := res.Await() // {"a": 2, "b": 1}
//
// # Parents
//
// A run may be given a parent resolution. Values of the parent that the plan does
// not produce itself become part of the result, and producers may depend on keys
// the parent is still producing. A producer depending on its own name receives the
// parent's value for that name, which allows decorating inherited values.
//
// # Failure
//
// The first failing producer latches the resolution as failed: producers that
// have not started are skipped and the resolution rejects with an EntryError
// wrapping the original error. A failed parent fails its children immediately.
// Cancelling the run's context has the same effect for producers not yet started.
//
// Producers may return a future (any async.Awaitable); its outcome becomes the value.
package resolve
