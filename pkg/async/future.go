package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Future represents the result of an asynchronous computation.
// A future settles exactly once, either with a value or with an error.
type Future[T any] struct {
	val  T
	err  error
	once sync.Once
	done chan struct{}
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// settle records the outcome. Only the first call has an effect.
func (f *Future[T]) settle(val T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}

// NewDeferred creates a pending future together with its resolve and reject functions.
// The first of resolve or reject to be called wins; later calls are ignored.
func NewDeferred[T any]() (*Future[T], func(T), func(error)) {
	f := newFuture[T]()
	resolve := func(v T) { f.settle(v, nil) }
	reject := func(err error) {
		var zero T
		f.settle(zero, err)
	}
	return f, resolve, reject
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

// Await blocks until the future settles and returns its outcome.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.val, f.err
}

// AwaitContext blocks until the future settles or ctx is done.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the future with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// AwaitAny is a type-erased Await, letting callers wait on futures of unknown element type.
func (f *Future[T]) AwaitAny() (any, error) {
	v, err := f.Await()
	return v, err
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsComplete checks if the future has settled without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the rejection reason of a settled future, or nil while pending or when resolved.
func (f *Future[T]) Err() error {
	if !f.IsComplete() {
		return nil
	}
	return f.err
}

// Awaitable is implemented by every Future regardless of its element type.
type Awaitable interface {
	AwaitAny() (any, error)
}

// Async executes fn in a goroutine and returns a future for its result.
// Panics inside fn are recovered and reported as errors wrapping ErrPanic.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := newFuture[U]()

	go func() {
		var zero U

		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			f.settle(zero, ctx.Err())
			return
		default:
		}

		defer func() {
			if r := recover(); r != nil {
				f.settle(zero, fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()

		v, err := fn(ctx, param)
		f.settle(v, err)
	}()

	return f
}

// Then returns a future settled with fn applied to the value of f.
// A rejection of f is propagated without calling fn.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next := newFuture[U]()

	go func() {
		var zero U
		v, err := f.Await()
		if err != nil {
			next.settle(zero, err)
			return
		}

		defer func() {
			if r := recover(); r != nil {
				next.settle(zero, fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()

		u, err := fn(v)
		next.settle(u, err)
	}()

	return next
}

// All returns a future for the values of all futures, in order.
// It rejects as soon as any future rejects, without waiting for the rest.
func All[T any](ctx context.Context, futures ...*Future[T]) *Future[[]T] {
	out := newFuture[[]T]()
	if len(futures) == 0 {
		out.settle([]T{}, nil)
		return out
	}

	go func() {
		results := make([]T, len(futures))
		g, gctx := errgroup.WithContext(ctx)

		for i, future := range futures {
			g.Go(func() error {
				select {
				case <-future.Done():
					v, err := future.Await()
					if err != nil {
						return err
					}
					results[i] = v
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}

		if err := g.Wait(); err != nil {
			out.settle(nil, err)
			return
		}
		out.settle(results, nil)
	}()

	return out
}

// WaitAll waits for all futures to complete and returns their results.
// The first error in argument order is returned.
func WaitAll[T any](futures ...*Future[T]) ([]T, error) {
	results := make([]T, len(futures))
	for i, future := range futures {
		v, err := future.Await()
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

// WaitAny waits for any of the futures to complete and returns the index of the completed future,
// its value and its error.
func WaitAny[T any](futures ...*Future[T]) (int, T, error) {
	if len(futures) == 0 {
		var zero T
		return -1, zero, ErrNoFutures
	}

	type result struct {
		index int
		val   T
		err   error
	}
	done := make(chan result, len(futures))

	for i, future := range futures {
		go func() {
			v, err := future.Await()
			done <- result{index: i, val: v, err: err}
		}()
	}

	res := <-done
	return res.index, res.val, res.err
}
