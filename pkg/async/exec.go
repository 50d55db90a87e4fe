package async

import (
	"context"
	"time"
)

// ExecFuture is the outcome of a function that only returns an error.
type ExecFuture struct {
	f *Future[struct{}]
}

// Exec runs fn in a goroutine. Like Async, a pre-cancelled ctx settles the
// future with ctx.Err() without calling fn, and panics are reported as ErrPanic.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	return &ExecFuture{f: Async(ctx, param, func(ctx context.Context, p T) (struct{}, error) {
		return struct{}{}, fn(ctx, p)
	})}
}

// Await blocks until fn returns and reports its error.
func (e *ExecFuture) Await() error {
	_, err := e.f.Await()
	return err
}

// AwaitWithTimeout is Await bounded by timeout; it returns ErrTimeout when fn is still running.
func (e *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	_, err := e.f.AwaitWithTimeout(timeout)
	return err
}

// Done returns a channel closed when fn has returned.
func (e *ExecFuture) Done() <-chan struct{} {
	return e.f.Done()
}

// IsComplete reports whether fn has returned.
func (e *ExecFuture) IsComplete() bool {
	return e.f.IsComplete()
}

// ExecAll waits for every future and returns the first error in argument order.
func ExecAll(futures ...*ExecFuture) error {
	for _, future := range futures {
		if err := future.Await(); err != nil {
			return err
		}
	}
	return nil
}

// ExecAny waits for the first future to complete and returns its index and error.
func ExecAny(futures ...*ExecFuture) (int, error) {
	inner := make([]*Future[struct{}], len(futures))
	for i, future := range futures {
		inner[i] = future.f
	}
	i, _, err := WaitAny(inner...)
	return i, err
}
