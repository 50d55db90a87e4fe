// Package async provides promise-style futures built on Go generics.
//
// A Future[T] settles exactly once with either a value or an error. Futures are
// created already settled (Resolved, Rejected), by running a function in a
// goroutine (Async), or as a pending deferred whose settle functions are handed
// to the producer (NewDeferred).
//
// # Usage
//
// Deferred settlement:
//
//	f, resolve, reject := async.NewDeferred[string]()
//	go func() {
//		v, err := load()
//		if err != nil {
//			reject(err)
//			return
//		}
//		resolve(v)
//	}()
//	v, err := f.Await()
//
// Chaining:
//
//	n := async.Then(f, func(s string) (int, error) { return len(s), nil })
//
// # Coordination Utilities
//
// All settles with every value in order, or rejects with the first rejection
// without waiting for the remaining futures:
//
//	values, err := async.All(ctx, a, b, c).Await()
//
// WaitAll and WaitAny are blocking helpers for the same purpose. Exec,
// ExecAll and ExecAny do the same for functions that only return an error:
//
//	err := async.Exec(ctx, req, send).Await()
//
// # Error Handling
//
//   - ErrTimeout: returned when AwaitWithTimeout exceeds its duration
//   - ErrNoFutures: returned when WaitAny or ExecAny is called with no futures
//   - ErrPanic: wraps a value recovered from a panicking function
//
// # Concurrency Safety
//
// All operations are safe for concurrent use. Settlement is guarded by
// sync.Once, so racing resolve and reject calls are harmless.
package async
