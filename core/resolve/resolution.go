package resolve

import (
	"context"
	"maps"
	"sync"

	"github.com/dmitrymomot/staterouter/pkg/async"
)

// Values maps dependency names to resolved values.
type Values map[string]any

// Clone returns a shallow copy; nil stays nil.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	return maps.Clone(v)
}

// Status describes the lifecycle of a Resolution.
type Status int

const (
	Pending Status = iota
	Resolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Resolution is the in-flight or settled result of running a plan.
// It exposes the per-key futures so child resolutions can wait on them.
type Resolution struct {
	mu        sync.Mutex
	values    Values
	inherited Values
	promises  map[string]*async.Future[any]
	failure   error
	status    Status

	future  *async.Future[Values]
	resolve func(Values)
	reject  func(error)
}

func newResolution() *Resolution {
	f, resolve, reject := async.NewDeferred[Values]()
	return &Resolution{
		promises: make(map[string]*async.Future[any]),
		future:   f,
		resolve:  resolve,
		reject:   reject,
	}
}

// Settled returns a resolution already settled with values.
// It is used as the root of resolution chains.
func Settled(values Values) *Resolution {
	r := newResolution()
	for k, v := range values {
		r.promises[k] = async.Resolved[any](v)
	}
	r.succeed(values.Clone())
	return r
}

// Await blocks until the resolution settles.
func (r *Resolution) Await() (Values, error) {
	return r.future.Await()
}

// AwaitContext blocks until the resolution settles or ctx is done.
func (r *Resolution) AwaitContext(ctx context.Context) (Values, error) {
	return r.future.AwaitContext(ctx)
}

// Future exposes the resolution as a future.
func (r *Resolution) Future() *async.Future[Values] {
	return r.future
}

// Done returns a channel closed when the resolution settles.
func (r *Resolution) Done() <-chan struct{} {
	return r.future.Done()
}

// Err returns the latched failure, if any.
func (r *Resolution) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

// Status reports the current lifecycle state.
func (r *Resolution) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Values returns a copy of the resolved values, or nil unless resolved.
func (r *Resolution) Values() Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values.Clone()
}

func (r *Resolution) snapshot() (values, inherited Values, promises map[string]*async.Future[any], settled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values.Clone(), r.inherited.Clone(), maps.Clone(r.promises), r.status == Resolved
}

// fail latches the first failure and rejects the resolution.
func (r *Resolution) fail(err error) {
	r.mu.Lock()
	if r.failure != nil || r.status == Resolved {
		r.mu.Unlock()
		return
	}
	r.failure = err
	r.status = Failed
	r.mu.Unlock()
	r.reject(err)
}

func (r *Resolution) succeed(values Values) {
	r.mu.Lock()
	if r.status != Pending {
		r.mu.Unlock()
		return
	}
	if values == nil {
		values = Values{}
	}
	r.values = values
	r.inherited = nil
	r.status = Resolved
	r.mu.Unlock()
	r.resolve(values.Clone())
}
