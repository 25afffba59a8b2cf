package swrcache

import (
	"context"
	"fmt"
	"time"
)

type Status uint8

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// State is the observable state of a Resource: exactly one of Pending,
// Success[V] or Failure. The interface is sealed.
type State interface {
	status() Status
}

// Pending carries the handle a renderer waits on before retrying.
type Pending struct {
	done <-chan struct{}
}

func (Pending) status() Status { return StatusPending }

// Done is closed once the computation settles.
func (p Pending) Done() <-chan struct{} { return p.done }

type Success[V any] struct {
	Value    V
	Started  time.Time
	Duration time.Duration // time from start to completion
}

func (Success[V]) status() Status { return StatusSuccess }

type Failure struct {
	Err error
}

func (Failure) status() Status { return StatusError }

// Resource wraps one asynchronous computation and exposes it to synchronous
// callers. The producer starts on construction and runs to completion; it is
// never cancelled. The state settles exactly once.
type Resource[V any] struct {
	key     string
	maxAge  time.Duration
	started time.Time

	done  chan struct{}
	state State // written once, before done is closed
}

// NewResource starts produce in its own goroutine and returns immediately.
// maxAge is the delay before the dedup registry forgets a successful result;
// zero means "forget on first read". ctx values reach produce, cancellation
// does not.
func NewResource[V any](ctx context.Context, key string, maxAge time.Duration, produce func(context.Context) (V, error)) *Resource[V] {
	r := &Resource[V]{
		key:     key,
		maxAge:  maxAge,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go r.run(context.WithoutCancel(ctx), produce)
	return r
}

func (r *Resource[V]) run(ctx context.Context, produce func(context.Context) (V, error)) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			r.state = Failure{Err: fmt.Errorf("swrcache: producer panic for %q: %v", r.key, p)}
		}
	}()

	v, err := produce(ctx)
	if err != nil {
		r.state = Failure{Err: err}
		return
	}
	r.state = Success[V]{Value: v, Started: r.started, Duration: time.Since(r.started)}
}

func (r *Resource[V]) Key() string           { return r.key }
func (r *Resource[V]) MaxAge() time.Duration { return r.maxAge }
func (r *Resource[V]) Started() time.Time    { return r.started }
func (r *Resource[V]) Done() <-chan struct{} { return r.done }
func (r *Resource[V]) Status() Status        { return r.State().status() }

// State returns the current state without blocking.
func (r *Resource[V]) State() State {
	select {
	case <-r.done:
		return r.state
	default:
		return Pending{done: r.done}
	}
}

// Read returns the value on success, the producer's error on failure and a
// *SuspendedError while pending.
func (r *Resource[V]) Read() (V, error) {
	var zero V
	switch s := r.State().(type) {
	case Pending:
		return zero, &SuspendedError{Key: r.key, done: s.done}
	case Failure:
		return zero, s.Err
	case Success[V]:
		return s.Value, nil
	default:
		panic(fmt.Errorf("%w: %T", ErrInvariant, s))
	}
}

// Wait blocks until the resource settles or ctx is done.
func (r *Resource[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-r.done:
		return r.Read()
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
