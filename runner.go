package swrcache

import (
	"context"
	"sync"
)

// Runner schedules fire-and-forget work (background regeneration and cache
// writes). fn must handle its own errors.
type Runner interface {
	Go(fn func())
}

// goRunner runs each task on its own goroutine.
type goRunner struct {
	log Logger
}

func (r *goRunner) Go(fn func()) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("background task panicked", Fields{"panic": p})
			}
		}()
		fn()
	}()
}

// tracker counts a client's live work: query producers and the tasks they
// hand to the Runner. Unlike sync.WaitGroup, add may race with wait.
type tracker struct {
	mu     sync.Mutex
	n      int
	closed bool
	idle   chan struct{} // closed when n drops to 0; nil if nobody waits
}

// enter registers new root work (a producer). It fails once the tracker is
// closed.
func (t *tracker) enter() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.n++
	return true
}

// join registers work spawned by an already tracked task. It is allowed
// while closing, so Close still drains write-backs of in-flight producers.
func (t *tracker) join() {
	t.mu.Lock()
	t.n++
	t.mu.Unlock()
}

func (t *tracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}

func (t *tracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// wait blocks until no work is registered, or ctx is done.
func (t *tracker) wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
