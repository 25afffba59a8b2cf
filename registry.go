package swrcache

import (
	"sync"
	"time"
)

// entry is what the registry stores; every *Resource[V] satisfies it.
type entry interface {
	Done() <-chan struct{}
	Status() Status
}

type slot struct {
	e     entry
	timer *time.Timer // pending delayed removal, if any
}

// registry deduplicates in-flight and recently settled queries by cache key.
// At most one live entry exists per key. The lock guards map access only;
// factories must not block.
type registry struct {
	mu      sync.Mutex
	entries map[string]*slot
	closed  bool
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*slot)}
}

// getOrCreate returns the live entry for key, or inserts the one built by
// create. created reports whether create ran.
func (r *registry) getOrCreate(key string, create func() entry) (e entry, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, ErrClosed
	}
	if s, ok := r.entries[key]; ok {
		return s.e, false, nil
	}
	e = create()
	r.entries[key] = &slot{e: e}
	return e, true, nil
}

// remove deletes key unconditionally.
func (r *registry) remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[key]; ok {
		stopTimer(s)
		delete(r.entries, key)
	}
}

// removeIf deletes key only while it still maps to e, so a late cleanup never
// evicts a newer entry for the same key.
func (r *registry) removeIf(key string, e entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[key]
	if !ok || s.e != e {
		return false
	}
	stopTimer(s)
	delete(r.entries, key)
	return true
}

// scheduleRemoval arranges removeIf(key, e) after d. Only the first call per
// entry arms a timer; later calls are no-ops.
func (r *registry) scheduleRemoval(key string, e entry, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[key]
	if !ok || s.e != e || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(d, func() { r.removeIf(key, e) })
}

func (r *registry) get(key string) (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return s.e, true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// close stops pending removals and rejects further inserts.
func (r *registry) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.entries {
		stopTimer(s)
		delete(r.entries, k)
	}
	r.closed = true
}

func stopTimer(s *slot) {
	if s.timer != nil {
		s.timer.Stop()
	}
}
