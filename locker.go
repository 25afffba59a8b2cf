package swrcache

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

// Locker guards background regeneration: at most one holder per key.
// ttl is a safety expiry so a crashed holder cannot block a key forever.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

var lockFlag = []byte{1}

// providerLocker keeps the lock flag in the cache provider itself, next to
// the entry it protects.
type providerLocker struct {
	p pr.Provider
}

// NewProviderLocker stores lock flags in p using its atomic Add.
func NewProviderLocker(p pr.Provider) Locker { return providerLocker{p: p} }

func (l providerLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.p.Add(ctx, key, lockFlag, ttl)
}

func (l providerLocker) Unlock(ctx context.Context, key string) error {
	return l.p.Del(ctx, key)
}

// localLocker is used when no provider is configured (custom Store only).
type localLocker struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{until: make(map[string]time.Time)}
}

func (l *localLocker) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, held := l.until[key]; held && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.until[key] = exp
	return true, nil
}

func (l *localLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.until, key)
	l.mu.Unlock()
	return nil
}
