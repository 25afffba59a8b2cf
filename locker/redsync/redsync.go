// Package redsync implements swrcache.Locker with the Redlock algorithm, for
// deployments where the cache provider is not Redis but replicas still need
// a shared regeneration lock.
package redsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rs "github.com/go-redsync/redsync/v4"
	rsredis "github.com/go-redsync/redsync/v4/redis"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/unkn0wn-root/swrcache"
)

// Locker hands out one redsync mutex per lock key. The mutex is kept until
// Unlock because it carries the random token that proves ownership.
type Locker struct {
	rs *rs.Redsync

	mu   sync.Mutex
	held map[string]*rs.Mutex
}

var _ swrcache.Locker = (*Locker)(nil)

// New builds a Locker over one or more independent Redis nodes. With several
// nodes a lock needs a quorum.
func New(clients ...goredis.UniversalClient) (*Locker, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("redsync: at least one redis client is required")
	}
	pools := make([]rsredis.Pool, 0, len(clients))
	for _, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("redsync: nil redis client")
		}
		pools = append(pools, rsgoredis.NewPool(c))
	}
	return &Locker{rs: rs.New(pools...), held: make(map[string]*rs.Mutex)}, nil
}

// TryLock makes a single attempt. A lock held elsewhere is (false, nil).
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m := l.rs.NewMutex(key, rs.WithExpiry(ttl), rs.WithTries(1))
	if err := m.TryLockContext(ctx); err != nil {
		var taken *rs.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, rs.ErrFailed) {
			return false, nil
		}
		return false, err
	}

	l.mu.Lock()
	l.held[key] = m
	l.mu.Unlock()
	return true, nil
}

// Unlock releases a lock taken by this Locker. Unknown keys are a no-op, and
// so is a lock that already expired.
func (l *Locker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	m, ok := l.held[key]
	delete(l.held, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := m.UnlockContext(ctx); err != nil && !errors.Is(err, rs.ErrLockAlreadyExpired) {
		return err
	}
	return nil
}
