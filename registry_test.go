package swrcache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEntry struct{ done chan struct{} }

func newFakeEntry() *fakeEntry { return &fakeEntry{done: make(chan struct{})} }

func (e *fakeEntry) Done() <-chan struct{} { return e.done }
func (e *fakeEntry) Status() Status        { return StatusPending }

func TestRegistryGetOrCreateOnce(t *testing.T) {
	r := newRegistry()
	var creates atomic.Int32

	const n = 64
	got := make([]entry, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			got[i], _, _ = r.getOrCreate("k", func() entry {
				creates.Add(1)
				return newFakeEntry()
			})
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, creates.Load())
	for i := 1; i < n; i++ {
		require.Same(t, got[0], got[i])
	}
	require.Equal(t, 1, r.len())
}

func TestRegistryRemoveIfComparesEntry(t *testing.T) {
	r := newRegistry()
	old := newFakeEntry()
	_, created, err := r.getOrCreate("k", func() entry { return old })
	require.NoError(t, err)
	require.True(t, created)

	r.remove("k")
	fresh := newFakeEntry()
	_, created, _ = r.getOrCreate("k", func() entry { return fresh })
	require.True(t, created)

	require.False(t, r.removeIf("k", old), "stale cleanup must not evict the newer entry")
	e, ok := r.get("k")
	require.True(t, ok)
	require.Same(t, fresh, e)

	require.True(t, r.removeIf("k", fresh))
	_, ok = r.get("k")
	require.False(t, ok)
}

func TestRegistryScheduleRemoval(t *testing.T) {
	r := newRegistry()
	e := newFakeEntry()
	_, _, _ = r.getOrCreate("k", func() entry { return e })

	r.scheduleRemoval("k", e, 20*time.Millisecond)
	// later calls do not push the deadline out
	r.scheduleRemoval("k", e, time.Hour)

	require.Eventually(t, func() bool { return r.len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistryScheduledRemovalSparesReplacement(t *testing.T) {
	r := newRegistry()
	old := newFakeEntry()
	_, _, _ = r.getOrCreate("k", func() entry { return old })
	r.scheduleRemoval("k", old, 10*time.Millisecond)

	// replace before the timer fires; remove stops it, the new entry stays
	r.remove("k")
	fresh := newFakeEntry()
	_, _, _ = r.getOrCreate("k", func() entry { return fresh })

	time.Sleep(40 * time.Millisecond)
	e, ok := r.get("k")
	require.True(t, ok)
	require.Same(t, fresh, e)
}

func TestRegistryClose(t *testing.T) {
	r := newRegistry()
	e := newFakeEntry()
	_, _, _ = r.getOrCreate("k", func() entry { return e })
	r.scheduleRemoval("k", e, time.Hour)

	r.close()
	require.Zero(t, r.len())
	_, _, err := r.getOrCreate("k", func() entry { return newFakeEntry() })
	require.ErrorIs(t, err, ErrClosed)
}
