package bigcache

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(context.Background(), Config{LifeWindow: time.Minute, MaxEntriesInWindow: 128, MaxEntrySize: 256})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	if _, ok, err := p.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 1, 0); err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get got=%q ok=%v err=%v", got, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of missing key should be nil, got %v", err)
	}
}

func TestAddConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if ok, _ := p.Add(ctx, "lock", []byte{1}, time.Minute); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one Add winner, got %d", wins.Load())
	}
}

func TestAddIgnoresTTL(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	if ok, err := p.Add(ctx, "lock", []byte{1}, 10*time.Millisecond); err != nil || !ok {
		t.Fatalf("Add ok=%v err=%v", ok, err)
	}
	time.Sleep(30 * time.Millisecond)
	// still held: only LifeWindow (a minute here) expires it
	if ok, err := p.Add(ctx, "lock", []byte{1}, 10*time.Millisecond); err != nil || ok {
		t.Fatalf("expected lock to outlive its ttl, ok=%v err=%v", ok, err)
	}
	if err := p.Del(ctx, "lock"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if ok, _ := p.Add(ctx, "lock", []byte{1}, 0); !ok {
		t.Fatal("Add after Del should win")
	}
}
