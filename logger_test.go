package swrcache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recLogger struct {
	mu   sync.Mutex
	msgs []string
	last Fields
}

func (r *recLogger) rec(msg string, f Fields) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.last = f
	r.mu.Unlock()
}

func (r *recLogger) Debug(msg string, f Fields) { r.rec(msg, f) }
func (r *recLogger) Info(msg string, f Fields)  { r.rec(msg, f) }
func (r *recLogger) Warn(msg string, f Fields)  { r.rec(msg, f) }
func (r *recLogger) Error(msg string, f Fields) { r.rec(msg, f) }

func TestClientLogsCarryNamespace(t *testing.T) {
	rl := &recLogger{}
	cl := newTestClient(t, newMemProvider(), func(o *Options) { o.Logger = rl })
	require.NoError(t, cl.Invalidate(context.Background(), K("products")))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.Contains(t, rl.msgs, "invalidated key")
	require.Equal(t, "test", rl.last["ns"])
	require.NotEmpty(t, rl.last["key"])
}

func TestWithNamespaceKeepsCallerFields(t *testing.T) {
	rl := &recLogger{}
	f := Fields{"key": "k"}
	withNamespace(rl, "shop").Warn("x", f)
	require.Equal(t, Fields{"key": "k", "ns": "shop"}, rl.last)
	require.Len(t, f, 1, "caller map is not mutated")

	_, nop := withNamespace(NopLogger{}, "shop").(NopLogger)
	require.True(t, nop)
}
