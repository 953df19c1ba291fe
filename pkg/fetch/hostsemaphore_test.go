package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(limit int) *HostSemaphorePool {
	return NewHostSemaphorePool(limit, testLogger())
}

func TestHostSemaphore_AcquireRelease_Basic(t *testing.T) {
	pool := newTestPool(2)

	require.NoError(t, pool.Acquire(context.Background(), "host-a"))
	require.NoError(t, pool.Acquire(context.Background(), "host-a"))

	// Third should time out (both slots held)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, pool.Acquire(ctx, "host-a"))

	pool.Release("host-a")
	require.NoError(t, pool.Acquire(context.Background(), "host-a"))

	pool.Release("host-a")
	pool.Release("host-a")
}

func TestHostSemaphore_MultipleHosts(t *testing.T) {
	pool := newTestPool(1)

	require.NoError(t, pool.Acquire(context.Background(), "host-a"))
	require.NoError(t, pool.Acquire(context.Background(), "host-b"))
	assert.Equal(t, 2, pool.Len())

	pool.Release("host-a")
	pool.Release("host-b")
}

func TestHostSemaphore_ZeroLimitDefaults(t *testing.T) {
	pool := newTestPool(0)
	assert.Equal(t, int64(2), pool.limit)
}

func TestHostSemaphore_Do(t *testing.T) {
	pool := newTestPool(1)
	errBoom := errors.New("boom")

	err := pool.Do(context.Background(), "host-a", func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)

	// The permit was returned despite the error
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, pool.Do(ctx, "host-a", func() error { return nil }))
}

func TestHostSemaphore_EvictIdle_RemovesIdleEntries(t *testing.T) {
	pool := newTestPool(1)

	for _, host := range []string{"a.com", "b.com", "c.com"} {
		require.NoError(t, pool.Acquire(context.Background(), host))
		pool.Release(host)
	}
	require.Equal(t, 3, pool.Len())

	time.Sleep(5 * time.Millisecond)
	pool.evictIdle(1 * time.Millisecond)

	assert.Equal(t, 0, pool.Len())
}

func TestHostSemaphore_EvictIdle_PreservesActiveEntries(t *testing.T) {
	pool := newTestPool(1)

	require.NoError(t, pool.Acquire(context.Background(), "host-a"))
	require.NoError(t, pool.Acquire(context.Background(), "host-b"))
	pool.Release("host-b")

	time.Sleep(5 * time.Millisecond)
	pool.evictIdle(1 * time.Millisecond)

	assert.Equal(t, 1, pool.Len(), "host-a is still held")
	pool.Release("host-a")
}

func TestHostSemaphore_RunEviction_RespectsContextCancellation(t *testing.T) {
	pool := newTestPool(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		pool.RunEviction(ctx, time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEviction did not respect context cancellation")
	}
}

func TestHostSemaphore_Acquire_RollbackOnContextCancel(t *testing.T) {
	pool := newTestPool(1)
	require.NoError(t, pool.Acquire(context.Background(), "host-a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, pool.Acquire(ctx, "host-a"))

	pool.Release("host-a")

	time.Sleep(5 * time.Millisecond)
	pool.evictIdle(1 * time.Millisecond)
	assert.Equal(t, 0, pool.Len(), "failed acquire must not leave the entry pinned")
}

func TestHostSemaphore_ConcurrentLimitHonoured(t *testing.T) {
	const limit = 3
	pool := newTestPool(limit)
	host := "concurrent.com"

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), host, func() error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Equal(t, int32(0), inFlight.Load())
}
