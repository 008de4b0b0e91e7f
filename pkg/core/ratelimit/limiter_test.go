package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(3, time.Minute).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "other clients have their own window")

	// Exactly at the reset instant the window is still active.
	clock.Advance(time.Minute)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	clock.Advance(time.Millisecond)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
}

func TestMemoryLimiter_Defaults(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestMemoryLimiter_ConcurrentCountIsExact(t *testing.T) {
	l := NewMemoryLimiter(50, time.Minute)
	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "client"); ok {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowed)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	l := NewMemoryLimiter(5, time.Second).WithClock(clock.Now)
	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")

	assert.Equal(t, 0, l.Sweep())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, l.Sweep())
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewRedisClient(mr.Addr(), "", 0)
	defer client.Close()

	l := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	assert.True(t, mr.Exists(keyPrefix+"1.2.3.4"))
	assert.Greater(t, mr.TTL(keyPrefix+"1.2.3.4"), time.Duration(0))

	mr.FastForward(61 * time.Second)
	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_ErrorWhenUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(mr.Addr(), "", 0)
	defer client.Close()
	mr.Close()

	_, err = NewRedisLimiter(client, 2, time.Minute).Allow(context.Background(), "x")
	assert.Error(t, err)
}
