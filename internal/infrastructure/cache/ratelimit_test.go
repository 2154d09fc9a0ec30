package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_Allow(t *testing.T) {
	l := NewMemoryRateLimiter(1, 2, time.Minute)
	defer l.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "tenant-a")
		require.NoError(t, err)
		assert.True(t, ok, "burst request %d", i)
	}

	ok, retryAfter, err := l.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, time.Second, retryAfter, float64(10*time.Millisecond))

	ok, _, _ = l.Allow(ctx, "tenant-b")
	assert.True(t, ok, "keys have separate buckets")

	now = base.Add(time.Second)
	ok, _, _ = l.Allow(ctx, "tenant-a")
	assert.True(t, ok, "bucket refills over time")
}

func TestMemoryRateLimiter_Evict(t *testing.T) {
	l := NewMemoryRateLimiter(10, 10, time.Minute)
	defer l.Close()

	base := time.Now()
	now := base
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = l.Allow(ctx, "idle")
	now = base.Add(50 * time.Second)
	_, _, _ = l.Allow(ctx, "active")
	require.Equal(t, 2, l.Size())

	now = base.Add(90 * time.Second)
	assert.Equal(t, 1, l.Evict())
	assert.Equal(t, 1, l.Size())
}

func TestRedisRateLimiter(t *testing.T) {
	mr, client := newMiniRedis(t)
	l := NewRedisRateLimiter(client, 2, time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "tenant-a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retryAfter, err := l.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Second)

	mr.FastForward(time.Second)
	ok, _, err = l.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.True(t, ok, "new window")
}

func TestWindowLimit(t *testing.T) {
	assert.Equal(t, 20, WindowLimit(20, 5, time.Second))
	assert.Equal(t, 40, WindowLimit(20, 40, time.Second))
	assert.Equal(t, 1, WindowLimit(0, 0, time.Second))
	assert.Equal(t, 60, WindowLimit(1, 1, time.Minute))
}
