package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr, client := newMiniRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "tenant:pay-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(DefaultIdempotencyPrefix+"tenant:pay-1"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultIdempotencyPrefix+"tenant:pay-1"))

	ok, err = store.MarkProcessed(ctx, "tenant:pay-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	processed, err := store.IsProcessed(ctx, "tenant:pay-1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Release(ctx, "tenant:pay-1"))
	processed, err = store.IsProcessed(ctx, "tenant:pay-1")
	require.NoError(t, err)
	assert.False(t, processed)

	t.Run("claim expires with the TTL", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "short", time.Second)
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)
		ok, err := store.MarkProcessed(ctx, "short", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
