package cache

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewIdempotencyStore(t *testing.T) {
	_, client := newMiniRedis(t)
	log := zap.NewNop()

	store, err := NewIdempotencyStore(config.CacheConfig{Driver: "memory"}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	_ = store.Close()

	store, err = NewIdempotencyStore(config.CacheConfig{Driver: "redis"}, client, log)
	require.NoError(t, err)
	assert.IsType(t, &RedisIdempotencyStore{}, store)

	_, err = NewIdempotencyStore(config.CacheConfig{Driver: "redis"}, nil, log)
	assert.Error(t, err)

	_, err = NewIdempotencyStore(config.CacheConfig{Driver: "memcached"}, nil, log)
	assert.Error(t, err)
}

func TestNewRateLimiter(t *testing.T) {
	_, client := newMiniRedis(t)

	l, err := NewRateLimiter(config.RateLimitConfig{Driver: "memory", RPS: 5, Burst: 10, IdleTTL: time.Minute}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRateLimiter{}, l)
	_ = l.Close()

	l, err = NewRateLimiter(config.RateLimitConfig{Driver: "redis", RPS: 5, Burst: 10, Window: time.Second}, client)
	require.NoError(t, err)
	require.IsType(t, &RedisRateLimiter{}, l)
	assert.Equal(t, int64(10), l.(*RedisRateLimiter).limit)

	_, err = NewRateLimiter(config.RateLimitConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	assert.Nil(t, NewRedisClient(config.RedisConfig{}))
	c := NewRedisClient(config.RedisConfig{Enabled: true, Host: "localhost", Port: 6379})
	require.NotNil(t, c)
	assert.Equal(t, "localhost:6379", c.Options().Addr)
	_ = c.Close()
}
