package cache

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates the store selected by cache.driver
func NewIdempotencyStore(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("cache driver redis requires redis.enabled")
		}
		logger.Info("using redis idempotency store")
		return NewRedisIdempotencyStore(rdb, ""), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// NewRateLimiter creates the limiter selected by ratelimit.driver
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) (RateLimiter, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryRateLimiter(cfg.RPS, cfg.Burst, cfg.IdleTTL), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("ratelimit driver redis requires redis.enabled")
		}
		return NewRedisRateLimiter(rdb, WindowLimit(cfg.RPS, cfg.Burst, cfg.Window), cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown ratelimit driver %q", cfg.Driver)
	}
}

// NewRedisClient opens the shared redis client, or returns nil when redis is disabled
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
