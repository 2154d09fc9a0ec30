package cache

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether one more request under key is allowed.
// When it is not, retryAfter says how long the caller should wait.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Close() error
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per key. Buckets idle for longer
// than idleTTL are evicted by a janitor.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryRateLimiter creates a limiter allowing rps requests per second with the given burst
func NewMemoryRateLimiter(rps float64, burst int, idleTTL time.Duration) *MemoryRateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	l := &MemoryRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.janitor(idleTTL / 2)
	return l
}

// Allow takes one token from the key's bucket
func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second, nil
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// Evict drops buckets idle since before the TTL
func (l *MemoryRateLimiter) Evict() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	n := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			n++
		}
	}
	return n
}

// Size returns the number of live buckets
func (l *MemoryRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Close stops the janitor
func (l *MemoryRateLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *MemoryRateLimiter) janitor(interval time.Duration) {
	defer l.wg.Done()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Evict()
		}
	}
}

// RedisRateLimiter is a fixed-window counter shared by all instances
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter allows limit requests per window and key
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiter{
		client: client,
		prefix: "backoffice:ratelimit:",
		limit:  int64(limit),
		window: window,
	}
}

// Allow increments the counter of the current window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit window: %w", err)
		}
	}
	if n <= l.limit {
		return true, 0, nil
	}
	wait, err := l.client.PTTL(ctx, k).Result()
	if err != nil || wait <= 0 {
		wait = l.window
	}
	return false, wait, nil
}

// Close is a no-op
func (l *RedisRateLimiter) Close() error { return nil }

// WindowLimit converts a requests-per-second budget into a per-window count
func WindowLimit(rps float64, burst int, window time.Duration) int {
	n := int(math.Ceil(rps * window.Seconds()))
	if n < burst {
		n = burst
	}
	if n < 1 {
		n = 1
	}
	return n
}

var (
	_ RateLimiter = (*MemoryRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)
