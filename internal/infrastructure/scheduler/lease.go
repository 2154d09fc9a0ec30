package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Lease is a held lock. Release must be called when the work is done.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out named leases
type Locker interface {
	// Obtain returns ErrLeaseHeld if the name is taken
	Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error)
}

// RedisLocker grants leases through redislock so one instance in the fleet
// runs a job at a time.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker creates a locker on a redis client
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain tries once to take the lease
func (l *RedisLocker) Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	lock, err := l.client.Obtain(ctx, name, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLeaseHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lease %s: %w", name, err)
	}
	return &redisLease{lock: lock}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// LocalLocker is used without redis. Every Obtain succeeds.
type LocalLocker struct{}

// Obtain always grants the lease
func (LocalLocker) Obtain(ctx context.Context, name string, ttl time.Duration) (Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(ctx context.Context) error { return nil }

// NewLocker returns a RedisLocker when a client is given, otherwise a LocalLocker
func NewLocker(rdb *redis.Client) Locker {
	if rdb == nil {
		return LocalLocker{}
	}
	return NewRedisLocker(rdb)
}
