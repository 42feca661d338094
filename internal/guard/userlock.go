package guard

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserLock is the distributed per-user settlement mutex: at most one
// settlement flow per user may hold it at a time, across all processes.
type UserLock interface {
	// TryAcquire performs a set-if-absent with the given TTL. It returns
	// false when another flow already holds the lock; it never blocks.
	TryAcquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error)

	// Release deletes the lock record. Safe to call when not held.
	Release(ctx context.Context, userID int64) error
}

// lockKey is the single key constructor shared by acquire and release.
// Building the key in exactly one place keeps the two paths from ever
// disagreeing about the key string.
func lockKey(userID int64) string {
	return "wallet:lock:" + strconv.FormatInt(userID, 10)
}

// RedisUserLock implements UserLock with Redis SET NX EX.
type RedisUserLock struct {
	client *redis.Client
}

// NewRedisUserLock creates a Redis-backed user lock.
func NewRedisUserLock(client *redis.Client) *RedisUserLock {
	return &RedisUserLock{client: client}
}

func (l *RedisUserLock) TryAcquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(userID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire user lock: %w", err)
	}
	return ok, nil
}

func (l *RedisUserLock) Release(ctx context.Context, userID int64) error {
	if err := l.client.Del(ctx, lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("release user lock: %w", err)
	}
	return nil
}

// MemoryUserLock implements UserLock with an in-process map. Used in tests
// and as a degraded single-instance fallback when Redis is unavailable.
type MemoryUserLock struct {
	mu    sync.Mutex
	held  map[string]time.Time // key -> expiry
	clock func() time.Time
}

// NewMemoryUserLock creates an in-memory user lock.
func NewMemoryUserLock() *MemoryUserLock {
	return &MemoryUserLock{held: make(map[string]time.Time), clock: time.Now}
}

func (l *MemoryUserLock) TryAcquire(_ context.Context, userID int64, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := lockKey(userID)
	now := l.clock()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryUserLock) Release(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, lockKey(userID))
	return nil
}
