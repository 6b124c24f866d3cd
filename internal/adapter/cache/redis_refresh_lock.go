package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seongpil0948/all-ad-sub002/internal/repository"
)

const lockPrefix = "credential:refresh:lock:"

// RedisRefreshLock implements repository.RefreshLock backed by Redis. The
// short-lived key keeps a manually triggered refresh from racing a scheduled
// one over the same credential.
type RedisRefreshLock struct {
	client redis.UniversalClient
}

var _ repository.RefreshLock = (*RedisRefreshLock)(nil)

// NewRedisRefreshLock constructs a Redis-backed refresh lock.
func NewRedisRefreshLock(client redis.UniversalClient) *RedisRefreshLock {
	return &RedisRefreshLock{client: client}
}

// Acquire takes the per-credential lock. The TTL bounds how long a crashed
// refresh can hold it.
func (l *RedisRefreshLock) Acquire(ctx context.Context, credentialID int64, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(credentialID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire refresh lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock once the refresh-and-persist sequence settles.
func (l *RedisRefreshLock) Release(ctx context.Context, credentialID int64) error {
	if err := l.client.Del(ctx, lockKey(credentialID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release refresh lock: %w", err)
	}
	return nil
}

func lockKey(credentialID int64) string {
	return fmt.Sprintf("%s%d", lockPrefix, credentialID)
}
