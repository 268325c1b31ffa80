package refresher

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

var _ Locker = (*RedisLocker)(nil)

// RedisLocker is a Locker over a go-zero redis lock.
type RedisLocker struct {
	lock *redis.RedisLock
}

// NewRedisLocker guards key for at most ttl per holder.
func NewRedisLocker(store *redis.Redis, key string, ttl time.Duration) *RedisLocker {
	lock := redis.NewRedisLock(store, key)
	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	lock.SetExpire(seconds)
	return &RedisLocker{lock: lock}
}

func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	return l.lock.AcquireCtx(ctx)
}

func (l *RedisLocker) Unlock(ctx context.Context) error {
	_, err := l.lock.ReleaseCtx(ctx)
	return err
}
