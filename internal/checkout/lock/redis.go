package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease lock per user shared by every instance. A lease
// expires after ttl even if its holder dies.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
		log:    log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := lockKey(userID)
	token := uuid.NewString()

	waitCtx, cancel := withWait(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, waitError(ctx, userID)
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("redis unlock failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func lockKey(userID int64) string {
	return fmt.Sprintf("lock:user:%d", userID)
}
