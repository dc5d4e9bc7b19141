package lock

import (
	"context"
	"fmt"
	"time"

	"chat-backend/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// unlockScript deletes the lock only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a SETNX lock shared by every instance on the same Redis.
// The TTL bounds how long a crashed holder blocks the key.
type RedisLocker struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	maxAttempts int
	backoff     time.Duration
}

var _ domain.SessionLocker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration, maxAttempts int, backoff time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		locked, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if locked {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
}
