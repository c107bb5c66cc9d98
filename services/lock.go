package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"registration-system/internal/status"
)

// releaseLockScript deletes the lock only when it still holds our token,
// so an expired lock re-acquired by another pass is never released by us.
const releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// EventLocker serializes resolution passes per event with a Redis advisory
// lock keyed lock:resolve:{eventId}. The TTL bounds how long a crashed
// pass can block the next one.
type EventLocker struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewEventLocker(redisClient *redis.Client, ttl time.Duration) *EventLocker {
	return &EventLocker{Redis: redisClient, TTL: ttl}
}

func lockKey(eventID string) string {
	return fmt.Sprintf("lock:resolve:%s", eventID)
}

// Acquire takes the per-event lock, returning a release token, or
// status.ErrLockNotAcquired when another pass holds it.
func (l *EventLocker) Acquire(ctx context.Context, eventID string) (string, error) {
	token := uuid.New().String()
	ok, err := l.Redis.SetNX(ctx, lockKey(eventID), token, l.TTL).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return "", status.ErrLockNotAcquired
	}
	return token, nil
}

// Release frees the lock if the token still owns it.
func (l *EventLocker) Release(ctx context.Context, eventID, token string) error {
	if err := l.Redis.Eval(ctx, releaseLockScript, []string{lockKey(eventID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
