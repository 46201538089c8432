package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionLockKey = "process:session:%d:lock"

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript resets the lock's TTL only while it still holds the caller's token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisSessionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(host, port string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port),
	})
}

func NewRedisSessionLocker(client *redis.Client, ttl time.Duration) *RedisSessionLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSessionLocker{client: client, ttl: ttl}
}

// Acquire takes the processing lock for sessionID. It reports false without
// error when another holder has it.
func (l *RedisSessionLocker) Acquire(ctx context.Context, sessionID int, token string) (bool, error) {
	ok, err := l.client.SetNX(ctx, fmt.Sprintf(sessionLockKey, sessionID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failure for session %d: %w", sessionID, err)
	}
	return ok, nil
}

func (l *RedisSessionLocker) Release(ctx context.Context, sessionID int, token string) error {
	key := fmt.Sprintf(sessionLockKey, sessionID)
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("redis release failure for session %d: %w", sessionID, err)
	}
	return nil
}

// Refresh extends a held lock by a full TTL. It reports false when the lock
// has expired or now belongs to another holder.
func (l *RedisSessionLocker) Refresh(ctx context.Context, sessionID int, token string) (bool, error) {
	key := fmt.Sprintf(sessionLockKey, sessionID)
	n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis refresh failure for session %d: %w", sessionID, err)
	}
	return n == 1, nil
}
