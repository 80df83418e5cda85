// Package lock provides a Redis-backed run lock so that only one replica
// runs the pipeline per tick.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key guarding a run.
const DefaultKey = "jobscout:run-lock"

// DefaultTTL bounds how long a crashed holder can block other replicas.
const DefaultTTL = 30 * time.Minute

// unlockScript deletes the key only if it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements a single-holder lock with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// NewRedisLocker returns a locker over client. Empty key and zero ttl fall
// back to DefaultKey and DefaultTTL.
func NewRedisLocker(client redis.UniversalClient, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// Dial parses a redis:// URL, pings the server and returns a locker.
func Dial(ctx context.Context, redisURL string, ttl time.Duration) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisLocker(client, DefaultKey, ttl), nil
}

// TryLock attempts to take the lock without blocking.
func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases the lock if this locker still holds it. A lock that
// expired and was taken by another holder is left alone.
func (l *RedisLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("releasing %s: %w", l.key, err)
	}
	return nil
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
