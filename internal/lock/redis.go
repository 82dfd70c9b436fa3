package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "lock:user:"
	minBackoff     = 5 * time.Millisecond
	maxBackoff     = 100 * time.Millisecond
)

// Only the holder of the token may delete the key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based distributed lock shared by every instance pointing at
// the same Redis. A lease that is never released expires after ttl.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a Redis locker whose leases last ttl.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl}
}

// Lock acquires every key in sorted order, polling with backoff until ctx is
// done.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	var held []func()
	for _, key := range ordered(keys) {
		release, err := r.acquire(ctx, redisKeyPrefix+key)
		if err != nil {
			releaseAll(held)()
			return nil, err
		}
		held = append(held, release)
	}
	return releaseAll(held), nil
}

func (r *Redis) acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	backoff := minBackoff
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeoutErr(ctx)
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, timeoutErr(ctx)
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return func() {
		// Release must run even when the request context is already done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, r.client, []string{key}, token) // best effort, lease expires anyway
	}, nil
}
