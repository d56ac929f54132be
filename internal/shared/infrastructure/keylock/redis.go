package keylock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the
// token that acquired it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard backed by Redis SET NX, for deployments
// running more than one worker against the same database.
//
// Locks carry a TTL so a crashed holder cannot wedge a key forever.
type RedisGuard struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
}

// NewRedisGuard creates a Redis-backed key guard.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{
		client:     client,
		ttl:        ttl,
		retryDelay: 50 * time.Millisecond,
		prefix:     "bookhive:keylock:",
	}
}

// Acquire implements Guard. It polls SET NX until the lock is held or
// ctx is done.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := g.prefix + key
	token := uuid.NewString()

	for {
		ok, err := g.client.SetNX(ctx, lockKey, token, g.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire key lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(g.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	release := func() {
		// Best-effort: the TTL reclaims the lock if this fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, g.client, []string{lockKey}, token).Err()
	}
	return release, nil
}
