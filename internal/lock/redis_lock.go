// internal/lock/redis_lock.go
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	lockKeyPrefix = "replenish:recalc_lock"
	// Recomputes run for seconds to minutes on large catalogs; the TTL is a
	// crash backstop, not the normal release path.
	defaultLockTTL = 10 * time.Minute
)

// releaseScript deletes the lock only when the stored token matches, so a
// replica that lost its lock to TTL expiry can never release a successor's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds per-tenant locks in Redis so multiple server replicas
// stay mutually exclusive for the same tenant.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: defaultLockTTL}
}

func (l *RedisLocker) Acquire(ctx context.Context, tenantID string) (func(), error) {
	token := newToken()
	key := fmt.Sprintf("%s:%s", lockKeyPrefix, tenantID)

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock acquire failed: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Release must work even when the run's context was cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to release recalculation lock")
			}
		})
	}
	return release, nil
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
