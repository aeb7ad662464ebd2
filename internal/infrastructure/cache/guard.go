package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"STTIngest/internal/ports"
)

// DefaultTTL bounds how long a payload is remembered.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "sttingest:once:"

// RedisGuard remembers keys with SETNX so every process sharing the instance
// agrees on the first caller.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.OnceGuard = (*RedisGuard)(nil)

// NewRedisGuard wires a redis client. A non-positive ttl uses DefaultTTL.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// First reports whether key has not been seen within the ttl.
func (g *RedisGuard) First(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// MemoryGuard is the single process variant.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

var _ ports.OnceGuard = (*MemoryGuard)(nil)

// NewMemoryGuard returns an empty guard. A non-positive ttl uses DefaultTTL.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{seen: map[string]time.Time{}, ttl: ttl, now: time.Now}
}

func (g *MemoryGuard) First(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}
