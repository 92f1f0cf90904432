package synctrigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle admits at most one request per key per ttl.
type Throttle interface {
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisThrottle shares the window across replicas with SET NX.
type RedisThrottle struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisThrottle(rdb redis.Cmdable, prefix string) *RedisThrottle {
	if prefix == "" {
		prefix = "sync"
	}
	return &RedisThrottle{rdb: rdb, prefix: prefix}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "synctrigger.RedisThrottle.Allow"

	ok, err := t.rdb.SetNX(ctx, t.prefix+":"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// MemoryThrottle is the single-replica fallback.
type MemoryThrottle struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{until: map[string]time.Time{}, now: time.Now}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string, ttl time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, ok := t.until[key]; ok && now.Before(until) {
		return false, nil
	}
	// Drop expired keys once the map grows, so it tracks only live windows.
	if len(t.until) > 1024 {
		for k, until := range t.until {
			if !now.Before(until) {
				delete(t.until, k)
			}
		}
	}
	t.until[key] = now.Add(ttl)
	return true, nil
}
