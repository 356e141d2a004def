// Package ratelimit sabit pencereli istek sınırlayıcı (Redis ya da bellek içi).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, ttl time.Duration) Decision {
	d := Decision{Allowed: count <= int64(limit), Limit: limit}
	if d.Allowed {
		d.Remaining = limit - int(count)
	} else {
		d.RetryAfter = ttl
	}
	return d
}

// RedisLimiter: ilk istekte INCR + EXPIRE, pencere anahtarın TTL'i kadar sürer.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, errors.Annotate(err, "redis INCR")
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, errors.Annotate(err, "redis EXPIRE")
		}
		return decide(count, l.limit, l.window), nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return Decision{}, errors.Annotate(err, "redis TTL")
	}
	if ttl < 0 {
		// EXPIRE yarıda kalmışsa anahtar sonsuza kadar yaşamasın
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, errors.Annotate(err, "redis EXPIRE")
		}
		ttl = l.window
	}
	return decide(count, l.limit, ttl), nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter tek süreçli kurulumlar ve testler için.
type MemoryLimiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	limit   int
	window  time.Duration
	windows map[string]*memoryWindow
}

func NewMemoryLimiter(clk clock.Clock, limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clock:   clk,
		limit:   limit,
		window:  window,
		windows: map[string]*memoryWindow{},
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++
	return decide(w.count, l.limit, w.resetAt.Sub(now)), nil
}

// sweep süresi dolan pencereleri temizler; sadece yeni pencere açılırken çalışır.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
