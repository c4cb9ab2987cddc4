package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var attemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// LoginLimiter caps login attempts per identity within a fixed window. Counters
// live in Redis when a client is configured and in process memory otherwise.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string

	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

// sweepThreshold bounds the local fallback map; past it, expired counters
// are dropped before a new one is added.
const sweepThreshold = 1024

type windowCounter struct {
	count   int
	resetAt time.Time
}

// NewLoginLimiter builds a limiter. A non-positive limit disables throttling.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		client:   client,
		limit:    limit,
		window:   window,
		prefix:   "helpdesk:login:",
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *LoginLimiter) Allow(ctx context.Context, identity string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	key := strings.ToLower(strings.TrimSpace(identity))
	if l.client != nil {
		count, err := attemptScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
		if err == nil {
			return count <= int64(l.limit)
		}
	}
	return l.allowLocal(key)
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identity string) {
	if l == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(identity))
	if l.client != nil {
		_ = l.client.Del(ctx, l.prefix+key).Err()
	}
	l.mu.Lock()
	delete(l.counters, key)
	l.mu.Unlock()
}

func (l *LoginLimiter) allowLocal(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	counter, ok := l.counters[key]
	if !ok || !now.Before(counter.resetAt) {
		if !ok && len(l.counters) >= sweepThreshold {
			l.sweep(now)
		}
		counter = &windowCounter{resetAt: now.Add(l.window)}
		l.counters[key] = counter
	}
	counter.count++
	return counter.count <= l.limit
}

func (l *LoginLimiter) sweep(now time.Time) {
	for key, counter := range l.counters {
		if !now.Before(counter.resetAt) {
			delete(l.counters, key)
		}
	}
}
