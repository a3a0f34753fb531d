package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is one fixed-window budget.
type Rule struct {
	Max    int
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r Rule) Enabled() bool {
	return r.Max > 0 && r.Window > 0
}

// Limiter enforces fixed-window budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [Limiter] whose keys all start with prefix.
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Allow counts one hit against key. It returns ErrRateLimited once the
// window's budget is spent, along with the time left in the window.
func (l *Limiter) Allow(ctx context.Context, key string, rule Rule) (time.Duration, error) {
	if !rule.Enabled() {
		return 0, nil
	}

	fullKey := l.prefix + ":" + key
	count, err := l.incrementWithTTL(ctx, fullKey, rule.Window)
	if err != nil {
		return 0, err
	}
	if count <= int64(rule.Max) {
		return 0, nil
	}

	ttl, err := l.redis.PTTL(ctx, fullKey).Result()
	if err != nil || ttl < 0 {
		ttl = rule.Window
	}
	return ttl, ErrRateLimited
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.prefix+":"+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
