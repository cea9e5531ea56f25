package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffeeshop/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coffeeshop:ratelimit:"

var allowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter shares fixed-window counters across instances.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Now      func() time.Time
}

func NewRedisLimiter(opts RedisOptions) (*RedisLimiter, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisLimiter{client: client, now: opts.Now}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, span time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	spanMillis := span.Milliseconds()
	if spanMillis <= 0 {
		spanMillis = 1000
	}
	raw, err := allowScript.Run(ctx, r.client, []string{redisKeyPrefix + key}, spanMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	hits, ttlMillis, err := parseScriptResult(raw)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	return decide(hits, ttlMillis, limit, r.now()), nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func parseScriptResult(raw any) (int64, int64, error) {
	values, ok := raw.([]any)
	if !ok || len(values) < 2 {
		return 0, 0, errors.New("unexpected redis rate limit response")
	}
	hits, ok := values[0].(int64)
	if !ok {
		return 0, 0, errors.New("invalid redis counter response")
	}
	ttlMillis, _ := values[1].(int64)
	return hits, ttlMillis, nil
}

func decide(hits, ttlMillis int64, limit int, now time.Time) domain.RateLimitDecision {
	resetAt := now
	if ttlMillis > 0 {
		resetAt = now.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   hits <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)
