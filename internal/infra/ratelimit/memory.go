package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"coffeeshop/internal/domain"
)

var ErrCapacityExceeded = errors.New("rate limiter capacity exceeded")

type window struct {
	hits  int
	endAt time.Time
}

// MemoryLimiter is a fixed-window counter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	maxKeys int
	windows map[string]*window
}

type MemoryOptions struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(opts MemoryOptions) *MemoryLimiter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = 10000
	}
	return &MemoryLimiter{
		now:     opts.Now,
		maxKeys: opts.MaxKeys,
		windows: make(map[string]*window),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, span time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.endAt) {
		if !ok && len(m.windows) >= m.maxKeys {
			m.evictExpired(now)
			if len(m.windows) >= m.maxKeys {
				return domain.RateLimitDecision{}, ErrCapacityExceeded
			}
		}
		w = &window{endAt: now.Add(span)}
		m.windows[key] = w
	}

	decision := domain.RateLimitDecision{Limit: limit, ResetAt: w.endAt}
	if w.hits >= limit {
		return decision, nil
	}
	w.hits++
	decision.Allowed = true
	decision.Remaining = limit - w.hits
	return decision, nil
}

func (m *MemoryLimiter) evictExpired(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.endAt) {
			delete(m.windows, key)
		}
	}
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)
