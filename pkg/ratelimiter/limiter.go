package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate.Limiter.
type RateLimiter struct {
	limiter *rate.Limiter
	rps     int
	burst   int
}

// NewRateLimiter creates a rate limiter from requests-per-second and burst.
func NewRateLimiter(rps, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = rps
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
	}
}

// Wait blocks until a token is available.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	return rl.limiter.Allow()
}

// PooledRateLimiter keeps one limiter per endpoint URL so that fan-out to
// several providers never throttles one provider on another's budget.
type PooledRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	rps      int
	burst    int
}

func NewPooledRateLimiter(rps, burst int) *PooledRateLimiter {
	return &PooledRateLimiter{
		limiters: make(map[string]*RateLimiter),
		rps:      rps,
		burst:    burst,
	}
}

// Wait blocks until the limiter for url grants a token.
func (p *PooledRateLimiter) Wait(ctx context.Context, url string) error {
	p.mu.Lock()
	rl, ok := p.limiters[url]
	if !ok {
		rl = NewRateLimiter(p.rps, p.burst)
		p.limiters[url] = rl
	}
	p.mu.Unlock()
	return rl.Wait(ctx)
}
