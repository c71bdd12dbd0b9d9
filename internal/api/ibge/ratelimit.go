package ibge

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket shared by all IBGE requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps requests per second. Zero or negative disables limiting.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until the limiter allows another request.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
