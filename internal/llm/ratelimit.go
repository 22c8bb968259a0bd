package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying Generator with a token bucket.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited wraps next at rps requests per second with the given burst.
func NewRateLimited(next Generator, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Model returns the wrapped generator's model.
func (r *RateLimited) Model() string { return r.next.Model() }

// Generate waits for a token, then delegates. A wait that cannot finish before ctx expires reports ErrRateLimited.
func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return r.next.Generate(ctx, req)
}
