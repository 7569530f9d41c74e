// Package ratelimit expresses venue quotas ("50 requests per 60s") as token
// buckets over golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Limiter is a token bucket sized from a per-window budget. It is safe for
// concurrent use and can be retuned while callers wait.
type Limiter struct {
	bucket *rate.Limiter
}

// NewPerWindow allows requests per window on average. The burst is a tenth of
// the budget, at least 1. A non-positive budget or window means unlimited.
func NewPerWindow(requests int, window time.Duration) *Limiter {
	limit, burst := bucketFor(requests, window)
	return &Limiter{bucket: rate.NewLimiter(limit, burst)}
}

// Wait takes a token, blocking until one is free. It fails with
// RATE_LIMIT_EXCEEDED when ctx ends first or its deadline is too close for
// the next token.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}
	return nil
}

// Allow takes a token if one is free right now.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// SetWindow retunes the budget in place.
func (l *Limiter) SetWindow(requests int, window time.Duration) {
	limit, burst := bucketFor(requests, window)
	l.bucket.SetLimit(limit)
	l.bucket.SetBurst(burst)
}

func bucketFor(requests int, window time.Duration) (rate.Limit, int) {
	if requests <= 0 || window <= 0 {
		return rate.Inf, 1
	}
	return rate.Limit(float64(requests) / window.Seconds()), max(requests/10, 1)
}
