// Package retry re-runs fallible operations with linear backoff.
package retry

import (
	"context"
	"strconv"
	"time"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Defaults used by DefaultPolicy. A Policy with zero MaxAttempts uses DefaultMaxAttempts.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy describes how an operation is retried. The delay before attempt k
// (k >= 2) is BaseDelay*(k-1).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// RetryIf reports whether err is worth another attempt. Nil retries everything.
	RetryIf func(err error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns 3 attempts with a 1s base delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Option mutates a Policy for a single call.
type Option func(*Policy)

func WithMaxAttempts(n int) Option {
	return func(p *Policy) { p.MaxAttempts = n }
}

func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) { p.BaseDelay = d }
}

func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.Sleep = fn }
}

// Delay returns the wait before the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempt-1)
}

// Do runs op under the default policy adjusted by opts.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	return Run(ctx, DefaultPolicy(), op, opts...)
}

// Run runs op under p adjusted by opts. When every attempt fails the result is
// MAX_RETRIES_EXCEEDED wrapping the last error. Errors rejected by RetryIf are
// returned as they are.
func Run[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	for _, opt := range opts {
		opt(&p)
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, apperror.New(apperror.CodeServiceTimeout,
					apperror.WithCause(err),
					apperror.WithContext("retry wait interrupted"))
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			return zero, err
		}
	}

	return zero, apperror.New(apperror.CodeMaxRetriesExceeded,
		apperror.WithCause(lastErr),
		apperror.WithMessage("operation failed after "+strconv.Itoa(p.MaxAttempts)+" attempts"))
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
