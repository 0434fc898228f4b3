// Package retry runs an operation repeatedly with exponential backoff.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
	DefaultJitter      = 0.2

	// MaxAttemptsCap is the upper bound on attempts regardless of configuration
	MaxAttemptsCap = 5
)

// ErrTagExhausted marks errors returned after the final attempt failed
var ErrTagExhausted = goerr.NewTag("retry_exhausted")

// Retrier invokes an operation up to maxAttempts times
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier
type Option func(*Retrier)

// WithMaxAttempts sets the attempt limit. Values are clamped to [1, 5].
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		r.maxAttempts = min(max(n, 1), MaxAttemptsCap)
	}
}

// WithBaseDelay sets the delay before the second attempt
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// WithMaxDelay caps a single wait
func WithMaxDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.maxDelay = d
		}
	}
}

// WithJitter sets the random fraction added on top of each delay (0 disables jitter).
// Jitter is applied only below the max delay and stays short of the next step, so delays keep increasing.
func WithJitter(fraction float64) Option {
	return func(r *Retrier) {
		r.jitter = min(max(fraction, 0), 1)
	}
}

// WithSleep replaces the wait function. Intended for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// New creates a Retrier with defaults overridden by opts
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		jitter:      DefaultJitter,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxAttempts returns the configured attempt limit
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Delay returns the wait before attempt+1, where attempt starts at 1
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 1; i < attempt && delay < r.maxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, r.maxDelay)

	next := min(delay*2, r.maxDelay)
	if r.jitter > 0 && next > delay {
		// at most half the gap to the next step
		delay += time.Duration(rand.Float64() * r.jitter * float64(next-delay) / 2)
	}
	return delay
}

// Do runs op until it succeeds or the attempt limit is reached.
// Every error from op is treated the same way. The last error is returned wrapped with attempt counts.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	logger := logging.From(ctx)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if attempt == r.maxAttempts {
			break
		}

		delay := r.Delay(attempt)
		logger.Warn("operation failed, will retry",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"error", lastErr,
		)

		if err := r.sleep(ctx, delay); err != nil {
			return goerr.Wrap(lastErr, "retry aborted",
				goerr.V("attempts", attempt),
				goerr.V("max_attempts", r.maxAttempts),
				goerr.V("cause", err.Error()),
			)
		}
	}

	return goerr.Wrap(lastErr, "operation failed after all attempts",
		goerr.V("attempts", r.maxAttempts),
		goerr.V("max_attempts", r.maxAttempts),
		goerr.T(ErrTagExhausted),
	)
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, r *Retrier, op func() (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
