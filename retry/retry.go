// Package retry wraps fallible remote calls with bounded exponential
// backoff. The controller is oblivious to what it wraps: metadata fetch,
// transcript fetch and provider calls all go through the same policy.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubescribe/tubescribe/model"
)

// Policy controls retry behavior. The wait before retry n is
// BaseDelay * 2^(n-1).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the upstream-facing defaults: three attempts with
// waits of 5, 10 and 20 seconds.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   5 * time.Second,
}

// Attempt describes one try of a wrapped operation. Attempts exist only
// within the controller's execution scope; they are observed, never stored.
type Attempt struct {
	Number  int
	Elapsed time.Duration
	Wait    time.Duration // backoff applied after this attempt, 0 if none
	Err     error         // nil on success
}

// Controller executes operations under a Policy.
type Controller struct {
	policy  Policy
	sleep   func(context.Context, time.Duration) error
	observe func(Attempt)
	logger  *slog.Logger
}

type Option func(*Controller)

// WithSleep replaces the wait function. Tests use it to record backoff
// durations without slowing down.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithObserver registers a callback invoked after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(c *Controller) { c.observe = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func New(p Policy, opts ...Option) *Controller {
	c := &Controller{
		policy: p,
		sleep:  ctxSleep,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op under the controller's policy. Retryable failures (rate
// limiting, transient network errors) back off and retry; anything else
// returns immediately. After the attempt budget is spent, the last failure
// is returned wrapped in model.ErrExhaustedRetries.
func Do[T any](ctx context.Context, c *Controller, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		start := time.Now()
		result, err := op(ctx)
		elapsed := time.Since(start)

		if err == nil {
			c.report(Attempt{Number: attempt, Elapsed: elapsed})
			return result, nil
		}
		lastErr = err

		if !model.IsRetryable(err) {
			c.report(Attempt{Number: attempt, Elapsed: elapsed, Err: err})
			return zero, err
		}

		wait := c.policy.BaseDelay << (attempt - 1)
		c.report(Attempt{Number: attempt, Elapsed: elapsed, Wait: wait, Err: err})
		c.logger.Debug("retryable failure",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err))
		if err := c.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", model.ErrExhaustedRetries, c.policy.MaxAttempts, lastErr)
}

func (c *Controller) report(a Attempt) {
	if c.observe != nil {
		c.observe(a)
	}
}
