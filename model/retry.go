package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
)

// RetryConfig configures retries of transport and rate-limit failures.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// Jitter is the relative spread applied to each delay, e.g. 0.25 for ±25%.
	Jitter float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.25,
	}
}

// WithRetry wraps m so that retryable failures are retried with bounded
// exponential backoff. Other errors and context cancellation return at once.
func WithRetry(m Model, cfg RetryConfig) Model {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}
	return &retryModel{next: m, cfg: cfg}
}

type retryModel struct {
	next Model
	cfg  RetryConfig
}

func (r *retryModel) Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.next.Invoke(ctx, msgs, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.delay(attempt, err)
		log.Warn("model call failed (attempt %d/%d), retrying in %s: %v", attempt, r.cfg.MaxAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	if IsRetryable(lastErr) && r.cfg.MaxAttempts > 1 {
		return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.cfg.MaxAttempts, lastErr)
	}
	return nil, lastErr
}

// delay computes the wait before the next attempt. A server-provided
// Retry-After wins over the computed backoff; both are capped at MaxDelay.
func (r *retryModel) delay(attempt int, err error) time.Duration {
	d := time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.BackoffFactor, float64(attempt-1)))

	if r.cfg.Jitter > 0 {
		//nolint:gosec // Using weak RNG for jitter is acceptable, not security-critical
		d += time.Duration(float64(d) * r.cfg.Jitter * (2*rand.Float64() - 1))
	}

	var rateLimit *RateLimitError
	if errors.As(err, &rateLimit) && rateLimit.RetryAfter > d {
		d = rateLimit.RetryAfter
	}

	if r.cfg.MaxDelay > 0 && d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return max(d, 0)
}
