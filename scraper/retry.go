package scraper

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy decides whether a failed fetch should be retried and how long
// to wait before the next attempt. Attempt numbering starts at 1.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// ExponentialRetryPolicy doubles a base delay per attempt up to a cap.
type ExponentialRetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// ShouldRetry retries transient failures up to MaxRetries times. Context
// cancellation and client-side classification that will not change on a
// second attempt (403, 404) are not retried.
func (p ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt > p.MaxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return false
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return false
	}
	return true
}

// Backoff returns the capped exponential delay for the given attempt.
func (p ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := p.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}
	return delay
}

// noRetryPolicy disables retries entirely.
type noRetryPolicy struct{}

func (noRetryPolicy) ShouldRetry(error, int) bool { return false }
func (noRetryPolicy) Backoff(int) time.Duration { return 0 }

// NoRetry is the policy used when retries are disabled.
var NoRetry RetryPolicy = noRetryPolicy{}
