package identity

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// RetryPolicy decides whether and when a failed call is attempted again.
// Attempt n (1-based) that fails waits Delay(n) before attempt n+1.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Retryable reports whether a failure is transient. status is 0 when no
	// response was received. Nil means DefaultRetryable.
	Retryable func(status int, err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   600 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    8 * time.Second,
		Retryable:   DefaultRetryable,
	}
}

// NoRetry makes exactly one attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// DefaultRetryable retries transport failures, per-attempt timeouts and
// 429/500/502/503/504 responses.
func DefaultRetryable(status int, err error) bool {
	if status == 0 {
		return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
	}
	return transientStatus(status)
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (p RetryPolicy) ShouldRetry(status int, err error) bool {
	if p.Retryable == nil {
		return DefaultRetryable(status, err)
	}
	return p.Retryable(status, err)
}

// Delay is the wait after the given failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
