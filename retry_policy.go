package apix

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Manus01/apix/internal/backoff"
)

// RetryConfig is the effective per-call retry policy after merging client
// defaults with call options.
type RetryConfig struct {
	MaxRetries  int
	Delay       time.Duration
	MaxDelay    time.Duration
	Exponential bool
	Multiplier  float64
	Jitter      float64
}

// RetryPolicy decides whether a failed attempt should be retried and after
// what delay. The retry argument is 1-based: the decision after the first
// attempt is ShouldRetry(method, err, 1, cfg).
type RetryPolicy interface {
	ShouldRetry(method string, err *APIError, retry int, cfg RetryConfig) (time.Duration, bool)
}

// DefaultRetryPolicy retries errors whose code is retriable, honors the
// server's Retry-After hint when present, and otherwise delegates to the
// configured backoff schedule. Cancellation (ABORTED) is never retried.
type DefaultRetryPolicy struct {
	idempotentOnly bool
	isIdempotent   func(method string) bool
	exponential    *backoff.Calculator
	fixed          *backoff.Calculator
}

// NewDefaultRetryPolicy creates the policy used when none is configured.
// All methods are eligible for retry, matching the behavior callers relied on
// before idempotency awareness existed.
func NewDefaultRetryPolicy() *DefaultRetryPolicy {
	return &DefaultRetryPolicy{
		isIdempotent: IsIdempotent,
		exponential:  backoff.Exponential(),
		fixed:        backoff.Fixed(),
	}
}

// NewIdempotentOnlyRetryPolicy creates a policy that additionally refuses to
// retry non-idempotent methods (POST, PATCH), avoiding duplicate side effects
// when the server processed an attempt whose response was lost.
func NewIdempotentOnlyRetryPolicy() *DefaultRetryPolicy {
	p := NewDefaultRetryPolicy()
	p.idempotentOnly = true
	return p
}

// ShouldRetry implements the RetryPolicy interface.
func (p *DefaultRetryPolicy) ShouldRetry(method string, err *APIError, retry int, cfg RetryConfig) (time.Duration, bool) {
	if err == nil || !err.Retriable || err.Code == CodeAborted {
		return 0, false
	}
	if retry > cfg.MaxRetries {
		return 0, false
	}
	if p.idempotentOnly && !p.isIdempotent(method) {
		return 0, false
	}

	if err.RetryAfter > 0 {
		return err.RetryAfter, true
	}

	calc := p.fixed
	if cfg.Exponential {
		calc = p.exponential
	}
	return calc.Calculate(retry, cfg.Delay, cfg.MaxDelay, cfg.Multiplier, cfg.Jitter), true
}

// IsIdempotent returns true for HTTP methods that are safe to repeat.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// RetryBudget caps the total number of retries across all calls within a
// sliding window, protecting a struggling backend from synchronized retry
// storms. When the budget is exhausted the engine stops retrying and surfaces
// the last error unchanged.
type RetryBudget struct {
	maxRetries  int64
	perWindow   time.Duration
	current     int64
	windowStart int64
}

// NewRetryBudget creates a budget of maxRetries per window.
func NewRetryBudget(maxRetries int, perWindow time.Duration) *RetryBudget {
	return &RetryBudget{
		maxRetries:  int64(maxRetries),
		perWindow:   perWindow,
		windowStart: time.Now().UnixNano(),
	}
}

// Allow reports whether another retry fits in the current window and, if so,
// consumes one unit of budget.
func (rb *RetryBudget) Allow() bool {
	now := time.Now().UnixNano()
	windowStart := atomic.LoadInt64(&rb.windowStart)

	if now-windowStart >= int64(rb.perWindow) {
		if atomic.CompareAndSwapInt64(&rb.windowStart, windowStart, now) {
			atomic.StoreInt64(&rb.current, 0)
		}
	}

	if atomic.LoadInt64(&rb.current) >= rb.maxRetries {
		return false
	}
	return atomic.AddInt64(&rb.current, 1) <= rb.maxRetries
}

// Stats returns the consumed and maximum retries plus the window start time.
func (rb *RetryBudget) Stats() (current, max int64, windowStart time.Time) {
	return atomic.LoadInt64(&rb.current),
		rb.maxRetries,
		time.Unix(0, atomic.LoadInt64(&rb.windowStart))
}
