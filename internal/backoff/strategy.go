package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before a retry. The retry argument is 1-based:
// the delay before the first retry is Calculate(1, ...).
type Strategy interface {
	Calculate(retry int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialStrategy grows the delay geometrically: baseDelay for the first
// retry, baseDelay*multiplier^(n-1) for retry n, capped at maxDelay.
type ExponentialStrategy struct{}

// Calculate implements Strategy.
func (s ExponentialStrategy) Calculate(retry int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	exponent := retry - 1
	if exponent < 0 {
		exponent = 0
	}
	// Prevent overflow by limiting the exponent
	if exponent > 30 {
		exponent = 30
	}

	delay := time.Duration(float64(baseDelay) * pow(multiplier, exponent))
	if delay < 0 || (maxDelay > 0 && delay > maxDelay) {
		delay = maxDelay
	}
	return applyJitter(delay, maxDelay, jitter)
}

// FixedStrategy uses a constant delay for every retry.
type FixedStrategy struct{}

// Calculate implements Strategy.
func (s FixedStrategy) Calculate(_ int, baseDelay, maxDelay time.Duration, _, jitter float64) time.Duration {
	delay := baseDelay
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return applyJitter(delay, maxDelay, jitter)
}

// applyJitter adds up to jitter*delay of uniform random slack, respecting the
// cap when one is set.
func applyJitter(delay, maxDelay time.Duration, jitter float64) time.Duration {
	jitter = clampJitter(jitter)
	if jitter <= 0 {
		return delay
	}
	jitterAmount := time.Duration(float64(delay) * jitter * rand.Float64())
	if maxDelay > 0 && delay+jitterAmount > maxDelay {
		return maxDelay
	}
	return delay + jitterAmount
}

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// pow calculates base^exponent using integer exponentiation.
func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
