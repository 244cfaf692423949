package backoff

import (
	"time"
)

// Calculator provides backoff calculation using a configurable strategy.
// It centralizes the delay logic shared by the client and retry policies.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a backoff calculator with the specified strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{strategy: strategy}
}

// Calculate computes the delay before the given 1-based retry.
func (c *Calculator) Calculate(retry int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	return c.strategy.Calculate(retry, baseDelay, maxDelay, multiplier, jitter)
}

// SetStrategy updates the strategy used by this calculator.
func (c *Calculator) SetStrategy(strategy Strategy) {
	c.strategy = strategy
}

// GetStrategy returns the current strategy.
func (c *Calculator) GetStrategy() Strategy {
	return c.strategy
}

// Exponential returns a calculator using geometric growth.
func Exponential() *Calculator {
	return NewCalculator(ExponentialStrategy{})
}

// Fixed returns a calculator using a constant delay.
func Fixed() *Calculator {
	return NewCalculator(FixedStrategy{})
}
