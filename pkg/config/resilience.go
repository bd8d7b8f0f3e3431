package config

import (
	"fmt"
	"strings"
	"time"
)

type ResilienceConfig struct {
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RetryConfig controls how often start-up connections are retried.
// The backoff doubles after every failed attempt.
type RetryConfig struct {
	MaxAttempts    uint          `koanf:"maxattempts"`
	InitialBackoff time.Duration `koanf:"initialbackoff"`
}

// CircuitBreakerConfig guards the event publisher.
//
// The breaker opens after ConsecutiveFailures failures in a row, or when more
// than ErrorRatePercent of at least ConsecutiveFailures calls failed. After
// OpenTimeout it lets HalfOpenRequests calls through to probe the broker.
// A non-zero Interval clears the closed-state counts periodically.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
	HalfOpenRequests    uint32        `koanf:"halfopenrequests"`
	Interval            time.Duration `koanf:"interval"`
}

func (c *ResilienceConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Resilience ---\n")
	b.WriteString(fmt.Sprintf("  retry: %d attempts, initial backoff %v\n", c.Retry.MaxAttempts, c.Retry.InitialBackoff))
	cb := c.CircuitBreaker
	b.WriteString(fmt.Sprintf("  breaker: trips after %d failures or %d%% errors, open for %v\n",
		cb.ConsecutiveFailures, cb.ErrorRatePercent, cb.OpenTimeout))
	b.WriteString(fmt.Sprintf("  breaker: %d half-open requests, interval %v\n", cb.HalfOpenRequests, cb.Interval))
	return b.String()
}

func (c *ResilienceConfig) Validate() error {
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than 0")
	}
	if c.Retry.InitialBackoff <= 0 {
		return fmt.Errorf("retry.initial_backoff must be greater than 0")
	}
	cb := &c.CircuitBreaker
	if cb.ConsecutiveFailures <= 0 {
		return fmt.Errorf("circuit_breaker.consecutive_failures must be greater than 0")
	}
	if cb.ErrorRatePercent < 0 || cb.ErrorRatePercent > 100 {
		return fmt.Errorf("circuit_breaker.error_rate_percent must be between 0 and 100")
	}
	if cb.OpenTimeout <= 0 {
		return fmt.Errorf("circuit_breaker.open_timeout must be greater than 0")
	}
	if cb.Interval < 0 {
		return fmt.Errorf("circuit_breaker.interval must not be negative")
	}
	if cb.HalfOpenRequests == 0 {
		cb.HalfOpenRequests = 1
	}
	return nil
}
