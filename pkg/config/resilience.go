package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResilienceConfig tunes the outbound clients. Only idempotent calls are retried:
// GETs over HTTP and transient status codes over gRPC. Order submissions never are.
type ResilienceConfig struct {
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RetryConfig counts the first attempt in MaxAttempts; backoff doubles from InitialBackoff.
type RetryConfig struct {
	MaxAttempts    uint          `koanf:"maxattempts"`
	InitialBackoff time.Duration `koanf:"initialbackoff"`
}

// CircuitBreakerConfig opens the breaker after more than ConsecutiveFailures failed
// calls in a row, or once the failure rate over more than that many calls exceeds
// ErrorRatePercent. It half-opens after OpenTimeout.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// DefaultResilience suits an interactive client talking to one storefront API.
func DefaultResilience() ResilienceConfig {
	return ResilienceConfig{
		Retry:          RetryConfig{MaxAttempts: 3, InitialBackoff: 200 * time.Millisecond},
		CircuitBreaker: CircuitBreakerConfig{ConsecutiveFailures: 5, ErrorRatePercent: 100, OpenTimeout: 30 * time.Second},
	}
}

func (c *ResilienceConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Resilience ---\n")
	fmt.Fprintf(&b, "  retry: %d attempts, backoff from %v\n", c.Retry.MaxAttempts, c.Retry.InitialBackoff)
	fmt.Fprintf(&b, "  circuitbreaker: trips after %d failures or %d%% errors, reopens after %v\n",
		c.CircuitBreaker.ConsecutiveFailures, c.CircuitBreaker.ErrorRatePercent, c.CircuitBreaker.OpenTimeout)
	return b.String()
}

func (c *ResilienceConfig) Validate() error {
	var errs []error
	if c.Retry.MaxAttempts == 0 {
		errs = append(errs, errors.New("resilience.retry.maxattempts must be at least 1"))
	}
	if c.Retry.MaxAttempts > 1 && c.Retry.InitialBackoff <= 0 {
		errs = append(errs, errors.New("resilience.retry.initialbackoff must be positive when retries are enabled"))
	}
	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		errs = append(errs, errors.New("resilience.circuitbreaker.consecutivefailures must be at least 1"))
	}
	if c.CircuitBreaker.ErrorRatePercent <= 0 || c.CircuitBreaker.ErrorRatePercent > 100 {
		errs = append(errs, errors.New("resilience.circuitbreaker.errorratepercent must be in (0, 100]"))
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		errs = append(errs, errors.New("resilience.circuitbreaker.opentimeout must be positive"))
	}
	return errors.Join(errs...)
}
