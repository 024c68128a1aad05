// Package httpclient builds outbound HTTP clients for the storefront backend:
// idempotent requests are retried with exponential backoff and every request
// passes through a circuit breaker.
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures New.
type Options struct {
	Name       string
	Timeout    time.Duration
	Resilience config.ResilienceConfig
	// Base is the innermost transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// New returns an instrumented client. Timeout of zero means no client-level timeout.
func New(opts Options) *http.Client {
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(NewTransport(opts.Base, opts.Name, opts.Resilience)),
	}
}

var (
	errTransientStatus = errors.New("transient upstream status")
	errServerFault     = errors.New("upstream server fault")
)

type transport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retry   config.RetryConfig
}

// NewTransport wraps next with retry and circuit breaking.
func NewTransport(next http.RoundTripper, name string, cfg config.ResilienceConfig) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{
		next:    next,
		breaker: NewCircuitBreaker(name, cfg.CircuitBreaker),
		retry:   cfg.Retry,
	}
}

// NewCircuitBreaker creates a breaker that trips on network failures, any 5xx and 429.
// Business errors such as 404 or 400 don't count as failures.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.TotalSuccesses+counts.TotalFailures > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.TotalSuccesses+counts.TotalFailures)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return gobreaker.NewCircuitBreaker[*http.Response](st)
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !retryable(req) || t.retry.MaxAttempts <= 1 {
		return t.once(req)
	}

	var last *http.Response
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.retry.InitialBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.retry.MaxAttempts-1)), req.Context())

	err := backoff.Retry(func() error {
		if last != nil {
			_ = last.Body.Close()
			last = nil
		}
		resp, err := t.once(req)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		last = resp
		if transientStatus(resp.StatusCode) {
			return fmt.Errorf("%w: %d", errTransientStatus, resp.StatusCode)
		}
		return nil
	}, b)

	if err != nil && last == nil {
		return nil, err
	}
	// Out of attempts on a transient status: hand the last response to the caller.
	return last, nil
}

// once performs a single attempt through the breaker.
func (t *transport) once(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if serverFault(resp.StatusCode) {
			return resp, errServerFault
		}
		return resp, nil
	})
	if errors.Is(err, errServerFault) {
		return resp, nil
	}
	return resp, err
}

func retryable(req *http.Request) bool {
	return (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody)
}

// serverFault reports responses that count against the breaker.
func serverFault(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// transientStatus reports responses worth another attempt. A plain 500 is not one:
// it usually fails the same way again.
func transientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}
