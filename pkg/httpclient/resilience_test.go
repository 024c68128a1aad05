package httpclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer answers with the queued status codes, then 200.
func scriptedServer(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n <= len(codes) {
			w.WriteHeader(codes[n-1])
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testResilience() config.ResilienceConfig {
	return config.ResilienceConfig{
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 5 * time.Millisecond,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: 5,
			ErrorRatePercent:    100,
			OpenTimeout:         time.Minute,
		},
	}
}

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	// given
	srv, calls := scriptedServer(t, http.StatusServiceUnavailable, http.StatusBadGateway)
	client := New(Options{Name: "test", Resilience: testResilience()})

	// when
	resp, err := client.Get(srv.URL)

	// then
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_GivesUpAndReturnsLastResponse(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	client := New(Options{Name: "test", Resilience: testResilience()})

	resp, err := client.Get(srv.URL)

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_NotFoundIsNotRetried(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusNotFound)
	client := New(Options{Name: "test", Resilience: testResilience()})

	resp, err := client.Get(srv.URL)

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_PostIsNeverRetried(t *testing.T) {
	srv, calls := scriptedServer(t, http.StatusServiceUnavailable)
	client := New(Options{Name: "test", Resilience: testResilience()})

	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{}`))

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	// given
	cfg := testResilience()
	cfg.Retry.MaxAttempts = 1
	cfg.CircuitBreaker.ConsecutiveFailures = 2
	srv, calls := scriptedServer(t, 503, 503, 503, 503, 503, 503)
	client := New(Options{Name: "test", Resilience: cfg})

	// when
	for i := 0; i < 3; i++ {
		resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	_, err := client.Post(srv.URL, "application/json", strings.NewReader(`{}`))

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInternalServerError_TripsBreakerWithoutRetry(t *testing.T) {
	// given
	cfg := testResilience()
	cfg.CircuitBreaker.ConsecutiveFailures = 1
	srv, calls := scriptedServer(t, http.StatusInternalServerError, http.StatusInternalServerError)
	client := New(Options{Name: "test", Resilience: cfg})

	// when
	first, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = first.Body.Close()
	second, err := client.Get(srv.URL)
	require.NoError(t, err)
	_ = second.Body.Close()
	_, err = client.Get(srv.URL)

	// then
	assert.Equal(t, http.StatusInternalServerError, first.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, second.StatusCode)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load(), "500 is answered once per call, never retried")
}
