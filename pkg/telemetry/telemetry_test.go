package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewMeterProvider_ExposesInstruments(t *testing.T) {
	// given
	mp, handler, err := NewMeterProvider("storefront-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(t.Context()) })

	counter, err := otel.Meter("test").Int64Counter("checkouts_submitted")
	require.NoError(t, err)

	// when
	counter.Add(t.Context(), 3)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkouts_submitted")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
