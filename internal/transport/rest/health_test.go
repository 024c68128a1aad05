package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestHealthRoutes(t *testing.T) {
	ok := Probe{Name: "storage", Check: func(context.Context) error { return nil }}
	down := Probe{Name: "nats", Check: func(context.Context) error { return errors.New("nats: connection closed") }}

	testCases := []struct {
		name       string
		path       string
		probes     []Probe
		wantStatus int
		wantBody   string
	}{
		{name: "liveness", path: "/livez", probes: []Probe{down}, wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "healthz", path: "/healthz", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "ready", path: "/readyz", probes: []Probe{ok}, wantStatus: http.StatusOK, wantBody: `{"status":"ready","checks":{"storage":"ok"}}`},
		{name: "not ready", path: "/readyz", probes: []Probe{ok, down}, wantStatus: http.StatusServiceUnavailable,
			wantBody: `{"status":"not ready","checks":{"storage":"ok","nats":"nats: connection closed"}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			r := chi.NewRouter()
			RegisterHealthRoutes(r, discard, tc.probes...)
			rr := httptest.NewRecorder()

			// when
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))

			// then
			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.JSONEq(t, tc.wantBody, rr.Body.String())
		})
	}
}
