package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRespondJSON(t *testing.T) {
	// given
	rec := httptest.NewRecorder()

	// when
	RespondJSON(rec, discard, http.StatusCreated, map[string]int{"count": 2})

	// then
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
}

func TestRespondJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondJSON(rec, discard, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondError(rec, discard, http.StatusNotFound, "Product not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		ProductID string `json:"productId"`
	}

	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"productId":"p1"}`},
		{name: "unknown field", body: `{"productId":"p1","extra":true}`, wantErr: true},
		{name: "malformed", body: `{"productId":`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload

			err := DecodeJSON(req, &dst)

			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p1", dst.ProductID)
		})
	}
}

func TestValidationErrors_UsesJSONNames(t *testing.T) {
	// given
	type form struct {
		CustomerName string `json:"customerName" validate:"required,min=2"`
		Email        string `json:"email" validate:"required,email"`
	}
	v := NewValidator()

	// when
	fields, ok := ValidationErrors(v.Struct(form{CustomerName: "A", Email: "nope"}))

	// then
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"customerName": "failed on rule: min",
		"email":        "failed on rule: email",
	}, fields)
}

func TestValidationErrors_NotValidation(t *testing.T) {
	_, ok := ValidationErrors(io.EOF)
	assert.False(t, ok)
}

func TestParsePathParam(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParsePathParam(w, r, discard, "id")
		if ok {
			got = id
			w.WriteHeader(http.StatusOK)
		}
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/saree-42", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "saree-42", got)
}

func TestOptionalGte(t *testing.T) {
	testCases := []struct {
		name   string
		query  string
		want   int
		wantOK bool
	}{
		{name: "missing uses default", query: "", want: 20, wantOK: true},
		{name: "valid", query: "?limit=5", want: 5, wantOK: true},
		{name: "below minimum", query: "?limit=0", wantOK: false},
		{name: "not a number", query: "?limit=abc", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)

			got, ok := OptionalGte(req, rec, discard, "limit", 1, 20)

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}
