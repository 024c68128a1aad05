package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "json message", status: 400, body: `{"message":"phone is required"}`, want: "phone is required"},
		{name: "json error", status: 401, body: `{"error":"bad token"}`, want: "bad token"},
		{name: "plain text", status: 500, body: "  boom \n", want: "boom"},
		{name: "empty body", status: 503, body: "", want: "Service Unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader(tc.body))}

			err := NewStatusError(resp)

			assert.Equal(t, tc.status, err.Status)
			assert.Equal(t, tc.want, err.Message)
		})
	}
}

func TestStatusError_Temporary(t *testing.T) {
	assert.True(t, (&StatusError{Status: 503}).Temporary())
	assert.True(t, (&StatusError{Status: 500}).Temporary())
	assert.True(t, (&StatusError{Status: 429}).Temporary())
	assert.False(t, (&StatusError{Status: 400}).Temporary())
}
