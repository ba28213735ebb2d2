package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signaldesk/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(apiKey, header string) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
	if header != "" {
		req.Header.Set("X-API-Key", header)
	}
	w := httptest.NewRecorder()
	APIKeyAuth(apiKey)(ok).ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		want   int
		cause  string
	}{
		{"valid key", "secret", "secret", http.StatusOK, ""},
		{"missing key", "secret", "", http.StatusUnauthorized, "missing X-API-Key header"},
		{"wrong key", "secret", "nope", http.StatusUnauthorized, "invalid API key"},
		{"auth disabled", "", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.key, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.cause == "" {
				return
			}
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "UNAUTHENTICATED", resp.Error.Code)
			assert.Equal(t, tt.cause, resp.Error.Cause)
		})
	}
}
