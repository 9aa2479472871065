package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/daap14/tenantauth/internal/api/middleware"
)

func captureRequestID(header string) (string, *httptest.ResponseRecorder) {
	var captured string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("X-Request-ID", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return captured, w
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	id, w := captureRequestID("")

	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated request ID should be a valid UUID")
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestRequestID_UsesExistingHeader(t *testing.T) {
	id, w := captureRequestID("my-existing-request-id")

	assert.Equal(t, "my-existing-request-id", id)
	assert.Equal(t, "my-existing-request-id", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesUnsafeHeader(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("a", 129), "tab\there"} {
		id, _ := captureRequestID(bad)

		assert.NotEqual(t, bad, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, _ := captureRequestID("")
		assert.False(t, ids[id], "request IDs should be unique")
		ids[id] = true
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Equal(t, "", middleware.GetRequestID(req.Context()))
}
