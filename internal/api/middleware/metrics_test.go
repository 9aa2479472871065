package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/api/middleware"
)

type observed struct {
	method, route string
	status        int
}

type requestRecorder struct{ calls []observed }

func (r *requestRecorder) ObserveRequest(method, route string, status int, _ float64) {
	r.calls = append(r.calls, observed{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &requestRecorder{}
	r := chi.NewRouter()
	r.Use(middleware.Metrics(rec))
	r.Get("/workspaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/workspaces/4a7c", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, observed{"GET", "/workspaces/{id}", 404}, rec.calls[0])
	assert.Equal(t, observed{"GET", "/health", 200}, rec.calls[1])
}
