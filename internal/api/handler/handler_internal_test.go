package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/api/validation"
)

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
		code string
	}{
		{"valid", `{"name":"Research","slug":"research"}`, true, ""},
		{"malformed", `{"name":`, false, "INVALID_JSON"},
		{"blank name", `{"name":"   ","slug":"research"}`, false, "VALIDATION_ERROR"},
		{"bad slug", `{"name":"Research","slug":"Re"}`, false, "VALIDATION_ERROR"},
		{"oversized", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false, "INVALID_JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var req validation.CreateWorkspaceRequest
			ok := decodeAndValidate(w, r, &req, "req-1")

			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, tt.code, errorCode(t, w))
			}
		})
	}
}

func TestUUIDParam(t *testing.T) {
	var got bool
	r := chi.NewRouter()
	r.Get("/workspaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, got = uuidParam(w, r, "id", "req-1")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workspaces/123", nil))
	assert.False(t, got)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workspaces/8d3c4a43-2f7e-4a8e-9d7c-0c4a3f1b2e5d", nil))
	assert.True(t, got)
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, loc)

	assert.Equal(t, "2026-03-01T09:30:00Z", formatTime(ts))
	assert.Nil(t, formatTimePtr(nil))
	assert.Equal(t, "2026-03-01T09:30:00Z", *formatTimePtr(&ts))
}

func TestDecodeOptional(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"empty body", "", true},
		{"empty object", `{}`, true},
		{"session id", `{"sessionId":"8d3c4a43-2f7e-4a8e-9d7c-0c4a3f1b2e5d"}`, true},
		{"bad session id", `{"sessionId":"abc"}`, false},
		{"malformed", `{"sessionId":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var req validation.LogoutRequest
			assert.Equal(t, tt.ok, decodeOptional(w, r, &req, "req-1"))
		})
	}
}
