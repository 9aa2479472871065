package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/api/validation"
	"github.com/daap14/tenantauth/internal/workspace"
)

const (
	maxBodyBytes = 1 << 20
	timeLayout   = "2006-01-02T15:04:05Z"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// decodeAndValidate reads a JSON body into dst and runs its validation
// tags. It writes the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	return decode(w, r, dst, requestID, false)
}

// decodeOptional is decodeAndValidate for endpoints where an empty body
// means all defaults.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	return decode(w, r, dst, requestID, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, requestID string, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !(optional && errors.Is(err, io.EOF)) {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}

	if fieldErrors := validation.Struct(dst); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return false
	}
	return true
}

// uuidParam parses a UUID URL parameter. It writes a 400 and returns false
// when the value is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller as a workspace actor. The Auth
// middleware guarantees a principal on every route that calls it.
func actor(r *http.Request) (workspace.Actor, bool) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		return workspace.Actor{}, false
	}
	return workspace.Actor{TenantID: p.TenantID, UserID: p.UserID}, true
}

func unauthorized(w http.ResponseWriter, requestID string) {
	response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
