package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/apperr"
)

func TestKindOf_WrappedError(t *testing.T) {
	base := apperr.NotFound("workspace not found")
	wrapped := fmt.Errorf("loading workspace: %w", base)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(wrapped))

	ae, ok := apperr.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", ae.Code)
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
}

func TestIs_MatchesByKindAndCode(t *testing.T) {
	sentinel := apperr.New(apperr.KindAuthentication, "TOKEN_EXPIRED", "token expired")
	other := apperr.New(apperr.KindAuthentication, "TOKEN_EXPIRED", "a different message")

	assert.True(t, errors.Is(fmt.Errorf("verify: %w", other), sentinel))
	assert.False(t, errors.Is(apperr.Authentication("x"), sentinel))
}

func TestWrap_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Internal("failed to load user", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	base := apperr.Validation("bad input")
	withDetails := base.WithDetails([]string{"email"})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"email"}, withDetails.Details)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:     http.StatusBadRequest,
		apperr.KindAuthentication: http.StatusUnauthorized,
		apperr.KindAuthorization:  http.StatusForbidden,
		apperr.KindNotFound:       http.StatusNotFound,
		apperr.KindConflict:       http.StatusConflict,
		apperr.KindQuotaExceeded:  http.StatusTooManyRequests,
		apperr.KindUnavailable:    http.StatusServiceUnavailable,
		apperr.KindInternal:       http.StatusInternalServerError,
	}
	for kind, status := range cases {
		t.Run(kind.String(), func(t *testing.T) {
			assert.Equal(t, status, apperr.HTTPStatus(kind))
		})
	}
}
