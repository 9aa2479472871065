package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/workspace"
)

const memberKey contextKey = "member"

// PermissionChecker resolves the caller's membership in a workspace.
// *workspace.Authority satisfies it.
type PermissionChecker interface {
	RequirePermission(ctx context.Context, actor workspace.Actor, workspaceID uuid.UUID, p workspace.Permission) (*workspace.Member, error)
}

// RequirePermission returns middleware that loads the caller's membership
// in the workspace named by the {id} URL parameter and rejects callers
// whose role lacks p. It must run after Auth.
func RequirePermission(checker PermissionChecker, p workspace.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			principal := GetPrincipal(r.Context())
			if principal == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			workspaceID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
				return
			}

			actor := workspace.Actor{TenantID: principal.TenantID, UserID: principal.UserID}
			member, err := checker.RequirePermission(r.Context(), actor, workspaceID, p)
			if err != nil {
				response.Error(w, err, requestID)
				return
			}

			ctx := context.WithValue(r.Context(), memberKey, member)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetMember retrieves the membership loaded by RequirePermission.
func GetMember(ctx context.Context) *workspace.Member {
	if m, ok := ctx.Value(memberKey).(*workspace.Member); ok {
		return m
	}
	return nil
}
