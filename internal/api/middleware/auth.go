package middleware

import (
	"context"
	"net/http"

	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/token"
)

const principalKey contextKey = "principal"

// Authenticator resolves an access token. *identity.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*identity.Principal, error)
}

// Auth is middleware that extracts the bearer token from the Authorization
// header and resolves it to a Principal. Missing, invalid, expired and
// revoked tokens return 401.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			raw, ok := token.ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			principal, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				response.Error(w, err, requestID)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated Principal from the request context.
func GetPrincipal(ctx context.Context) *identity.Principal {
	if p, ok := ctx.Value(principalKey).(*identity.Principal); ok {
		return p
	}
	return nil
}
