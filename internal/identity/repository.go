package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
)

var (
	ErrTenantNotFound = apperr.New(apperr.KindNotFound, "TENANT_NOT_FOUND", "Tenant not found")
	ErrUserNotFound   = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "User not found")
	ErrDuplicateSlug  = apperr.New(apperr.KindConflict, "TENANT_SLUG_TAKEN", "Tenant slug is already taken")
	ErrDuplicateEmail = apperr.New(apperr.KindConflict, "EMAIL_TAKEN", "Email is already registered in this tenant")
)

// Repository provides operations on the tenants and users tables.
type Repository interface {
	// CreateTenantWithOwner inserts both rows in one transaction.
	CreateTenantWithOwner(ctx context.Context, t *Tenant, owner *User) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetUserByID(ctx context.Context, tenantID, userID uuid.UUID) (*User, error)
	FindUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	// FindUsersByEmail searches every active tenant. Only the opt-in
	// tenantless login uses it.
	FindUsersByEmail(ctx context.Context, email string, limit int) ([]User, error)
	UpdateLastLogin(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, tenantID, userID uuid.UUID, hash string) error
}
