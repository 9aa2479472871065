package identity

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state shared by tenants and users.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// RoleOwner is the tenant role given to the registering user.
const RoleOwner = "owner"

// Tenant represents a row in the tenants table.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Status    Status
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User represents a row in the users table.
type User struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Email         string
	PasswordHash  string
	FirstName     *string
	LastName      *string
	Role          string
	EmailVerified bool
	Status        Status
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Principal is the authenticated caller, stored in the request context.
type Principal struct {
	UserID    uuid.UUID
	TenantID  uuid.UUID
	SessionID uuid.UUID
	Role      string
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	TenantName string
	TenantSlug string
	Email      string
	Password   string
	FirstName  *string
	LastName   *string
	IPAddress  *string
	UserAgent  *string
}

// LoginInput carries the fields of a login request. One of TenantID or
// TenantSlug identifies the tenant.
type LoginInput struct {
	TenantID   *uuid.UUID
	TenantSlug string
	Email      string
	Password   string
	IPAddress  *string
	UserAgent  *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	SessionID    uuid.UUID
	User         *User
	Tenant       *Tenant
}

// RefreshResult is returned by Refresh.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   int
}
