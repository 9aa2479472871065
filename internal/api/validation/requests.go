package validation

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	TenantName string  `json:"tenantName" validate:"notblank,max=255"`
	TenantSlug string  `json:"tenantSlug" validate:"required,slug"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required"`
	FirstName  *string `json:"firstName" validate:"omitempty,max=100"`
	LastName   *string `json:"lastName" validate:"omitempty,max=100"`
}

// LoginRequest is the body of POST /auth/login. The tenant is named by
// either tenantId or tenantSlug; tenantId wins when both are set.
type LoginRequest struct {
	TenantID   string `json:"tenantId" validate:"omitempty,uuid"`
	TenantSlug string `json:"tenantSlug" validate:"omitempty,max=63"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=1024"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest is the optional body of POST /auth/logout. An empty
// sessionId means the caller's current session.
type LogoutRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid"`
}

// ChangePasswordRequest is the body of POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=1024"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// CreateWorkspaceRequest is the body of POST /workspaces.
type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"notblank,max=255"`
	Slug string `json:"slug" validate:"required,slug"`
}

// ChangeRoleRequest is the body of PATCH /workspaces/{id}/members/{userId}.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin editor viewer"`
}

// InviteRequest is the body of POST /workspaces/{id}/invites. Role
// defaults to editor.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"omitempty,oneof=owner admin editor viewer"`
}

// AcceptInviteRequest is the body of POST /invites/accept.
type AcceptInviteRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// SetModelRequest is the body of PUT /workspaces/{id}/models/{modelId}.
type SetModelRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
