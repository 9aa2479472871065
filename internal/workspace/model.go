package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Workspace represents a row in the workspaces table.
type Workspace struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Slug      string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Member represents a row in the workspace_members table.
type Member struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Role        Role
	InvitedBy   *uuid.UUID
	JoinedAt    time.Time
}

// Invite represents a row in the workspace_invites table. Only the hash of
// the invite token is stored.
type Invite struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	TenantID    uuid.UUID
	Email       string
	Role        Role
	TokenHash   string
	InvitedBy   uuid.UUID
	ExpiresAt   time.Time
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

// Pending reports whether the invite can still be accepted at now.
func (i *Invite) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
