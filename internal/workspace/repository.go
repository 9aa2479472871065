package workspace

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
)

var (
	ErrWorkspaceNotFound  = apperr.New(apperr.KindNotFound, "WORKSPACE_NOT_FOUND", "Workspace not found")
	ErrMemberNotFound     = apperr.New(apperr.KindNotFound, "MEMBER_NOT_FOUND", "Member not found")
	ErrInviteNotFound     = apperr.New(apperr.KindNotFound, "INVITE_NOT_FOUND", "Invitation not found or expired")
	ErrDuplicateSlug      = apperr.New(apperr.KindConflict, "WORKSPACE_SLUG_TAKEN", "Workspace slug is already taken")
	ErrAlreadyMember      = apperr.New(apperr.KindValidation, "ALREADY_MEMBER", "User is already a member of this workspace")
	ErrLastOwner          = apperr.New(apperr.KindValidation, "LAST_OWNER", "cannot remove last owner")
	ErrNotMember          = apperr.New(apperr.KindAuthorization, "NOT_A_MEMBER", "You are not a member of this workspace")
	ErrInsufficientRole   = apperr.New(apperr.KindAuthorization, "INSUFFICIENT_ROLE", "Your role does not allow this action")
	ErrOwnerRoleProtected = apperr.New(apperr.KindAuthorization, "OWNER_ROLE_PROTECTED", "Only owners can grant or revoke the owner role")
)

// Guard is evaluated inside the transaction that mutates target, after the
// workspace's owner rows have been locked. A non-nil error aborts the change.
type Guard func(target *Member, ownerCount int) error

// Repository provides operations on workspaces, members and invites. All
// reads and writes are scoped by tenant.
type Repository interface {
	// CreateWorkspace inserts the workspace and its owner membership atomically.
	CreateWorkspace(ctx context.Context, w *Workspace, owner *Member) error
	GetWorkspace(ctx context.Context, tenantID, workspaceID uuid.UUID) (*Workspace, error)
	ListWorkspacesForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Workspace, error)
	SoftDeleteWorkspace(ctx context.Context, tenantID, workspaceID uuid.UUID) error

	GetMember(ctx context.Context, tenantID, workspaceID, userID uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, tenantID, workspaceID uuid.UUID) ([]Member, error)
	UpdateMemberRole(ctx context.Context, tenantID, workspaceID, userID uuid.UUID, role Role, guard Guard) (*Member, error)
	RemoveMember(ctx context.Context, tenantID, workspaceID, userID uuid.UUID, guard Guard) error

	CreateInvite(ctx context.Context, inv *Invite) error
	ListPendingInvites(ctx context.Context, tenantID, workspaceID uuid.UUID, now time.Time) ([]Invite, error)
	// AcceptInvite resolves a pending invite addressed to email, inserts the
	// membership and marks the invite accepted in one transaction.
	AcceptInvite(ctx context.Context, tokenHash string, tenantID, userID uuid.UUID, email string, now time.Time) (*Member, error)
	DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error)
}

// EnsureOwnerRetained fails with ErrLastOwner when changing a member from
// current to next would leave the workspace without an owner. A nil next
// means the member is being removed.
func EnsureOwnerRetained(current Role, next *Role, ownerCount int) error {
	if current != RoleOwner {
		return nil
	}
	if next != nil && *next == RoleOwner {
		return nil
	}
	if ownerCount <= 1 {
		return ErrLastOwner
	}
	return nil
}
