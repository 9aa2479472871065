package workspace

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/audit"
)

// DefaultInviteTTL is how long an invite stays acceptable.
const DefaultInviteTTL = 7 * 24 * time.Hour

var (
	ErrInvalidSlug = apperr.Validation("slug must be 3-63 lowercase letters, digits or hyphens")
	ErrInvalidRole = apperr.Validation("role must be one of owner, admin, editor, viewer")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// Actor identifies the caller of an Authority operation.
type Actor struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// CreateWorkspaceInput is the payload for CreateWorkspace.
type CreateWorkspaceInput struct {
	Name string
	Slug string
}

// InviteInput is the payload for Invite. An empty Role defaults to editor.
type InviteInput struct {
	Email string
	Role  Role
}

// InviteResult carries the raw invite token. It is only ever returned here;
// the repository stores its hash.
type InviteResult struct {
	Invite *Invite
	Token  string
}

// Authority answers membership questions and performs the mutations that
// those answers guard.
type Authority struct {
	repo      Repository
	audit     audit.Recorder
	inviteTTL time.Duration
	now       func() time.Time
}

// Option configures an Authority.
type Option func(*Authority)

func WithInviteTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.inviteTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// NewAuthority creates a new Authority.
func NewAuthority(repo Repository, rec audit.Recorder, opts ...Option) *Authority {
	a := &Authority{
		repo:      repo,
		audit:     rec,
		inviteTTL: DefaultInviteTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequireMember returns the caller's membership or ErrNotMember.
func (a *Authority) RequireMember(ctx context.Context, actor Actor, workspaceID uuid.UUID) (*Member, error) {
	m, err := a.repo.GetMember(ctx, actor.TenantID, workspaceID, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrNotMember
		}
		return nil, apperr.Internal("failed to load membership", err)
	}
	return m, nil
}

// RequireRole returns the caller's membership if its role is one of allowed.
func (a *Authority) RequireRole(ctx context.Context, actor Actor, workspaceID uuid.UUID, allowed ...Role) (*Member, error) {
	m, err := a.RequireMember(ctx, actor, workspaceID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(allowed, m.Role) {
		return nil, ErrInsufficientRole.WithDetails(map[string]any{"role": m.Role})
	}
	return m, nil
}

// RequirePermission returns the caller's membership if its role grants p.
func (a *Authority) RequirePermission(ctx context.Context, actor Actor, workspaceID uuid.UUID, p Permission) (*Member, error) {
	m, err := a.RequireMember(ctx, actor, workspaceID)
	if err != nil {
		return nil, err
	}
	if !m.Role.Can(p) {
		return nil, ErrInsufficientRole.WithDetails(map[string]any{"role": m.Role, "permission": p})
	}
	return m, nil
}

// CreateWorkspace creates a workspace with the actor as its first owner.
func (a *Authority) CreateWorkspace(ctx context.Context, actor Actor, in CreateWorkspaceInput) (*Workspace, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	w := &Workspace{
		TenantID:  actor.TenantID,
		Name:      strings.TrimSpace(in.Name),
		Slug:      slug,
		CreatedBy: actor.UserID,
	}
	owner := &Member{
		UserID:   actor.UserID,
		TenantID: actor.TenantID,
		Role:     RoleOwner,
	}
	if err := a.repo.CreateWorkspace(ctx, w, owner); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			return nil, err
		}
		return nil, apperr.Internal("failed to create workspace", err)
	}

	a.record(ctx, actor, audit.ActionWorkspaceCreated, w.ID, map[string]any{"slug": w.Slug})
	slog.Info("workspace created", "tenantId", actor.TenantID, "workspaceId", w.ID)
	return w, nil
}

// GetWorkspace returns a workspace the actor belongs to.
func (a *Authority) GetWorkspace(ctx context.Context, actor Actor, workspaceID uuid.UUID) (*Workspace, error) {
	if _, err := a.RequireMember(ctx, actor, workspaceID); err != nil {
		return nil, err
	}
	w, err := a.repo.GetWorkspace(ctx, actor.TenantID, workspaceID)
	if err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			return nil, err
		}
		return nil, apperr.Internal("failed to load workspace", err)
	}
	return w, nil
}

// ListWorkspaces returns every workspace the actor is a member of.
func (a *Authority) ListWorkspaces(ctx context.Context, actor Actor) ([]Workspace, error) {
	ws, err := a.repo.ListWorkspacesForUser(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list workspaces", err)
	}
	return ws, nil
}

// DeleteWorkspace soft-deletes a workspace. Owners only.
func (a *Authority) DeleteWorkspace(ctx context.Context, actor Actor, workspaceID uuid.UUID) error {
	if _, err := a.RequirePermission(ctx, actor, workspaceID, PermWorkspaceDelete); err != nil {
		return err
	}
	if err := a.repo.SoftDeleteWorkspace(ctx, actor.TenantID, workspaceID); err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			return err
		}
		return apperr.Internal("failed to delete workspace", err)
	}
	a.record(ctx, actor, audit.ActionWorkspaceDeleted, workspaceID, nil)
	return nil
}

// ListMembers returns the members of a workspace the actor belongs to.
func (a *Authority) ListMembers(ctx context.Context, actor Actor, workspaceID uuid.UUID) ([]Member, error) {
	if _, err := a.RequireMember(ctx, actor, workspaceID); err != nil {
		return nil, err
	}
	members, err := a.repo.ListMembers(ctx, actor.TenantID, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to list members", err)
	}
	return members, nil
}

// ChangeRole sets the role of target. Only owners may grant or revoke the
// owner role, and the last owner cannot be demoted.
func (a *Authority) ChangeRole(ctx context.Context, actor Actor, workspaceID, targetID uuid.UUID, role Role) (*Member, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	caller, err := a.RequirePermission(ctx, actor, workspaceID, PermMemberRoleUpdate)
	if err != nil {
		return nil, err
	}
	if role == RoleOwner && caller.Role != RoleOwner {
		return nil, ErrOwnerRoleProtected
	}

	var previous Role
	guard := func(target *Member, owners int) error {
		if target.Role == RoleOwner && caller.Role != RoleOwner {
			return ErrOwnerRoleProtected
		}
		previous = target.Role
		return EnsureOwnerRetained(target.Role, &role, owners)
	}

	m, err := a.repo.UpdateMemberRole(ctx, actor.TenantID, workspaceID, targetID, role, guard)
	if err != nil {
		return nil, passThrough(err, "failed to update member role")
	}

	a.record(ctx, actor, audit.ActionMemberRoleChanged, workspaceID, map[string]any{
		"targetUserId": targetID,
		"from":         previous,
		"to":           role,
	})
	return m, nil
}

// RemoveMember removes target from the workspace. A member may always remove
// themselves; removing someone else needs member:remove, and only owners may
// remove owners. The last owner cannot be removed.
func (a *Authority) RemoveMember(ctx context.Context, actor Actor, workspaceID, targetID uuid.UUID) error {
	caller, err := a.RequireMember(ctx, actor, workspaceID)
	if err != nil {
		return err
	}
	self := targetID == actor.UserID
	if !self && !caller.Role.Can(PermMemberRemove) {
		return ErrInsufficientRole.WithDetails(map[string]any{"role": caller.Role, "permission": PermMemberRemove})
	}

	var removed Role
	guard := func(target *Member, owners int) error {
		if !self && target.Role == RoleOwner && caller.Role != RoleOwner {
			return ErrOwnerRoleProtected
		}
		removed = target.Role
		return EnsureOwnerRetained(target.Role, nil, owners)
	}

	if err := a.repo.RemoveMember(ctx, actor.TenantID, workspaceID, targetID, guard); err != nil {
		return passThrough(err, "failed to remove member")
	}

	a.record(ctx, actor, audit.ActionMemberRemoved, workspaceID, map[string]any{
		"targetUserId": targetID,
		"role":         removed,
	})
	return nil
}

// Invite creates a pending invitation and returns its raw token.
func (a *Authority) Invite(ctx context.Context, actor Actor, workspaceID uuid.UUID, in InviteInput) (*InviteResult, error) {
	role := in.Role
	if role == "" {
		role = RoleEditor
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	caller, err := a.RequirePermission(ctx, actor, workspaceID, PermMemberInvite)
	if err != nil {
		return nil, err
	}
	if role == RoleOwner && caller.Role != RoleOwner {
		return nil, ErrOwnerRoleProtected
	}

	raw, err := newInviteToken()
	if err != nil {
		return nil, apperr.Internal("failed to generate invite token", err)
	}

	inv := &Invite{
		WorkspaceID: workspaceID,
		TenantID:    actor.TenantID,
		Email:       normalizeEmail(in.Email),
		Role:        role,
		TokenHash:   HashInviteToken(raw),
		InvitedBy:   actor.UserID,
		ExpiresAt:   a.now().Add(a.inviteTTL),
	}
	if err := a.repo.CreateInvite(ctx, inv); err != nil {
		return nil, passThrough(err, "failed to create invite")
	}

	a.record(ctx, actor, audit.ActionMemberInvited, workspaceID, map[string]any{
		"email": inv.Email,
		"role":  role,
	})
	return &InviteResult{Invite: inv, Token: raw}, nil
}

// ListPendingInvites returns invites that can still be accepted.
func (a *Authority) ListPendingInvites(ctx context.Context, actor Actor, workspaceID uuid.UUID) ([]Invite, error) {
	if _, err := a.RequirePermission(ctx, actor, workspaceID, PermMemberInvite); err != nil {
		return nil, err
	}
	invites, err := a.repo.ListPendingInvites(ctx, actor.TenantID, workspaceID, a.now())
	if err != nil {
		return nil, apperr.Internal("failed to list invites", err)
	}
	return invites, nil
}

// AcceptInvitation joins the actor to the invite's workspace. Expired,
// accepted, unknown and misaddressed invites all yield ErrInviteNotFound.
func (a *Authority) AcceptInvitation(ctx context.Context, actor Actor, email, rawToken string) (*Member, error) {
	if rawToken == "" {
		return nil, ErrInviteNotFound
	}
	m, err := a.repo.AcceptInvite(ctx, HashInviteToken(rawToken), actor.TenantID, actor.UserID, normalizeEmail(email), a.now())
	if err != nil {
		return nil, passThrough(err, "failed to accept invite")
	}

	a.record(ctx, actor, audit.ActionMemberJoined, m.WorkspaceID, map[string]any{"role": m.Role})
	return m, nil
}

// HashInviteToken returns the stored form of an invite token.
func HashInviteToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// passThrough returns typed errors unchanged and wraps anything else as internal.
func passThrough(err error, msg string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(msg, err)
}

func (a *Authority) record(ctx context.Context, actor Actor, action audit.Action, workspaceID uuid.UUID, details map[string]any) {
	a.audit.Record(ctx, audit.Event{
		TenantID:     actor.TenantID,
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "workspace",
		ResourceID:   workspaceID.String(),
		Details:      details,
	})
}
