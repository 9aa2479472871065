package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/workspace"
)

type memberKey struct {
	workspaceID uuid.UUID
	userID      uuid.UUID
}

// Workspaces implements workspace.Repository. A single mutex stands in for
// the row locks taken by the Postgres implementation.
type Workspaces struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]workspace.Workspace
	members    map[memberKey]workspace.Member
	invites    map[uuid.UUID]workspace.Invite
	Clock      Clock
}

func NewWorkspaces(clock Clock) *Workspaces {
	return &Workspaces{
		workspaces: make(map[uuid.UUID]workspace.Workspace),
		members:    make(map[memberKey]workspace.Member),
		invites:    make(map[uuid.UUID]workspace.Invite),
		Clock:      clock,
	}
}

func (m *Workspaces) CreateWorkspace(_ context.Context, w *workspace.Workspace, owner *workspace.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.workspaces {
		if existing.TenantID == w.TenantID && existing.Slug == w.Slug && existing.DeletedAt == nil {
			return workspace.ErrDuplicateSlug
		}
	}

	now := m.Clock.now()
	w.ID = uuid.New()
	w.CreatedAt, w.UpdatedAt = now, now
	owner.WorkspaceID = w.ID
	owner.JoinedAt = now

	m.workspaces[w.ID] = *w
	m.members[memberKey{w.ID, owner.UserID}] = *owner
	return nil
}

func (m *Workspaces) live(tenantID, workspaceID uuid.UUID) (workspace.Workspace, bool) {
	w, ok := m.workspaces[workspaceID]
	if !ok || w.TenantID != tenantID || w.DeletedAt != nil {
		return workspace.Workspace{}, false
	}
	return w, true
}

func (m *Workspaces) GetWorkspace(_ context.Context, tenantID, workspaceID uuid.UUID) (*workspace.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.live(tenantID, workspaceID)
	if !ok {
		return nil, workspace.ErrWorkspaceNotFound
	}
	return &w, nil
}

func (m *Workspaces) ListWorkspacesForUser(_ context.Context, tenantID, userID uuid.UUID) ([]workspace.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []workspace.Workspace{}
	for key := range m.members {
		if key.userID != userID {
			continue
		}
		if w, ok := m.live(tenantID, key.workspaceID); ok {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Workspaces) SoftDeleteWorkspace(_ context.Context, tenantID, workspaceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.live(tenantID, workspaceID)
	if !ok {
		return workspace.ErrWorkspaceNotFound
	}
	now := m.Clock.now()
	w.DeletedAt = &now
	m.workspaces[workspaceID] = w
	return nil
}

func (m *Workspaces) member(tenantID, workspaceID, userID uuid.UUID) (workspace.Member, bool) {
	if _, ok := m.live(tenantID, workspaceID); !ok {
		return workspace.Member{}, false
	}
	mem, ok := m.members[memberKey{workspaceID, userID}]
	if !ok || mem.TenantID != tenantID {
		return workspace.Member{}, false
	}
	return mem, true
}

func (m *Workspaces) GetMember(_ context.Context, tenantID, workspaceID, userID uuid.UUID) (*workspace.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.member(tenantID, workspaceID, userID)
	if !ok {
		return nil, workspace.ErrMemberNotFound
	}
	return &mem, nil
}

func (m *Workspaces) ListMembers(_ context.Context, tenantID, workspaceID uuid.UUID) ([]workspace.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []workspace.Member{}
	for key, mem := range m.members {
		if key.workspaceID == workspaceID && mem.TenantID == tenantID {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *Workspaces) owners(workspaceID uuid.UUID) int {
	n := 0
	for key, mem := range m.members {
		if key.workspaceID == workspaceID && mem.Role == workspace.RoleOwner {
			n++
		}
	}
	return n
}

func (m *Workspaces) UpdateMemberRole(_ context.Context, tenantID, workspaceID, userID uuid.UUID, role workspace.Role, guard workspace.Guard) (*workspace.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.member(tenantID, workspaceID, userID)
	if !ok {
		return nil, workspace.ErrMemberNotFound
	}
	target := mem
	if err := guard(&target, m.owners(workspaceID)); err != nil {
		return nil, err
	}
	mem.Role = role
	m.members[memberKey{workspaceID, userID}] = mem
	return &mem, nil
}

func (m *Workspaces) RemoveMember(_ context.Context, tenantID, workspaceID, userID uuid.UUID, guard workspace.Guard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.member(tenantID, workspaceID, userID)
	if !ok {
		return workspace.ErrMemberNotFound
	}
	if err := guard(&mem, m.owners(workspaceID)); err != nil {
		return err
	}
	delete(m.members, memberKey{workspaceID, userID})
	return nil
}

func (m *Workspaces) CreateInvite(_ context.Context, inv *workspace.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(inv.TenantID, inv.WorkspaceID); !ok {
		return workspace.ErrWorkspaceNotFound
	}
	inv.ID = uuid.New()
	inv.CreatedAt = m.Clock.now()
	m.invites[inv.ID] = *inv
	return nil
}

func (m *Workspaces) ListPendingInvites(_ context.Context, tenantID, workspaceID uuid.UUID, now time.Time) ([]workspace.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []workspace.Invite{}
	for _, inv := range m.invites {
		if inv.TenantID == tenantID && inv.WorkspaceID == workspaceID && inv.Pending(now) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Workspaces) AcceptInvite(_ context.Context, tokenHash string, tenantID, userID uuid.UUID, email string, now time.Time) (*workspace.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, inv := range m.invites {
		if inv.TokenHash != tokenHash || inv.TenantID != tenantID || inv.Email != email || !inv.Pending(now) {
			continue
		}
		if _, ok := m.live(tenantID, inv.WorkspaceID); !ok {
			break
		}
		key := memberKey{inv.WorkspaceID, userID}
		if _, exists := m.members[key]; exists {
			return nil, workspace.ErrAlreadyMember
		}

		invitedBy := inv.InvitedBy
		mem := workspace.Member{
			WorkspaceID: inv.WorkspaceID,
			UserID:      userID,
			TenantID:    tenantID,
			Role:        inv.Role,
			InvitedBy:   &invitedBy,
			JoinedAt:    now,
		}
		m.members[key] = mem
		inv.AcceptedAt = &now
		m.invites[id] = inv
		return &mem, nil
	}
	return nil, workspace.ErrInviteNotFound
}

func (m *Workspaces) DeleteExpiredInvites(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, inv := range m.invites {
		if inv.AcceptedAt == nil && inv.ExpiresAt.Before(before) {
			delete(m.invites, id)
			n++
		}
	}
	return n, nil
}

// AddMember inserts a membership directly.
func (m *Workspaces) AddMember(mem workspace.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem.JoinedAt.IsZero() {
		mem.JoinedAt = m.Clock.now()
	}
	m.members[memberKey{mem.WorkspaceID, mem.UserID}] = mem
}

// InviteCount returns the number of stored invites, accepted or not.
func (m *Workspaces) InviteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invites)
}
