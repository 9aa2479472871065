package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/identity"
)

// Identity implements identity.Repository.
type Identity struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]identity.Tenant
	users   map[uuid.UUID]identity.User
	Clock   Clock

	// FailUserInsert makes CreateTenantWithOwner fail after the tenant
	// insert, to exercise rollback.
	FailUserInsert error
}

func NewIdentity(clock Clock) *Identity {
	return &Identity{
		tenants: make(map[uuid.UUID]identity.Tenant),
		users:   make(map[uuid.UUID]identity.User),
		Clock:   clock,
	}
}

func (m *Identity) CreateTenantWithOwner(_ context.Context, t *identity.Tenant, owner *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tenants {
		if existing.Slug == t.Slug {
			return identity.ErrDuplicateSlug
		}
	}
	if m.FailUserInsert != nil {
		// nothing was written, as if the transaction rolled back
		return m.FailUserInsert
	}

	now := m.Clock.now()
	t.ID = uuid.New()
	t.CreatedAt, t.UpdatedAt = now, now
	owner.ID = uuid.New()
	owner.TenantID = t.ID
	owner.CreatedAt, owner.UpdatedAt = now, now

	m.tenants[t.ID] = *t
	m.users[owner.ID] = *owner
	return nil
}

// PutTenant stores t, assigning an ID when missing.
func (m *Identity) PutTenant(t *identity.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.tenants[t.ID] = *t
}

// PutUser stores u, assigning an ID when missing. Duplicate emails within a
// tenant are rejected like the unique constraint does.
func (m *Identity) PutUser(u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email && existing.ID != u.ID {
			return identity.ErrDuplicateEmail
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Identity) GetTenantByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, identity.ErrTenantNotFound
	}
	return &t, nil
}

func (m *Identity) GetTenantBySlug(_ context.Context, slug string) (*identity.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, identity.ErrTenantNotFound
}

func (m *Identity) GetUserByID(_ context.Context, tenantID, userID uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (m *Identity) FindUserByEmail(_ context.Context, tenantID uuid.UUID, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return &u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *Identity) FindUsersByEmail(_ context.Context, email string, limit int) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []identity.User{}
	for _, u := range m.users {
		t := m.tenants[u.TenantID]
		if u.Email == email && u.Status == identity.StatusActive && t.Status == identity.StatusActive {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Identity) UpdateLastLogin(_ context.Context, tenantID, userID uuid.UUID, at time.Time) error {
	return m.update(tenantID, userID, func(u *identity.User) { u.LastLoginAt = &at })
}

func (m *Identity) UpdatePasswordHash(_ context.Context, tenantID, userID uuid.UUID, hash string) error {
	return m.update(tenantID, userID, func(u *identity.User) { u.PasswordHash = hash })
}

func (m *Identity) update(tenantID, userID uuid.UUID, fn func(*identity.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return identity.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = m.Clock.now()
	m.users[userID] = u
	return nil
}

// CountTenants returns the number of stored tenants.
func (m *Identity) CountTenants() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tenants)
}

// CountUsers returns the number of stored users.
func (m *Identity) CountUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// ErrInjected is a generic failure for FailUserInsert and similar hooks.
var ErrInjected = errors.New("injected failure")
