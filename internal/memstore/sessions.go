package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/session"
)

// Sessions implements session.Store.
type Sessions struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]session.Session
	Clock Clock

	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewSessions(clock Clock) *Sessions {
	return &Sessions{rows: make(map[uuid.UUID]session.Session), Clock: clock}
}

func (m *Sessions) Create(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = m.Clock.now()
	m.rows[s.ID] = *s
	return nil
}

func (m *Sessions) GetByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || !s.Active(m.Clock.now()) {
		return nil, session.ErrSessionNotFound
	}
	return &s, nil
}

func (m *Sessions) Revoke(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.RevokedAt != nil {
		return nil
	}
	now := m.Clock.now()
	s.RevokedAt = &now
	m.rows[id] = s
	return nil
}

func (m *Sessions) RevokeAllForUser(_ context.Context, tenantID, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Clock.now()
	var n int64
	for id, s := range m.rows {
		if s.TenantID == tenantID && s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			m.rows[id] = s
			n++
		}
	}
	return n, nil
}

func (m *Sessions) ListActiveForUser(_ context.Context, tenantID, userID uuid.UUID) ([]session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Clock.now()
	out := []session.Session{}
	for _, s := range m.rows {
		if s.TenantID == tenantID && s.UserID == userID && s.Active(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Sessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if s.ExpiresAt.Before(before) || (s.RevokedAt != nil && s.RevokedAt.Before(before)) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// Raw returns the stored row regardless of state.
func (m *Sessions) Raw(id uuid.UUID) (session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	return s, ok
}

// Len returns the number of stored rows.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
