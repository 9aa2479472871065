package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
)

// ErrSessionNotFound is returned for sessions that do not exist, have
// expired or were revoked. Callers cannot tell these apart.
var ErrSessionNotFound = apperr.New(apperr.KindNotFound, "SESSION_NOT_FOUND", "Session not found")

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// GetByID returns only active sessions.
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// Revoke is a no-op for sessions that are already revoked or absent.
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
	ListActiveForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Session, error)
	// DeleteExpired removes sessions that expired or were revoked before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
