package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Store using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Store backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Store {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, tenant_id, user_id, access_token_hash, refresh_token_hash,
		       ip_address, user_agent, created_at, expires_at, revoked_at`

func scanSession(row pgx.Row, s *Session) error {
	return row.Scan(
		&s.ID, &s.TenantID, &s.UserID, &s.AccessTokenHash, &s.RefreshTokenHash,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt,
	)
}

// Create inserts a session. A zero ID is replaced with a new UUID.
func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO sessions (id, tenant_id, user_id, access_token_hash, refresh_token_hash,
		                      ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		s.ID, s.TenantID, s.UserID, s.AccessTokenHash, s.RefreshTokenHash,
		s.IPAddress, s.UserAgent, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetByID retrieves an active session.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()`

	var s Session
	if err := scanSession(r.pool.QueryRow(ctx, query, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// Revoke sets revoked_at once. Rows that are already revoked keep their
// original timestamp.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active session of a user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2 AND revoked_at IS NULL`

	result, err := r.pool.Exec(ctx, query, tenantID, userID)
	if err != nil {
		return 0, fmt.Errorf("revoking user sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListActiveForUser returns active sessions, newest first.
func (r *PostgresRepository) ListActiveForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE tenant_id = $1 AND user_id = $2 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// DeleteExpired purges sessions that expired or were revoked before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at < $1 OR revoked_at < $1`

	result, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
