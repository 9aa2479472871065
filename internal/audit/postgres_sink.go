package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes events to the audit_logs table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a sink backed by the given pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) Name() string { return "postgres" }

// Write inserts one audit row.
func (s *PostgresSink) Write(ctx context.Context, e Event) error {
	query := `
		INSERT INTO audit_logs (tenant_id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		e.TenantID, e.UserID, string(e.Action), e.ResourceType, e.ResourceID, e.Details, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
