package eligibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/tenantauth/internal/database"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const modelColumns = `id, name, display_name, provider, category, required_plan, is_active, created_at`

func scanModel(row pgx.Row, m *Model) error {
	return row.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Provider, &m.Category, &m.RequiredPlan, &m.IsActive, &m.CreatedAt)
}

// ListModels returns the catalog ordered by display name.
func (r *PostgresRepository) ListModels(ctx context.Context, activeOnly bool) ([]Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY display_name ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	models := []Model{}
	for rows.Next() {
		var m Model
		if err := scanModel(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model rows: %w", err)
	}
	return models, nil
}

// GetModel retrieves a catalog entry by ID, active or not.
func (r *PostgresRepository) GetModel(ctx context.Context, modelID string) (*Model, error) {
	var m Model
	err := scanModel(r.pool.QueryRow(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1`, modelID), &m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("querying model: %w", err)
	}
	return &m, nil
}

// EnabledModels returns the IDs of models the workspace has enabled.
func (r *PostgresRepository) EnabledModels(ctx context.Context, tenantID, workspaceID uuid.UUID) (map[string]bool, error) {
	query := `
		SELECT model_id
		FROM workspace_models
		WHERE tenant_id = $1 AND workspace_id = $2 AND enabled`

	rows, err := r.pool.Query(ctx, query, tenantID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing enabled models: %w", err)
	}
	defer rows.Close()

	enabled := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning enabled model row: %w", err)
		}
		enabled[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enabled model rows: %w", err)
	}
	return enabled, nil
}

// IsEnabled reports whether the workspace has enabled the model.
func (r *PostgresRepository) IsEnabled(ctx context.Context, tenantID, workspaceID uuid.UUID, modelID string) (bool, error) {
	query := `
		SELECT enabled
		FROM workspace_models
		WHERE tenant_id = $1 AND workspace_id = $2 AND model_id = $3`

	var enabled bool
	if err := r.pool.QueryRow(ctx, query, tenantID, workspaceID, modelID).Scan(&enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying model enablement: %w", err)
	}
	return enabled, nil
}

// SetEnabled upserts the enablement row.
func (r *PostgresRepository) SetEnabled(ctx context.Context, e Enablement) error {
	query := `
		INSERT INTO workspace_models (workspace_id, model_id, tenant_id, enabled, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, model_id)
		DO UPDATE SET enabled = EXCLUDED.enabled, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		WHERE workspace_models.tenant_id = EXCLUDED.tenant_id`

	result, err := r.pool.Exec(ctx, query, e.WorkspaceID, e.ModelID, e.TenantID, e.Enabled, e.UpdatedBy)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrModelNotFound
		}
		return fmt.Errorf("upserting model enablement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("upserting model enablement: workspace %s belongs to another tenant", e.WorkspaceID)
	}
	return nil
}
