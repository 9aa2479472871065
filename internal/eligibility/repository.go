package eligibility

import (
	"context"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
)

var ErrModelNotFound = apperr.New(apperr.KindNotFound, "MODEL_NOT_FOUND", "Model not found")

// Enablement is a row in the workspace_models table.
type Enablement struct {
	WorkspaceID uuid.UUID
	TenantID    uuid.UUID
	ModelID     string
	Enabled     bool
	UpdatedBy   uuid.UUID
}

// Repository reads the model catalog and workspace enablement state.
type Repository interface {
	// ListModels returns the catalog ordered by display name. When
	// activeOnly is set, deprecated models are left out.
	ListModels(ctx context.Context, activeOnly bool) ([]Model, error)
	GetModel(ctx context.Context, modelID string) (*Model, error)
	// EnabledModels returns the IDs of models the workspace has enabled.
	EnabledModels(ctx context.Context, tenantID, workspaceID uuid.UUID) (map[string]bool, error)
	// IsEnabled reports whether the workspace has enabled the model. A
	// missing row means disabled.
	IsEnabled(ctx context.Context, tenantID, workspaceID uuid.UUID, modelID string) (bool, error)
	SetEnabled(ctx context.Context, e Enablement) error
}
