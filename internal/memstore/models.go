package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/eligibility"
)

type enablementKey struct {
	workspaceID uuid.UUID
	modelID     string
}

// Models implements eligibility.Repository.
type Models struct {
	mu      sync.Mutex
	catalog map[string]eligibility.Model
	enabled map[enablementKey]eligibility.Enablement

	// Reads counts repository calls, to assert on cache behavior.
	Reads int
}

func NewModels(models ...eligibility.Model) *Models {
	m := &Models{
		catalog: make(map[string]eligibility.Model),
		enabled: make(map[enablementKey]eligibility.Enablement),
	}
	for _, model := range models {
		m.catalog[model.ID] = model
	}
	return m
}

func (m *Models) ListModels(_ context.Context, activeOnly bool) ([]eligibility.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++

	out := []eligibility.Model{}
	for _, model := range m.catalog {
		if activeOnly && !model.IsActive {
			continue
		}
		out = append(out, model)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Models) GetModel(_ context.Context, modelID string) (*eligibility.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++

	model, ok := m.catalog[modelID]
	if !ok {
		return nil, eligibility.ErrModelNotFound
	}
	return &model, nil
}

func (m *Models) EnabledModels(_ context.Context, tenantID, workspaceID uuid.UUID) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++

	out := make(map[string]bool)
	for key, e := range m.enabled {
		if key.workspaceID == workspaceID && e.TenantID == tenantID && e.Enabled {
			out[key.modelID] = true
		}
	}
	return out, nil
}

func (m *Models) IsEnabled(_ context.Context, tenantID, workspaceID uuid.UUID, modelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++

	e, ok := m.enabled[enablementKey{workspaceID, modelID}]
	return ok && e.TenantID == tenantID && e.Enabled, nil
}

func (m *Models) SetEnabled(_ context.Context, e eligibility.Enablement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalog[e.ModelID]; !ok {
		return eligibility.ErrModelNotFound
	}
	m.enabled[enablementKey{e.WorkspaceID, e.ModelID}] = e
	return nil
}

// PutModel adds or replaces a catalog entry.
func (m *Models) PutModel(model eligibility.Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[model.ID] = model
}
