package eligibility

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/audit"
)

const cacheName = "eligibility"

// CacheObserver counts cache lookups. metrics.Collectors satisfies it.
type CacheObserver interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

// Service answers eligibility questions against the catalog and workspace
// enablement state. Callers are expected to have checked workspace
// membership already.
type Service struct {
	repo     Repository
	cache    Cache
	audit    audit.Recorder
	observer CacheObserver
}

// Option configures a Service.
type Option func(*Service)

func WithCacheObserver(o CacheObserver) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a new eligibility Service. A nil cache disables caching.
func NewService(repo Repository, cache Cache, rec audit.Recorder, opts ...Option) *Service {
	s := &Service{repo: repo, cache: cache, audit: rec}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check evaluates one model for a workspace under plan.
func (s *Service) Check(ctx context.Context, tenantID, workspaceID uuid.UUID, modelID string, plan Plan) (*Result, error) {
	if !plan.Valid() {
		return nil, ErrUnknownPlan
	}

	// The generation is read before the database. A result computed from
	// state older than an enablement change lands on a key nobody reads.
	var key string
	if s.cache != nil {
		gen, err := s.cache.Generation(ctx, workspaceID.String())
		if err != nil {
			slog.Warn("eligibility cache unavailable", "workspaceId", workspaceID, "error", err)
		} else {
			key = Key(workspaceID.String(), modelID, plan, gen)
			if r, ok := s.cache.Get(ctx, key); ok {
				s.hit()
				return r, nil
			}
		}
		s.miss()
	}

	m, err := s.repo.GetModel(ctx, modelID)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return nil, err
		}
		return nil, apperr.Internal("failed to load model", err)
	}
	enabled, err := s.repo.IsEnabled(ctx, tenantID, workspaceID, modelID)
	if err != nil {
		return nil, apperr.Internal("failed to load model enablement", err)
	}

	r := CheckModelEligibility(*m, plan, enabled)
	if key != "" {
		s.cache.Set(ctx, key, r)
	}

	slog.Debug("model eligibility computed", "workspaceId", workspaceID, "modelId", modelID, "plan", plan, "eligible", r.Eligible)
	return &r, nil
}

// ListModels annotates every active catalog model for the workspace.
func (s *Service) ListModels(ctx context.Context, tenantID, workspaceID uuid.UUID, plan Plan) ([]ModelStatus, error) {
	models, enabled, err := s.load(ctx, tenantID, workspaceID, plan)
	if err != nil {
		return nil, err
	}
	return Annotate(models, plan, enabled), nil
}

// EligibleModels returns only the models the workspace may use under plan.
func (s *Service) EligibleModels(ctx context.Context, tenantID, workspaceID uuid.UUID, plan Plan) ([]Model, error) {
	models, enabled, err := s.load(ctx, tenantID, workspaceID, plan)
	if err != nil {
		return nil, err
	}
	return FilterEligibleModels(models, plan, enabled), nil
}

func (s *Service) load(ctx context.Context, tenantID, workspaceID uuid.UUID, plan Plan) ([]Model, map[string]bool, error) {
	if !plan.Valid() {
		return nil, nil, ErrUnknownPlan
	}
	models, err := s.repo.ListModels(ctx, true)
	if err != nil {
		return nil, nil, apperr.Internal("failed to list models", err)
	}
	enabled, err := s.repo.EnabledModels(ctx, tenantID, workspaceID)
	if err != nil {
		return nil, nil, apperr.Internal("failed to list enabled models", err)
	}
	return models, enabled, nil
}

// Catalog returns every active model.
func (s *Service) Catalog(ctx context.Context) ([]Model, error) {
	models, err := s.repo.ListModels(ctx, true)
	if err != nil {
		return nil, apperr.Internal("failed to list models", err)
	}
	return models, nil
}

// SetEnabled enables or disables a model for a workspace, then advances the
// workspace's cache generation and drops its cached results.
func (s *Service) SetEnabled(ctx context.Context, tenantID, actorID, workspaceID uuid.UUID, modelID string, enabled bool) error {
	if _, err := s.repo.GetModel(ctx, modelID); err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return err
		}
		return apperr.Internal("failed to load model", err)
	}

	err := s.repo.SetEnabled(ctx, Enablement{
		WorkspaceID: workspaceID,
		TenantID:    tenantID,
		ModelID:     modelID,
		Enabled:     enabled,
		UpdatedBy:   actorID,
	})
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			return err
		}
		return apperr.Internal("failed to update model enablement", err)
	}

	if s.cache != nil {
		if err := s.cache.Advance(ctx, workspaceID.String()); err != nil {
			slog.Error("failed to advance eligibility cache generation", "workspaceId", workspaceID, "error", err)
		}
		if err := s.cache.InvalidatePrefix(ctx, WorkspacePrefix(workspaceID.String())); err != nil {
			slog.Error("failed to invalidate eligibility cache", "workspaceId", workspaceID, "error", err)
		}
	}

	action := audit.ActionModelDisabled
	if enabled {
		action = audit.ActionModelEnabled
	}
	s.audit.Record(ctx, audit.Event{
		TenantID:     tenantID,
		UserID:       &actorID,
		Action:       action,
		ResourceType: "workspace_model",
		ResourceID:   workspaceID.String() + "/" + modelID,
		Details:      map[string]any{"modelId": modelID},
	})
	slog.Info("model enablement changed", "tenantId", tenantID, "workspaceId", workspaceID, "modelId", modelID, "enabled", enabled)
	return nil
}

func (s *Service) hit() {
	if s.observer != nil {
		s.observer.CacheHit(cacheName)
	}
}

func (s *Service) miss() {
	if s.observer != nil {
		s.observer.CacheMiss(cacheName)
	}
}
