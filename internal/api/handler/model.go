package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/api/validation"
	"github.com/daap14/tenantauth/internal/eligibility"
	"github.com/daap14/tenantauth/internal/identity"
)

type modelResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Provider     string `json:"provider"`
	Category     string `json:"category"`
	RequiredPlan string `json:"requiredPlan"`
}

func toModelResponse(m *eligibility.Model) modelResponse {
	return modelResponse{
		ID:           m.ID,
		Name:         m.Name,
		DisplayName:  m.DisplayName,
		Provider:     m.Provider,
		Category:     m.Category,
		RequiredPlan: string(m.RequiredPlan),
	}
}

type modelStatusResponse struct {
	modelResponse
	EnabledForWorkspace bool     `json:"enabledForWorkspace"`
	Eligible            bool     `json:"eligible"`
	Reasons             []string `json:"reasons"`
}

type enablementResponse struct {
	WorkspaceID string `json:"workspaceId"`
	ModelID     string `json:"modelId"`
	Enabled     bool   `json:"enabled"`
}

// ModelHandler handles the model catalog and per-workspace eligibility.
// Workspace routes are mounted behind middleware.RequirePermission.
type ModelHandler struct {
	svc     *eligibility.Service
	tenants *identity.Service
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(svc *eligibility.Service, tenants *identity.Service) *ModelHandler {
	return &ModelHandler{svc: svc, tenants: tenants}
}

// plan reads the caller's plan from their tenant record.
func (h *ModelHandler) plan(r *http.Request) (eligibility.Plan, error) {
	p := middleware.GetPrincipal(r.Context())
	t, err := h.tenants.Tenant(r.Context(), p.TenantID)
	if err != nil {
		return "", err
	}
	return eligibility.ParsePlan(t.Plan)
}

// Catalog handles GET /models.
func (h *ModelHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	models, err := h.svc.Catalog(r.Context())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]modelResponse, 0, len(models))
	for i := range models {
		items = append(items, toModelResponse(&models[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// List handles GET /workspaces/{id}/models.
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	member := middleware.GetMember(r.Context())

	plan, err := h.plan(r)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	statuses, err := h.svc.ListModels(r.Context(), member.TenantID, member.WorkspaceID, plan)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]modelStatusResponse, 0, len(statuses))
	for i := range statuses {
		s := &statuses[i]
		items = append(items, modelStatusResponse{
			modelResponse:       toModelResponse(&s.Model),
			EnabledForWorkspace: s.EnabledForWorkspace,
			Eligible:            s.Eligible,
			Reasons:             s.Reasons,
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Eligible handles GET /workspaces/{id}/models/eligible.
func (h *ModelHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	member := middleware.GetMember(r.Context())

	plan, err := h.plan(r)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	models, err := h.svc.EligibleModels(r.Context(), member.TenantID, member.WorkspaceID, plan)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]modelResponse, 0, len(models))
	for i := range models {
		items = append(items, toModelResponse(&models[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Eligibility handles GET /workspaces/{id}/models/{modelId}/eligibility.
func (h *ModelHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	member := middleware.GetMember(r.Context())

	plan, err := h.plan(r)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	res, err := h.svc.Check(r.Context(), member.TenantID, member.WorkspaceID, chi.URLParam(r, "modelId"), plan)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, res, requestID)
}

// SetEnabled handles PUT /workspaces/{id}/models/{modelId}.
func (h *ModelHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	member := middleware.GetMember(r.Context())
	modelID := chi.URLParam(r, "modelId")

	var req validation.SetModelRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	err := h.svc.SetEnabled(r.Context(), member.TenantID, member.UserID, member.WorkspaceID, modelID, *req.Enabled)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, enablementResponse{
		WorkspaceID: member.WorkspaceID.String(),
		ModelID:     modelID,
		Enabled:     *req.Enabled,
	}, requestID)
}
