package handler

import (
	"net/http"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/api/validation"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/workspace"
)

type workspaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toWorkspaceResponse(ws *workspace.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:        ws.ID.String(),
		Name:      ws.Name,
		Slug:      ws.Slug,
		CreatedBy: ws.CreatedBy.String(),
		CreatedAt: formatTime(ws.CreatedAt),
		UpdatedAt: formatTime(ws.UpdatedAt),
	}
}

type memberResponse struct {
	WorkspaceID string  `json:"workspaceId"`
	UserID      string  `json:"userId"`
	Role        string  `json:"role"`
	InvitedBy   *string `json:"invitedBy"`
	JoinedAt    string  `json:"joinedAt"`
}

func toMemberResponse(m *workspace.Member) memberResponse {
	var invitedBy *string
	if m.InvitedBy != nil {
		s := m.InvitedBy.String()
		invitedBy = &s
	}
	return memberResponse{
		WorkspaceID: m.WorkspaceID.String(),
		UserID:      m.UserID.String(),
		Role:        string(m.Role),
		InvitedBy:   invitedBy,
		JoinedAt:    formatTime(m.JoinedAt),
	}
}

type inviteResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	InvitedBy   string `json:"invitedBy"`
	ExpiresAt   string `json:"expiresAt"`
	CreatedAt   string `json:"createdAt"`
}

func toInviteResponse(inv *workspace.Invite) inviteResponse {
	return inviteResponse{
		ID:          inv.ID.String(),
		WorkspaceID: inv.WorkspaceID.String(),
		Email:       inv.Email,
		Role:        string(inv.Role),
		InvitedBy:   inv.InvitedBy.String(),
		ExpiresAt:   formatTime(inv.ExpiresAt),
		CreatedAt:   formatTime(inv.CreatedAt),
	}
}

// createdInviteResponse is the only place the raw invite token appears.
type createdInviteResponse struct {
	Invite inviteResponse `json:"invite"`
	Token  string         `json:"token"`
}

// WorkspaceHandler handles workspace, membership and invitation endpoints.
type WorkspaceHandler struct {
	authority *workspace.Authority
	users     *identity.Service
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(authority *workspace.Authority, users *identity.Service) *WorkspaceHandler {
	return &WorkspaceHandler{authority: authority, users: users}
}

// Create handles POST /workspaces.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}

	var req validation.CreateWorkspaceRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	ws, err := h.authority.CreateWorkspace(r.Context(), a, workspace.CreateWorkspaceInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toWorkspaceResponse(ws), requestID)
}

// List handles GET /workspaces. Only workspaces the caller belongs to are
// returned.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}

	workspaces, err := h.authority.ListWorkspaces(r.Context(), a)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]workspaceResponse, 0, len(workspaces))
	for i := range workspaces {
		items = append(items, toWorkspaceResponse(&workspaces[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /workspaces/{id}.
func (h *WorkspaceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}

	ws, err := h.authority.GetWorkspace(r.Context(), a, id)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toWorkspaceResponse(ws), requestID)
}

// Delete handles DELETE /workspaces/{id}.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}

	if err := h.authority.DeleteWorkspace(r.Context(), a, id); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.NoContent(w)
}

// ListMembers handles GET /workspaces/{id}/members.
func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}

	members, err := h.authority.ListMembers(r.Context(), a, id)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for i := range members {
		items = append(items, toMemberResponse(&members[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// ChangeRole handles PATCH /workspaces/{id}/members/{userId}.
func (h *WorkspaceHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userId", requestID)
	if !ok {
		return
	}

	var req validation.ChangeRoleRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	m, err := h.authority.ChangeRole(r.Context(), a, id, userID, workspace.Role(req.Role))
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toMemberResponse(m), requestID)
}

// RemoveMember handles DELETE /workspaces/{id}/members/{userId}. Members
// may always remove themselves unless they are the last owner.
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userId", requestID)
	if !ok {
		return
	}

	if err := h.authority.RemoveMember(r.Context(), a, id, userID); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.NoContent(w)
}

// CreateInvite handles POST /workspaces/{id}/invites.
func (h *WorkspaceHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}

	var req validation.InviteRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	res, err := h.authority.Invite(r.Context(), a, id, workspace.InviteInput{
		Email: req.Email,
		Role:  workspace.Role(req.Role),
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, createdInviteResponse{
		Invite: toInviteResponse(res.Invite),
		Token:  res.Token,
	}, requestID)
}

// ListInvites handles GET /workspaces/{id}/invites.
func (h *WorkspaceHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}
	id, ok := uuidParam(w, r, "id", requestID)
	if !ok {
		return
	}

	invites, err := h.authority.ListPendingInvites(r.Context(), a, id)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]inviteResponse, 0, len(invites))
	for i := range invites {
		items = append(items, toInviteResponse(&invites[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// AcceptInvite handles POST /invites/accept. The invite must have been
// addressed to the caller's email.
func (h *WorkspaceHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	a, ok := actor(r)
	if !ok {
		unauthorized(w, requestID)
		return
	}

	var req validation.AcceptInviteRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	u, _, err := h.users.Me(r.Context(), a.TenantID, a.UserID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	m, err := h.authority.AcceptInvitation(r.Context(), a, u.Email, req.Token)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toMemberResponse(m), requestID)
}
