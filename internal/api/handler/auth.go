package handler

import (
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/api/response"
	"github.com/daap14/tenantauth/internal/api/validation"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/session"
)

type userResponse struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenantId"`
	Email         string  `json:"email"`
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"emailVerified"`
	Status        string  `json:"status"`
	LastLoginAt   *string `json:"lastLoginAt"`
	CreatedAt     string  `json:"createdAt"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:            u.ID.String(),
		TenantID:      u.TenantID.String(),
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Status:        string(u.Status),
		LastLoginAt:   formatTimePtr(u.LastLoginAt),
		CreatedAt:     formatTime(u.CreatedAt),
	}
}

type tenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	Plan      string `json:"plan"`
	CreatedAt string `json:"createdAt"`
}

func toTenantResponse(t *identity.Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    string(t.Status),
		Plan:      t.Plan,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

type authResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	TokenType    string         `json:"tokenType"`
	ExpiresIn    int            `json:"expiresIn"`
	SessionID    string         `json:"sessionId"`
	User         userResponse   `json:"user"`
	Tenant       tenantResponse `json:"tenant"`
}

func toAuthResponse(res *identity.AuthResult) authResponse {
	return authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    res.ExpiresIn,
		SessionID:    res.SessionID.String(),
		User:         toUserResponse(res.User),
		Tenant:       toTenantResponse(res.Tenant),
	}
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

type meResponse struct {
	User   userResponse   `json:"user"`
	Tenant tenantResponse `json:"tenant"`
}

type sessionResponse struct {
	ID        string  `json:"id"`
	IPAddress *string `json:"ipAddress"`
	UserAgent *string `json:"userAgent"`
	CreatedAt string  `json:"createdAt"`
	ExpiresAt string  `json:"expiresAt"`
	Current   bool    `json:"current"`
}

func toSessionResponse(s *session.Session, current uuid.UUID) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: formatTime(s.CreatedAt),
		ExpiresAt: formatTime(s.ExpiresAt),
		Current:   s.ID == current,
	}
}

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	svc *identity.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.RegisterRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	res, err := h.svc.Register(r.Context(), identity.RegisterInput{
		TenantName: req.TenantName,
		TenantSlug: req.TenantSlug,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		IPAddress:  optionalString(clientAddr(r)),
		UserAgent:  optionalString(r.UserAgent()),
	})
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAuthResponse(res), requestID)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.LoginRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	in := identity.LoginInput{
		TenantSlug: req.TenantSlug,
		Email:      req.Email,
		Password:   req.Password,
		IPAddress:  optionalString(clientAddr(r)),
		UserAgent:  optionalString(r.UserAgent()),
	}
	if req.TenantID != "" {
		id, err := uuid.Parse(req.TenantID)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "tenantId must be a valid UUID", requestID)
			return
		}
		in.TenantID = &id
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toAuthResponse(res), requestID)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.RefreshRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, refreshResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   res.ExpiresIn,
	}, requestID)
}

// Logout handles POST /auth/logout. It revokes the session named in the
// body, or the session the access token belongs to when none is given.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		unauthorized(w, requestID)
		return
	}

	var req validation.LogoutRequest
	if !decodeOptional(w, r, &req, requestID) {
		return
	}
	sessionID := p.SessionID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "sessionId must be a valid UUID", requestID)
			return
		}
		sessionID = id
	}

	if err := h.svc.Logout(r.Context(), sessionID, p.TenantID, p.UserID); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, nil, requestID)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		unauthorized(w, requestID)
		return
	}

	u, t, err := h.svc.Me(r.Context(), p.TenantID, p.UserID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, meResponse{
		User:   toUserResponse(u),
		Tenant: toTenantResponse(t),
	}, requestID)
}

// ChangePassword handles POST /auth/password. Every session of the caller,
// including the current one, is revoked on success.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		unauthorized(w, requestID)
		return
	}

	var req validation.ChangePasswordRequest
	if !decodeAndValidate(w, r, &req, requestID) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), p.TenantID, p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.NoContent(w)
}

// Sessions handles GET /auth/sessions.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		unauthorized(w, requestID)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), p.TenantID, p.UserID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSessionResponse(&sessions[i], p.SessionID))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// clientAddr is the caller's address as normalised by chi's RealIP.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
