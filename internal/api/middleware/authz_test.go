package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/memstore"
	"github.com/daap14/tenantauth/internal/workspace"
)

type authzFixture struct {
	authority *workspace.Authority
	repo      *memstore.Workspaces
	tenantID  uuid.UUID
	ws        *workspace.Workspace
	owner     uuid.UUID
}

func setupAuthz(t *testing.T) *authzFixture {
	t.Helper()
	f := &authzFixture{
		repo:     memstore.NewWorkspaces(nil),
		tenantID: uuid.New(),
		owner:    uuid.New(),
	}
	f.authority = workspace.NewAuthority(f.repo, memstore.NewAuditLog())

	ws, err := f.authority.CreateWorkspace(context.Background(),
		workspace.Actor{TenantID: f.tenantID, UserID: f.owner},
		workspace.CreateWorkspaceInput{Name: "Research", Slug: "research"})
	require.NoError(t, err)
	f.ws = ws
	return f
}

// serve mounts the middleware under a chi route so {id} resolves.
func (f *authzFixture) serve(p workspace.Permission, principal *identity.Principal, workspaceID string) (*httptest.ResponseRecorder, *workspace.Member) {
	var member *workspace.Member
	r := chi.NewRouter()
	r.With(middleware.RequirePermission(f.authority, p)).Get("/workspaces/{id}/models", func(w http.ResponseWriter, r *http.Request) {
		member = middleware.GetMember(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/workspaces/"+workspaceID+"/models", nil)
	if principal != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, member
}

func (f *authzFixture) principal(userID uuid.UUID) *identity.Principal {
	return &identity.Principal{UserID: userID, TenantID: f.tenantID, SessionID: uuid.New()}
}

func TestRequirePermission_OwnerAllowed(t *testing.T) {
	f := setupAuthz(t)

	w, member := f.serve(workspace.PermWorkspaceUpdate, f.principal(f.owner), f.ws.ID.String())

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, member)
	assert.Equal(t, workspace.RoleOwner, member.Role)
	assert.Equal(t, f.ws.ID, member.WorkspaceID)
}

func TestRequirePermission_ViewerLacksPermission(t *testing.T) {
	f := setupAuthz(t)
	viewer := uuid.New()
	f.repo.AddMember(workspace.Member{WorkspaceID: f.ws.ID, UserID: viewer, TenantID: f.tenantID, Role: workspace.RoleViewer})

	w, _ := f.serve(workspace.PermWorkspaceUpdate, f.principal(viewer), f.ws.ID.String())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", errorCode(t, w))

	w, _ = f.serve(workspace.PermModelView, f.principal(viewer), f.ws.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_NonMember(t *testing.T) {
	f := setupAuthz(t)

	w, _ := f.serve(workspace.PermModelView, f.principal(uuid.New()), f.ws.ID.String())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_A_MEMBER", errorCode(t, w))
}

func TestRequirePermission_OtherTenantSeesNoMembership(t *testing.T) {
	f := setupAuthz(t)
	intruder := &identity.Principal{UserID: f.owner, TenantID: uuid.New(), SessionID: uuid.New()}

	w, _ := f.serve(workspace.PermModelView, intruder, f.ws.ID.String())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermission_InvalidID(t *testing.T) {
	f := setupAuthz(t)

	w, _ := f.serve(workspace.PermModelView, f.principal(f.owner), "not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))
}

func TestRequirePermission_NoPrincipal(t *testing.T) {
	f := setupAuthz(t)

	w, _ := f.serve(workspace.PermModelView, nil, f.ws.ID.String())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
