package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/database/dbtest"
	"github.com/daap14/tenantauth/internal/identity"
)

func setupRepo(t *testing.T) (identity.Repository, *pgxpool.Pool) {
	t.Helper()
	pool := dbtest.Open(t)
	return identity.NewRepository(pool), pool
}

func newTenantAndOwner(slug, email string) (*identity.Tenant, *identity.User) {
	return &identity.Tenant{Name: slug, Slug: slug, Status: identity.StatusActive, Plan: "free"},
		&identity.User{Email: email, PasswordHash: "scrypt:00:00", Role: identity.RoleOwner, Status: identity.StatusActive}
}

func TestCreateTenantWithOwner_Success(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	tenant, owner := newTenantAndOwner("acme", "a@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, tenant, owner))

	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, tenant.ID, owner.TenantID)

	got, err := repo.FindUserByEmail(ctx, tenant.ID, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
	assert.Equal(t, identity.RoleOwner, got.Role)
	assert.Equal(t, identity.StatusActive, got.Status)
}

func TestCreateTenantWithOwner_DuplicateSlugLeavesNoUser(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	tenant, owner := newTenantAndOwner("acme", "a@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, tenant, owner))

	tenant2, owner2 := newTenantAndOwner("acme", "b@x.com")
	err := repo.CreateTenantWithOwner(ctx, tenant2, owner2)
	assert.ErrorIs(t, err, identity.ErrDuplicateSlug)

	var users int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users))
	assert.Equal(t, 1, users)
}

func TestCreateTenantWithOwner_UserFailureRollsBackTenant(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	tenant, owner := newTenantAndOwner("acme", "a@x.com")
	owner.Role = "superuser" // violates the role check constraint

	err := repo.CreateTenantWithOwner(ctx, tenant, owner)
	require.Error(t, err)

	var tenants int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&tenants))
	assert.Equal(t, 0, tenants)
}

func TestGetTenantBySlug_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.GetTenantBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, identity.ErrTenantNotFound)
}

func TestGetUserByID_TenantScoped(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	tenant, owner := newTenantAndOwner("acme", "a@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, tenant, owner))
	other, otherOwner := newTenantAndOwner("beta", "b@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, other, otherOwner))

	_, err := repo.GetUserByID(ctx, other.ID, owner.ID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	got, err := repo.GetUserByID(ctx, tenant.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestFindUsersByEmail_SkipsSuspendedTenants(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	a, aOwner := newTenantAndOwner("acme", "same@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, a, aOwner))
	b, bOwner := newTenantAndOwner("beta", "same@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, b, bOwner))

	users, err := repo.FindUsersByEmail(ctx, "same@x.com", 5)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = pool.Exec(ctx, `UPDATE tenants SET status = 'suspended' WHERE id = $1`, b.ID)
	require.NoError(t, err)

	users, err = repo.FindUsersByEmail(ctx, "same@x.com", 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, a.ID, users[0].TenantID)
}

func TestUpdateLastLoginAndPassword(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	tenant, owner := newTenantAndOwner("acme", "a@x.com")
	require.NoError(t, repo.CreateTenantWithOwner(ctx, tenant, owner))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, tenant.ID, owner.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, tenant.ID, owner.ID, "scrypt:11:22"))

	got, err := repo.GetUserByID(ctx, tenant.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
	assert.Equal(t, "scrypt:11:22", got.PasswordHash)

	err = repo.UpdatePasswordHash(ctx, uuid.New(), owner.ID, "x")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
