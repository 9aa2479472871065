package eligibility_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/database/dbtest"
	"github.com/daap14/tenantauth/internal/eligibility"
)

type repoFixture struct {
	repo   eligibility.Repository
	pool   *pgxpool.Pool
	tenant uuid.UUID
	user   uuid.UUID
	ws     uuid.UUID
}

func setupRepo(t *testing.T) *repoFixture {
	t.Helper()
	pool := dbtest.Open(t)
	ctx := context.Background()

	f := &repoFixture{repo: eligibility.NewRepository(pool), pool: pool}
	f.tenant = dbtest.CreateTenant(t, pool, "acme", "pro")
	f.user = dbtest.CreateUser(t, pool, f.tenant, "a@x.com")
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO workspaces (tenant_id, name, slug, created_by) VALUES ($1, 'W', 'w', $2) RETURNING id`,
		f.tenant, f.user,
	).Scan(&f.ws))

	_, err := pool.Exec(ctx, `
		INSERT INTO models (id, name, display_name, provider, required_plan, is_active) VALUES
			('gpt-mini', 'gpt-mini', 'GPT Mini', 'openai', 'free', TRUE),
			('opus', 'opus', 'Opus', 'anthropic', 'paygo', TRUE),
			('legacy', 'legacy', 'Legacy', 'openai', 'free', FALSE)`)
	require.NoError(t, err)
	return f
}

func TestPostgresListModels(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()

	active, err := f.repo.ListModels(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "gpt-mini", active[0].ID)
	assert.Equal(t, eligibility.PlanPayGo, active[1].RequiredPlan)

	all, err := f.repo.ListModels(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostgresGetModel_NotFound(t *testing.T) {
	f := setupRepo(t)

	_, err := f.repo.GetModel(context.Background(), "nope")
	assert.ErrorIs(t, err, eligibility.ErrModelNotFound)
}

func TestPostgresSetEnabled_Upsert(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()

	enabled, err := f.repo.IsEnabled(ctx, f.tenant, f.ws, "gpt-mini")
	require.NoError(t, err)
	assert.False(t, enabled, "missing row means disabled")

	e := eligibility.Enablement{WorkspaceID: f.ws, TenantID: f.tenant, ModelID: "gpt-mini", Enabled: true, UpdatedBy: f.user}
	require.NoError(t, f.repo.SetEnabled(ctx, e))

	enabled, err = f.repo.IsEnabled(ctx, f.tenant, f.ws, "gpt-mini")
	require.NoError(t, err)
	assert.True(t, enabled)

	set, err := f.repo.EnabledModels(ctx, f.tenant, f.ws)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"gpt-mini": true}, set)

	e.Enabled = false
	require.NoError(t, f.repo.SetEnabled(ctx, e))

	enabled, err = f.repo.IsEnabled(ctx, f.tenant, f.ws, "gpt-mini")
	require.NoError(t, err)
	assert.False(t, enabled)

	var rows int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workspace_models`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestPostgresSetEnabled_UnknownModel(t *testing.T) {
	f := setupRepo(t)

	err := f.repo.SetEnabled(context.Background(), eligibility.Enablement{
		WorkspaceID: f.ws, TenantID: f.tenant, ModelID: "nope", Enabled: true, UpdatedBy: f.user,
	})
	assert.ErrorIs(t, err, eligibility.ErrModelNotFound)
}

func TestPostgresIsEnabled_TenantScoped(t *testing.T) {
	f := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, f.repo.SetEnabled(ctx, eligibility.Enablement{
		WorkspaceID: f.ws, TenantID: f.tenant, ModelID: "gpt-mini", Enabled: true, UpdatedBy: f.user,
	}))

	enabled, err := f.repo.IsEnabled(ctx, uuid.New(), f.ws, "gpt-mini")
	require.NoError(t, err)
	assert.False(t, enabled)
}
