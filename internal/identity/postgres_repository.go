package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name, role,
		       email_verified, status, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.EmailVerified, &u.Status, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
}

func scanTenant(row pgx.Row, t *Tenant) error {
	return row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.Plan, &t.CreatedAt, &t.UpdatedAt)
}

// CreateTenantWithOwner inserts the tenant and its first user atomically.
func (r *PostgresRepository) CreateTenantWithOwner(ctx context.Context, t *Tenant, owner *User) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tenants (name, slug, status, plan)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			t.Name, t.Slug, t.Status, t.Plan,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "tenants_slug_key") {
				return ErrDuplicateSlug
			}
			return fmt.Errorf("inserting tenant: %w", err)
		}

		owner.TenantID = t.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO users (tenant_id, email, password_hash, first_name, last_name, role, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, email_verified, created_at, updated_at`,
			owner.TenantID, owner.Email, owner.PasswordHash, owner.FirstName, owner.LastName,
			owner.Role, owner.Status,
		).Scan(&owner.ID, &owner.EmailVerified, &owner.CreatedAt, &owner.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "users_tenant_email_key") {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("inserting owner user: %w", err)
		}
		return nil
	})
}

// GetTenantByID retrieves a tenant by its UUID.
func (r *PostgresRepository) GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, name, slug, status, plan, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t Tenant
	if err := scanTenant(r.pool.QueryRow(ctx, query, id), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return &t, nil
}

// GetTenantBySlug retrieves a tenant by its unique slug.
func (r *PostgresRepository) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	query := `
		SELECT id, name, slug, status, plan, created_at, updated_at
		FROM tenants
		WHERE slug = $1`

	var t Tenant
	if err := scanTenant(r.pool.QueryRow(ctx, query, slug), &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("querying tenant by slug: %w", err)
	}
	return &t, nil
}

// GetUserByID retrieves a user scoped to its tenant.
func (r *PostgresRepository) GetUserByID(ctx context.Context, tenantID, userID uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND id = $2`

	var u User
	if err := scanUser(r.pool.QueryRow(ctx, query, tenantID, userID), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// FindUserByEmail retrieves a user by email within one tenant.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE tenant_id = $1 AND email = $2`

	var u User
	if err := scanUser(r.pool.QueryRow(ctx, query, tenantID, email), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return &u, nil
}

// FindUsersByEmail returns up to limit active users with the given email
// across all active tenants.
func (r *PostgresRepository) FindUsersByEmail(ctx context.Context, email string, limit int) ([]User, error) {
	query := `
		SELECT u.id, u.tenant_id, u.email, u.password_hash, u.first_name, u.last_name, u.role,
		       u.email_verified, u.status, u.last_login_at, u.created_at, u.updated_at
		FROM users u
		JOIN tenants t ON t.id = u.tenant_id
		WHERE u.email = $1 AND u.status = 'active' AND t.status = 'active'
		ORDER BY u.created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("finding users by email: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateLastLogin records a successful login.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.pool.Exec(ctx, query, tenantID, userID, at)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a user's stored credential hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, tenantID, userID uuid.UUID, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.pool.Exec(ctx, query, tenantID, userID, hash)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
