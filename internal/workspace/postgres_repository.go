package workspace

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

const memberColumns = `m.workspace_id, m.user_id, m.tenant_id, m.role, m.invited_by, m.joined_at`

func scanMember(row pgx.Row, m *Member) error {
	return row.Scan(&m.WorkspaceID, &m.UserID, &m.TenantID, &m.Role, &m.InvitedBy, &m.JoinedAt)
}

func scanWorkspace(row pgx.Row, w *Workspace) error {
	return row.Scan(&w.ID, &w.TenantID, &w.Name, &w.Slug, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt)
}

// CreateWorkspace inserts the workspace and its creator as owner.
func (r *PostgresRepository) CreateWorkspace(ctx context.Context, w *Workspace, owner *Member) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO workspaces (tenant_id, name, slug, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			w.TenantID, w.Name, w.Slug, w.CreatedBy,
		).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "workspaces_tenant_slug_key") {
				return ErrDuplicateSlug
			}
			return fmt.Errorf("inserting workspace: %w", err)
		}

		owner.WorkspaceID = w.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, tenant_id, role)
			VALUES ($1, $2, $3, $4)
			RETURNING joined_at`,
			owner.WorkspaceID, owner.UserID, owner.TenantID, owner.Role,
		).Scan(&owner.JoinedAt)
		if err != nil {
			return fmt.Errorf("inserting owner membership: %w", err)
		}
		return nil
	})
}

// GetWorkspace retrieves a non-deleted workspace.
func (r *PostgresRepository) GetWorkspace(ctx context.Context, tenantID, workspaceID uuid.UUID) (*Workspace, error) {
	query := `
		SELECT id, tenant_id, name, slug, created_by, created_at, updated_at, deleted_at
		FROM workspaces
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	var w Workspace
	if err := scanWorkspace(r.pool.QueryRow(ctx, query, tenantID, workspaceID), &w); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("querying workspace: %w", err)
	}
	return &w, nil
}

// ListWorkspacesForUser returns the workspaces a user belongs to.
func (r *PostgresRepository) ListWorkspacesForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Workspace, error) {
	query := `
		SELECT w.id, w.tenant_id, w.name, w.slug, w.created_by, w.created_at, w.updated_at, w.deleted_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE w.tenant_id = $1 AND m.user_id = $2 AND w.deleted_at IS NULL
		ORDER BY w.created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	workspaces := []Workspace{}
	for rows.Next() {
		var w Workspace
		if err := scanWorkspace(rows, &w); err != nil {
			return nil, fmt.Errorf("scanning workspace row: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspace rows: %w", err)
	}
	return workspaces, nil
}

// SoftDeleteWorkspace sets deleted_at. Rows are kept.
func (r *PostgresRepository) SoftDeleteWorkspace(ctx context.Context, tenantID, workspaceID uuid.UUID) error {
	query := `
		UPDATE workspaces
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	result, err := r.pool.Exec(ctx, query, tenantID, workspaceID)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// GetMember retrieves a membership in a non-deleted workspace.
func (r *PostgresRepository) GetMember(ctx context.Context, tenantID, workspaceID, userID uuid.UUID) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.tenant_id = $1 AND m.workspace_id = $2 AND m.user_id = $3 AND w.deleted_at IS NULL`

	var m Member
	if err := scanMember(r.pool.QueryRow(ctx, query, tenantID, workspaceID, userID), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("querying member: %w", err)
	}
	return &m, nil
}

// ListMembers returns all members of a workspace ordered by join time.
func (r *PostgresRepository) ListMembers(ctx context.Context, tenantID, workspaceID uuid.UUID) ([]Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM workspace_members m
		WHERE m.tenant_id = $1 AND m.workspace_id = $2
		ORDER BY m.joined_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := scanMember(rows, &m); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// lockForMutation locks the workspace's owner rows and the target row and
// returns the target with the owner count. Concurrent demotions serialize on
// the owner rows, so the second one sees the first one's result.
func lockForMutation(ctx context.Context, tx pgx.Tx, tenantID, workspaceID, userID uuid.UUID) (*Member, int, error) {
	rows, err := tx.Query(ctx, `
		SELECT user_id
		FROM workspace_members
		WHERE tenant_id = $1 AND workspace_id = $2 AND role = 'owner'
		FOR UPDATE`, tenantID, workspaceID)
	if err != nil {
		return nil, 0, fmt.Errorf("locking owners: %w", err)
	}
	owners := 0
	for rows.Next() {
		owners++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating owner rows: %w", err)
	}

	var target Member
	err = scanMember(tx.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.tenant_id = $1 AND m.workspace_id = $2 AND m.user_id = $3 AND w.deleted_at IS NULL
		FOR UPDATE OF m`, tenantID, workspaceID, userID), &target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrMemberNotFound
		}
		return nil, 0, fmt.Errorf("locking member: %w", err)
	}
	return &target, owners, nil
}

// UpdateMemberRole changes a member's role after guard approves it.
func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, tenantID, workspaceID, userID uuid.UUID, role Role, guard Guard) (*Member, error) {
	var updated *Member
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		target, owners, err := lockForMutation(ctx, tx, tenantID, workspaceID, userID)
		if err != nil {
			return err
		}
		if err := guard(target, owners); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE workspace_members
			SET role = $4
			WHERE tenant_id = $1 AND workspace_id = $2 AND user_id = $3`,
			tenantID, workspaceID, userID, role)
		if err != nil {
			return fmt.Errorf("updating member role: %w", err)
		}
		target.Role = role
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveMember deletes a membership after guard approves it.
func (r *PostgresRepository) RemoveMember(ctx context.Context, tenantID, workspaceID, userID uuid.UUID, guard Guard) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		target, owners, err := lockForMutation(ctx, tx, tenantID, workspaceID, userID)
		if err != nil {
			return err
		}
		if err := guard(target, owners); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM workspace_members
			WHERE tenant_id = $1 AND workspace_id = $2 AND user_id = $3`,
			tenantID, workspaceID, userID)
		if err != nil {
			return fmt.Errorf("deleting member: %w", err)
		}
		return nil
	})
}

// CreateInvite inserts a pending invite.
func (r *PostgresRepository) CreateInvite(ctx context.Context, inv *Invite) error {
	query := `
		INSERT INTO workspace_invites (workspace_id, tenant_id, email, role, token_hash, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		inv.WorkspaceID, inv.TenantID, inv.Email, inv.Role, inv.TokenHash, inv.InvitedBy, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("inserting invite: %w", err)
	}
	return nil
}

// ListPendingInvites returns unaccepted, unexpired invites.
func (r *PostgresRepository) ListPendingInvites(ctx context.Context, tenantID, workspaceID uuid.UUID, now time.Time) ([]Invite, error) {
	query := `
		SELECT id, workspace_id, tenant_id, email, role, token_hash, invited_by, expires_at, accepted_at, created_at
		FROM workspace_invites
		WHERE tenant_id = $1 AND workspace_id = $2 AND accepted_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	defer rows.Close()

	invites := []Invite{}
	for rows.Next() {
		var inv Invite
		err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.TenantID, &inv.Email, &inv.Role,
			&inv.TokenHash, &inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning invite row: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invite rows: %w", err)
	}
	return invites, nil
}

// AcceptInvite consumes an invite and creates the membership.
func (r *PostgresRepository) AcceptInvite(ctx context.Context, tokenHash string, tenantID, userID uuid.UUID, email string, now time.Time) (*Member, error) {
	var member *Member
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inv Invite
		err := tx.QueryRow(ctx, `
			SELECT i.id, i.workspace_id, i.role, i.invited_by
			FROM workspace_invites i
			JOIN workspaces w ON w.id = i.workspace_id
			WHERE i.token_hash = $1 AND i.tenant_id = $2 AND i.email = $3
			  AND i.accepted_at IS NULL AND i.expires_at > $4 AND w.deleted_at IS NULL
			FOR UPDATE OF i`,
			tokenHash, tenantID, email, now,
		).Scan(&inv.ID, &inv.WorkspaceID, &inv.Role, &inv.InvitedBy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("resolving invite: %w", err)
		}

		m := &Member{
			WorkspaceID: inv.WorkspaceID,
			UserID:      userID,
			TenantID:    tenantID,
			Role:        inv.Role,
			InvitedBy:   &inv.InvitedBy,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, tenant_id, role, invited_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING joined_at`,
			m.WorkspaceID, m.UserID, m.TenantID, m.Role, m.InvitedBy,
		).Scan(&m.JoinedAt)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return ErrAlreadyMember
			}
			return fmt.Errorf("inserting member: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE workspace_invites SET accepted_at = $2 WHERE id = $1`, inv.ID, now)
		if err != nil {
			return fmt.Errorf("marking invite accepted: %w", err)
		}

		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// DeleteExpiredInvites purges unaccepted invites that expired before the cutoff.
func (r *PostgresRepository) DeleteExpiredInvites(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_invites WHERE accepted_at IS NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired invites: %w", err)
	}
	return result.RowsAffected(), nil
}
