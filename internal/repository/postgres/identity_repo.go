package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// identityRepository implements repository.IdentityRepository for PostgreSQL.
type identityRepository struct {
	db *DB
}

// identityBootstrapLockID keys the advisory lock serializing registrations.
const identityBootstrapLockID = 0x63726564_0001 // "cred", lock 1

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(db *DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

// Create registers a new identity. The role is decided inside the INSERT:
// the first identity ever registered becomes admin so the system is never
// left without an administrator.
//
// Under READ COMMITTED two concurrent first registrations would each see
// COUNT(*) = 0 and both claim the admin slot, so the insert runs in a
// transaction holding an advisory lock that serializes registrations.
func (r *identityRepository) Create(ctx context.Context, username string) (*domain.Identity, error) {
	now := time.Now().UTC()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(identityBootstrapLockID)); err != nil {
		return nil, fmt.Errorf("failed to acquire registration lock: %w", err)
	}

	query := `
		INSERT INTO identities (username, role, created_at, updated_at)
		VALUES ($1, CASE WHEN (SELECT COUNT(*) FROM identities) = 0 THEN 'admin' ELSE 'user' END, $2, $3)
		RETURNING id, role
	`

	identity := &domain.Identity{
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = tx.QueryRow(ctx, query, username, now, now).Scan(&identity.ID, &identity.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdentityAlreadyExists
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit identity: %w", err)
	}

	return identity, nil
}

// GetByUsername retrieves an identity by username.
func (r *identityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	query := `
		SELECT id, username, role, created_at, updated_at
		FROM identities
		WHERE username = $1
	`

	identity := &domain.Identity{}
	err := r.db.Pool.QueryRow(ctx, query, username).Scan(
		&identity.ID,
		&identity.Username,
		&identity.Role,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity by username: %w", err)
	}

	return identity, nil
}

// UpdateRole sets the role for an identity.
func (r *identityRepository) UpdateRole(ctx context.Context, username string, role domain.Role) error {
	query := `UPDATE identities SET role = $1, updated_at = $2 WHERE username = $3`

	result, err := r.db.Pool.Exec(ctx, query, string(role), time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

// Count returns the number of registered identities.
func (r *identityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count identities: %w", err)
	}
	return count, nil
}

// Ensure identityRepository implements repository.IdentityRepository.
var _ repository.IdentityRepository = (*identityRepository)(nil)
