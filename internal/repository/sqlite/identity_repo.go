package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// identityRepository implements repository.IdentityRepository for SQLite.
type identityRepository struct {
	db *DB
}

// NewIdentityRepository creates a new SQLite identity repository.
func NewIdentityRepository(db *DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

// Create registers a new identity. The role is decided inside the INSERT:
// the first identity ever registered becomes admin so the system is never
// left without an administrator. The scalar subquery and the insert are one
// statement, so concurrent registrations cannot both claim the bootstrap slot.
func (r *identityRepository) Create(ctx context.Context, username string) (*domain.Identity, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO identities (username, role, created_at, updated_at)
		VALUES (?, CASE WHEN (SELECT COUNT(*) FROM identities) = 0 THEN 'admin' ELSE 'user' END, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		username,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrIdentityAlreadyExists
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	var role string
	err = r.db.QueryRowContext(ctx, `SELECT role FROM identities WHERE id = ?`, id).Scan(&role)
	if err != nil {
		return nil, fmt.Errorf("failed to read back identity role: %w", err)
	}

	return &domain.Identity{
		ID:        id,
		Username:  username,
		Role:      domain.Role(role),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByUsername retrieves an identity by username.
func (r *identityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	query := `
		SELECT id, username, role, created_at, updated_at
		FROM identities
		WHERE username = ?
	`

	identity := &domain.Identity{}
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&identity.ID,
		&identity.Username,
		&identity.Role,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity by username: %w", err)
	}

	identity.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	identity.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return identity, nil
}

// UpdateRole sets the role for an identity.
func (r *identityRepository) UpdateRole(ctx context.Context, username string, role domain.Role) error {
	query := `UPDATE identities SET role = ?, updated_at = ? WHERE username = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(role),
		time.Now().UTC().Format(time.RFC3339),
		username,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

// Count returns the number of registered identities.
func (r *identityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count identities: %w", err)
	}
	return count, nil
}

// Ensure identityRepository implements repository.IdentityRepository.
var _ repository.IdentityRepository = (*identityRepository)(nil)
