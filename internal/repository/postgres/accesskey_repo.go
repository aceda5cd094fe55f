package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// accessKeyRepository implements repository.AccessKeyRepository for PostgreSQL.
type accessKeyRepository struct {
	db *DB
}

// NewAccessKeyRepository creates a new PostgreSQL access key repository.
func NewAccessKeyRepository(db *DB) repository.AccessKeyRepository {
	return &accessKeyRepository{db: db}
}

// Create inserts a new access key. The unique index on secret_hash makes
// duplicate detection atomic with the insert.
func (r *accessKeyRepository) Create(ctx context.Context, key *domain.AccessKey) error {
	query := `
		INSERT INTO access_keys (id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		key.ID,
		key.Name,
		key.SecretHash,
		key.DisplayPrefix,
		key.CreatedBy,
		string(key.Permissions),
		key.CreatedAt,
		key.ExpiresAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSecretHash
		}
		return fmt.Errorf("failed to create access key: %w", err)
	}

	return nil
}

// GetByID retrieves an access key by ID.
func (r *accessKeyRepository) GetByID(ctx context.Context, id string) (*domain.AccessKey, error) {
	query := `
		SELECT id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at, revoked_at
		FROM access_keys
		WHERE id = $1
	`

	key := &domain.AccessKey{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&key.ID,
		&key.Name,
		&key.SecretHash,
		&key.DisplayPrefix,
		&key.CreatedBy,
		&key.Permissions,
		&key.CreatedAt,
		&key.ExpiresAt,
		&key.RevokedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get access key: %w", err)
	}

	return key, nil
}

// GetByHash retrieves an access key by secret hash.
func (r *accessKeyRepository) GetByHash(ctx context.Context, secretHash string) (*domain.AccessKey, error) {
	query := `
		SELECT id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at, revoked_at
		FROM access_keys
		WHERE secret_hash = $1
	`

	key := &domain.AccessKey{}
	err := r.db.Pool.QueryRow(ctx, query, secretHash).Scan(
		&key.ID,
		&key.Name,
		&key.SecretHash,
		&key.DisplayPrefix,
		&key.CreatedBy,
		&key.Permissions,
		&key.CreatedAt,
		&key.ExpiresAt,
		&key.RevokedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get access key by hash: %w", err)
	}

	return key, nil
}

// List returns all access keys, newest first.
func (r *accessKeyRepository) List(ctx context.Context) ([]*domain.AccessKey, error) {
	query := `
		SELECT id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at, revoked_at
		FROM access_keys
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}
	defer rows.Close()

	var keys []*domain.AccessKey
	for rows.Next() {
		key := &domain.AccessKey{}
		err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.SecretHash,
			&key.DisplayPrefix,
			&key.CreatedBy,
			&key.Permissions,
			&key.CreatedAt,
			&key.ExpiresAt,
			&key.RevokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access keys: %w", err)
	}

	return keys, nil
}

// Revoke sets revoked_at if not already set. The guard in the WHERE clause
// keeps revocation idempotent and the original timestamp terminal.
func (r *accessKeyRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE access_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke access key: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either already revoked (success, idempotent) or unknown ID.
		var exists int
		err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM access_keys WHERE id = $1`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check access key existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrKeyNotFound
		}
	}

	return nil
}

// Ensure accessKeyRepository implements repository.AccessKeyRepository.
var _ repository.AccessKeyRepository = (*accessKeyRepository)(nil)
