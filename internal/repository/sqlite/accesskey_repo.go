package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// accessKeyRepository implements repository.AccessKeyRepository for SQLite.
type accessKeyRepository struct {
	db *DB
}

// NewAccessKeyRepository creates a new SQLite access key repository.
func NewAccessKeyRepository(db *DB) repository.AccessKeyRepository {
	return &accessKeyRepository{db: db}
}

// Create inserts a new access key. The unique index on secret_hash makes
// duplicate detection atomic with the insert.
func (r *accessKeyRepository) Create(ctx context.Context, key *domain.AccessKey) error {
	query := `
		INSERT INTO access_keys (id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var expiresAt sql.NullString
	if key.ExpiresAt != nil {
		expiresAt = sql.NullString{String: key.ExpiresAt.Format(time.RFC3339), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.Name,
		key.SecretHash,
		key.DisplayPrefix,
		key.CreatedBy,
		key.Permissions,
		key.CreatedAt.Format(time.RFC3339),
		expiresAt,
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
		WHERE id = ?
	`
	return r.scanAccessKey(r.db.QueryRowContext(ctx, query, id))
}

// GetByHash retrieves an access key by secret hash.
// The unique index makes this an O(1) lookup.
func (r *accessKeyRepository) GetByHash(ctx context.Context, secretHash string) (*domain.AccessKey, error) {
	query := `
		SELECT id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at, revoked_at
		FROM access_keys
		WHERE secret_hash = ?
	`
	return r.scanAccessKey(r.db.QueryRowContext(ctx, query, secretHash))
}

// scanAccessKey scans a single access key row.
func (r *accessKeyRepository) scanAccessKey(row *sql.Row) (*domain.AccessKey, error) {
	key := &domain.AccessKey{}
	var createdAt string
	var expiresAt, revokedAt sql.NullString

	err := row.Scan(
		&key.ID,
		&key.Name,
		&key.SecretHash,
		&key.DisplayPrefix,
		&key.CreatedBy,
		&key.Permissions,
		&createdAt,
		&expiresAt,
		&revokedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to scan access key: %w", err)
	}

	if err := parseKeyTimes(key, createdAt, expiresAt, revokedAt); err != nil {
		return nil, err
	}

	return key, nil
}

// parseKeyTimes decodes the stored RFC3339 timestamp columns. A row that
// fails to parse is surfaced as an error, not as a zero timestamp.
func parseKeyTimes(key *domain.AccessKey, createdAt string, expiresAt, revokedAt sql.NullString) error {
	var err error
	key.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339, expiresAt.String)
		if err != nil {
			return fmt.Errorf("failed to parse expires_at: %w", err)
		}
		key.ExpiresAt = &t
	}
	if revokedAt.Valid {
		t, err := time.Parse(time.RFC3339, revokedAt.String)
		if err != nil {
			return fmt.Errorf("failed to parse revoked_at: %w", err)
		}
		key.RevokedAt = &t
	}
	return nil
}

// List returns all access keys, newest first.
func (r *accessKeyRepository) List(ctx context.Context) ([]*domain.AccessKey, error) {
	query := `
		SELECT id, name, secret_hash, display_prefix, created_by, permissions, created_at, expires_at, revoked_at
		FROM access_keys
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}
	defer rows.Close()

	var keys []*domain.AccessKey
	for rows.Next() {
		key := &domain.AccessKey{}
		var createdAt string
		var expiresAt, revokedAt sql.NullString

		err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.SecretHash,
			&key.DisplayPrefix,
			&key.CreatedBy,
			&key.Permissions,
			&createdAt,
			&expiresAt,
			&revokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access key: %w", err)
		}

		if err := parseKeyTimes(key, createdAt, expiresAt, revokedAt); err != nil {
			return nil, err
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
	query := `UPDATE access_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to revoke access key: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Either already revoked (success, idempotent) or unknown ID.
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM access_keys WHERE id = ?`, id).Scan(&exists)
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
