// Package repository defines data access interfaces for Credstore.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/venlock/credstore/internal/domain"
)

// =============================================================================
// Access Key Repository
// =============================================================================

// AccessKeyRepository defines the interface for access key data access.
//
// All operations are individually atomic. Uniqueness of the secret hash is
// enforced by the store's native constraint, not by read-then-write, so
// concurrent issuance cannot race.
type AccessKeyRepository interface {
	// Create inserts a new access key. Returns domain.ErrDuplicateSecretHash
	// if a key with the same secret hash already exists.
	Create(ctx context.Context, key *domain.AccessKey) error

	// GetByID retrieves an access key by its ID.
	GetByID(ctx context.Context, id string) (*domain.AccessKey, error)

	// GetByHash retrieves an access key by its secret hash.
	// This is the primary lookup used for verification.
	GetByHash(ctx context.Context, secretHash string) (*domain.AccessKey, error)

	// List returns all access keys, newest first.
	List(ctx context.Context) ([]*domain.AccessKey, error)

	// Revoke sets revoked_at on the key if it is not already set.
	// A single guarded UPDATE, so revocation is idempotent and revoked_at is
	// never overwritten. Returns domain.ErrKeyNotFound for unknown IDs.
	Revoke(ctx context.Context, id string, at time.Time) error
}

// =============================================================================
// Usage Log Repository
// =============================================================================

// UsageLogRepository defines the interface for the append-only usage log.
type UsageLogRepository interface {
	// Append records one usage event. Events are never updated or deleted.
	Append(ctx context.Context, event *domain.UsageEvent) error

	// ListByKey returns up to limit events for a key, newest first.
	ListByKey(ctx context.Context, keyID string, limit int) ([]*domain.UsageEvent, error)
}

// =============================================================================
// Identity Repository
// =============================================================================

// IdentityRepository defines the interface for identity role data access.
// Identities are owned by a collaborating session subsystem; this store
// persists the subset the role gate needs.
type IdentityRepository interface {
	// Create registers a new identity. The role is decided atomically in the
	// store: the first identity ever registered becomes admin, all later
	// ones get the default user role. Returns domain.ErrIdentityAlreadyExists
	// on username collision.
	Create(ctx context.Context, username string) (*domain.Identity, error)

	// GetByUsername retrieves an identity by username.
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)

	// UpdateRole sets the role for an identity.
	UpdateRole(ctx context.Context, username string, role domain.Role) error

	// Count returns the number of registered identities.
	Count(ctx context.Context) (int64, error)
}

// =============================================================================
// Aggregates
// =============================================================================

// Repositories holds all repository instances for one backend.
type Repositories struct {
	AccessKeys AccessKeyRepository
	UsageLog   UsageLogRepository
	Identities IdentityRepository
}

// DatabaseHealth is an interface for database lifecycle and health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
