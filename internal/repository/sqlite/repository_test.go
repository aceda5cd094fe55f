package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/venlock/credstore/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))

	db, err := NewDB(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func newTestKey(name string) *domain.AccessKey {
	sum := sha256.Sum256([]byte(name))
	return domain.NewAccessKey(
		uuid.NewString(),
		name,
		hex.EncodeToString(sum[:]),
		"sk_live_test...",
		"tester",
		domain.PermissionFull,
	)
}

func TestNewDB_AppliesPragmas(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys))
	require.Equal(t, 1, foreignKeys)

	var busyTimeout int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busyTimeout))
	require.Equal(t, 5000, busyTimeout)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	// Running migrations again on an up-to-date schema is a no-op.
	require.NoError(t, db.Migrate(ctx))

	version, err := db.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestAccessKeyRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessKeyRepository(newTestDB(t))

	key := newTestKey("api")
	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	key.ExpiresAt = &expires

	require.NoError(t, repo.Create(ctx, key))

	byID, err := repo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	require.Equal(t, key.Name, byID.Name)
	require.Equal(t, key.SecretHash, byID.SecretHash)
	require.NotNil(t, byID.ExpiresAt)
	require.True(t, byID.ExpiresAt.Equal(expires))
	require.Nil(t, byID.RevokedAt)

	byHash, err := repo.GetByHash(ctx, key.SecretHash)
	require.NoError(t, err)
	require.Equal(t, key.ID, byHash.ID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
	_, err = repo.GetByHash(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestAccessKeyRepository_DuplicateSecretHash(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessKeyRepository(newTestDB(t))

	first := newTestKey("api")
	require.NoError(t, repo.Create(ctx, first))

	duplicate := newTestKey("other")
	duplicate.SecretHash = first.SecretHash

	err := repo.Create(ctx, duplicate)
	require.ErrorIs(t, err, domain.ErrDuplicateSecretHash)
}

func TestAccessKeyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessKeyRepository(newTestDB(t))

	key := newTestKey("api")
	require.NoError(t, repo.Create(ctx, key))

	first := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Revoke(ctx, key.ID, first))

	got, err := repo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)
	require.True(t, got.RevokedAt.Equal(first))

	// Revoking again succeeds without moving the original timestamp.
	require.NoError(t, repo.Revoke(ctx, key.ID, first.Add(time.Hour)))
	got, err = repo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	require.True(t, got.RevokedAt.Equal(first))

	require.ErrorIs(t, repo.Revoke(ctx, "missing", first), domain.ErrKeyNotFound)
}

func TestAccessKeyRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewAccessKeyRepository(newTestDB(t))

	for i := 0; i < 3; i++ {
		key := newTestKey(fmt.Sprintf("key-%d", i))
		key.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, key))
	}

	keys, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)

	// Newest first.
	require.Equal(t, "key-2", keys[0].Name)
	require.Equal(t, "key-0", keys[2].Name)
}

func TestUsageLogRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	keys := NewAccessKeyRepository(db)
	usage := NewUsageLogRepository(db)

	key := newTestKey("api")
	require.NoError(t, keys.Create(ctx, key))

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		event := &domain.UsageEvent{
			KeyID:     key.ID,
			Endpoint:  fmt.Sprintf("/v1/endpoint-%d", i),
			Method:    "GET",
			Status:    200,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, usage.Append(ctx, event))
		require.NotZero(t, event.ID)
	}

	events, err := usage.ListByKey(ctx, key.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "/v1/endpoint-2", events[0].Endpoint)
	require.Equal(t, "/v1/endpoint-0", events[2].Endpoint)

	limited, err := usage.ListByKey(ctx, key.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "/v1/endpoint-2", limited[0].Endpoint)

	none, err := usage.ListByKey(ctx, "other-key", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUsageLogRepository_ForeignKeyEnforced(t *testing.T) {
	ctx := context.Background()
	usage := NewUsageLogRepository(newTestDB(t))

	// No access key with this ID exists; the FK on key_id must reject it.
	err := usage.Append(ctx, &domain.UsageEvent{
		KeyID:    "no-such-key",
		Endpoint: "/v1/models",
		Method:   "GET",
	})
	require.Error(t, err)
}

func TestScan_CorruptTimestampIsError(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	keys := NewAccessKeyRepository(db)
	usage := NewUsageLogRepository(db)
	identities := NewIdentityRepository(db)

	key := newTestKey("api")
	require.NoError(t, keys.Create(ctx, key))

	_, err := db.ExecContext(ctx, `UPDATE access_keys SET created_at = 'yesterday-ish' WHERE id = ?`, key.ID)
	require.NoError(t, err)

	_, err = keys.GetByID(ctx, key.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "created_at")

	_, err = keys.List(ctx)
	require.Error(t, err)

	good := newTestKey("other")
	require.NoError(t, keys.Create(ctx, good))
	require.NoError(t, usage.Append(ctx, &domain.UsageEvent{KeyID: good.ID, Endpoint: "/v1/models", Method: "GET"}))
	_, err = db.ExecContext(ctx, `UPDATE access_key_usage SET timestamp = 'corrupt' WHERE key_id = ?`, good.ID)
	require.NoError(t, err)

	_, err = usage.ListByKey(ctx, good.ID, 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timestamp")

	_, err = identities.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE identities SET updated_at = 'corrupt' WHERE username = 'alice'`)
	require.NoError(t, err)

	_, err = identities.GetByUsername(ctx, "alice")
	require.Error(t, err)
	require.Contains(t, err.Error(), "updated_at")
}

func TestIdentityRepository_FirstBecomesAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(newTestDB(t))

	first, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, first.Role)
	require.NotZero(t, first.ID)

	second, err := repo.Create(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, second.Role)

	_, err = repo.Create(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrIdentityAlreadyExists)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestIdentityRepository_UpdateRole(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(newTestDB(t))

	_, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRole(ctx, "bob", domain.RoleReadOnly))

	bob, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleReadOnly, bob.Role)

	require.ErrorIs(t, repo.UpdateRole(ctx, "ghost", domain.RoleUser), domain.ErrIdentityNotFound)
	_, err = repo.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
}
