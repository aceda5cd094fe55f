package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/venlock/credstore/internal/domain"
)

// newTestDB connects to the PostgreSQL instance named by
// CREDSTORE_TEST_POSTGRES_DSN and migrates it. Tests are skipped when the
// variable is unset so the suite stays runnable without a server.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("CREDSTORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CREDSTORE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	db := &DB{Pool: pool, logger: zerolog.Nop()}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE identities, access_key_usage, access_keys`)
	require.NoError(t, err)

	return db
}

func TestIdentityRepository_ConcurrentBootstrap(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(newTestDB(t))

	// Race several first registrations. Exactly one may claim the admin
	// bootstrap slot; the rest must land as plain users.
	const registrations = 8

	var wg sync.WaitGroup
	errs := make([]error, registrations)
	for i := 0; i < registrations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "registration %d", i)
	}

	var admins int
	err := repo.(*identityRepository).db.Pool.
		QueryRow(ctx, `SELECT COUNT(*) FROM identities WHERE role = 'admin'`).
		Scan(&admins)
	require.NoError(t, err)
	require.Equal(t, 1, admins)
}

func TestIdentityRepository_FirstBecomesAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(newTestDB(t))

	first, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, first.Role)

	second, err := repo.Create(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, second.Role)

	_, err = repo.Create(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrIdentityAlreadyExists)
}
