package postgres

import (
	"github.com/venlock/credstore/internal/repository"
)

// NewRepositories creates all PostgreSQL-backed repositories over one pool.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		AccessKeys: NewAccessKeyRepository(db),
		UsageLog:   NewUsageLogRepository(db),
		Identities: NewIdentityRepository(db),
	}
}
