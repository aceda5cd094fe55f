package sqlite

import (
	"github.com/venlock/credstore/internal/repository"
)

// NewRepositories creates all SQLite-backed repositories over one connection.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		AccessKeys: NewAccessKeyRepository(db),
		UsageLog:   NewUsageLogRepository(db),
		Identities: NewIdentityRepository(db),
	}
}
