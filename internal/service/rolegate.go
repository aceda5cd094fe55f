package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// SessionResolver extracts the authenticated username from a request context.
// Implementations are owned by the embedding application; the gate only
// cares whether a username came back.
type SessionResolver interface {
	ResolveIdentity(ctx context.Context) (string, error)
}

// RoleGate guards administrative operations. It resolves the caller through
// the session resolver, loads the identity, and checks the role.
type RoleGate struct {
	sessions   SessionResolver
	identities repository.IdentityRepository
	logger     zerolog.Logger
}

// NewRoleGate creates a new RoleGate.
func NewRoleGate(sessions SessionResolver, identities repository.IdentityRepository, logger zerolog.Logger) *RoleGate {
	return &RoleGate{
		sessions:   sessions,
		identities: identities,
		logger:     logger.With().Str("service", "rolegate").Logger(),
	}
}

// RequireAdmin returns the caller's identity if they are an authenticated
// admin. An unresolvable session or unknown username yields
// ErrUnauthenticated; an authenticated non-admin yields ErrForbidden.
func (g *RoleGate) RequireAdmin(ctx context.Context) (*domain.Identity, error) {
	username, err := g.sessions.ResolveIdentity(ctx)
	if err != nil || username == "" {
		return nil, domain.ErrUnauthenticated
	}

	identity, err := g.identities.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		g.logger.Error().Err(err).Str("username", username).Msg("failed to load identity")
		return nil, err
	}

	if !identity.IsAdmin() {
		g.logger.Debug().
			Str("username", username).
			Str("role", string(identity.Role)).
			Msg("admin access denied")
		return nil, domain.ErrForbidden
	}

	return identity, nil
}

// RequireAdminOrNone is the soft variant for surfaces that degrade rather
// than reject. It returns the admin identity, or nil when the caller is
// anonymous, unknown or not an admin. Store errors also yield nil.
func (g *RoleGate) RequireAdminOrNone(ctx context.Context) *domain.Identity {
	identity, err := g.RequireAdmin(ctx)
	if err != nil {
		return nil
	}
	return identity
}
