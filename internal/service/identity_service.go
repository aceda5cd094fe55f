package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/repository"
)

// IdentityService manages operator identities and their roles.
type IdentityService struct {
	identities repository.IdentityRepository
	logger     zerolog.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(identities repository.IdentityRepository, logger zerolog.Logger) *IdentityService {
	return &IdentityService{
		identities: identities,
		logger:     logger.With().Str("service", "identity").Logger(),
	}
}

// Register creates a new identity. The very first identity registered in an
// empty store becomes admin; the store decides this atomically so concurrent
// first registrations cannot both win.
func (s *IdentityService) Register(ctx context.Context, username string) (*domain.Identity, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	identity, err := s.identities.Create(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrIdentityAlreadyExists) {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to register identity")
		}
		return nil, err
	}

	s.logger.Info().
		Str("username", identity.Username).
		Str("role", string(identity.Role)).
		Msg("identity registered")

	return identity, nil
}

// GetByUsername retrieves an identity by username.
func (s *IdentityService) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return s.identities.GetByUsername(ctx, username)
}

// GetRole returns the role of an identity.
func (s *IdentityService) GetRole(ctx context.Context, username string) (domain.Role, error) {
	identity, err := s.identities.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return identity.Role, nil
}

// SetRole changes the role of an identity. Only an admin actor may change
// roles; the actor's identity is checked here rather than trusted from the
// caller.
func (s *IdentityService) SetRole(ctx context.Context, actor string, username string, role domain.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	acting, err := s.identities.GetByUsername(ctx, actor)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}
	if !acting.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.identities.UpdateRole(ctx, username, role); err != nil {
		if !errors.Is(err, domain.ErrIdentityNotFound) {
			s.logger.Error().Err(err).Str("username", username).Msg("failed to update role")
		}
		return err
	}

	s.logger.Info().
		Str("actor", actor).
		Str("username", username).
		Str("role", string(role)).
		Msg("role updated")

	return nil
}
