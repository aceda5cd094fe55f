// Package service provides the business logic for Credstore.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/metrics"
	"github.com/venlock/credstore/internal/pkg/crypto"
	"github.com/venlock/credstore/internal/repository"
)

// AccessKeyManager handles issuance, verification, revocation and audit
// logging of bearer access keys. Each operation is a single atomic store
// interaction; no additional in-process locking is required.
//
// Construct one instance at process start and inject it into consumers.
type AccessKeyManager struct {
	keys    repository.AccessKeyRepository
	usage   repository.UsageLogRepository
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewAccessKeyManager creates a new AccessKeyManager.
func NewAccessKeyManager(
	keys repository.AccessKeyRepository,
	usage repository.UsageLogRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AccessKeyManager {
	return &AccessKeyManager{
		keys:    keys,
		usage:   usage,
		logger:  logger.With().Str("service", "accesskey").Logger(),
		metrics: m,
	}
}

// CreateKeyInput contains the data needed to issue an access key.
type CreateKeyInput struct {
	// Name is the operator-supplied label for the key.
	Name string

	// CreatedBy identifies the issuing operator.
	CreatedBy string

	// Permissions is the capability level. Defaults to full when empty.
	Permissions domain.Permission

	// ExpiresInDays sets the expiry relative to issuance. Nil means the key
	// never expires. Zero or negative values are legal and produce an
	// already-expired key (used for testing and pre-expired provisioning).
	ExpiresInDays *int

	// TestMode issues the key under the test environment tag instead of live.
	TestMode bool
}

// CreateKeyOutput contains the result of issuing an access key.
// Key holds the full credential string; this is the only time it is ever
// available, as only its digest is persisted.
type CreateKeyOutput struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Key           string            `json:"key"`
	DisplayPrefix string            `json:"display_prefix"`
	Permissions   domain.Permission `json:"permissions"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// CreateKey issues a new access key.
func (s *AccessKeyManager) CreateKey(ctx context.Context, input CreateKeyInput) (*CreateKeyOutput, error) {
	if input.Name == "" {
		return nil, ErrKeyNameRequired
	}

	permissions := input.Permissions
	if permissions == "" {
		permissions = domain.PermissionFull
	}
	if !permissions.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPermission, input.Permissions)
	}

	credential, err := crypto.GenerateCredential(input.TestMode)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate credential")
		return nil, fmt.Errorf("failed to generate credential: %w", err)
	}

	key := domain.NewAccessKey(
		uuid.NewString(),
		input.Name,
		crypto.HashCredential(credential),
		crypto.CredentialDisplayPrefix(credential),
		input.CreatedBy,
		permissions,
	)

	if input.ExpiresInDays != nil {
		expiresAt := key.CreatedAt.AddDate(0, 0, *input.ExpiresInDays)
		key.ExpiresAt = &expiresAt
	}

	// Store errors, including the astronomically unlikely hash collision,
	// propagate unmasked.
	if err := s.keys.Create(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to store access key")
		return nil, err
	}

	s.metrics.KeysIssued.Inc()
	s.logger.Info().
		Str("key_id", key.ID).
		Str("name", key.Name).
		Str("created_by", key.CreatedBy).
		Str("permissions", string(key.Permissions)).
		Msg("access key created")

	return &CreateKeyOutput{
		ID:            key.ID,
		Name:          key.Name,
		Key:           credential, // only time the full string is returned
		DisplayPrefix: key.DisplayPrefix,
		Permissions:   key.Permissions,
		ExpiresAt:     key.ExpiresAt,
	}, nil
}

// VerifyKey checks a candidate credential and returns its metadata if valid.
//
// Not-found, revoked, expired and store failures all surface as ErrInvalidKey:
// callers learn only that the credential is not valid. Each underlying reason
// is logged and counted for audit purposes.
func (s *AccessKeyManager) VerifyKey(ctx context.Context, candidate string) (*domain.AccessKeyMetadata, error) {
	hash := crypto.HashCredential(candidate)

	key, err := s.keys.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			s.metrics.Verifications.WithLabelValues(metrics.ResultNotFound).Inc()
			s.logger.Debug().Msg("verification failed: no key matches candidate")
			return nil, ErrInvalidKey
		}
		s.metrics.Verifications.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Error().Err(err).Msg("verification failed: store error")
		return nil, ErrInvalidKey
	}

	now := time.Now().UTC()

	if key.IsRevoked() {
		s.metrics.Verifications.WithLabelValues(metrics.ResultRevoked).Inc()
		s.logger.Debug().Err(domain.ErrKeyRevoked).Str("key_id", key.ID).Msg("verification failed")
		return nil, ErrInvalidKey
	}

	if key.IsExpired(now) {
		s.metrics.Verifications.WithLabelValues(metrics.ResultExpired).Inc()
		s.logger.Debug().Err(domain.ErrKeyExpired).Str("key_id", key.ID).Msg("verification failed")
		return nil, ErrInvalidKey
	}

	s.metrics.Verifications.WithLabelValues(metrics.ResultValid).Inc()
	return key.Metadata(), nil
}

// RevokeKey revokes an access key. Revoking an already-revoked key is not an
// error, and once the write commits every subsequent verification observes
// the revocation. Store errors propagate unmodified.
func (s *AccessKeyManager) RevokeKey(ctx context.Context, id string) error {
	if err := s.keys.Revoke(ctx, id, time.Now().UTC()); err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.Error().Err(err).Str("key_id", id).Msg("failed to revoke access key")
		}
		return err
	}

	s.metrics.Revocations.Inc()
	s.logger.Info().Str("key_id", id).Msg("access key revoked")
	return nil
}

// ListKeys returns metadata for all issued keys, newest first.
// The metadata never includes the secret hash or the full credential.
func (s *AccessKeyManager) ListKeys(ctx context.Context) ([]*domain.AccessKeyMetadata, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list access keys")
		return nil, err
	}

	result := make([]*domain.AccessKeyMetadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, key.Metadata())
	}
	return result, nil
}

// UsageInput describes one authentication attempt or action under a key.
type UsageInput struct {
	KeyID      string
	Endpoint   string
	Method     string
	CallerAddr string
	UserAgent  string
	Status     int
}

// LogUsage appends one usage event to the audit trail. A failed write never
// fails the request it describes: the error is logged as a warning, counted,
// and swallowed.
func (s *AccessKeyManager) LogUsage(ctx context.Context, input UsageInput) {
	event := &domain.UsageEvent{
		KeyID:      input.KeyID,
		Endpoint:   input.Endpoint,
		Method:     input.Method,
		CallerAddr: input.CallerAddr,
		UserAgent:  input.UserAgent,
		Status:     input.Status,
		Timestamp:  time.Now().UTC(),
	}

	if err := s.usage.Append(ctx, event); err != nil {
		s.metrics.UsageLogFailures.Inc()
		s.logger.Warn().
			Err(err).
			Str("key_id", input.KeyID).
			Str("endpoint", input.Endpoint).
			Msg("failed to record usage event")
	}
}

// GetKeyUsage returns up to limit usage events for a key, most recent first.
func (s *AccessKeyManager) GetKeyUsage(ctx context.Context, id string, limit int) ([]*domain.UsageEvent, error) {
	if limit <= 0 {
		return nil, ErrUsageLimitInvalid
	}

	events, err := s.usage.ListByKey(ctx, id, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("key_id", id).Msg("failed to get key usage")
		return nil, err
	}
	return events, nil
}
