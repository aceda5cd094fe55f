// Package domain contains the core business entities for Credstore.
package domain

import (
	"time"
)

// Permission represents the capability level granted to an access key.
type Permission string

const (
	// PermissionFull grants unrestricted access.
	PermissionFull Permission = "full"

	// PermissionReadOnly grants read-only access.
	PermissionReadOnly Permission = "readonly"

	// PermissionChatOnly restricts the key to conversational endpoints.
	PermissionChatOnly Permission = "chat_only"
)

// IsValid returns true if p is one of the known permission levels.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionFull, PermissionReadOnly, PermissionChatOnly:
		return true
	}
	return false
}

// AccessKey represents one issued bearer credential.
// The full credential string is never persisted; only its SHA-256 digest
// and a short non-secret display prefix are stored.
type AccessKey struct {
	// ID is the unique identifier for the key, assigned at creation.
	ID string `json:"id"`

	// Name is the operator-supplied label, immutable after creation.
	Name string `json:"name"`

	// SecretHash is the hex-encoded SHA-256 digest of the full credential.
	// Unique across all keys; never exposed in API responses.
	SecretHash string `json:"-"`

	// DisplayPrefix is a short leading fragment of the credential,
	// safe to show in UIs for identification.
	DisplayPrefix string `json:"display_prefix"`

	// CreatedBy identifies the operator who issued the key.
	CreatedBy string `json:"created_by"`

	// Permissions is the capability level granted to the key.
	Permissions Permission `json:"permissions"`

	// ExpiresAt is the optional absolute expiry. Nil means the key never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// RevokedAt is set when the key is revoked. Once set it is never cleared.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`

	// CreatedAt is the timestamp when the key was issued.
	CreatedAt time.Time `json:"created_at"`
}

// NewAccessKey creates a new AccessKey with default values.
// The id, secretHash and displayPrefix should be produced by the crypto package.
func NewAccessKey(id, name, secretHash, displayPrefix, createdBy string, permissions Permission) *AccessKey {
	return &AccessKey{
		ID:            id,
		Name:          name,
		SecretHash:    secretHash,
		DisplayPrefix: displayPrefix,
		CreatedBy:     createdBy,
		Permissions:   permissions,
		CreatedAt:     time.Now().UTC(),
	}
}

// IsRevoked returns true if the key has been revoked.
func (k *AccessKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// IsExpired returns true if the key has an expiry in the past relative to now.
// Expiry is derived state, recomputed at every verification.
func (k *AccessKey) IsExpired(now time.Time) bool {
	if k.ExpiresAt == nil {
		return false
	}
	return now.After(*k.ExpiresAt)
}

// IsValid returns true if the key can be used for authentication at now.
func (k *AccessKey) IsValid(now time.Time) bool {
	return !k.IsRevoked() && !k.IsExpired(now)
}

// Metadata returns the externally visible view of the key.
func (k *AccessKey) Metadata() *AccessKeyMetadata {
	return &AccessKeyMetadata{
		ID:            k.ID,
		Name:          k.Name,
		DisplayPrefix: k.DisplayPrefix,
		CreatedBy:     k.CreatedBy,
		Permissions:   k.Permissions,
		ExpiresAt:     k.ExpiresAt,
		RevokedAt:     k.RevokedAt,
		CreatedAt:     k.CreatedAt,
		Active:        k.RevokedAt == nil,
	}
}

// AccessKeyMetadata is the view of an AccessKey returned by listing and
// verification. It carries neither the secret hash nor the full credential.
type AccessKeyMetadata struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DisplayPrefix string     `json:"display_prefix"`
	CreatedBy     string     `json:"created_by"`
	Permissions   Permission `json:"permissions"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Active        bool       `json:"active"`
}
