// Package domain contains the core business entities for Credstore.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, filesystem, etc.).

var (
	// ===========================================
	// Access Key Errors
	// ===========================================

	// ErrKeyNotFound indicates the requested access key does not exist.
	ErrKeyNotFound = errors.New("access key not found")

	// ErrKeyRevoked indicates the access key has been revoked.
	ErrKeyRevoked = errors.New("access key has been revoked")

	// ErrKeyExpired indicates the access key has expired.
	ErrKeyExpired = errors.New("access key has expired")

	// ErrDuplicateSecretHash indicates a key with the same secret hash exists.
	ErrDuplicateSecretHash = errors.New("secret hash already exists")

	// ErrInvalidPermission indicates an unknown permission level.
	ErrInvalidPermission = errors.New("invalid permission level")

	// ===========================================
	// Identity Errors
	// ===========================================

	// ErrIdentityNotFound indicates the requested identity does not exist.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityAlreadyExists indicates an identity with the same username exists.
	ErrIdentityAlreadyExists = errors.New("identity already exists")

	// ErrInvalidRole indicates an unknown role name.
	ErrInvalidRole = errors.New("invalid role")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrUnauthenticated indicates no identity could be resolved for a request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden indicates the resolved identity lacks the required role.
	ErrForbidden = errors.New("admin access required")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g. key ID, username).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}
