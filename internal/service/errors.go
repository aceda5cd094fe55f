// Package service provides the business logic for Credstore.
package service

import "errors"

// Common service errors.
var (
	// ErrInvalidKey is the single outcome VerifyKey reports for any
	// credential that cannot be admitted. Not-found, revoked and expired are
	// deliberately not distinguished at this boundary; the specific reason
	// is logged and counted internally.
	ErrInvalidKey = errors.New("invalid credential")

	// ErrKeyNameRequired indicates a key was requested without a name.
	ErrKeyNameRequired = errors.New("key name is required")

	// ErrUsageLimitInvalid indicates a non-positive usage query limit.
	ErrUsageLimitInvalid = errors.New("usage limit must be positive")
)
