package domain

import (
	"time"
)

// Role represents the authorization level of an identity.
type Role string

const (
	// RoleUser is the default role for registered identities.
	RoleUser Role = "user"

	// RoleAdmin grants access to privileged operations.
	RoleAdmin Role = "admin"

	// RoleReadOnly restricts the identity to read operations.
	RoleReadOnly Role = "readonly"
)

// IsValid returns true if r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleReadOnly:
		return true
	}
	return false
}

// Identity represents an external identity as seen by the role gate.
// Identities are owned by a collaborating session subsystem; this core
// reads and writes only the role attribute. The first identity ever
// registered is promoted to admin so the system always has an administrator.
type Identity struct {
	// ID is the unique identifier for the identity (auto-generated).
	ID int64 `json:"id"`

	// Username is the unique name of the identity.
	Username string `json:"username"`

	// Role is the authorization level. Defaults to RoleUser.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the identity was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the identity was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin returns true if the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
