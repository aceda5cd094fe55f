package domain

import (
	"testing"
	"time"
)

func TestAccessKey_Validity(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name        string
		expiresAt   *time.Time
		revokedAt   *time.Time
		wantValid   bool
		wantExpired bool
		wantRevoked bool
	}{
		{
			name:      "fresh key without expiry",
			wantValid: true,
		},
		{
			name:      "unexpired key",
			expiresAt: &future,
			wantValid: true,
		},
		{
			name:        "expired key",
			expiresAt:   &past,
			wantExpired: true,
		},
		{
			name:        "revoked key",
			revokedAt:   &past,
			wantRevoked: true,
		},
		{
			name:        "revoked and expired",
			expiresAt:   &past,
			revokedAt:   &past,
			wantExpired: true,
			wantRevoked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewAccessKey("id", "name", "hash", "sk_live_abcd...", "tester", PermissionFull)
			key.ExpiresAt = tt.expiresAt
			key.RevokedAt = tt.revokedAt

			if got := key.IsValid(now); got != tt.wantValid {
				t.Errorf("IsValid() = %t, want %t", got, tt.wantValid)
			}
			if got := key.IsExpired(now); got != tt.wantExpired {
				t.Errorf("IsExpired() = %t, want %t", got, tt.wantExpired)
			}
			if got := key.IsRevoked(); got != tt.wantRevoked {
				t.Errorf("IsRevoked() = %t, want %t", got, tt.wantRevoked)
			}
		})
	}
}

func TestAccessKey_Metadata(t *testing.T) {
	key := NewAccessKey("id-1", "ci", "secret-hash", "sk_live_abcd...", "alice", PermissionReadOnly)

	meta := key.Metadata()
	if meta.ID != "id-1" || meta.Name != "ci" || meta.DisplayPrefix != "sk_live_abcd..." {
		t.Errorf("metadata fields not carried over: %+v", meta)
	}
	if !meta.Active {
		t.Error("expected unrevoked key to be active")
	}

	now := time.Now().UTC()
	key.RevokedAt = &now
	if key.Metadata().Active {
		t.Error("expected revoked key to be inactive")
	}
}

func TestPermission_IsValid(t *testing.T) {
	for _, p := range []Permission{PermissionFull, PermissionReadOnly, PermissionChatOnly} {
		if !p.IsValid() {
			t.Errorf("expected %s to be valid", p)
		}
	}
	if Permission("superuser").IsValid() {
		t.Error("expected unknown permission to be invalid")
	}
}

func TestRole_IsValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAdmin, RoleReadOnly} {
		if !r.IsValid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if Role("root").IsValid() {
		t.Error("expected unknown role to be invalid")
	}

	if !(&Identity{Role: RoleAdmin}).IsAdmin() {
		t.Error("expected admin role to be admin")
	}
	if (&Identity{Role: RoleUser}).IsAdmin() {
		t.Error("expected user role to not be admin")
	}
}
