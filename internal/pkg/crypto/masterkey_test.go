package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMasterKeyProvider_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "encryption.key")
	override := strings.Repeat("ab", KeySize)

	provider := NewMasterKeyProvider(override, keyFile, zerolog.Nop())

	key, err := provider.Resolve()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	// With an override the key file is never created or touched.
	_, err = os.Stat(keyFile)
	require.True(t, os.IsNotExist(err))
}

func TestMasterKeyProvider_InvalidOverride(t *testing.T) {
	provider := NewMasterKeyProvider("not-a-key", filepath.Join(t.TempDir(), "k"), zerolog.Nop())

	_, err := provider.Resolve()
	require.ErrorIs(t, err, ErrInvalidHexKey)
}

func TestMasterKeyProvider_GeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "sub", "encryption.key")

	provider := NewMasterKeyProvider("", keyFile, zerolog.Nop())

	key, err := provider.Resolve()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second resolution loads the same key back.
	again, err := NewMasterKeyProvider("", keyFile, zerolog.Nop()).Resolve()
	require.NoError(t, err)
	require.Equal(t, key, again)
}

func TestMasterKeyProvider_CorruptKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "encryption.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("garbage"), 0o600))

	provider := NewMasterKeyProvider("", keyFile, zerolog.Nop())

	// A present but unusable key file must fail resolution rather than be
	// silently regenerated, which would orphan every existing ciphertext.
	_, err := provider.Resolve()
	require.ErrorIs(t, err, ErrKeyFileUnreadable)

	data, readErr := os.ReadFile(keyFile)
	require.NoError(t, readErr)
	require.Equal(t, "garbage", string(data))
}
