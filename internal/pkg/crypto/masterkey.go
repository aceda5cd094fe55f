package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Master key errors
var (
	// ErrKeyFileUnreadable indicates the persisted key file exists but cannot
	// be read or parsed. This is fatal at startup: the process must not run
	// with an unusable master key.
	ErrKeyFileUnreadable = errors.New("master key file is unreadable or corrupt")
)

// MasterKeyProvider resolves the single symmetric key backing all vault
// operations for a process. Resolution order: operator-supplied override,
// previously persisted key file, freshly generated material (persisted).
// The resolved key is immutable for the process lifetime.
type MasterKeyProvider struct {
	// Override is an operator-supplied hex key, typically from the
	// environment. When set, the key file is never created or touched,
	// keeping the key source auditable.
	Override string

	// FilePath is where generated key material is persisted.
	FilePath string

	logger zerolog.Logger
}

// NewMasterKeyProvider creates a provider with the given override value and
// key file path.
func NewMasterKeyProvider(override, filePath string, logger zerolog.Logger) *MasterKeyProvider {
	return &MasterKeyProvider{
		Override: override,
		FilePath: filePath,
		logger:   logger.With().Str("component", "masterkey").Logger(),
	}
}

// Resolve returns the 32-byte master key, generating and persisting new
// material if neither an override nor a key file is present.
// The key material itself is never logged.
func (p *MasterKeyProvider) Resolve() ([]byte, error) {
	if p.Override != "" {
		key, err := ParseHexKey(p.Override)
		if err != nil {
			return nil, fmt.Errorf("invalid master key override: %w", err)
		}
		p.logger.Debug().Msg("using operator-supplied master key")
		return key, nil
	}

	data, err := os.ReadFile(p.FilePath)
	if err == nil {
		key, perr := ParseHexKey(string(data))
		if perr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrKeyFileUnreadable, p.FilePath, perr)
		}
		p.logger.Debug().Str("path", p.FilePath).Msg("loaded master key from file")
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyFileUnreadable, p.FilePath, err)
	}

	hexKey, err := GenerateMasterKey()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(p.FilePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create key directory: %w", err)
		}
	}

	// Owner-only read/write. WriteFile applies the mode on creation, so the
	// key is never world-readable, even transiently.
	if err := os.WriteFile(p.FilePath, []byte(hexKey), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist master key: %w", err)
	}

	p.logger.Info().Str("path", p.FilePath).Msg("generated new master key")

	return ParseHexKey(hexKey)
}
