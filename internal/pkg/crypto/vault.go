package crypto

// SecretVault encrypts and decrypts short secret strings (API credentials,
// connection passwords) for storage in configuration. It wraps an Encryptor
// resolved from the process master key.
type SecretVault struct {
	enc *Encryptor
}

// NewSecretVault creates a vault over the given encryptor.
func NewSecretVault(enc *Encryptor) *SecretVault {
	return &SecretVault{enc: enc}
}

// EncryptString encrypts a secret value. The empty string is returned
// unchanged: optional configuration fields round-trip without callers
// special-casing absence. This policy applies only to the empty string.
func (v *SecretVault) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return v.enc.Encrypt([]byte(plaintext))
}

// DecryptString decrypts a value produced by EncryptString.
// Returns ErrDecryptionFailed if the value was tampered with or encrypted
// under a different key, and ErrInvalidCiphertext for malformed input.
// Both are recoverable by the caller.
func (v *SecretVault) DecryptString(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	plaintext, err := v.enc.Decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
