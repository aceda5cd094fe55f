package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, KeySize)
	return key
}

func newEncryptors(t *testing.T, key []byte) map[string]*Encryptor {
	t.Helper()

	gcm, err := NewAESGCMEncryptor(key)
	require.NoError(t, err)

	chacha, err := NewChaCha20Poly1305Encryptor(key)
	require.NoError(t, err)

	return map[string]*Encryptor{
		"aes-gcm":           gcm,
		"chacha20-poly1305": chacha,
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	for name, enc := range newEncryptors(t, testKey(t)) {
		t.Run(name, func(t *testing.T) {
			plaintext := []byte("postgres://user:hunter2@db:5432/app")

			encrypted, err := enc.Encrypt(plaintext)
			require.NoError(t, err)
			require.NotEqual(t, string(plaintext), encrypted)

			decrypted, err := enc.Decrypt(encrypted)
			require.NoError(t, err)
			require.Equal(t, plaintext, decrypted)
		})
	}
}

func TestEncryptor_FreshNoncePerCall(t *testing.T) {
	for name, enc := range newEncryptors(t, testKey(t)) {
		t.Run(name, func(t *testing.T) {
			first, err := enc.Encrypt([]byte("same input"))
			require.NoError(t, err)
			second, err := enc.Encrypt([]byte("same input"))
			require.NoError(t, err)

			// Same plaintext must never produce the same ciphertext.
			require.NotEqual(t, first, second)
		})
	}
}

func TestEncryptor_TamperedCiphertext(t *testing.T) {
	for name, enc := range newEncryptors(t, testKey(t)) {
		t.Run(name, func(t *testing.T) {
			encrypted, err := enc.Encrypt([]byte("secret"))
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(encrypted)
			require.NoError(t, err)
			raw[len(raw)-1] ^= 0xff
			tampered := base64.StdEncoding.EncodeToString(raw)

			_, err = enc.Decrypt(tampered)
			require.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestEncryptor_WrongKey(t *testing.T) {
	key := testKey(t)
	other := bytes.Repeat([]byte{0x24}, KeySize)

	for name := range newEncryptors(t, key) {
		t.Run(name, func(t *testing.T) {
			enc := newEncryptors(t, key)[name]
			dec := newEncryptors(t, other)[name]

			encrypted, err := enc.Encrypt([]byte("secret"))
			require.NoError(t, err)

			_, err = dec.Decrypt(encrypted)
			require.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestEncryptor_MalformedInput(t *testing.T) {
	for name, enc := range newEncryptors(t, testKey(t)) {
		t.Run(name, func(t *testing.T) {
			_, err := enc.Decrypt("not base64!!!")
			require.ErrorIs(t, err, ErrInvalidCiphertext)

			// Valid base64 but shorter than nonce + tag.
			short := base64.StdEncoding.EncodeToString([]byte("tiny"))
			_, err = enc.Decrypt(short)
			require.ErrorIs(t, err, ErrInvalidCiphertext)
		})
	}
}

func TestNewEncryptor_InvalidKeySize(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = NewChaCha20Poly1305Encryptor(bytes.Repeat([]byte{1}, 16))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSecretVault_EmptyString(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey(t))
	require.NoError(t, err)
	vault := NewSecretVault(enc)

	encrypted, err := vault.EncryptString("")
	require.NoError(t, err)
	require.Equal(t, "", encrypted)

	decrypted, err := vault.DecryptString("")
	require.NoError(t, err)
	require.Equal(t, "", decrypted)
}

func TestSecretVault_RoundTrip(t *testing.T) {
	enc, err := NewAESGCMEncryptor(testKey(t))
	require.NoError(t, err)
	vault := NewSecretVault(enc)

	encrypted, err := vault.EncryptString("api-token-value")
	require.NoError(t, err)
	require.NotEmpty(t, encrypted)
	require.NotEqual(t, "api-token-value", encrypted)

	decrypted, err := vault.DecryptString(encrypted)
	require.NoError(t, err)
	require.Equal(t, "api-token-value", decrypted)
}
