// Package secrets keeps credential material encrypted at rest. The Vault is
// the only path between plaintext secrets and the store, so call sites cannot
// accidentally persist or compare cleartext.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher encrypts and decrypts opaque secret strings.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AEADCipher is a ChaCha20-Poly1305 Cipher with a random nonce per message.
// Output is base64(nonce || sealed).
type AEADCipher struct {
	key []byte
}

var _ Cipher = (*AEADCipher)(nil)

var errCiphertextTooShort = errors.New("secrets: ciphertext too short")

// NewAEADCipher requires a 32-byte key.
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secrets: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &AEADCipher{key: key}, nil
}

// Encrypt seals the plaintext. The empty string is a deletion marker across
// the credential protocol and passes through unencrypted.
func (c *AEADCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *AEADCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errCiphertextTooShort
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}
