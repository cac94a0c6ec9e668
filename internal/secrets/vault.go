package secrets

import (
	"context"
	"fmt"

	"github.com/smallbiznis/boardlink/internal/store"
)

// Vault wraps the store with transparent encrypt-on-write / decrypt-on-read
// for secret fields. Non-secret values pass through unchanged.
type Vault struct {
	store  store.Store
	cipher Cipher
}

// NewVault wires a vault over the given store and cipher.
func NewVault(s store.Store, c Cipher) *Vault {
	return &Vault{store: s, cipher: c}
}

// GetUserSecret reads and decrypts a per-user secret field.
func (v *Vault) GetUserSecret(ctx context.Context, userID, key string) (string, error) {
	stored, err := v.store.GetUserValue(ctx, userID, key)
	if err != nil {
		return "", err
	}
	plain, err := v.cipher.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt user %s: %w", key, err)
	}
	return plain, nil
}

// SetUserSecret encrypts and stores a per-user secret field.
func (v *Vault) SetUserSecret(ctx context.Context, userID, key, plaintext string) error {
	sealed, err := v.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt user %s: %w", key, err)
	}
	return v.store.SetUserValue(ctx, userID, key, sealed)
}

// SetUserSecrets encrypts the secret-marked keys and writes the whole map in
// one atomic store batch. Keys listed in secretKeys are encrypted, the rest
// are stored verbatim.
func (v *Vault) SetUserSecrets(ctx context.Context, userID string, values map[string]string, secretKeys ...string) error {
	sealed := make(map[string]string, len(values))
	secret := make(map[string]bool, len(secretKeys))
	for _, key := range secretKeys {
		secret[key] = true
	}
	for key, value := range values {
		if secret[key] {
			enc, err := v.cipher.Encrypt(value)
			if err != nil {
				return fmt.Errorf("encrypt user %s: %w", key, err)
			}
			sealed[key] = enc
			continue
		}
		sealed[key] = value
	}
	return v.store.SetUserValues(ctx, userID, sealed)
}

// GetUserValue reads a non-secret per-user field.
func (v *Vault) GetUserValue(ctx context.Context, userID, key string) (string, error) {
	return v.store.GetUserValue(ctx, userID, key)
}

// SetUserValue writes a non-secret per-user field.
func (v *Vault) SetUserValue(ctx context.Context, userID, key, value string) error {
	return v.store.SetUserValue(ctx, userID, key, value)
}

// DeleteUserValue removes a per-user field.
func (v *Vault) DeleteUserValue(ctx context.Context, userID, key string) error {
	return v.store.DeleteUserValue(ctx, userID, key)
}

// GetAppSecret reads and decrypts an app-scope secret field.
func (v *Vault) GetAppSecret(ctx context.Context, key string) (string, error) {
	stored, err := v.store.GetAppValue(ctx, key)
	if err != nil {
		return "", err
	}
	plain, err := v.cipher.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt app %s: %w", key, err)
	}
	return plain, nil
}

// SetAppSecret encrypts and stores an app-scope secret field.
func (v *Vault) SetAppSecret(ctx context.Context, key, plaintext string) error {
	sealed, err := v.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt app %s: %w", key, err)
	}
	return v.store.SetAppValue(ctx, key, sealed)
}

// GetAppValue reads a non-secret app-scope field.
func (v *Vault) GetAppValue(ctx context.Context, key string) (string, error) {
	return v.store.GetAppValue(ctx, key)
}

// SetAppValue writes a non-secret app-scope field.
func (v *Vault) SetAppValue(ctx context.Context, key, value string) error {
	return v.store.SetAppValue(ctx, key, value)
}
