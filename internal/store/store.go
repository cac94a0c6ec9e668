// Package store provides the keyed configuration store shared by the token
// manager and the API client. All durable state lives here; values are opaque
// strings and secret fields arrive already encrypted (see internal/secrets).
package store

import "context"

// Store persists per-user and app-scoped key/value pairs. A missing key reads
// as the empty string, never as an error.
type Store interface {
	GetUserValue(ctx context.Context, userID, key string) (string, error)
	SetUserValue(ctx context.Context, userID, key, value string) error
	// SetUserValues writes several keys for one user in a single atomic batch.
	// The refresh protocol relies on this to replace the token pair and expiry
	// together or not at all.
	SetUserValues(ctx context.Context, userID string, values map[string]string) error
	DeleteUserValue(ctx context.Context, userID, key string) error

	GetAppValue(ctx context.Context, key string) (string, error)
	SetAppValue(ctx context.Context, key, value string) error
	DeleteAppValue(ctx context.Context, key string) error
}
