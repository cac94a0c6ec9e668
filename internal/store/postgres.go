package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of two upsert tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the settings tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT NOT NULL,
			key     TEXT NOT NULL,
			value   TEXT NOT NULL,
			PRIMARY KEY (user_id, key)
		);
		CREATE TABLE IF NOT EXISTS app_settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate settings tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserValue(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM user_settings WHERE user_id = $1 AND key = $2`,
		userID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user value %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) SetUserValue(ctx context.Context, userID, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value`,
		userID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set user value %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) SetUserValues(ctx context.Context, userID string, values map[string]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch write: %w", err)
	}
	defer tx.Rollback(ctx)

	for key, value := range values {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_settings (user_id, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value`,
			userID, key, value,
		); err != nil {
			return fmt.Errorf("batch set user value %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch write: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUserValue(ctx context.Context, userID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_settings WHERE user_id = $1 AND key = $2`,
		userID, key,
	)
	if err != nil {
		return fmt.Errorf("delete user value %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) GetAppValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get app value %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) SetAppValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set app value %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) DeleteAppValue(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM app_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete app value %s: %w", key, err)
	}
	return nil
}
