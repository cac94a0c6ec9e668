package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with one hash per scope.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

const (
	userHashPrefix = "boardlink:user:"
	appHashKey     = "boardlink:app"
)

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func userHashKey(userID string) string {
	return userHashPrefix + userID
}

func (s *RedisStore) GetUserValue(ctx context.Context, userID, key string) (string, error) {
	value, err := s.client.HGet(ctx, userHashKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user value %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) SetUserValue(ctx context.Context, userID, key, value string) error {
	if err := s.client.HSet(ctx, userHashKey(userID), key, value).Err(); err != nil {
		return fmt.Errorf("set user value %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SetUserValues(ctx context.Context, userID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	flat := make([]any, 0, len(values)*2)
	for key, value := range values {
		flat = append(flat, key, value)
	}
	// HSET with all pairs in one command keeps the batch atomic.
	if err := s.client.HSet(ctx, userHashKey(userID), flat...).Err(); err != nil {
		return fmt.Errorf("batch set user values: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteUserValue(ctx context.Context, userID, key string) error {
	if err := s.client.HDel(ctx, userHashKey(userID), key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete user value %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetAppValue(ctx context.Context, key string) (string, error) {
	value, err := s.client.HGet(ctx, appHashKey, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get app value %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) SetAppValue(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, appHashKey, key, value).Err(); err != nil {
		return fmt.Errorf("set app value %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) DeleteAppValue(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, appHashKey, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete app value %s: %w", key, err)
	}
	return nil
}
