// Package redis provides a preload store shared across processes through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
)

// DefaultTTL bounds how long an unconsumed preload entry survives.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "topicfeed:preload:"

// Store keeps preload entries as Redis strings consumed with GETDEL.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// Open parses redisURL, connects and verifies the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client. A non-positive ttl uses DefaultTTL.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Take atomically reads and deletes the entry for key.
func (s *Store) Take(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	payload, err := s.client.GetDel(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("take preload entry: %w", err)
	}
	return payload, true, nil
}

// Put stores payload under key with the store TTL.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put preload entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("remove preload entry: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ storage.PreloadStore = (*Store)(nil)
