// Package memory provides an in-process preload store.
package memory

import (
	"context"
	"sync"

	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
)

// Store keeps preload entries in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// Take returns and removes the entry for key.
func (s *Store) Take(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	delete(s.entries, key)
	return payload, true, nil
}

// Put stores a copy of payload under key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), payload...)
	return nil
}

// Remove drops the entry for key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

var _ storage.PreloadStore = (*Store)(nil)
