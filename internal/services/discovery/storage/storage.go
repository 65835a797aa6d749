// Package storage defines the preload store contract for discovery payloads.
//
// Preloaded entries are written by the prerender step and consumed exactly
// once by the first reader; a later read of the same key is a miss.
package storage

import (
	"context"
	"errors"
	"strings"
)

const (
	// KeyCategoriesList holds a preloaded categories payload.
	KeyCategoriesList = "categories_list"
	// KeyTopicList holds a preloaded topic list payload.
	KeyTopicList = "topic_list"
)

// ErrKeyRequired indicates a blank preload key.
var ErrKeyRequired = errors.New("preload key is required")

// PreloadStore persists single-read payload entries.
type PreloadStore interface {
	// Take returns the entry for key and removes it. A missing entry reports
	// found=false with a nil error.
	Take(ctx context.Context, key string) (payload []byte, found bool, err error)
	// Put stores payload under key, replacing any pending entry.
	Put(ctx context.Context, key string, payload []byte) error
	// Remove drops any pending entry for key.
	Remove(ctx context.Context, key string) error
	Close() error
}

// NormalizeKey trims key and rejects blank values.
func NormalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrKeyRequired
	}
	return key, nil
}
