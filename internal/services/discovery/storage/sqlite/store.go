package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/topicfeed/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage"
	"github.com/louisbranch/topicfeed/internal/services/discovery/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists preload entries in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a preload SQLite store.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Take deletes the entry for key and returns its payload. The delete and the
// read are one statement, so two concurrent takes cannot both hit.
func (s *Store) Take(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.sqlDB == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = s.sqlDB.QueryRowContext(
		ctx,
		`DELETE FROM preload_entries WHERE preload_key = ? RETURNING payload_json`,
		key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("take preload entry: %w", err)
	}
	return payload, true, nil
}

// Put upserts the entry for key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = []byte{}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO preload_entries (preload_key, payload_json, stored_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(preload_key) DO UPDATE SET
		    payload_json = excluded.payload_json,
		    stored_at = excluded.stored_at`,
		key,
		payload,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put preload entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for key, if any.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.NormalizeKey(key)
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM preload_entries WHERE preload_key = ?`, key); err != nil {
		return fmt.Errorf("remove preload entry: %w", err)
	}
	return nil
}

var _ storage.PreloadStore = (*Store)(nil)
