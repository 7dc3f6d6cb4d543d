package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KeyValueStore implements domain.KeyValueStore over the pool. Expired rows
// are filtered on read and overwritten on the next Set; no reaper runs.
type KeyValueStore struct {
	db *DB
}

// NewKeyValueStore creates a store over the given database
func NewKeyValueStore(db *DB) *KeyValueStore {
	return &KeyValueStore{db: db}
}

// Get retrieves a value, reporting whether a live entry exists
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM key_values WHERE key = $1 AND expires_at > now()`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key value: %w", err)
	}
	return value, true, nil
}

// Set writes a value with the given time to live
func (s *KeyValueStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO key_values (key, value, expires_at)
		VALUES ($1, $2, now() + $3 * interval '1 second')
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, int64(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to set key value: %w", err)
	}
	return nil
}
