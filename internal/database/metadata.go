package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Metadata keys.
const (
	MetaLastIndex = "last_index_completed"
	MetaLastScan  = "last_scan_completed"
)

// GetMetadata retrieves a metadata value by key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetTimestamp returns the time stored under key, or the zero time if unset.
func (d *Database) GetTimestamp(ctx context.Context, key string) (time.Time, error) {
	value, err := d.GetMetadata(ctx, key)
	if errors.Is(err, ErrNotFound) || value == "" {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetTimestamp stores t under key.
func (d *Database) SetTimestamp(ctx context.Context, key string, t time.Time) error {
	return d.SetMetadata(ctx, key, t.UTC().Format(time.RFC3339))
}
