// ABOUTME: Key-value application settings store
// ABOUTME: Backs the install flag and the admin-editable app/mail/oauth2/vpn settings

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Well-known setting keys read by the auth core.
const (
	SettingInstalled    = "app_installed"
	SettingOrganization = "app_organization"
)

// SettingStore defines the key-value settings operations.
type SettingStore interface {
	GetSetting(ctx context.Context, key, fallback string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetBoolSetting(ctx context.Context, key string, fallback bool) (bool, error)
	SetBoolSetting(ctx context.Context, key string, value bool) error
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
}

// GetSetting returns the value for key, or fallback if the key is unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts the value for key.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	return upsertSetting(ctx, s.db, key, value)
}

// upsertSetting writes one key. Runs against the database or a
// transaction.
func upsertSetting(ctx context.Context, db execer, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// GetBoolSetting returns the boolean value for key, or fallback if unset.
// Any value other than "true" is false.
func (s *SQLiteStore) GetBoolSetting(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := s.GetSetting(ctx, key, "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return fallback, nil
	}
	return raw == "true", nil
}

// SetBoolSetting upserts the boolean value for key.
func (s *SQLiteStore) SetBoolSetting(ctx context.Context, key string, value bool) error {
	raw := "false"
	if value {
		raw = "true"
	}
	return s.SetSetting(ctx, key, raw)
}

// GetSettings returns the values for the given keys. Unset keys are
// returned as empty strings so callers always see every requested key.
func (s *SQLiteStore) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := s.GetSetting(ctx, key, "")
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}
