package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// KeyActiveProfile holds the ID of the profile applied at startup.
const KeyActiveProfile = "active_profile"

// SettingsRepository is a string key/value table.
type SettingsRepository struct {
	db *sqlx.DB
}

func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.x}
}

// Get returns the value under key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.Get(&value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set stores value under key, replacing any existing value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}
