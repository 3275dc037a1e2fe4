package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goggybox/touchtypEd/internal/region"
	"github.com/goggybox/touchtypEd/internal/segment"
)

// Profile is a named calibration: one HSV range per anchor class, saved for
// a particular keyboard and lighting setup.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// rangeRow is one profile_ranges row; columns map through the json tags.
type rangeRow struct {
	ProfileID string       `json:"profile_id"`
	Class     region.Class `json:"class"`
	segment.HSVRange
}

const (
	selectProfile = `SELECT id, name, created_at, updated_at FROM profiles`
	insertRange   = `INSERT INTO profile_ranges (profile_id, class, low_h, low_s, low_v, high_h, high_s, high_v)
		VALUES (:profile_id, :class, :low_h, :low_s, :low_v, :high_h, :high_s, :high_v)`
)

// ProfileRepository stores calibration profiles and their ranges.
type ProfileRepository struct {
	db *sqlx.DB
}

func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.x}
}

// Create inserts p, assigning a UUID when p.ID is empty. A taken name
// yields ErrConflict.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.NamedExec(
		`INSERT INTO profiles (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`, p)
	if isUniqueViolation(err) {
		return fmt.Errorf("profile %q: %w", p.Name, ErrConflict)
	}
	return err
}

func (r *ProfileRepository) Get(id string) (*Profile, error) {
	return r.one(selectProfile+` WHERE id = ?`, id)
}

func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return r.one(selectProfile+` WHERE name = ?`, name)
}

func (r *ProfileRepository) one(query string, arg any) (*Profile, error) {
	var p Profile
	if err := r.db.Get(&p, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns every profile ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	profiles := []*Profile{}
	if err := r.db.Select(&profiles, selectProfile+` ORDER BY name`); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Delete removes a profile; its ranges go with it through the foreign key.
func (r *ProfileRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetRanges replaces every range stored for the profile.
func (r *ProfileRepository) SetRanges(id string, ranges map[region.Class]segment.HSVRange) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE profiles SET updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM profile_ranges WHERE profile_id = ?`, id); err != nil {
		return err
	}
	for class, hr := range ranges {
		if _, err := tx.NamedExec(insertRange, rangeRow{ProfileID: id, Class: class, HSVRange: hr}); err != nil {
			return fmt.Errorf("range %s: %w", class, err)
		}
	}
	return tx.Commit()
}

// Ranges returns the ranges stored for the profile.
func (r *ProfileRepository) Ranges(id string) (map[region.Class]segment.HSVRange, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}

	var rows []rangeRow
	err := r.db.Select(&rows,
		`SELECT profile_id, class, low_h, low_s, low_v, high_h, high_s, high_v
		 FROM profile_ranges WHERE profile_id = ?`, id)
	if err != nil {
		return nil, err
	}

	ranges := make(map[region.Class]segment.HSVRange, len(rows))
	for _, row := range rows {
		ranges[row.Class] = row.HSVRange
	}
	return ranges, nil
}

// Activate records id as the active profile and returns its ranges.
func (r *ProfileRepository) Activate(id string) (map[region.Class]segment.HSVRange, error) {
	ranges, err := r.Ranges(id)
	if err != nil {
		return nil, err
	}
	if err := (&SettingsRepository{db: r.db}).Set(KeyActiveProfile, id); err != nil {
		return nil, err
	}
	return ranges, nil
}

// Active returns the active profile and its ranges. It returns ErrNotFound
// when no profile is active or the active profile was deleted.
func (r *ProfileRepository) Active() (*Profile, map[region.Class]segment.HSVRange, error) {
	id, err := (&SettingsRepository{db: r.db}).Get(KeyActiveProfile)
	if err != nil {
		return nil, nil, err
	}
	p, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ranges, err := r.Ranges(id)
	if err != nil {
		return nil, nil, err
	}
	return p, ranges, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
