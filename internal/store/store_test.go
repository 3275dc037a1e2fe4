package store

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestStore opens a Store in a temporary directory, closed at cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "touchtyped.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchtyped.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}

	for kind, names := range map[string][]string{
		"table": {"profiles", "profile_ranges", "settings"},
		"index": {"idx_profile_ranges_profile_id"},
	} {
		for _, name := range names {
			var got string
			err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&got)
			if err != nil {
				t.Errorf("%s %s: %v", kind, name, err)
			}
		}
	}

	v, dirty, err := s.Version()
	if err != nil || dirty || v != 2 {
		t.Errorf("Version() = %d, %v, %v; want 2, false, nil", v, dirty, err)
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchtyped.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Settings().Set(KeyActiveProfile, "p1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	if v, err := s.Settings().Get(KeyActiveProfile); err != nil || v != "p1" {
		t.Errorf("Get() = %q, %v; want p1", v, err)
	}
}

func TestNew_RefusesDirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touchtyped.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.DB().Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}
	s.Close()

	if s, err := New(path); err == nil {
		s.Close()
		t.Fatal("expected an error for an interrupted migration")
	}
}

func TestStore_ForeignKeysAndClose(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "touchtyped.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var fk int
	if err := s.DB().QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Errorf("foreign_keys = %d, %v; want 1", fk, err)
	}

	_, err = s.DB().Exec(`INSERT INTO profile_ranges (profile_id, class, low_h, low_s, low_v, high_h, high_s, high_v)
		VALUES ('ghost', 'green', 0, 0, 0, 1, 1, 1)`)
	if err == nil {
		t.Error("orphan range should violate the foreign key")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.DB().Exec(`SELECT 1`); err == nil {
		t.Error("queries should fail after Close")
	}
}
