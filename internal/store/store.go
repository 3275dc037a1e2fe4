// Package store persists calibration profiles and application settings in
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("already exists")
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	x    *sqlx.DB
	path string
	log  logrus.FieldLogger
}

// New opens the database at path with foreign keys enforced and applies
// pending migrations.
func New(path string) (*Store, error) {
	return Open(path, nil)
}

// Open is New with a logger for migration output.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps the foreign_keys pragma on every statement.
	db.SetMaxOpenConns(1)

	// Repositories map columns through the json tags the API already uses.
	x := sqlx.NewDb(db, "sqlite")
	x.Mapper = reflectx.NewMapperFunc("json", strings.ToLower)

	s := &Store{db: db, x: x, path: path, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the connection for tests and ad hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Path() string { return s.path }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
