// Package store persists the pricing catalogue, recorded predictions and the activity log in
// SQLite. It implements the read collaborators and the sinks of the pricing predictor.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a row addressed by id or name does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout matches SQLite's CURRENT_TIMESTAMP so datetime() ordering keeps working.
const timeLayout = "2006-01-02 15:04:05"

// Store is the SQLite-backed pricing repository.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Store on an open, migrated database.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("store"), now: time.Now}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", raw)
}

func checkAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows for %s: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
