package db

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when no cafe matches the lookup.
	ErrNotFound = errors.New("cafe not found")
	// ErrConflict is returned when an insert violates the unique name.
	ErrConflict = errors.New("cafe already exists")
	// ErrMissingField is returned when a required column was left NULL.
	ErrMissingField = errors.New("required cafe field missing")
)

// constraintError maps a SQLite constraint failure onto one of the package
// sentinels, or returns nil.
func constraintError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return nil
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrConflict
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return ErrMissingField
	}

	// Primary result code only: fall back to the message text.
	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return ErrConflict
		case strings.Contains(msg, "NOT NULL"):
			return ErrMissingField
		}
	}
	return nil
}

// wrapExec wraps a failed statement, tagging constraint failures so callers
// can match them with errors.Is.
func wrapExec(what string, err error) error {
	if sentinel := constraintError(err); sentinel != nil {
		return fmt.Errorf("failed to %s: %w: %w", what, sentinel, err)
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
