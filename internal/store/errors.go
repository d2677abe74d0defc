package store

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when an item does not exist in the list or has
// been deleted.
var ErrNotFound = errors.New("item not found")

// Postgres SQLSTATE codes that signal a retryable transaction failure.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsTransient reports whether err is a lock or serialization failure that
// may succeed when the whole transaction is retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.Code == sqlite3.ErrBusy || mattnErr.Code == sqlite3.ErrLocked
	}

	var moderncErr *sqlite.Error
	if errors.As(err, &moderncErr) {
		// Extended result codes carry the primary code in the low byte.
		code := moderncErr.Code() & 0xff
		return code == sqlitelib.SQLITE_BUSY || code == sqlitelib.SQLITE_LOCKED
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	return false
}
