package database

import (
	"context"
	"errors"

	"github.com/lib/pq"
	sqlite "modernc.org/sqlite"
)

// PostgreSQL SQLSTATE classes raised on write-write conflicts under
// concurrent transactions.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// SQLite primary result codes for lock contention.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsRetryable reports whether err is a transient conflict error for which
// re-running the whole transaction may succeed. Constraint violations,
// schema errors, and context cancellation are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected:
			return true
		}
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
		return false
	}

	return false
}
