package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor abstracts *sql.DB and *sql.Tx so repository methods can run
// inside a caller-owned transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// AdvisoryLocker takes transaction-scoped Postgres advisory locks. The
// reward path locks (user, tournament) pairs with it during check-then-create.
type AdvisoryLocker struct{}

func NewAdvisoryLocker() AdvisoryLocker {
	return AdvisoryLocker{}
}

// TryLock attempts an advisory lock keyed by two ids. It returns false
// without blocking when another transaction holds the lock; the caller
// surfaces that as a retriable contention error. The lock releases with the
// enclosing transaction.
func (AdvisoryLocker) TryLock(ctx context.Context, exec SQLExecutor, key1, key2 int) (bool, error) {
	var acquired bool
	err := exec.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1, $2)`, key1, key2).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("failed to acquire advisory lock (%d, %d): %w", key1, key2, err)
	}
	return acquired, nil
}
