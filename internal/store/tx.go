package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	txMaxRetries   = 5
	txRetryBackoff = 10 * time.Millisecond
)

// runInTx runs fn inside a transaction, retrying the whole transaction
// with fibonacci backoff when SQLite reports a concurrent writer. The
// read-then-write operations in this package depend on fn being safe to
// re-run from scratch.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	b := retry.WithMaxRetries(txMaxRetries, retry.NewFibonacci(txRetryBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return wrapBusy(fmt.Errorf("begin tx: %w", err))
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			return wrapBusy(err)
		}

		if err := tx.Commit(); err != nil {
			return wrapBusy(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
}

// wrapBusy marks lock-contention errors as retryable for runInTx.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	if isBusy(err) {
		return retry.RetryableError(err)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
