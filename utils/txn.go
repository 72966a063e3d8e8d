package utils

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	txnMaxAttempts     = 5
	txnInitialBackoff  = 25 * time.Millisecond
)

// RunTransactional executes fn inside a database transaction, retrying the
// whole transaction when the store reports a conflicting concurrent write
// (deadlock, serialization failure, lock timeout). Business-rule errors
// returned by fn are not retried; they roll the transaction back and surface
// to the caller unchanged.
func RunTransactional(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	backoff := txnInitialBackoff
	var lastErr error

	for attempt := 1; attempt <= txnMaxAttempts; attempt++ {
		err := db.Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxnError(err) {
			return err
		}

		lastErr = err
		if attempt < txnMaxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return fmt.Errorf("transaction retries exhausted: %w", lastErr)
}

func isRetryableTxnError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"deadlock",
		"try restarting transaction",
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"lock wait timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
