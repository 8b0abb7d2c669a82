package db

import (
	"context"      // Transaction deadlines
	"database/sql" // Isolation levels
	"errors"       // errors.As
	"time"         // Timeouts and backoff

	"crowdfund_system/internal/apperr" // Typed core errors

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// TxRunner runs units of work in serializable transactions and retries the
// ones that fail on deadlocks or lock timeouts.
type TxRunner struct {
	db         *gorm.DB
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewTxRunner builds a runner. A zero timeout disables the deadline.
func NewTxRunner(db *gorm.DB, timeout time.Duration, maxRetries int) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxRunner{db: db, timeout: timeout, maxRetries: maxRetries, backoff: 20 * time.Millisecond}
}

// DB returns the handle for reads that need no transaction
func (r *TxRunner) DB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Run executes fn inside one transaction. Errors from fn roll it back.
// Typed core errors are returned unchanged and never retried.
func (r *TxRunner) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff between attempts
			select {
			case <-ctx.Done():
				return apperr.ErrUnavailable.Wrap(ctx.Err())
			case <-time.After(time.Duration(attempt) * r.backoff):
			}
		}
		err = r.once(ctx, fn)
		if err == nil {
			return nil
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err // Business rule, retrying cannot help
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return apperr.ErrUnavailable.Wrap(err)
		}
		if !isTransient(err) {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt + 1, // Attempt number
			"error":   err.Error(), // Driver error
		}).Warn("Transaction conflict, retrying")
	}
	return apperr.ErrUnavailable.Wrap(err)
}

func (r *TxRunner) once(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	// SQLite transactions are always serializable
	if r.db.Dialector.Name() == "sqlite" {
		return r.db.WithContext(ctx).Transaction(fn)
	}
	return r.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
}
