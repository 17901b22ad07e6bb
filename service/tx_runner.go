package service

import (
	"context"
	"fmt"
	"time"

	"seatduel/database"
	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

// TxRunner executes a unit of work with serializable isolation, retrying
// on storage lock contention with a linearly growing delay. Every other
// error propagates immediately. The wrapped function must be safe to
// re-run from scratch: all side effects stay inside the transaction, and
// events published through the unit of work flush only after commit.
type TxRunner struct {
	uowFactory  UnitOfWorkFactory
	maxAttempts int
	baseDelay   time.Duration
}

// NewTxRunner creates a new transaction runner
func NewTxRunner(uowFactory UnitOfWorkFactory, maxAttempts int, baseDelay time.Duration) *TxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TxRunner{
		uowFactory:  uowFactory,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Do runs fn inside a fresh unit of work per attempt. On contention the
// transaction is rolled back and retried; exhausting every attempt
// surfaces ErrContentionExhausted so callers can distinguish "retry the
// whole request" from "this request is invalid".
func (r *TxRunner) Do(ctx context.Context, fn func(uow UnitOfWork) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		uow := r.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		err := fn(uow)
		if err == nil {
			if err = uow.Commit(); err == nil {
				return nil
			}
		}
		uow.Rollback()

		if !database.IsRetryable(err) {
			return err
		}
		lastErr = err

		log.WithFields(log.Fields{
			"attempt": attempt,
			"error":   err,
		}).Warn("Transaction hit lock contention, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.baseDelay * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: %v", models.ErrContentionExhausted, lastErr)
}

// DoRead runs fn inside a single unit of work that is always rolled back.
// Used by pure queries, which are not subject to contention retry.
func (r *TxRunner) DoRead(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return fn(uow)
}
