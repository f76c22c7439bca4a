package database

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc is executed inside a transaction
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// Transaction runs fn in a transaction. Serialization failures and
// deadlocks are retried up to Config.TxRetries times.
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	attempts := db.config.TxRetries
	if attempts == 0 {
		attempts = 1
	}

	log := db.logger.WithContext(ctx)
	return retry.Do(
		func() error {
			return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return fn(ctx, tx)
			})
		},
		retry.Attempts(attempts),
		retry.Delay(20*time.Millisecond),
		retry.RetryIf(isRetryableError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("retrying transaction", zap.Uint("attempt", n+1), zap.Error(err))
		}),
		retry.Context(ctx),
	)
}

// isRetryableError matches PostgreSQL serialization_failure and deadlock_detected
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
