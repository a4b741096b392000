package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

type txKey struct{}

// Transactor runs units of work inside SERIALIZABLE transactions and retries
// them when PostgreSQL aborts the transaction with a serialization failure.
type Transactor struct {
	db      *sqlx.DB
	retries int
	logger  *zap.Logger
}

// NewTransactor builds a Transactor. retries below one means a single attempt.
func NewTransactor(db *sqlx.DB, retries int, logger *zap.Logger) *Transactor {
	if retries <= 0 {
		retries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transactor{db: db, retries: retries, logger: logger}
}

// RunInTx executes fn with a transaction stored in its context. Calls nested
// inside an active transaction join the outer one.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= t.retries; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
		t.logger.Warn("transaction aborted by serialization failure",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", t.retries),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (t *Transactor) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// TxFromContext returns the transaction started by RunInTx, if any.
func TxFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok && tx != nil
}

// Executor picks the active transaction over db.
func Executor(ctx context.Context, db sqlx.ExtContext) sqlx.ExtContext {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// IsUniqueViolation reports a unique index violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// IsSerializationFailure reports errors that are safe to retry from scratch.
func IsSerializationFailure(err error) bool {
	code := pqCode(err)
	return code == pqSerializationFailure || code == pqDeadlockDetected
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
