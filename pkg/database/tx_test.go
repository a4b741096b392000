package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTransactor(t *testing.T, retries int) (*Transactor, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewTransactor(sqlxDB, retries, nil), mock, func() { db.Close() }
}

func TestRunInTxCommits(t *testing.T) {
	tr, mock, cleanup := newMockTransactor(t, 3)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE teachers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		_, ok := TxFromContext(ctx)
		assert.True(t, ok)
		_, err := Executor(ctx, tr.db).ExecContext(ctx, "UPDATE teachers SET current_periods_per_week = 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	tr, mock, cleanup := newMockTransactor(t, 3)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("rejected")
	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRetriesSerializationFailures(t *testing.T) {
	tr, mock, cleanup := newMockTransactor(t, 3)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetable_slots").WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO timetable_slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		_, err := Executor(ctx, tr.db).ExecContext(ctx, "INSERT INTO timetable_slots (id) VALUES ('s1')")
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxGivesUpAfterRetries(t *testing.T) {
	tr, mock, cleanup := newMockTransactor(t, 2)
	defer cleanup()

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		return &pq.Error{Code: "40001"}
	})
	assert.True(t, IsSerializationFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedRunInTxJoinsOuter(t *testing.T) {
	tr, mock, cleanup := newMockTransactor(t, 1)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tr.RunInTx(context.Background(), func(ctx context.Context) error {
		outer, _ := TxFromContext(ctx)
		return tr.RunInTx(ctx, func(inner context.Context) error {
			tx, _ := TxFromContext(inner)
			assert.Same(t, outer, tx)
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}
