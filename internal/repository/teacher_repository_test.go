package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
)

func TestTeacherRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT t.id, .* FROM teachers t WHERE t.id = \$1`).
		WithArgs("t-rao").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t-rao", "school-1", "Ms Rao", nil, 6, 24, 18, true, now, now))

	teacher, err := repo.FindByID(context.Background(), "t-rao")
	require.NoError(t, err)
	assert.Equal(t, "Ms Rao", teacher.FullName)
	assert.Equal(t, 24, teacher.MaxPeriodsPerWeek)
	assert.Nil(t, teacher.Email)

	mock.ExpectQuery(`FROM teachers t WHERE t.id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListLoadsWithSubjectFilter(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	columns := append(append([]string{}, teacherRowColumns...), "daily_slots", "weekly_slots", "busy_at_slot")
	mock.ExpectQuery(`(?s)FROM teachers t\s+LEFT JOIN timetable_slots s .*a.subject_id = \$4 AND a.academic_year_id = \$5\).*GROUP BY t.id`).
		WithArgs("school-1", 2, 3, "sub-math", "y-2024").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("t-rao", "school-1", "Ms Rao", nil, 6, 24, 18, true, now, now, 2, 10, false).
			AddRow("t-singh", "school-1", "Mr Singh", nil, 6, 24, 20, true, now, now, 3, 12, true))

	loads, err := repo.ListLoads(context.Background(), models.AvailabilityQuery{
		SchoolID: "school-1", DayOfWeek: 2, PeriodNumber: 3, SubjectID: "sub-math", AcademicYearID: "y-2024",
	})
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "t-rao", loads[0].ID)
	assert.Equal(t, 10, loads[0].WeeklySlots)
	assert.True(t, loads[1].BusyAtSlot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateCurrentPeriods(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(`UPDATE teachers SET current_periods_per_week = \$2`).
		WithArgs("t-rao", 22, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCurrentPeriods(context.Background(), "t-rao", 22))

	mock.ExpectExec(`UPDATE teachers SET current_periods_per_week = \$2`).
		WithArgs("missing", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateCurrentPeriods(context.Background(), "missing", 0), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryJoinsContextTransaction(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)
	tx := database.NewTransactor(db, 0, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE teachers SET current_periods_per_week = \$2`).
		WithArgs("t-rao", 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.RunInTx(context.Background(), func(ctx context.Context) error {
		return repo.UpdateCurrentPeriods(ctx, "t-rao", 12)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
