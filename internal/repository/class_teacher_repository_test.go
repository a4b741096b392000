package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var classTeacherDetailColumns = []string{"id", "school_id", "teacher_id", "academic_unit_id", "academic_year_id", "is_primary",
	"effective_from", "effective_to", "is_active", "created_at", "updated_at", "teacher_name", "unit_name"}

func TestClassTeacherRepositoryFindActiveByRole(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewClassTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM class_teachers ct .*WHERE ct.academic_unit_id = \$1 AND ct.academic_year_id = \$2 AND ct.is_primary = \$3`).
		WithArgs("u-10a", "y-2024", true, "").
		WillReturnRows(sqlmock.NewRows(classTeacherDetailColumns).
			AddRow("ct-1", "school-1", "t-singh", "u-10a", "y-2024", true, now, nil, true, now, now, "Mr Singh", "10-A"))

	incumbent, err := repo.FindActiveByRole(context.Background(), "u-10a", "y-2024", true, "")
	require.NoError(t, err)
	assert.Equal(t, "Mr Singh", incumbent.TeacherName)
	assert.True(t, incumbent.IsPrimary)

	mock.ExpectQuery(`FROM class_teachers ct .*ct.is_primary = \$3`).
		WithArgs("u-10a", "y-2024", false, "").
		WillReturnRows(sqlmock.NewRows(classTeacherDetailColumns))
	_, err = repo.FindActiveByRole(context.Background(), "u-10a", "y-2024", false, "")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassTeacherRepositoryCountActiveByTeacher(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewClassTeacherRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM class_teachers WHERE teacher_id = \$1`).
		WithArgs("t-rao", "y-2024", "ct-9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountActiveByTeacher(context.Background(), "t-rao", "y-2024", "ct-9")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassTeacherRepositoryCreateAndUpdate(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewClassTeacherRepository(db)

	mock.ExpectExec("INSERT INTO class_teachers").WillReturnResult(sqlmock.NewResult(1, 1))
	ct := &models.ClassTeacher{SchoolID: "school-1", TeacherID: "t-rao", AcademicUnitID: "u-9a", AcademicYearID: "y-2024"}
	require.NoError(t, repo.Create(context.Background(), ct))
	assert.NotEmpty(t, ct.ID)
	assert.True(t, ct.IsActive)

	ended := time.Now()
	ct.IsActive = false
	ct.EffectiveTo = &ended
	mock.ExpectExec("UPDATE class_teachers SET teacher_id").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), ct))
	assert.NoError(t, mock.ExpectationsWereMet())
}
