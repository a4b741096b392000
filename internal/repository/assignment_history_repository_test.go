package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestAssignmentHistoryRepositoryInsertAndList(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewAssignmentHistoryRepository(db)

	mock.ExpectExec("INSERT INTO assignment_history").WillReturnResult(sqlmock.NewResult(1, 1))
	entry := &models.AssignmentHistory{
		SchoolID:     "school-1",
		Category:     models.CategorySubjectTeacher,
		AssignmentID: "st-1",
		Action:       models.HistoryActionCreate,
		NewData:      types.JSONText(`{"periodsPerWeek":6}`),
		ChangedBy:    "admin-1",
	}
	require.NoError(t, repo.Insert(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	now := time.Now()
	mock.ExpectQuery(`FROM assignment_history\s+WHERE school_id = \$1 AND category = \$2 AND assignment_id = \$3\s+ORDER BY created_at ASC`).
		WithArgs("school-1", models.CategorySubjectTeacher, "st-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "category", "assignment_id", "action", "previous_data", "new_data", "changed_by", "change_reason", "created_at"}).
			AddRow(entry.ID, "school-1", "SUBJECT_TEACHER", "st-1", "CREATE", nil, []byte(`{"periodsPerWeek":6}`), "admin-1", nil, now).
			AddRow("h-2", "school-1", "SUBJECT_TEACHER", "st-1", "DEACTIVATE", []byte(`{"periodsPerWeek":6}`), []byte(`{"isActive":false}`), "admin-1", "transfer", now.Add(time.Minute)))

	entries, err := repo.List(context.Background(), "school-1", models.CategorySubjectTeacher, "st-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.HistoryActionCreate, entries[0].Action)
	assert.JSONEq(t, `{"isActive":false}`, string(entries[1].NewData))
	require.NotNil(t, entries[1].ChangeReason)
	assert.Equal(t, "transfer", *entries[1].ChangeReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
