package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// AssignmentHistoryRepository appends and reads assignment history.
type AssignmentHistoryRepository struct {
	base
}

// NewAssignmentHistoryRepository constructs the repository.
func NewAssignmentHistoryRepository(db *sqlx.DB) *AssignmentHistoryRepository {
	return &AssignmentHistoryRepository{base{db: db}}
}

// Insert appends one history row.
func (r *AssignmentHistoryRepository) Insert(ctx context.Context, entry *models.AssignmentHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignment_history (id, school_id, category, assignment_id, action, previous_data, new_data, changed_by, change_reason, created_at)
VALUES (:id, :school_id, :category, :assignment_id, :action, :previous_data, :new_data, :changed_by, :change_reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, entry); err != nil {
		return fmt.Errorf("insert assignment history: %w", err)
	}
	return nil
}

// List returns the history of one assignment, oldest first.
func (r *AssignmentHistoryRepository) List(ctx context.Context, schoolID string, category models.AssignmentCategory, assignmentID string) ([]models.AssignmentHistory, error) {
	const query = `SELECT id, school_id, category, assignment_id, action, previous_data, new_data, changed_by, change_reason, created_at
FROM assignment_history
WHERE school_id = $1 AND category = $2 AND assignment_id = $3
ORDER BY created_at ASC`
	var entries []models.AssignmentHistory
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &entries, query, schoolID, category, assignmentID); err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	return entries, nil
}
