package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const assignmentColumns = `a.id, a.school_id, a.teacher_id, a.subject_id, a.academic_unit_id, a.academic_year_id,
       a.periods_per_week, a.is_primary, a.effective_from, a.effective_to, a.is_active, a.created_at, a.updated_at`

const assignmentDetailSelect = `SELECT ` + assignmentColumns + `,
       t.full_name AS teacher_name, sub.code AS subject_code, sub.name AS subject_name, u.name AS unit_name
FROM teacher_class_assignments a
JOIN teachers t ON t.id = a.teacher_id
JOIN subjects sub ON sub.id = a.subject_id
JOIN academic_units u ON u.id = a.academic_unit_id`

// SubjectTeacherRepository persists teacher-subject-unit assignments.
type SubjectTeacherRepository struct {
	base
}

// NewSubjectTeacherRepository constructs the repository.
func NewSubjectTeacherRepository(db *sqlx.DB) *SubjectTeacherRepository {
	return &SubjectTeacherRepository{base{db: db}}
}

// FindByID returns an assignment or sql.ErrNoRows.
func (r *SubjectTeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherClassAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM teacher_class_assignments a WHERE a.id = $1`
	var assignment models.TeacherClassAssignment
	if err := sqlx.GetContext(ctx, r.exec(ctx), &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetDetail returns an assignment with names or sql.ErrNoRows.
func (r *SubjectTeacherRepository) GetDetail(ctx context.Context, id string) (*models.SubjectTeacherDetail, error) {
	query := assignmentDetailSelect + ` WHERE a.id = $1`
	var detail models.SubjectTeacherDetail
	if err := sqlx.GetContext(ctx, r.exec(ctx), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive reports an active assignment for the exact tuple, ignoring excludeID.
func (r *SubjectTeacherRepository) ExistsActive(ctx context.Context, teacherID, subjectID, unitID, yearID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
    SELECT 1 FROM teacher_class_assignments
    WHERE teacher_id = $1 AND subject_id = $2 AND academic_unit_id = $3 AND academic_year_id = $4 AND is_active AND id <> $5
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(ctx), &exists, query, teacherID, subjectID, unitID, yearID, excludeID); err != nil {
		return false, fmt.Errorf("check duplicate assignment: %w", err)
	}
	return exists, nil
}

// SumActivePeriods totals periodsPerWeek over the teacher's active
// assignments in a year, ignoring excludeID.
func (r *SubjectTeacherRepository) SumActivePeriods(ctx context.Context, teacherID, yearID, excludeID string) (int, error) {
	const query = `SELECT COALESCE(SUM(periods_per_week), 0) FROM teacher_class_assignments
WHERE teacher_id = $1 AND academic_year_id = $2 AND is_active AND id <> $3`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(ctx), &total, query, teacherID, yearID, excludeID); err != nil {
		return 0, fmt.Errorf("sum teacher periods: %w", err)
	}
	return total, nil
}

// ListActiveByUnitSubject returns the direct active assignments for a subject in a unit.
func (r *SubjectTeacherRepository) ListActiveByUnitSubject(ctx context.Context, unitID, subjectID, yearID string) ([]models.SubjectTeacherDetail, error) {
	query := assignmentDetailSelect + `
WHERE a.academic_unit_id = $1 AND a.subject_id = $2 AND a.academic_year_id = $3 AND a.is_active
ORDER BY a.is_primary DESC, t.full_name ASC`
	var details []models.SubjectTeacherDetail
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &details, query, unitID, subjectID, yearID); err != nil {
		return nil, fmt.Errorf("list unit subject assignments: %w", err)
	}
	return details, nil
}

// ListByUnit returns a unit's assignments for a year.
func (r *SubjectTeacherRepository) ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.SubjectTeacherDetail, error) {
	query := assignmentDetailSelect + `
WHERE a.academic_unit_id = $1 AND a.academic_year_id = $2 AND (a.is_active OR $3)
ORDER BY sub.code ASC, a.is_primary DESC, t.full_name ASC`
	var details []models.SubjectTeacherDetail
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &details, query, unitID, yearID, includeInactive); err != nil {
		return nil, fmt.Errorf("list unit assignments: %w", err)
	}
	return details, nil
}

// Create inserts an active assignment.
func (r *SubjectTeacherRepository) Create(ctx context.Context, assignment *models.TeacherClassAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.EffectiveFrom.IsZero() {
		assignment.EffectiveFrom = now
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	assignment.IsActive = true
	assignment.EffectiveTo = nil
	const query = `INSERT INTO teacher_class_assignments (id, school_id, teacher_id, subject_id, academic_unit_id, academic_year_id,
       periods_per_week, is_primary, effective_from, effective_to, is_active, created_at, updated_at)
VALUES (:id, :school_id, :teacher_id, :subject_id, :academic_unit_id, :academic_year_id,
       :periods_per_week, :is_primary, :effective_from, :effective_to, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, assignment); err != nil {
		return fmt.Errorf("create subject teacher assignment: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an assignment, including its
// active flag and effective window.
func (r *SubjectTeacherRepository) Update(ctx context.Context, assignment *models.TeacherClassAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_class_assignments SET teacher_id = :teacher_id, periods_per_week = :periods_per_week,
       is_primary = :is_primary, effective_from = :effective_from, effective_to = :effective_to,
       is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, assignment)
	if err != nil {
		return fmt.Errorf("update subject teacher assignment: %w", err)
	}
	return expectOneRow(res, "update subject teacher assignment")
}
