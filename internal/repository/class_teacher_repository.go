package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const classTeacherColumns = `ct.id, ct.school_id, ct.teacher_id, ct.academic_unit_id, ct.academic_year_id, ct.is_primary,
       ct.effective_from, ct.effective_to, ct.is_active, ct.created_at, ct.updated_at`

const classTeacherDetailSelect = `SELECT ` + classTeacherColumns + `, t.full_name AS teacher_name, u.name AS unit_name
FROM class_teachers ct
JOIN teachers t ON t.id = ct.teacher_id
JOIN academic_units u ON u.id = ct.academic_unit_id`

// ClassTeacherRepository persists primary and co-class teacher assignments.
type ClassTeacherRepository struct {
	base
}

// NewClassTeacherRepository constructs the repository.
func NewClassTeacherRepository(db *sqlx.DB) *ClassTeacherRepository {
	return &ClassTeacherRepository{base{db: db}}
}

// FindByID returns an assignment or sql.ErrNoRows.
func (r *ClassTeacherRepository) FindByID(ctx context.Context, id string) (*models.ClassTeacher, error) {
	query := `SELECT ` + classTeacherColumns + ` FROM class_teachers ct WHERE ct.id = $1`
	var ct models.ClassTeacher
	if err := sqlx.GetContext(ctx, r.exec(ctx), &ct, query, id); err != nil {
		return nil, err
	}
	return &ct, nil
}

// GetDetail returns an assignment with names or sql.ErrNoRows.
func (r *ClassTeacherRepository) GetDetail(ctx context.Context, id string) (*models.ClassTeacherDetail, error) {
	query := classTeacherDetailSelect + ` WHERE ct.id = $1`
	var detail models.ClassTeacherDetail
	if err := sqlx.GetContext(ctx, r.exec(ctx), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActiveForTeacher reports an active row for (teacher, unit, year), ignoring excludeID.
func (r *ClassTeacherRepository) ExistsActiveForTeacher(ctx context.Context, teacherID, unitID, yearID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
    SELECT 1 FROM class_teachers
    WHERE teacher_id = $1 AND academic_unit_id = $2 AND academic_year_id = $3 AND is_active AND id <> $4
)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(ctx), &exists, query, teacherID, unitID, yearID, excludeID); err != nil {
		return false, fmt.Errorf("check class teacher duplicate: %w", err)
	}
	return exists, nil
}

// FindActiveByRole returns the active primary or co-class teacher of a unit,
// ignoring excludeID, or sql.ErrNoRows.
func (r *ClassTeacherRepository) FindActiveByRole(ctx context.Context, unitID, yearID string, isPrimary bool, excludeID string) (*models.ClassTeacherDetail, error) {
	query := classTeacherDetailSelect + `
WHERE ct.academic_unit_id = $1 AND ct.academic_year_id = $2 AND ct.is_primary = $3 AND ct.is_active AND ct.id <> $4
LIMIT 1`
	var detail models.ClassTeacherDetail
	if err := sqlx.GetContext(ctx, r.exec(ctx), &detail, query, unitID, yearID, isPrimary, excludeID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountActiveByTeacher counts the teacher's active class-teacher rows in a year.
func (r *ClassTeacherRepository) CountActiveByTeacher(ctx context.Context, teacherID, yearID, excludeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_teachers WHERE teacher_id = $1 AND academic_year_id = $2 AND is_active AND id <> $3`
	var count int
	if err := sqlx.GetContext(ctx, r.exec(ctx), &count, query, teacherID, yearID, excludeID); err != nil {
		return 0, fmt.Errorf("count class teacher assignments: %w", err)
	}
	return count, nil
}

// ListByUnit returns a unit's class teachers for a year, primary first.
func (r *ClassTeacherRepository) ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.ClassTeacherDetail, error) {
	query := classTeacherDetailSelect + `
WHERE ct.academic_unit_id = $1 AND ct.academic_year_id = $2 AND (ct.is_active OR $3)
ORDER BY ct.is_active DESC, ct.is_primary DESC, ct.effective_from DESC`
	var details []models.ClassTeacherDetail
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &details, query, unitID, yearID, includeInactive); err != nil {
		return nil, fmt.Errorf("list class teachers: %w", err)
	}
	return details, nil
}

// Create inserts an active class-teacher row.
func (r *ClassTeacherRepository) Create(ctx context.Context, ct *models.ClassTeacher) error {
	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ct.EffectiveFrom.IsZero() {
		ct.EffectiveFrom = now
	}
	ct.CreatedAt = now
	ct.UpdatedAt = now
	ct.IsActive = true
	ct.EffectiveTo = nil
	const query = `INSERT INTO class_teachers (id, school_id, teacher_id, academic_unit_id, academic_year_id, is_primary,
       effective_from, effective_to, is_active, created_at, updated_at)
VALUES (:id, :school_id, :teacher_id, :academic_unit_id, :academic_year_id, :is_primary,
       :effective_from, :effective_to, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, ct); err != nil {
		return fmt.Errorf("create class teacher: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a class-teacher row.
func (r *ClassTeacherRepository) Update(ctx context.Context, ct *models.ClassTeacher) error {
	ct.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_teachers SET teacher_id = :teacher_id, is_primary = :is_primary, effective_from = :effective_from,
       effective_to = :effective_to, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, ct)
	if err != nil {
		return fmt.Errorf("update class teacher: %w", err)
	}
	return expectOneRow(res, "update class teacher")
}
