package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const teacherColumns = `t.id, t.school_id, t.full_name, t.email, t.max_periods_per_day, t.max_periods_per_week,
       t.current_periods_per_week, t.is_active, t.created_at, t.updated_at`

// TeacherRepository reads teachers and maintains their cached workload.
type TeacherRepository struct {
	base
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{base{db: db}}
}

// FindByID returns a teacher or sql.ErrNoRows.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers t WHERE t.id = $1`
	var teacher models.Teacher
	if err := sqlx.GetContext(ctx, r.exec(ctx), &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListActiveBySchool returns active teachers ordered by name.
func (r *TeacherRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers t WHERE t.school_id = $1 AND t.is_active ORDER BY t.full_name ASC`
	var teachers []models.Teacher
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// ListLoads returns active teachers with their slot counts for the queried
// day and week, and whether they already teach at the queried period.
// A subject filter keeps only teachers actively assigned that subject.
func (r *TeacherRepository) ListLoads(ctx context.Context, q models.AvailabilityQuery) ([]models.TeacherLoad, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + teacherColumns + `,
       COUNT(s.id) FILTER (WHERE s.day_of_week = $2) AS daily_slots,
       COUNT(s.id) AS weekly_slots,
       COALESCE(BOOL_OR(s.day_of_week = $2 AND s.period_number = $3), FALSE) AS busy_at_slot
FROM teachers t
LEFT JOIN timetable_slots s ON s.teacher_id = t.id AND s.school_id = t.school_id AND s.is_active AND ` + teachingSlot + `
     AND EXISTS (SELECT 1 FROM timetables tt WHERE tt.id = s.timetable_id AND ` + conflictScope + `)
WHERE t.school_id = $1 AND t.is_active`)

	args := []interface{}{q.SchoolID, q.DayOfWeek, q.PeriodNumber}
	if q.SubjectID != "" {
		args = append(args, q.SubjectID)
		sb.WriteString(fmt.Sprintf(`
  AND EXISTS (SELECT 1 FROM teacher_class_assignments a WHERE a.teacher_id = t.id AND a.is_active AND a.subject_id = $%d`, len(args)))
		if q.AcademicYearID != "" {
			args = append(args, q.AcademicYearID)
			sb.WriteString(fmt.Sprintf(` AND a.academic_year_id = $%d`, len(args)))
		}
		sb.WriteString(`)`)
	}
	sb.WriteString(`
GROUP BY t.id
ORDER BY t.full_name ASC`)

	var loads []models.TeacherLoad
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &loads, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list teacher loads: %w", err)
	}
	return loads, nil
}

// UpdateCurrentPeriods persists the cached weekly period total.
func (r *TeacherRepository) UpdateCurrentPeriods(ctx context.Context, id string, periods int) error {
	const query = `UPDATE teachers SET current_periods_per_week = $2, updated_at = $3 WHERE id = $1`
	res, err := r.exec(ctx).ExecContext(ctx, query, id, periods, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update teacher workload: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check teacher workload rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
