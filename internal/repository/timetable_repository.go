package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository persists timetables and reads their templates.
type TimetableRepository struct {
	base
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{base{db: db}}
}

// FindByID returns a timetable or sql.ErrNoRows.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, school_id, academic_unit_id, academic_year_id, template_id, name, status, published_at, created_at, updated_at
FROM timetables WHERE id = $1`
	var tt models.Timetable
	if err := sqlx.GetContext(ctx, r.exec(ctx), &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// UpdateStatus moves a timetable through its lifecycle.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, publishedAt *time.Time) error {
	const query = `UPDATE timetables SET status = $2, published_at = COALESCE($3, published_at), updated_at = $4 WHERE id = $1`
	res, err := r.exec(ctx).ExecContext(ctx, query, id, status, publishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timetable status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPeriods returns the template's bell schedule ordered by period.
func (r *TimetableRepository) ListPeriods(ctx context.Context, templateID string) ([]models.TemplatePeriod, error) {
	const query = `SELECT template_id, period_number,
       to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, is_break
FROM template_periods WHERE template_id = $1 ORDER BY period_number ASC`
	var periods []models.TemplatePeriod
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &periods, query, templateID); err != nil {
		return nil, fmt.Errorf("list template periods: %w", err)
	}
	return periods, nil
}

// GetPeriod returns one template period or sql.ErrNoRows.
func (r *TimetableRepository) GetPeriod(ctx context.Context, templateID string, periodNumber int) (*models.TemplatePeriod, error) {
	const query = `SELECT template_id, period_number,
       to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, is_break
FROM template_periods WHERE template_id = $1 AND period_number = $2`
	var period models.TemplatePeriod
	if err := sqlx.GetContext(ctx, r.exec(ctx), &period, query, templateID, periodNumber); err != nil {
		return nil, err
	}
	return &period, nil
}
