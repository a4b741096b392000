package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SubjectRepository reads the subject catalog.
type SubjectRepository struct {
	base
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{base{db: db}}
}

// FindByID returns a subject or sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, school_id, code, name, credits_per_week, is_active, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := sqlx.GetContext(ctx, r.exec(ctx), &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListActiveBySchool returns every active subject of a school.
func (r *SubjectRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Subject, error) {
	const query = `SELECT id, school_id, code, name, credits_per_week, is_active, created_at, updated_at
FROM subjects WHERE school_id = $1 AND is_active ORDER BY code ASC`
	var subjects []models.Subject
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &subjects, query, schoolID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// AcademicUnitRepository reads classes and sections.
type AcademicUnitRepository struct {
	base
}

// NewAcademicUnitRepository constructs the repository.
func NewAcademicUnitRepository(db *sqlx.DB) *AcademicUnitRepository {
	return &AcademicUnitRepository{base{db: db}}
}

// FindByID returns a unit or sql.ErrNoRows.
func (r *AcademicUnitRepository) FindByID(ctx context.Context, id string) (*models.AcademicUnit, error) {
	const query = `SELECT id, school_id, name, type, parent_id, current_students, is_active, created_at, updated_at
FROM academic_units WHERE id = $1`
	var unit models.AcademicUnit
	if err := sqlx.GetContext(ctx, r.exec(ctx), &unit, query, id); err != nil {
		return nil, err
	}
	return &unit, nil
}

// AcademicYearRepository reads academic years.
type AcademicYearRepository struct {
	base
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{base{db: db}}
}

// FindByID returns a year or sql.ErrNoRows.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT id, school_id, name, start_date, end_date, is_current FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := sqlx.GetContext(ctx, r.exec(ctx), &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// GetCurrent returns the school's current year or sql.ErrNoRows.
func (r *AcademicYearRepository) GetCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	const query = `SELECT id, school_id, name, start_date, end_date, is_current
FROM academic_years WHERE school_id = $1 AND is_current ORDER BY start_date DESC LIMIT 1`
	var year models.AcademicYear
	if err := sqlx.GetContext(ctx, r.exec(ctx), &year, query, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}
