package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type periodSummer interface {
	SumActivePeriods(ctx context.Context, teacherID, yearID, excludeID string) (int, error)
}

type workloadStore interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
	UpdateCurrentPeriods(ctx context.Context, id string, periods int) error
}

// WorkloadTracker keeps each teacher's cached weekly period count equal to
// the sum of their active subject-teacher assignments.
type WorkloadTracker struct {
	tx          txRunner
	teachers    workloadStore
	assignments periodSummer
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewWorkloadTracker constructs the tracker.
func NewWorkloadTracker(tx txRunner, teachers workloadStore, assignments periodSummer, metrics *MetricsService, logger *zap.Logger) *WorkloadTracker {
	if tx == nil {
		tx = inlineTx{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadTracker{tx: tx, teachers: teachers, assignments: assignments, metrics: metrics, logger: logger}
}

// UpdateTeacherCurrentPeriods recomputes and stores the teacher's weekly
// total for yearID. It joins the caller's transaction when ctx carries one.
func (t *WorkloadTracker) UpdateTeacherCurrentPeriods(ctx context.Context, teacherID, yearID string) (int, error) {
	total, err := t.assignments.SumActivePeriods(ctx, teacherID, yearID, "")
	if err != nil {
		return 0, internalErr(err, "failed to sum teacher workload")
	}
	if err := t.teachers.UpdateCurrentPeriods(ctx, teacherID, total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return 0, internalErr(err, "failed to store teacher workload")
	}
	t.metrics.RecordWorkloadRecompute()
	return total, nil
}

// Recompute refreshes one teacher of the caller's school.
func (t *WorkloadTracker) Recompute(ctx context.Context, claims *models.JWTClaims, teacherID, yearID string) (*dto.WorkloadSummary, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academicYearId is required")
	}
	var summary *dto.WorkloadSummary
	err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
		teacher, err := loadTeacher(ctx, t.teachers, claims.SchoolID, teacherID)
		if err != nil {
			return err
		}
		total, err := t.UpdateTeacherCurrentPeriods(ctx, teacher.ID, yearID)
		if err != nil {
			return err
		}
		summary = &dto.WorkloadSummary{
			TeacherID:             teacher.ID,
			AcademicYearID:        yearID,
			CurrentPeriodsPerWeek: total,
			MaxPeriodsPerWeek:     teacher.MaxPeriodsPerWeek,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RecomputeSchool refreshes every active teacher of schoolID, each in its own
// transaction, and returns how many were updated.
func (t *WorkloadTracker) RecomputeSchool(ctx context.Context, schoolID, yearID string) (int, error) {
	teachers, err := t.teachers.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return 0, internalErr(err, "failed to list teachers")
	}
	updated := 0
	for _, teacher := range teachers {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		err := t.tx.RunInTx(ctx, func(ctx context.Context) error {
			_, err := t.UpdateTeacherCurrentPeriods(ctx, teacher.ID, yearID)
			return err
		})
		if err != nil {
			return updated, err
		}
		updated++
	}
	t.logger.Info("teacher workloads recomputed",
		zap.String("school_id", schoolID), zap.String("academic_year_id", yearID), zap.Int("teachers", updated))
	return updated, nil
}
