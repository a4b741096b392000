package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type subjectTeacherStore interface {
	FindByID(ctx context.Context, id string) (*models.TeacherClassAssignment, error)
	GetDetail(ctx context.Context, id string) (*models.SubjectTeacherDetail, error)
	ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.SubjectTeacherDetail, error)
	Create(ctx context.Context, assignment *models.TeacherClassAssignment) error
	Update(ctx context.Context, assignment *models.TeacherClassAssignment) error
}

type subjectTeacherRules interface {
	ValidateSubjectTeacherAssignment(ctx context.Context, check models.SubjectTeacherCheck) (*models.ValidationResult, error)
}

type workloadUpdater interface {
	UpdateTeacherCurrentPeriods(ctx context.Context, teacherID, yearID string) (int, error)
}

type inheritanceResolver interface {
	GetSubjectTeachersWithInheritance(ctx context.Context, schoolID, unitID, subjectID, yearID string) ([]models.SubjectTeacherDetail, error)
	ValidateAllSubjectsHaveTeachers(ctx context.Context, schoolID, unitID, yearID string) (*models.SubjectCoverage, error)
}

// SubjectTeacherService manages subject-teacher assignments. Every write is
// validated and followed by a workload refresh inside the same transaction.
type SubjectTeacherService struct {
	tx        txRunner
	repo      subjectTeacherStore
	units     unitReader
	rules     subjectTeacherRules
	workload  workloadUpdater
	resolver  inheritanceResolver
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubjectTeacherService builds a SubjectTeacherService with sane defaults.
func NewSubjectTeacherService(
	tx txRunner,
	repo subjectTeacherStore,
	units unitReader,
	rules subjectTeacherRules,
	workload workloadUpdater,
	resolver inheritanceResolver,
	audit auditSink,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubjectTeacherService {
	if tx == nil {
		tx = inlineTx{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectTeacherService{
		tx:        tx,
		repo:      repo,
		units:     units,
		rules:     rules,
		workload:  workload,
		resolver:  resolver,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create assigns a teacher to a subject in a unit.
func (s *SubjectTeacherService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateSubjectTeacherRequest) (*models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject teacher payload")
	}

	var created *models.TeacherClassAssignment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		periods := req.PeriodsPerWeek
		result, err := s.rules.ValidateSubjectTeacherAssignment(ctx, models.SubjectTeacherCheck{
			SchoolID:       claims.SchoolID,
			TeacherID:      req.TeacherID,
			SubjectID:      req.SubjectID,
			AcademicUnitID: req.AcademicUnitID,
			AcademicYearID: req.AcademicYearID,
			PeriodsPerWeek: &periods,
		})
		if err != nil {
			return err
		}
		if err := gateValidation(result, req.OverrideWarnings); err != nil {
			return err
		}

		assignment := &models.TeacherClassAssignment{
			SchoolID:       claims.SchoolID,
			TeacherID:      req.TeacherID,
			SubjectID:      req.SubjectID,
			AcademicUnitID: req.AcademicUnitID,
			AcademicYearID: req.AcademicYearID,
			PeriodsPerWeek: req.PeriodsPerWeek,
			IsPrimary:      req.IsPrimary,
			EffectiveFrom:  s.effectiveFrom(req.EffectiveFrom),
			IsActive:       true,
		}
		if err := s.repo.Create(ctx, assignment); err != nil {
			return assignmentWriteErr(err, "failed to create subject teacher")
		}
		if _, err := s.workload.UpdateTeacherCurrentPeriods(ctx, assignment.TeacherID, assignment.AcademicYearID); err != nil {
			return err
		}
		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogCreate(ctx, models.CategorySubjectTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: created.ID,
		NewData:      created,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, created.ID)
}

// Update patches an active assignment and revalidates the result.
func (s *SubjectTeacherService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateSubjectTeacherRequest) (*models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject teacher payload")
	}

	var previous, next *models.TeacherClassAssignment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if !current.IsActive {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "assignment is inactive; reactivate it first")
		}

		updated := *current
		if req.TeacherID != nil && *req.TeacherID != "" {
			updated.TeacherID = *req.TeacherID
		}
		if req.PeriodsPerWeek != nil {
			updated.PeriodsPerWeek = *req.PeriodsPerWeek
		}
		if req.IsPrimary != nil {
			updated.IsPrimary = *req.IsPrimary
		}
		if req.EffectiveFrom != nil {
			updated.EffectiveFrom = *req.EffectiveFrom
		}

		check := models.SubjectTeacherCheck{
			SchoolID:            claims.SchoolID,
			TeacherID:           updated.TeacherID,
			SubjectID:           updated.SubjectID,
			AcademicUnitID:      updated.AcademicUnitID,
			AcademicYearID:      updated.AcademicYearID,
			ExcludeAssignmentID: current.ID,
		}
		// Workload is only rechecked when the patch moves periods.
		if updated.TeacherID != current.TeacherID || updated.PeriodsPerWeek != current.PeriodsPerWeek {
			check.PeriodsPerWeek = &updated.PeriodsPerWeek
		}
		result, err := s.rules.ValidateSubjectTeacherAssignment(ctx, check)
		if err != nil {
			return err
		}
		if err := gateValidation(result, req.OverrideWarnings); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, &updated); err != nil {
			return assignmentWriteErr(err, "failed to update subject teacher")
		}
		if err := s.refreshWorkload(ctx, updated.AcademicYearID, current.TeacherID, updated.TeacherID); err != nil {
			return err
		}
		previous, next = current, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogModification(ctx, models.CategorySubjectTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Deactivate ends an assignment without deleting it.
func (s *SubjectTeacherService) Deactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var previous, next *models.TeacherClassAssignment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if !current.IsActive {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already inactive")
		}
		updated := *current
		ended := s.now().UTC()
		updated.IsActive = false
		updated.EffectiveTo = &ended
		if err := s.repo.Update(ctx, &updated); err != nil {
			return assignmentWriteErr(err, "failed to deactivate subject teacher")
		}
		if _, err := s.workload.UpdateTeacherCurrentPeriods(ctx, updated.TeacherID, updated.AcademicYearID); err != nil {
			return err
		}
		previous, next = current, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogDeactivation(ctx, models.CategorySubjectTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Reactivate restores an inactive assignment after revalidating it.
func (s *SubjectTeacherService) Reactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var previous, next *models.TeacherClassAssignment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if current.IsActive {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already active")
		}
		result, err := s.rules.ValidateSubjectTeacherAssignment(ctx, models.SubjectTeacherCheck{
			SchoolID:            claims.SchoolID,
			TeacherID:           current.TeacherID,
			SubjectID:           current.SubjectID,
			AcademicUnitID:      current.AcademicUnitID,
			AcademicYearID:      current.AcademicYearID,
			PeriodsPerWeek:      &current.PeriodsPerWeek,
			ExcludeAssignmentID: current.ID,
		})
		if err != nil {
			return err
		}
		if err := gateValidation(result, req.OverrideWarnings); err != nil {
			return err
		}
		updated := *current
		updated.IsActive = true
		updated.EffectiveTo = nil
		if err := s.repo.Update(ctx, &updated); err != nil {
			return assignmentWriteErr(err, "failed to reactivate subject teacher")
		}
		if _, err := s.workload.UpdateTeacherCurrentPeriods(ctx, updated.TeacherID, updated.AcademicYearID); err != nil {
			return err
		}
		previous, next = current, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogReactivation(ctx, models.CategorySubjectTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Validate runs the assignment rules without writing.
func (s *SubjectTeacherService) Validate(ctx context.Context, claims *models.JWTClaims, req dto.ValidateSubjectTeacherRequest) (*models.ValidationResult, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject teacher payload")
	}
	return s.rules.ValidateSubjectTeacherAssignment(ctx, models.SubjectTeacherCheck{
		SchoolID:            claims.SchoolID,
		TeacherID:           req.TeacherID,
		SubjectID:           req.SubjectID,
		AcademicUnitID:      req.AcademicUnitID,
		AcademicYearID:      req.AcademicYearID,
		PeriodsPerWeek:      req.PeriodsPerWeek,
		ExcludeAssignmentID: req.ExcludeAssignmentID,
	})
}

// Resolve returns who teaches a subject to a unit, inheriting from the parent unit.
func (s *SubjectTeacherService) Resolve(ctx context.Context, claims *models.JWTClaims, q dto.ResolveSubjectTeacherQuery) ([]models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve query")
	}
	return s.resolver.GetSubjectTeachersWithInheritance(ctx, claims.SchoolID, q.AcademicUnitID, q.SubjectID, q.AcademicYearID)
}

// Coverage lists subjects with no teacher for the unit.
func (s *SubjectTeacherService) Coverage(ctx context.Context, claims *models.JWTClaims, unitID, yearID string) (*models.SubjectCoverage, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academicYearId is required")
	}
	return s.resolver.ValidateAllSubjectsHaveTeachers(ctx, claims.SchoolID, unitID, yearID)
}

// List returns the unit's assignments for a year.
func (s *SubjectTeacherService) List(ctx context.Context, claims *models.JWTClaims, filter dto.AssignmentFilter) ([]models.SubjectTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	if _, err := loadUnit(ctx, s.units, claims.SchoolID, filter.AcademicUnitID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUnit(ctx, filter.AcademicUnitID, filter.AcademicYearID, filter.IncludeInactive)
	if err != nil {
		return nil, internalErr(err, "failed to list subject teachers")
	}
	return nonNilDetails(rows), nil
}

func (s *SubjectTeacherService) load(ctx context.Context, schoolID, id string) (*models.TeacherClassAssignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject teacher assignment not found")
		}
		return nil, internalErr(err, "failed to load subject teacher")
	}
	if assignment.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject teacher assignment not found")
	}
	return assignment, nil
}

func (s *SubjectTeacherService) detail(ctx context.Context, id string) (*models.SubjectTeacherDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, internalErr(err, "failed to load subject teacher")
	}
	return detail, nil
}

func (s *SubjectTeacherService) refreshWorkload(ctx context.Context, yearID string, teacherIDs ...string) error {
	seen := map[string]bool{}
	for _, id := range teacherIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.workload.UpdateTeacherCurrentPeriods(ctx, id, yearID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubjectTeacherService) effectiveFrom(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return requested.UTC()
	}
	return s.now().UTC()
}

// gateValidation turns a validation result into the error the caller must
// see: rejection when errors exist, confirmation when warnings are unacknowledged.
func gateValidation(result *models.ValidationResult, override bool) error {
	if !result.IsValid {
		return appErrors.Wrap(&models.AssignmentRejectedError{Errors: result.Errors, Warnings: result.Warnings},
			appErrors.ErrAssignmentRejected.Code, appErrors.ErrAssignmentRejected.Status, appErrors.ErrAssignmentRejected.Message)
	}
	if len(result.Warnings) > 0 && !override {
		return appErrors.Wrap(&models.ConfirmationRequiredError{Warnings: result.Warnings},
			appErrors.ErrConfirmationRequired.Code, appErrors.ErrConfirmationRequired.Status, appErrors.ErrConfirmationRequired.Message)
	}
	return nil
}

func assignmentWriteErr(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "an active assignment already exists")
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return internalErr(err, message)
}
