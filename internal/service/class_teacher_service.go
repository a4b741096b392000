package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classTeacherStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassTeacher, error)
	GetDetail(ctx context.Context, id string) (*models.ClassTeacherDetail, error)
	FindActiveByRole(ctx context.Context, unitID, yearID string, isPrimary bool, excludeID string) (*models.ClassTeacherDetail, error)
	ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.ClassTeacherDetail, error)
	Create(ctx context.Context, ct *models.ClassTeacher) error
	Update(ctx context.Context, ct *models.ClassTeacher) error
}

type classTeacherRules interface {
	ValidateClassTeacherAssignment(ctx context.Context, check models.ClassTeacherCheck) (*models.ValidationResult, error)
}

// ClassTeacherService manages primary and co-class teachers. A unit holds at
// most one of each per year; confirming a new co-class teacher retires the
// incumbent in the same transaction.
type ClassTeacherService struct {
	tx        txRunner
	repo      classTeacherStore
	units     unitReader
	rules     classTeacherRules
	audit     auditSink
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassTeacherService constructs the service.
func NewClassTeacherService(
	tx txRunner,
	repo classTeacherStore,
	units unitReader,
	rules classTeacherRules,
	audit auditSink,
	validate *validator.Validate,
	logger *zap.Logger,
) *ClassTeacherService {
	if tx == nil {
		tx = inlineTx{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassTeacherService{
		tx:        tx,
		repo:      repo,
		units:     units,
		rules:     rules,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// replacement pairs a retired co-class teacher with its prior state for audit.
type replacement struct {
	previous *models.ClassTeacher
	next     *models.ClassTeacher
}

// Create assigns a class teacher.
func (s *ClassTeacherService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateClassTeacherRequest) (*models.ClassTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class teacher payload")
	}

	var created *models.ClassTeacher
	var replaced *replacement
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		result, err := s.rules.ValidateClassTeacherAssignment(ctx, models.ClassTeacherCheck{
			SchoolID:       claims.SchoolID,
			TeacherID:      req.TeacherID,
			AcademicUnitID: req.AcademicUnitID,
			AcademicYearID: req.AcademicYearID,
			IsPrimary:      req.IsPrimary,
		})
		if err != nil {
			return err
		}
		if err := gateValidation(result, req.OverrideWarnings); err != nil {
			return err
		}

		ct := &models.ClassTeacher{
			SchoolID:       claims.SchoolID,
			TeacherID:      req.TeacherID,
			AcademicUnitID: req.AcademicUnitID,
			AcademicYearID: req.AcademicYearID,
			IsPrimary:      req.IsPrimary,
			EffectiveFrom:  s.effectiveFrom(req.EffectiveFrom),
			IsActive:       true,
		}
		if !ct.IsPrimary {
			if replaced, err = s.retireCoClassTeacher(ctx, ct, ""); err != nil {
				return err
			}
		}
		if err := s.repo.Create(ctx, ct); err != nil {
			return assignmentWriteErr(err, "failed to create class teacher")
		}
		created = ct
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditReplacement(ctx, claims, replaced, created.TeacherID)
	s.audit.LogCreate(ctx, models.CategoryClassTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: created.ID,
		NewData:      created,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, created.ID)
}

// Update changes the teacher or role of an active class-teacher row.
func (s *ClassTeacherService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateClassTeacherRequest) (*models.ClassTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class teacher payload")
	}

	var previous, next *models.ClassTeacher
	var replaced *replacement
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
		if req.IsPrimary != nil {
			updated.IsPrimary = *req.IsPrimary
		}

		result, err := s.rules.ValidateClassTeacherAssignment(ctx, models.ClassTeacherCheck{
			SchoolID:            claims.SchoolID,
			TeacherID:           updated.TeacherID,
			AcademicUnitID:      updated.AcademicUnitID,
			AcademicYearID:      updated.AcademicYearID,
			IsPrimary:           updated.IsPrimary,
			ExcludeAssignmentID: current.ID,
		})
		if err != nil {
			return err
		}
		if err := gateValidation(result, req.OverrideWarnings); err != nil {
			return err
		}
		if !updated.IsPrimary {
			if replaced, err = s.retireCoClassTeacher(ctx, &updated, current.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, &updated); err != nil {
			return assignmentWriteErr(err, "failed to update class teacher")
		}
		previous, next = current, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditReplacement(ctx, claims, replaced, next.TeacherID)
	s.audit.LogModification(ctx, models.CategoryClassTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Deactivate ends a class-teacher assignment.
func (s *ClassTeacherService) Deactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.ClassTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var previous, next *models.ClassTeacher
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if !current.IsActive {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already inactive")
		}
		updated := s.ended(current)
		if err := s.repo.Update(ctx, updated); err != nil {
			return assignmentWriteErr(err, "failed to deactivate class teacher")
		}
		previous, next = current, updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogDeactivation(ctx, models.CategoryClassTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Reactivate restores an inactive class-teacher row after revalidation.
func (s *ClassTeacherService) Reactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.ClassTeacherDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var previous, next *models.ClassTeacher
	var replaced *replacement
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if current.IsActive {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already active")
		}
		result, err := s.rules.ValidateClassTeacherAssignment(ctx, models.ClassTeacherCheck{
			SchoolID:            claims.SchoolID,
			TeacherID:           current.TeacherID,
			AcademicUnitID:      current.AcademicUnitID,
			AcademicYearID:      current.AcademicYearID,
			IsPrimary:           current.IsPrimary,
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
		if !updated.IsPrimary {
			if replaced, err = s.retireCoClassTeacher(ctx, &updated, current.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, &updated); err != nil {
			return assignmentWriteErr(err, "failed to reactivate class teacher")
		}
		previous, next = current, &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditReplacement(ctx, claims, replaced, next.TeacherID)
	s.audit.LogReactivation(ctx, models.CategoryClassTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: next.ID,
		PreviousData: previous,
		NewData:      next,
		ChangedBy:    claims.UserID,
		ChangeReason: req.ChangeReason,
	})
	return s.detail(ctx, next.ID)
}

// Validate runs class-teacher rules without writing.
func (s *ClassTeacherService) Validate(ctx context.Context, claims *models.JWTClaims, req dto.ValidateClassTeacherRequest) (*models.ValidationResult, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class teacher payload")
	}
	return s.rules.ValidateClassTeacherAssignment(ctx, models.ClassTeacherCheck{
		SchoolID:            claims.SchoolID,
		TeacherID:           req.TeacherID,
		AcademicUnitID:      req.AcademicUnitID,
		AcademicYearID:      req.AcademicYearID,
		IsPrimary:           req.IsPrimary,
		ExcludeAssignmentID: req.ExcludeAssignmentID,
	})
}

// List returns the unit's class teachers for a year.
func (s *ClassTeacherService) List(ctx context.Context, claims *models.JWTClaims, filter dto.AssignmentFilter) ([]models.ClassTeacherDetail, error) {
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
		return nil, internalErr(err, "failed to list class teachers")
	}
	if rows == nil {
		rows = []models.ClassTeacherDetail{}
	}
	return rows, nil
}

// retireCoClassTeacher deactivates the unit's current co-class teacher when
// someone else is taking the role.
func (s *ClassTeacherService) retireCoClassTeacher(ctx context.Context, incoming *models.ClassTeacher, excludeID string) (*replacement, error) {
	incumbent, err := s.repo.FindActiveByRole(ctx, incoming.AcademicUnitID, incoming.AcademicYearID, false, excludeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalErr(err, "failed to load co-class teacher")
	}
	if incumbent == nil || incumbent.TeacherID == incoming.TeacherID {
		return nil, nil
	}
	prior := incumbent.ClassTeacher
	retired := s.ended(&prior)
	if err := s.repo.Update(ctx, retired); err != nil {
		return nil, assignmentWriteErr(err, "failed to replace co-class teacher")
	}
	s.logger.Info("co-class teacher replaced",
		zap.String("unit_id", incoming.AcademicUnitID),
		zap.String("previous_teacher_id", prior.TeacherID),
		zap.String("teacher_id", incoming.TeacherID),
	)
	return &replacement{previous: &prior, next: retired}, nil
}

func (s *ClassTeacherService) auditReplacement(ctx context.Context, claims *models.JWTClaims, r *replacement, newTeacherID string) {
	if r == nil {
		return
	}
	reason := fmt.Sprintf("replaced by co-class teacher %s", newTeacherID)
	s.audit.LogDeactivation(ctx, models.CategoryClassTeacher, models.AuditEntry{
		SchoolID:     claims.SchoolID,
		AssignmentID: r.next.ID,
		PreviousData: r.previous,
		NewData:      r.next,
		ChangedBy:    claims.UserID,
		ChangeReason: &reason,
	})
}

func (s *ClassTeacherService) ended(ct *models.ClassTeacher) *models.ClassTeacher {
	out := *ct
	now := s.now().UTC()
	out.IsActive = false
	out.EffectiveTo = &now
	return &out
}

func (s *ClassTeacherService) load(ctx context.Context, schoolID, id string) (*models.ClassTeacher, error) {
	ct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class teacher assignment not found")
		}
		return nil, internalErr(err, "failed to load class teacher")
	}
	if ct.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class teacher assignment not found")
	}
	return ct, nil
}

func (s *ClassTeacherService) detail(ctx context.Context, id string) (*models.ClassTeacherDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, internalErr(err, "failed to load class teacher")
	}
	return detail, nil
}

func (s *ClassTeacherService) effectiveFrom(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return requested.UTC()
	}
	return s.now().UTC()
}
