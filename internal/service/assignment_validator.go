package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type subjectTeacherLookup interface {
	ExistsActive(ctx context.Context, teacherID, subjectID, unitID, yearID, excludeID string) (bool, error)
	SumActivePeriods(ctx context.Context, teacherID, yearID, excludeID string) (int, error)
}

type classTeacherLookup interface {
	ExistsActiveForTeacher(ctx context.Context, teacherID, unitID, yearID, excludeID string) (bool, error)
	FindActiveByRole(ctx context.Context, unitID, yearID string, isPrimary bool, excludeID string) (*models.ClassTeacherDetail, error)
	CountActiveByTeacher(ctx context.Context, teacherID, yearID, excludeID string) (int, error)
}

// AssignmentRules holds the tunable limits applied by the validator.
type AssignmentRules struct {
	ClassTeacherMaxPerTeacher int
	WorkloadHardCapRatio      float64
}

// AssignmentValidator decides whether subject-teacher and class-teacher
// assignments may be created, separating blocking errors from warnings the
// caller may acknowledge.
type AssignmentValidator struct {
	teachers        teacherReader
	units           unitReader
	subjects        subjectReader
	subjectTeachers subjectTeacherLookup
	classTeachers   classTeacherLookup
	rules           AssignmentRules
	metrics         *MetricsService
	logger          *zap.Logger
}

// NewAssignmentValidator builds a validator; zero rules fall back to 3 units
// per class teacher and a 1.5 hard workload ratio.
func NewAssignmentValidator(
	teachers teacherReader,
	units unitReader,
	subjects subjectReader,
	subjectTeachers subjectTeacherLookup,
	classTeachers classTeacherLookup,
	rules AssignmentRules,
	metrics *MetricsService,
	logger *zap.Logger,
) *AssignmentValidator {
	if rules.ClassTeacherMaxPerTeacher <= 0 {
		rules.ClassTeacherMaxPerTeacher = 3
	}
	if rules.WorkloadHardCapRatio < 1 {
		rules.WorkloadHardCapRatio = 1.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentValidator{
		teachers:        teachers,
		units:           units,
		subjects:        subjects,
		subjectTeachers: subjectTeachers,
		classTeachers:   classTeachers,
		rules:           rules,
		metrics:         metrics,
		logger:          logger,
	}
}

// ValidateSubjectTeacherAssignment checks existence and activity of the
// teacher, unit and subject, rejects duplicates, and compares the teacher's
// resulting weekly load against the soft and hard caps.
func (v *AssignmentValidator) ValidateSubjectTeacherAssignment(ctx context.Context, check models.SubjectTeacherCheck) (*models.ValidationResult, error) {
	result := models.NewValidationResult()

	teacher, err := v.activeTeacher(ctx, check.SchoolID, check.TeacherID, result)
	if err != nil {
		return nil, err
	}
	unit, err := v.activeUnit(ctx, check.SchoolID, check.AcademicUnitID, result)
	if err != nil {
		return nil, err
	}
	subject, err := v.subjects.FindByID(ctx, check.SubjectID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result.AddError("Subject not found")
	case err != nil:
		return nil, internalErr(err, "failed to load subject")
	case subject.SchoolID != check.SchoolID:
		result.AddError("Subject not found")
		subject = nil
	case !subject.IsActive:
		result.AddError(fmt.Sprintf("Subject %s is not active", subject.Name))
	}

	duplicate, err := v.subjectTeachers.ExistsActive(ctx, check.TeacherID, check.SubjectID, check.AcademicUnitID, check.AcademicYearID, check.ExcludeAssignmentID)
	if err != nil {
		return nil, internalErr(err, "failed to check existing assignments")
	}
	if duplicate {
		result.AddError(fmt.Sprintf("%s is already assigned to teach %s in %s for this academic year",
			teacherLabel(teacher), subjectLabel(subject), unitLabel(unit)))
	}

	if teacher != nil && check.PeriodsPerWeek != nil && teacher.MaxPeriodsPerWeek > 0 {
		current, err := v.subjectTeachers.SumActivePeriods(ctx, teacher.ID, check.AcademicYearID, check.ExcludeAssignmentID)
		if err != nil {
			return nil, internalErr(err, "failed to sum teacher workload")
		}
		newTotal := current + *check.PeriodsPerWeek
		hardCap := float64(teacher.MaxPeriodsPerWeek) * v.rules.WorkloadHardCapRatio
		switch {
		case float64(newTotal) > hardCap:
			result.AddError(fmt.Sprintf("%s would teach %d periods per week, above the hard limit of %d (%.0f%% of %d)",
				teacher.FullName, newTotal, int(math.Floor(hardCap)), v.rules.WorkloadHardCapRatio*100, teacher.MaxPeriodsPerWeek))
		case newTotal > teacher.MaxPeriodsPerWeek:
			result.AddWarning(fmt.Sprintf("%s would teach %d periods per week, above the limit of %d",
				teacher.FullName, newTotal, teacher.MaxPeriodsPerWeek))
		}
	}

	v.metrics.RecordValidation(models.CategorySubjectTeacher, result)
	return result, nil
}

// ValidateClassTeacherAssignment checks the teacher and unit, rejects a
// second row for the same teacher and unit, blocks a second primary, and
// warns about co-class replacement and the per-teacher unit cap.
func (v *AssignmentValidator) ValidateClassTeacherAssignment(ctx context.Context, check models.ClassTeacherCheck) (*models.ValidationResult, error) {
	result := models.NewValidationResult()

	teacher, err := v.activeTeacher(ctx, check.SchoolID, check.TeacherID, result)
	if err != nil {
		return nil, err
	}
	unit, err := v.activeUnit(ctx, check.SchoolID, check.AcademicUnitID, result)
	if err != nil {
		return nil, err
	}

	exists, err := v.classTeachers.ExistsActiveForTeacher(ctx, check.TeacherID, check.AcademicUnitID, check.AcademicYearID, check.ExcludeAssignmentID)
	if err != nil {
		return nil, internalErr(err, "failed to check existing class teachers")
	}
	if exists {
		result.AddError(fmt.Sprintf("%s is already a class teacher of %s for this academic year", teacherLabel(teacher), unitLabel(unit)))
	}

	incumbent, err := v.classTeachers.FindActiveByRole(ctx, check.AcademicUnitID, check.AcademicYearID, check.IsPrimary, check.ExcludeAssignmentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalErr(err, "failed to load current class teacher")
	}
	if incumbent != nil && incumbent.TeacherID != check.TeacherID {
		if check.IsPrimary {
			result.AddError(fmt.Sprintf("%s already has a primary class teacher: %s", unitLabel(unit), incumbent.TeacherName))
		} else {
			result.AddWarning(fmt.Sprintf("%s is the current co-class teacher of %s and will be replaced", incumbent.TeacherName, unitLabel(unit)))
		}
	}

	if teacher != nil {
		count, err := v.classTeachers.CountActiveByTeacher(ctx, teacher.ID, check.AcademicYearID, check.ExcludeAssignmentID)
		if err != nil {
			return nil, internalErr(err, "failed to count class teacher units")
		}
		if count >= v.rules.ClassTeacherMaxPerTeacher {
			result.AddWarning(fmt.Sprintf("%s is already class teacher for %d units (limit %d)",
				teacher.FullName, count, v.rules.ClassTeacherMaxPerTeacher))
		}
	}

	v.metrics.RecordValidation(models.CategoryClassTeacher, result)
	return result, nil
}

// activeTeacher records an error on result and returns nil when the teacher
// is unusable. Inactive teachers are still returned for message context.
func (v *AssignmentValidator) activeTeacher(ctx context.Context, schoolID, id string, result *models.ValidationResult) (*models.Teacher, error) {
	teacher, err := v.teachers.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result.AddError("Teacher not found")
		return nil, nil
	case err != nil:
		return nil, internalErr(err, "failed to load teacher")
	case teacher.SchoolID != schoolID:
		result.AddError("Teacher not found")
		return nil, nil
	case !teacher.IsActive:
		result.AddError(fmt.Sprintf("Teacher %s is not active", teacher.FullName))
	}
	return teacher, nil
}

func (v *AssignmentValidator) activeUnit(ctx context.Context, schoolID, id string, result *models.ValidationResult) (*models.AcademicUnit, error) {
	unit, err := v.units.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result.AddError("Academic unit not found")
		return nil, nil
	case err != nil:
		return nil, internalErr(err, "failed to load academic unit")
	case unit.SchoolID != schoolID:
		result.AddError("Academic unit not found")
		return nil, nil
	case !unit.IsActive:
		result.AddError(fmt.Sprintf("Academic unit %s is not active", unit.Name))
	}
	return unit, nil
}

func teacherLabel(t *models.Teacher) string {
	if t == nil {
		return "Teacher"
	}
	return t.FullName
}

func unitLabel(u *models.AcademicUnit) string {
	if u == nil {
		return "the unit"
	}
	return u.Name
}

func subjectLabel(s *models.Subject) string {
	if s == nil {
		return "the subject"
	}
	return s.Name
}
