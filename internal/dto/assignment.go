package dto

import "time"

// CreateSubjectTeacherRequest assigns a teacher to a subject in a unit.
type CreateSubjectTeacherRequest struct {
	TeacherID        string     `json:"teacherId" validate:"required"`
	SubjectID        string     `json:"subjectId" validate:"required"`
	AcademicUnitID   string     `json:"academicUnitId" validate:"required"`
	AcademicYearID   string     `json:"academicYearId" validate:"required"`
	PeriodsPerWeek   int        `json:"periodsPerWeek" validate:"min=0,max=60"`
	IsPrimary        bool       `json:"isPrimary"`
	EffectiveFrom    *time.Time `json:"effectiveFrom,omitempty"`
	ChangeReason     *string    `json:"changeReason,omitempty" validate:"omitempty,max=500"`
	OverrideWarnings bool       `json:"overrideWarnings"`
}

// UpdateSubjectTeacherRequest patches an active subject-teacher assignment.
type UpdateSubjectTeacherRequest struct {
	TeacherID        *string    `json:"teacherId,omitempty"`
	PeriodsPerWeek   *int       `json:"periodsPerWeek,omitempty" validate:"omitempty,min=0,max=60"`
	IsPrimary        *bool      `json:"isPrimary,omitempty"`
	EffectiveFrom    *time.Time `json:"effectiveFrom,omitempty"`
	ChangeReason     *string    `json:"changeReason,omitempty" validate:"omitempty,max=500"`
	OverrideWarnings bool       `json:"overrideWarnings"`
}

// ValidateSubjectTeacherRequest is the dry-run payload.
type ValidateSubjectTeacherRequest struct {
	TeacherID           string `json:"teacherId" validate:"required"`
	SubjectID           string `json:"subjectId" validate:"required"`
	AcademicUnitID      string `json:"academicUnitId" validate:"required"`
	AcademicYearID      string `json:"academicYearId" validate:"required"`
	PeriodsPerWeek      *int   `json:"periodsPerWeek,omitempty" validate:"omitempty,min=0,max=60"`
	ExcludeAssignmentID string `json:"excludeAssignmentId,omitempty"`
}

// CreateClassTeacherRequest assigns a primary or co-class teacher.
type CreateClassTeacherRequest struct {
	TeacherID        string     `json:"teacherId" validate:"required"`
	AcademicUnitID   string     `json:"academicUnitId" validate:"required"`
	AcademicYearID   string     `json:"academicYearId" validate:"required"`
	IsPrimary        bool       `json:"isPrimary"`
	EffectiveFrom    *time.Time `json:"effectiveFrom,omitempty"`
	ChangeReason     *string    `json:"changeReason,omitempty" validate:"omitempty,max=500"`
	OverrideWarnings bool       `json:"overrideWarnings"`
}

// UpdateClassTeacherRequest patches an active class-teacher assignment.
type UpdateClassTeacherRequest struct {
	TeacherID        *string `json:"teacherId,omitempty"`
	IsPrimary        *bool   `json:"isPrimary,omitempty"`
	ChangeReason     *string `json:"changeReason,omitempty" validate:"omitempty,max=500"`
	OverrideWarnings bool    `json:"overrideWarnings"`
}

// ValidateClassTeacherRequest is the dry-run payload.
type ValidateClassTeacherRequest struct {
	TeacherID           string `json:"teacherId" validate:"required"`
	AcademicUnitID      string `json:"academicUnitId" validate:"required"`
	AcademicYearID      string `json:"academicYearId" validate:"required"`
	IsPrimary           bool   `json:"isPrimary"`
	ExcludeAssignmentID string `json:"excludeAssignmentId,omitempty"`
}

// AssignmentLifecycleRequest carries deactivate/reactivate options.
type AssignmentLifecycleRequest struct {
	ChangeReason     *string `json:"changeReason,omitempty" validate:"omitempty,max=500"`
	OverrideWarnings bool    `json:"overrideWarnings"`
}

// AssignmentFilter scopes list queries.
type AssignmentFilter struct {
	AcademicUnitID  string `form:"academicUnitId" validate:"required"`
	AcademicYearID  string `form:"academicYearId" validate:"required"`
	IncludeInactive bool   `form:"includeInactive"`
}

// ResolveSubjectTeacherQuery binds GET /subject-teachers/resolve.
type ResolveSubjectTeacherQuery struct {
	AcademicUnitID string `form:"academicUnitId" validate:"required"`
	SubjectID      string `form:"subjectId" validate:"required"`
	AcademicYearID string `form:"academicYearId" validate:"required"`
}

// WorkloadSummary is returned by the recompute endpoint.
type WorkloadSummary struct {
	TeacherID             string `json:"teacherId"`
	AcademicYearID        string `json:"academicYearId"`
	CurrentPeriodsPerWeek int    `json:"currentPeriodsPerWeek"`
	MaxPeriodsPerWeek     int    `json:"maxPeriodsPerWeek"`
}
