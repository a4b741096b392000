package models

import (
	"strings"
	"time"
)

// TeacherClassAssignment binds a teacher to a subject in an academic unit
// for one academic year.
type TeacherClassAssignment struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"schoolId"`
	TeacherID      string     `db:"teacher_id" json:"teacherId"`
	SubjectID      string     `db:"subject_id" json:"subjectId"`
	AcademicUnitID string     `db:"academic_unit_id" json:"academicUnitId"`
	AcademicYearID string     `db:"academic_year_id" json:"academicYearId"`
	PeriodsPerWeek int        `db:"periods_per_week" json:"periodsPerWeek"`
	IsPrimary      bool       `db:"is_primary" json:"isPrimary"`
	EffectiveFrom  time.Time  `db:"effective_from" json:"effectiveFrom"`
	EffectiveTo    *time.Time `db:"effective_to" json:"effectiveTo,omitempty"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// SubjectTeacherDetail enriches an assignment with display names. InheritedFrom
// is set when the row was resolved from the parent unit.
type SubjectTeacherDetail struct {
	TeacherClassAssignment
	TeacherName   string  `db:"teacher_name" json:"teacherName"`
	SubjectCode   string  `db:"subject_code" json:"subjectCode"`
	SubjectName   string  `db:"subject_name" json:"subjectName"`
	UnitName      string  `db:"unit_name" json:"unitName"`
	InheritedFrom *string `db:"-" json:"inheritedFrom,omitempty"`
}

// ClassTeacher binds a teacher to an academic unit as primary or co-class teacher.
type ClassTeacher struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"schoolId"`
	TeacherID      string     `db:"teacher_id" json:"teacherId"`
	AcademicUnitID string     `db:"academic_unit_id" json:"academicUnitId"`
	AcademicYearID string     `db:"academic_year_id" json:"academicYearId"`
	IsPrimary      bool       `db:"is_primary" json:"isPrimary"`
	EffectiveFrom  time.Time  `db:"effective_from" json:"effectiveFrom"`
	EffectiveTo    *time.Time `db:"effective_to" json:"effectiveTo,omitempty"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// ClassTeacherDetail enriches a class-teacher row with display names.
type ClassTeacherDetail struct {
	ClassTeacher
	TeacherName string `db:"teacher_name" json:"teacherName"`
	UnitName    string `db:"unit_name" json:"unitName"`
}

// SubjectTeacherCheck is the input to subject-teacher validation.
// ExcludeAssignmentID skips the row being edited in duplicate and workload checks.
type SubjectTeacherCheck struct {
	SchoolID            string
	TeacherID           string
	SubjectID           string
	AcademicUnitID      string
	AcademicYearID      string
	PeriodsPerWeek      *int
	ExcludeAssignmentID string
}

// ClassTeacherCheck is the input to class-teacher validation.
type ClassTeacherCheck struct {
	SchoolID            string
	TeacherID           string
	AcademicUnitID      string
	AcademicYearID      string
	IsPrimary           bool
	ExcludeAssignmentID string
}

// ValidationResult separates blocking errors from overridable warnings.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

// AddError records a blocking error.
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

// AddWarning records an overridable warning.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SubjectCoverage reports subjects with no teacher for a unit.
type SubjectCoverage struct {
	IsValid         bool         `json:"isValid"`
	MissingSubjects []SubjectRef `json:"missingSubjects"`
}

// AssignmentRejectedError is returned when validation produced errors.
type AssignmentRejectedError struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (e *AssignmentRejectedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return strings.Join(e.Errors, "; ")
}

// ConfirmationRequiredError is returned when warnings were not acknowledged.
type ConfirmationRequiredError struct {
	Warnings []string `json:"warnings"`
}

func (e *ConfirmationRequiredError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "confirmation required: " + strings.Join(e.Warnings, "; ")
}

// SubjectCoverageError blocks publishing while subjects have no teacher.
type SubjectCoverageError struct {
	MissingSubjects []SubjectRef `json:"missingSubjects"`
}

func (e *SubjectCoverageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	codes := make([]string, 0, len(e.MissingSubjects))
	for _, s := range e.MissingSubjects {
		codes = append(codes, s.Code)
	}
	return "subjects without a teacher: " + strings.Join(codes, ", ")
}
