package service

import (
	"context"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type subjectTeacherLister interface {
	ListActiveByUnitSubject(ctx context.Context, unitID, subjectID, yearID string) ([]models.SubjectTeacherDetail, error)
	ListByUnit(ctx context.Context, unitID, yearID string, includeInactive bool) ([]models.SubjectTeacherDetail, error)
}

type subjectCatalog interface {
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
}

// SubjectTeacherResolver answers who teaches a subject to a unit, falling
// back one level to the parent unit when the unit has no direct assignment.
type SubjectTeacherResolver struct {
	units       unitReader
	subjects    subjectCatalog
	assignments subjectTeacherLister
}

// NewSubjectTeacherResolver constructs the resolver.
func NewSubjectTeacherResolver(units unitReader, subjects subjectCatalog, assignments subjectTeacherLister) *SubjectTeacherResolver {
	return &SubjectTeacherResolver{units: units, subjects: subjects, assignments: assignments}
}

// GetSubjectTeachersWithInheritance returns the unit's own active assignments
// for subjectID, or else the parent unit's marked with InheritedFrom.
// Inheritance never goes beyond the direct parent.
func (r *SubjectTeacherResolver) GetSubjectTeachersWithInheritance(ctx context.Context, schoolID, unitID, subjectID, yearID string) ([]models.SubjectTeacherDetail, error) {
	unit, err := loadUnit(ctx, r.units, schoolID, unitID)
	if err != nil {
		return nil, err
	}
	direct, err := r.assignments.ListActiveByUnitSubject(ctx, unit.ID, subjectID, yearID)
	if err != nil {
		return nil, internalErr(err, "failed to list subject teachers")
	}
	if len(direct) > 0 || unit.ParentID == nil {
		return nonNilDetails(direct), nil
	}

	inherited, err := r.assignments.ListActiveByUnitSubject(ctx, *unit.ParentID, subjectID, yearID)
	if err != nil {
		return nil, internalErr(err, "failed to list parent subject teachers")
	}
	for i := range inherited {
		parentID := *unit.ParentID
		inherited[i].InheritedFrom = &parentID
	}
	return nonNilDetails(inherited), nil
}

// ValidateAllSubjectsHaveTeachers lists the school's active subjects that
// resolve to no teacher for the unit, directly or through its parent.
func (r *SubjectTeacherResolver) ValidateAllSubjectsHaveTeachers(ctx context.Context, schoolID, unitID, yearID string) (*models.SubjectCoverage, error) {
	unit, err := loadUnit(ctx, r.units, schoolID, unitID)
	if err != nil {
		return nil, err
	}
	subjects, err := r.subjects.ListActiveBySchool(ctx, unit.SchoolID)
	if err != nil {
		return nil, internalErr(err, "failed to list subjects")
	}

	covered := map[string]bool{}
	unitIDs := []string{unit.ID}
	if unit.ParentID != nil {
		unitIDs = append(unitIDs, *unit.ParentID)
	}
	for _, id := range unitIDs {
		rows, err := r.assignments.ListByUnit(ctx, id, yearID, false)
		if err != nil {
			return nil, internalErr(err, "failed to list subject teachers")
		}
		for _, row := range rows {
			covered[row.SubjectID] = true
		}
	}

	coverage := &models.SubjectCoverage{IsValid: true, MissingSubjects: []models.SubjectRef{}}
	for _, subject := range subjects {
		if covered[subject.ID] {
			continue
		}
		coverage.IsValid = false
		coverage.MissingSubjects = append(coverage.MissingSubjects, models.SubjectRef{ID: subject.ID, Code: subject.Code, Name: subject.Name})
	}
	return coverage, nil
}

func nonNilDetails(rows []models.SubjectTeacherDetail) []models.SubjectTeacherDetail {
	if rows == nil {
		return []models.SubjectTeacherDetail{}
	}
	return rows
}
