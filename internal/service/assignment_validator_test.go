package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type assignmentFixture struct {
	teachers        *teacherStoreStub
	subjects        *subjectStoreStub
	units           *unitStoreStub
	subjectTeachers *subjectTeacherStoreStub
	classTeachers   *classTeacherStoreStub
	validator       *AssignmentValidator
}

func newAssignmentFixture() *assignmentFixture {
	teachers := newTeacherStore(
		models.Teacher{ID: "t-rao", FullName: "Ms Rao", MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, IsActive: true},
		models.Teacher{ID: "t-singh", FullName: "Mr Singh", MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, IsActive: true},
		models.Teacher{ID: "t-gupta", FullName: "Mrs Gupta", MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, IsActive: true},
		models.Teacher{ID: "t-fatima", FullName: "Ms Fatima", MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, IsActive: true},
		models.Teacher{ID: "t-joseph", FullName: "Mr Joseph", MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, IsActive: true},
		models.Teacher{ID: "t-retired", FullName: "Mr Retired", MaxPeriodsPerWeek: 30, IsActive: false},
	)
	subjects := newSubjectStore(
		models.Subject{ID: "sub-math", Code: "MATH", Name: "Mathematics", IsActive: true},
		models.Subject{ID: "sub-eng", Code: "ENG", Name: "English", IsActive: true},
		models.Subject{ID: "sub-sci", Code: "SCI", Name: "Science", IsActive: true},
		models.Subject{ID: "sub-latin", Code: "LAT", Name: "Latin", IsActive: false},
	)
	units := newUnitStore(
		models.AcademicUnit{ID: "u-9", Name: "Class 9", Type: models.AcademicUnitClass, IsActive: true},
		models.AcademicUnit{ID: "u-9a", Name: "Section 9-A", Type: models.AcademicUnitSection, ParentID: strPtr("u-9"), IsActive: true},
		models.AcademicUnit{ID: "u-10a", Name: "10-A", Type: models.AcademicUnitClass, IsActive: true},
		models.AcademicUnit{ID: "u-10b", Name: "10-B", Type: models.AcademicUnitClass, IsActive: true},
		models.AcademicUnit{ID: "u-10c", Name: "10-C", Type: models.AcademicUnitClass, IsActive: true},
	)
	subjectTeachers := newSubjectTeacherStore(teachers, subjects, units)
	classTeachers := newClassTeacherStore(teachers, units)

	return &assignmentFixture{
		teachers:        teachers,
		subjects:        subjects,
		units:           units,
		subjectTeachers: subjectTeachers,
		classTeachers:   classTeachers,
		validator: NewAssignmentValidator(teachers, units, subjects, subjectTeachers, classTeachers,
			AssignmentRules{ClassTeacherMaxPerTeacher: 3, WorkloadHardCapRatio: 1.5}, nil, zap.NewNop()),
	}
}

// loadTeacherWith gives teacherID active assignments summing to periods.
func (f *assignmentFixture) loadTeacherWith(teacherID string, periods int) {
	f.subjectTeachers.add(models.TeacherClassAssignment{
		ID: "sta-load-" + teacherID, TeacherID: teacherID, SubjectID: "sub-eng", AcademicUnitID: "u-10b",
		AcademicYearID: "y-2024", PeriodsPerWeek: periods,
	})
}

func subjectCheck(teacherID string, periods int) models.SubjectTeacherCheck {
	return models.SubjectTeacherCheck{
		SchoolID:       testSchool,
		TeacherID:      teacherID,
		SubjectID:      "sub-math",
		AcademicUnitID: "u-10a",
		AcademicYearID: "y-2024",
		PeriodsPerWeek: intPtr(periods),
	}
}

func TestValidateSubjectTeacherWorkloadCaps(t *testing.T) {
	cases := []struct {
		name     string
		current  int
		adding   int
		valid    bool
		warnings int
	}{
		{name: "reaching the cap is clean", current: 29, adding: 1, valid: true},
		{name: "above the cap warns", current: 29, adding: 2, valid: true, warnings: 1},
		{name: "exactly the hard cap only warns", current: 29, adding: 16, valid: true, warnings: 1},
		{name: "beyond the hard cap blocks", current: 31, adding: 16, valid: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAssignmentFixture()
			f.loadTeacherWith("t-rao", tc.current)

			result, err := f.validator.ValidateSubjectTeacherAssignment(context.Background(), subjectCheck("t-rao", tc.adding))
			require.NoError(t, err)
			assert.Equal(t, tc.valid, result.IsValid)
			assert.Len(t, result.Warnings, tc.warnings)
			if !tc.valid {
				require.Len(t, result.Errors, 1)
				assert.Contains(t, result.Errors[0], "47 periods")
				assert.Contains(t, result.Errors[0], "hard limit of 45")
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestValidateSubjectTeacherExcludesEditedAssignmentFromLoad(t *testing.T) {
	f := newAssignmentFixture()
	f.loadTeacherWith("t-rao", 28)
	f.subjectTeachers.add(models.TeacherClassAssignment{
		ID: "sta-math", TeacherID: "t-rao", SubjectID: "sub-math", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", PeriodsPerWeek: 2,
	})

	check := subjectCheck("t-rao", 2)
	result, err := f.validator.ValidateSubjectTeacherAssignment(context.Background(), check)
	require.NoError(t, err)
	assert.False(t, result.IsValid, "same teacher, subject, unit and year is a duplicate")
	assert.Contains(t, result.Errors[0], "already assigned")

	check.ExcludeAssignmentID = "sta-math"
	result, err = f.validator.ValidateSubjectTeacherAssignment(context.Background(), check)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings, "28 + 2 stays within 30")
}

func TestValidateSubjectTeacherCollectsEveryEntityError(t *testing.T) {
	f := newAssignmentFixture()
	check := models.SubjectTeacherCheck{
		SchoolID:       testSchool,
		TeacherID:      "t-retired",
		SubjectID:      "sub-latin",
		AcademicUnitID: "missing",
		AcademicYearID: "y-2024",
	}

	result, err := f.validator.ValidateSubjectTeacherAssignment(context.Background(), check)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		"Teacher Mr Retired is not active",
		"Academic unit not found",
		"Subject Latin is not active",
	}, result.Errors)
}

func TestValidateSubjectTeacherWithoutPeriodsSkipsWorkload(t *testing.T) {
	f := newAssignmentFixture()
	f.loadTeacherWith("t-rao", 60)
	check := subjectCheck("t-rao", 0)
	check.PeriodsPerWeek = nil

	result, err := f.validator.ValidateSubjectTeacherAssignment(context.Background(), check)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
}

func TestValidateClassTeacherPrimaryCollision(t *testing.T) {
	f := newAssignmentFixture()
	f.classTeachers.add(models.ClassTeacher{ID: "ct-singh", TeacherID: "t-singh", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", IsPrimary: true})

	result, err := f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-gupta", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Mr Singh")

	result, err = f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-gupta", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", IsPrimary: true,
		ExcludeAssignmentID: "ct-singh",
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidateClassTeacherCoClassReplacementWarns(t *testing.T) {
	f := newAssignmentFixture()
	f.classTeachers.add(models.ClassTeacher{ID: "ct-fatima", TeacherID: "t-fatima", AcademicUnitID: "u-9a", AcademicYearID: "y-2024", IsPrimary: false})

	result, err := f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-joseph", AcademicUnitID: "u-9a", AcademicYearID: "y-2024", IsPrimary: false,
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Ms Fatima")
	assert.Contains(t, result.Warnings[0], "will be replaced")
}

func TestValidateClassTeacherSameTeacherTwice(t *testing.T) {
	f := newAssignmentFixture()
	f.classTeachers.add(models.ClassTeacher{ID: "ct-singh", TeacherID: "t-singh", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", IsPrimary: true})

	result, err := f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-singh", AcademicUnitID: "u-10a", AcademicYearID: "y-2024", IsPrimary: false,
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors[0], "already a class teacher of 10-A")
}

func TestValidateClassTeacherUnitCapWarns(t *testing.T) {
	f := newAssignmentFixture()
	for i, unit := range []string{"u-10a", "u-10b", "u-10c"} {
		f.classTeachers.add(models.ClassTeacher{
			ID: "ct-rao-" + string(rune('a'+i)), TeacherID: "t-rao", AcademicUnitID: unit, AcademicYearID: "y-2024", IsPrimary: true,
		})
	}

	result, err := f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-rao", AcademicUnitID: "u-9", AcademicYearID: "y-2024", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "3 units (limit 3)")
}

func TestValidateClassTeacherInactiveEntities(t *testing.T) {
	f := newAssignmentFixture()
	f.units.items["u-10b"].IsActive = false

	result, err := f.validator.ValidateClassTeacherAssignment(context.Background(), models.ClassTeacherCheck{
		SchoolID: testSchool, TeacherID: "t-retired", AcademicUnitID: "u-10b", AcademicYearID: "y-2024", IsPrimary: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Teacher Mr Retired is not active", "Academic unit 10-B is not active"}, result.Errors)
}
