package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableFixture struct {
	*scheduleFixture
	assignments *subjectTeacherStoreStub
	cacheRepo   *cacheRepoStub
	svc         *TimetableService
}

func newTimetableFixture() *timetableFixture {
	f := newScheduleFixture()
	assignments := newSubjectTeacherStore(f.teachers, f.subjects, f.units)
	resolver := NewSubjectTeacherResolver(f.units, f.subjects, assignments)
	cacheRepo := newCacheRepoStub()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewTimetableService(&txRecorder{}, f.timetables, f.slots, f.units, resolver, cacheSvc, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	return &timetableFixture{scheduleFixture: f, assignments: assignments, cacheRepo: cacheRepo, svc: svc}
}

func TestTimetableGridIsCached(t *testing.T) {
	f := newTimetableFixture()

	grid, err := f.svc.Grid(context.Background(), adminClaims, "tt-10a")
	require.NoError(t, err)
	assert.Equal(t, "10-A", grid.UnitName)
	assert.Len(t, grid.Periods, 3)
	require.Len(t, grid.Slots, 1)
	assert.Equal(t, "Ms Rao", grid.Slots[0].Teacher.FullName)
	assert.Contains(t, f.cacheRepo.items, "timetable:grid:tt-10a")

	again, err := f.svc.Grid(context.Background(), adminClaims, "tt-10a")
	require.NoError(t, err)
	assert.Equal(t, 1, f.timetables.listCalls)
	assert.Equal(t, grid.Slots[0].ID, again.Slots[0].ID)
	assert.Equal(t, "MATH", again.Slots[0].Subject.Code)
}

func TestTimetableGridScopedToSchool(t *testing.T) {
	f := newTimetableFixture()
	_, err := f.svc.Grid(context.Background(), adminClaims, "tt-10a")
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "admin-2", SchoolID: "school-2", Role: models.RoleAdmin}
	_, err = f.svc.Grid(context.Background(), other, "tt-10a")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTimetablePublishLifecycle(t *testing.T) {
	f := newTimetableFixture()

	published, err := f.svc.Publish(context.Background(), adminClaims, "tt-10b", dto.PublishTimetableRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, models.TimetableStatusPublished, f.timetables.items["tt-10b"].Status)

	_, err = f.svc.Publish(context.Background(), adminClaims, "tt-10b", dto.PublishTimetableRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = f.svc.Publish(context.Background(), adminClaims, "tt-old", dto.PublishTimetableRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrTimetableLocked))
}

func TestTimetablePublishEnforcesSubjectCoverage(t *testing.T) {
	f := newTimetableFixture()
	f.assignments.add(models.TeacherClassAssignment{ID: "sta-math", TeacherID: "t-rao", SubjectID: "sub-math", AcademicUnitID: "u-10b", AcademicYearID: "y-2024"})
	req := dto.PublishTimetableRequest{EnforceSubjectCoverage: true}

	_, err := f.svc.Publish(context.Background(), adminClaims, "tt-10b", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
	var coverageErr *models.SubjectCoverageError
	require.True(t, errors.As(err, &coverageErr))
	require.Len(t, coverageErr.MissingSubjects, 1)
	assert.Equal(t, "ENG", coverageErr.MissingSubjects[0].Code)
	assert.Equal(t, models.TimetableStatusDraft, f.timetables.items["tt-10b"].Status)

	f.assignments.add(models.TeacherClassAssignment{ID: "sta-eng", TeacherID: "t-singh", SubjectID: "sub-eng", AcademicUnitID: "u-10b", AcademicYearID: "y-2024"})
	_, err = f.svc.Publish(context.Background(), adminClaims, "tt-10b", req)
	require.NoError(t, err)
}

func TestTimetableArchive(t *testing.T) {
	f := newTimetableFixture()
	f.cacheRepo.items["timetable:grid:tt-10a"] = []byte(`{}`)

	archived, err := f.svc.Archive(context.Background(), adminClaims, "tt-10a")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, archived.Status)
	assert.NotContains(t, f.cacheRepo.items, "timetable:grid:tt-10a")

	_, err = f.svc.Archive(context.Background(), adminClaims, "tt-10a")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestTimetableExportCSV(t *testing.T) {
	f := newTimetableFixture()

	file, err := f.svc.Export(context.Background(), adminClaims, "tt-10a", "csv")
	require.NoError(t, err)
	assert.Equal(t, "10-a-2024.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Period,MONDAY,TUESDAY,WEDNESDAY,THURSDAY,FRIDAY", lines[0])
	assert.Equal(t, "1 (07:30-08:15),,,,,", lines[1])
	assert.Equal(t, "3 (09:00-09:45),MATH / Ms Rao,,,,", lines[3])
}

func TestTimetableExportPDF(t *testing.T) {
	f := newTimetableFixture()

	file, err := f.svc.Export(context.Background(), adminClaims, "tt-10a", "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))

	_, err = f.svc.Export(context.Background(), adminClaims, "tt-10a", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGridDatasetExtendsToWeekendAndBreaks(t *testing.T) {
	grid := &models.TimetableGrid{
		Timetable: models.Timetable{Name: "Batch A", Status: models.TimetableStatusDraft},
		Periods: []models.TemplatePeriod{
			{PeriodNumber: 1},
			{PeriodNumber: 2, IsBreak: true},
		},
		Slots: []models.SlotDetail{
			{TimetableSlot: models.TimetableSlot{DayOfWeek: 6, PeriodNumber: 1, SlotType: models.SlotTypeAssembly}},
		},
	}

	data := gridDataset(grid)
	assert.Equal(t, "SATURDAY", data.Headers[len(data.Headers)-1])
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "ASSEMBLY", data.Rows[0]["SATURDAY"])
	assert.Equal(t, "BREAK", data.Rows[1]["MONDAY"])
	assert.Equal(t, "DRAFT", data.Subtitle)
}
