package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

const defaultGridDays = 5

type timetableStore interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	UpdateStatus(ctx context.Context, id string, status models.TimetableStatus, publishedAt *time.Time) error
	ListPeriods(ctx context.Context, templateID string) ([]models.TemplatePeriod, error)
}

type slotDetailLister interface {
	ListDetails(ctx context.Context, timetableID string) ([]models.SlotDetail, error)
}

type coverageChecker interface {
	ValidateAllSubjectsHaveTeachers(ctx context.Context, schoolID, unitID, yearID string) (*models.SubjectCoverage, error)
}

type gridRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// TimetableService serves the timetable grid and drives the publish and
// archive lifecycle.
type TimetableService struct {
	tx         txRunner
	timetables timetableStore
	slots      slotDetailLister
	units      unitReader
	coverage   coverageChecker
	cache      *CacheService
	gridTTL    time.Duration
	renderers  map[string]gridRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewTimetableService constructs the service with CSV and PDF exporters.
func NewTimetableService(
	tx txRunner,
	timetables timetableStore,
	slots slotDetailLister,
	units unitReader,
	coverage coverageChecker,
	cacheSvc *CacheService,
	gridTTL time.Duration,
	logger *zap.Logger,
) *TimetableService {
	if tx == nil {
		tx = inlineTx{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		tx:         tx,
		timetables: timetables,
		slots:      slots,
		units:      units,
		coverage:   coverage,
		cache:      cacheSvc,
		gridTTL:    gridTTL,
		renderers: map[string]gridRenderer{
			dto.ExportFormatCSV: export.NewCSVExporter(),
			dto.ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Grid returns the timetable with its template periods and active slots.
func (s *TimetableService) Grid(ctx context.Context, claims *models.JWTClaims, id string) (*models.TimetableGrid, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	key := gridCacheKey(id)
	var cached models.TimetableGrid
	if s.cache.Get(ctx, key, &cached) && cached.Timetable.SchoolID == claims.SchoolID {
		return &cached, nil
	}

	timetable, err := s.load(ctx, claims.SchoolID, id)
	if err != nil {
		return nil, err
	}
	grid := &models.TimetableGrid{Timetable: *timetable, Periods: []models.TemplatePeriod{}}

	unit, err := s.units.FindByID(ctx, timetable.AcademicUnitID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalErr(err, "failed to load academic unit")
	}
	if unit != nil {
		grid.UnitName = unit.Name
	}
	if timetable.TemplateID != nil {
		periods, err := s.timetables.ListPeriods(ctx, *timetable.TemplateID)
		if err != nil {
			return nil, internalErr(err, "failed to load template periods")
		}
		if periods != nil {
			grid.Periods = periods
		}
	}
	slots, err := s.slots.ListDetails(ctx, timetable.ID)
	if err != nil {
		return nil, internalErr(err, "failed to load slots")
	}
	if slots == nil {
		slots = []models.SlotDetail{}
	}
	grid.Slots = slots

	s.cache.Set(ctx, key, grid, s.gridTTL)
	return grid, nil
}

// Publish moves a draft timetable to PUBLISHED. With enforceSubjectCoverage
// it refuses while any active subject has no teacher for the unit.
func (s *TimetableService) Publish(ctx context.Context, claims *models.JWTClaims, id string, req dto.PublishTimetableRequest) (*models.Timetable, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var published *models.Timetable
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		timetable, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		switch timetable.Status {
		case models.TimetableStatusArchived:
			return appErrors.ErrTimetableLocked
		case models.TimetableStatusPublished:
			return appErrors.Clone(appErrors.ErrConflict, "timetable already published")
		}

		if req.EnforceSubjectCoverage {
			coverage, err := s.coverage.ValidateAllSubjectsHaveTeachers(ctx, claims.SchoolID, timetable.AcademicUnitID, timetable.AcademicYearID)
			if err != nil {
				return err
			}
			if !coverage.IsValid {
				missing := &models.SubjectCoverageError{MissingSubjects: coverage.MissingSubjects}
				return appErrors.Wrap(missing, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, missing.Error())
			}
		}

		now := s.now().UTC()
		if err := s.timetables.UpdateStatus(ctx, timetable.ID, models.TimetableStatusPublished, &now); err != nil {
			return internalErr(err, "failed to publish timetable")
		}
		timetable.Status = models.TimetableStatusPublished
		timetable.PublishedAt = &now
		published = timetable
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, gridCacheKey(id))
	s.logger.Info("timetable published", zap.String("timetable_id", id), zap.String("user_id", claims.UserID))
	return published, nil
}

// Archive retires a timetable; archived timetables drop out of conflict checks.
func (s *TimetableService) Archive(ctx context.Context, claims *models.JWTClaims, id string) (*models.Timetable, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	var archived *models.Timetable
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		timetable, err := s.load(ctx, claims.SchoolID, id)
		if err != nil {
			return err
		}
		if timetable.Status == models.TimetableStatusArchived {
			return appErrors.Clone(appErrors.ErrConflict, "timetable already archived")
		}
		if err := s.timetables.UpdateStatus(ctx, timetable.ID, models.TimetableStatusArchived, nil); err != nil {
			return internalErr(err, "failed to archive timetable")
		}
		timetable.Status = models.TimetableStatusArchived
		archived = timetable
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, gridCacheKey(id))
	return archived, nil
}

// Export renders the grid as a downloadable CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, claims *models.JWTClaims, id, format string) (*dto.ExportedFile, error) {
	if format == "" {
		format = dto.ExportFormatPDF
	}
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	grid, err := s.Grid(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(gridDataset(grid))
	if err != nil {
		return nil, internalErr(err, "failed to render timetable")
	}
	return &dto.ExportedFile{
		Filename:    fmt.Sprintf("%s.%s", slug(grid.Timetable.Name), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *TimetableService) load(ctx context.Context, schoolID, id string) (*models.Timetable, error) {
	timetable, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, internalErr(err, "failed to load timetable")
	}
	if timetable.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	return timetable, nil
}

// gridDataset lays the grid out as one row per period and one column per day.
func gridDataset(grid *models.TimetableGrid) export.Dataset {
	days := defaultGridDays
	periodSet := map[int]*models.TemplatePeriod{}
	for i := range grid.Periods {
		periodSet[grid.Periods[i].PeriodNumber] = &grid.Periods[i]
	}
	cells := map[string]string{}
	for _, slot := range grid.Slots {
		if slot.DayOfWeek > days {
			days = slot.DayOfWeek
		}
		if _, ok := periodSet[slot.PeriodNumber]; !ok {
			periodSet[slot.PeriodNumber] = nil
		}
		cells[cellKey(slot.DayOfWeek, slot.PeriodNumber)] = slotLabel(slot)
	}

	numbers := make([]int, 0, len(periodSet))
	for n := range periodSet {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	headers := []string{"Period"}
	for d := 1; d <= days; d++ {
		headers = append(headers, dayName(d))
	}

	rows := make([]map[string]string, 0, len(numbers))
	for _, n := range numbers {
		row := map[string]string{"Period": periodLabel(n, periodSet[n])}
		for d := 1; d <= days; d++ {
			label, ok := cells[cellKey(d, n)]
			if !ok && periodSet[n] != nil && periodSet[n].IsBreak {
				label = string(models.SlotTypeBreak)
			}
			row[dayName(d)] = label
		}
		rows = append(rows, row)
	}

	subtitle := grid.UnitName
	if subtitle != "" {
		subtitle += " - "
	}
	subtitle += string(grid.Timetable.Status)
	return export.Dataset{Title: grid.Timetable.Name, Subtitle: subtitle, Headers: headers, Rows: rows}
}

func cellKey(day, period int) string {
	return strconv.Itoa(day) + ":" + strconv.Itoa(period)
}

func periodLabel(n int, p *models.TemplatePeriod) string {
	if p == nil || p.StartTime == nil || p.EndTime == nil {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d (%s-%s)", n, *p.StartTime, *p.EndTime)
}

func slotLabel(slot models.SlotDetail) string {
	if slot.SlotType != models.SlotTypeRegular && slot.Subject == nil {
		return string(slot.SlotType)
	}
	parts := make([]string, 0, 2)
	if slot.Subject != nil {
		parts = append(parts, slot.Subject.Code)
	}
	if slot.Teacher != nil {
		parts = append(parts, slot.Teacher.FullName)
	}
	label := strings.Join(parts, " / ")
	if slot.Room != nil {
		label += " @ " + *slot.Room
	}
	return label
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "timetable"
	}
	return out
}
