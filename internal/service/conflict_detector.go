package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type slotOccupancyReader interface {
	FindActiveAt(ctx context.Context, timetableID string, day, period int, excludeID string) (*models.TimetableSlot, error)
	ListTeacherDaySlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) ([]models.BusySlot, error)
	CountTeacherSlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) (int, int, error)
}

type teacherLoadLister interface {
	ListLoads(ctx context.Context, q models.AvailabilityQuery) ([]models.TeacherLoad, error)
}

type periodLookup interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	GetPeriod(ctx context.Context, templateID string, periodNumber int) (*models.TemplatePeriod, error)
}

// ConflictDetector evaluates whether a proposed slot placement collides with
// existing slots or breaches a teacher's workload caps.
type ConflictDetector struct {
	slots      slotOccupancyReader
	teachers   teacherReader
	loads      teacherLoadLister
	timetables periodLookup
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewConflictDetector wires the detector.
func NewConflictDetector(slots slotOccupancyReader, teachers teacherReader, loads teacherLoadLister, timetables periodLookup, metrics *MetricsService, logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{
		slots:      slots,
		teachers:   teachers,
		loads:      loads,
		timetables: timetables,
		metrics:    metrics,
		logger:     logger,
	}
}

// CheckClassConflict reports CLASS_OCCUPIED when another active slot already
// fills the cell.
func (d *ConflictDetector) CheckClassConflict(ctx context.Context, timetableID string, day, period int, excludeSlotID string) (models.ConflictResult, error) {
	existing, err := d.slots.FindActiveAt(ctx, timetableID, day, period, excludeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NoConflict(), nil
		}
		return models.ConflictResult{}, internalErr(err, "failed to check class occupancy")
	}
	return models.ConflictResult{
		HasConflict: true,
		Type:        models.ConflictClassOccupied,
		Message:     fmt.Sprintf("Class already has a slot on %s period %d", dayName(day), period),
		Details: map[string]interface{}{
			"slotId":       existing.ID,
			"timetableId":  timetableID,
			"dayOfWeek":    day,
			"periodNumber": period,
			"subjectId":    derefString(existing.SubjectID),
			"teacherId":    derefString(existing.TeacherID),
		},
	}, nil
}

// CheckTeacherConflict reports TEACHER_BUSY when the teacher already teaches
// the same day and period in any draft or published timetable of the school.
func (d *ConflictDetector) CheckTeacherConflict(ctx context.Context, schoolID, teacherID string, day, period int, excludeSlotID string) (models.ConflictResult, error) {
	teacher, err := loadTeacher(ctx, d.teachers, schoolID, teacherID)
	if err != nil {
		return models.ConflictResult{}, err
	}
	daySlots, err := d.slots.ListTeacherDaySlots(ctx, schoolID, teacherID, day, excludeSlotID)
	if err != nil {
		return models.ConflictResult{}, internalErr(err, "failed to load teacher schedule")
	}
	return teacherBusy(teacher, daySlots, day, period), nil
}

// CheckTimeOverlap reports TIME_OVERLAP when the proposed period's clock
// window intersects another slot the teacher holds that day under a different
// period number. Periods without clock times never overlap.
func (d *ConflictDetector) CheckTimeOverlap(ctx context.Context, schoolID, teacherID string, proposal models.SlotProposal) (models.ConflictResult, error) {
	teacher, err := loadTeacher(ctx, d.teachers, schoolID, teacherID)
	if err != nil {
		return models.ConflictResult{}, err
	}
	daySlots, err := d.slots.ListTeacherDaySlots(ctx, schoolID, teacherID, proposal.DayOfWeek, proposal.ExcludeSlotID)
	if err != nil {
		return models.ConflictResult{}, internalErr(err, "failed to load teacher schedule")
	}
	return d.timeOverlap(ctx, teacher, proposal, daySlots)
}

// CheckTeacherWorkload reports WORKLOAD_EXCEEDED when the teacher is already
// at the daily cap for day or at the weekly cap. A zero day checks only the
// weekly cap; a non-positive cap means unlimited.
func (d *ConflictDetector) CheckTeacherWorkload(ctx context.Context, schoolID, teacherID string, day int, excludeSlotID string) (models.ConflictResult, error) {
	teacher, err := loadTeacher(ctx, d.teachers, schoolID, teacherID)
	if err != nil {
		return models.ConflictResult{}, err
	}
	return d.teacherWorkload(ctx, teacher, day, excludeSlotID)
}

// ValidateSlotAssignment runs every applicable check for proposal and
// returns the conflicts found. An empty slice means the placement is clear.
// BREAK, LUNCH and ASSEMBLY slots only get the class check, even with a teacher.
func (d *ConflictDetector) ValidateSlotAssignment(ctx context.Context, schoolID string, proposal models.SlotProposal) ([]models.ConflictResult, error) {
	conflicts := make([]models.ConflictResult, 0)

	class, err := d.CheckClassConflict(ctx, proposal.TimetableID, proposal.DayOfWeek, proposal.PeriodNumber, proposal.ExcludeSlotID)
	if err != nil {
		return nil, err
	}
	if class.HasConflict {
		conflicts = append(conflicts, class)
	}

	teacherID := derefString(proposal.TeacherID)
	if teacherID != "" && proposal.SlotType.OccupiesTeacher() {
		teacher, err := loadTeacher(ctx, d.teachers, schoolID, teacherID)
		if err != nil {
			return nil, err
		}
		daySlots, err := d.slots.ListTeacherDaySlots(ctx, schoolID, teacherID, proposal.DayOfWeek, proposal.ExcludeSlotID)
		if err != nil {
			return nil, internalErr(err, "failed to load teacher schedule")
		}

		if busy := teacherBusy(teacher, daySlots, proposal.DayOfWeek, proposal.PeriodNumber); busy.HasConflict {
			conflicts = append(conflicts, busy)
		}
		overlap, err := d.timeOverlap(ctx, teacher, proposal, daySlots)
		if err != nil {
			return nil, err
		}
		if overlap.HasConflict {
			conflicts = append(conflicts, overlap)
		}
		workload, err := d.teacherWorkload(ctx, teacher, proposal.DayOfWeek, proposal.ExcludeSlotID)
		if err != nil {
			return nil, err
		}
		if workload.HasConflict {
			conflicts = append(conflicts, workload)
		}
	}

	for _, c := range conflicts {
		d.metrics.RecordConflict(c.Type)
	}
	if len(conflicts) > 0 {
		d.logger.Debug("slot placement conflicts",
			zap.String("timetable_id", proposal.TimetableID),
			zap.Int("day_of_week", proposal.DayOfWeek),
			zap.Int("period_number", proposal.PeriodNumber),
			zap.Int("conflicts", len(conflicts)),
		)
	}
	return conflicts, nil
}

// GetAvailableTeachers lists active teachers free at the given day and period
// who are strictly below both workload caps.
func (d *ConflictDetector) GetAvailableTeachers(ctx context.Context, q models.AvailabilityQuery) ([]models.TeacherAvailability, error) {
	loads, err := d.loads.ListLoads(ctx, q)
	if err != nil {
		return nil, internalErr(err, "failed to load teacher workloads")
	}
	available := make([]models.TeacherAvailability, 0, len(loads))
	for _, load := range loads {
		if load.BusyAtSlot || !belowCap(load.DailySlots, load.MaxPeriodsPerDay) || !belowCap(load.WeeklySlots, load.MaxPeriodsPerWeek) {
			continue
		}
		available = append(available, models.TeacherAvailability{
			TeacherID:         load.ID,
			FullName:          load.FullName,
			DailySlots:        load.DailySlots,
			MaxPeriodsPerDay:  load.MaxPeriodsPerDay,
			WeeklySlots:       load.WeeklySlots,
			MaxPeriodsPerWeek: load.MaxPeriodsPerWeek,
		})
	}
	return available, nil
}

func teacherBusy(teacher *models.Teacher, daySlots []models.BusySlot, day, period int) models.ConflictResult {
	for _, slot := range daySlots {
		if slot.PeriodNumber != period {
			continue
		}
		return models.ConflictResult{
			HasConflict: true,
			Type:        models.ConflictTeacherBusy,
			Message:     fmt.Sprintf("%s is already teaching %s on %s period %d", teacher.FullName, slot.UnitName, dayName(day), period),
			Details: map[string]interface{}{
				"teacherId":     teacher.ID,
				"slotId":        slot.SlotID,
				"timetableId":   slot.TimetableID,
				"timetableName": slot.TimetableName,
				"unitName":      slot.UnitName,
				"dayOfWeek":     day,
				"periodNumber":  period,
			},
		}
	}
	return models.NoConflict()
}

func (d *ConflictDetector) timeOverlap(ctx context.Context, teacher *models.Teacher, proposal models.SlotProposal, daySlots []models.BusySlot) (models.ConflictResult, error) {
	if len(daySlots) == 0 || d.timetables == nil {
		return models.NoConflict(), nil
	}
	start, end, ok, err := d.periodWindow(ctx, proposal.TimetableID, proposal.PeriodNumber)
	if err != nil || !ok {
		return models.NoConflict(), err
	}

	overlaps := make([]map[string]interface{}, 0)
	labels := make([]string, 0)
	for _, slot := range daySlots {
		if slot.PeriodNumber == proposal.PeriodNumber || slot.StartTime == nil || slot.EndTime == nil {
			continue
		}
		// HH:MM strings order the same way as clock times.
		if start < *slot.EndTime && *slot.StartTime < end {
			overlaps = append(overlaps, map[string]interface{}{
				"slotId":       slot.SlotID,
				"timetableId":  slot.TimetableID,
				"unitName":     slot.UnitName,
				"periodNumber": slot.PeriodNumber,
				"startTime":    *slot.StartTime,
				"endTime":      *slot.EndTime,
			})
			labels = append(labels, fmt.Sprintf("%s %s-%s", slot.UnitName, *slot.StartTime, *slot.EndTime))
		}
	}
	if len(overlaps) == 0 {
		return models.NoConflict(), nil
	}
	return models.ConflictResult{
		HasConflict: true,
		Type:        models.ConflictTimeOverlap,
		Message: fmt.Sprintf("%s has overlapping classes on %s between %s and %s: %s",
			teacher.FullName, dayName(proposal.DayOfWeek), start, end, strings.Join(labels, ", ")),
		Details: map[string]interface{}{
			"teacherId": teacher.ID,
			"dayOfWeek": proposal.DayOfWeek,
			"startTime": start,
			"endTime":   end,
			"overlaps":  overlaps,
		},
	}, nil
}

func (d *ConflictDetector) periodWindow(ctx context.Context, timetableID string, period int) (string, string, bool, error) {
	timetable, err := d.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, internalErr(err, "failed to load timetable")
	}
	if timetable.TemplateID == nil {
		return "", "", false, nil
	}
	p, err := d.timetables.GetPeriod(ctx, *timetable.TemplateID, period)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, internalErr(err, "failed to load template period")
	}
	if p.StartTime == nil || p.EndTime == nil {
		return "", "", false, nil
	}
	return *p.StartTime, *p.EndTime, true, nil
}

func (d *ConflictDetector) teacherWorkload(ctx context.Context, teacher *models.Teacher, day int, excludeSlotID string) (models.ConflictResult, error) {
	daily, weekly, err := d.slots.CountTeacherSlots(ctx, teacher.SchoolID, teacher.ID, day, excludeSlotID)
	if err != nil {
		return models.ConflictResult{}, internalErr(err, "failed to count teacher slots")
	}

	dailyExceeded := day > 0 && !belowCap(daily, teacher.MaxPeriodsPerDay)
	weeklyExceeded := !belowCap(weekly, teacher.MaxPeriodsPerWeek)
	if !dailyExceeded && !weeklyExceeded {
		return models.NoConflict(), nil
	}

	reasons := make([]string, 0, 2)
	if dailyExceeded {
		reasons = append(reasons, fmt.Sprintf("%d periods on %s (max %d)", daily, dayName(day), teacher.MaxPeriodsPerDay))
	}
	if weeklyExceeded {
		reasons = append(reasons, fmt.Sprintf("%d periods this week (max %d)", weekly, teacher.MaxPeriodsPerWeek))
	}
	return models.ConflictResult{
		HasConflict: true,
		Type:        models.ConflictWorkloadExceeded,
		Message:     fmt.Sprintf("%s already has %s", teacher.FullName, strings.Join(reasons, " and ")),
		Details: map[string]interface{}{
			"teacherId":      teacher.ID,
			"dailyCount":     daily,
			"maxPerDay":      teacher.MaxPeriodsPerDay,
			"weeklyCount":    weekly,
			"maxPerWeek":     teacher.MaxPeriodsPerWeek,
			"dailyExceeded":  dailyExceeded,
			"weeklyExceeded": weeklyExceeded,
		},
	}, nil
}

// belowCap treats a non-positive max as unlimited.
func belowCap(count, max int) bool {
	return max <= 0 || count < max
}
