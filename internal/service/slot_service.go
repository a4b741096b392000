package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type slotStore interface {
	FindByID(ctx context.Context, id string) (*models.TimetableSlot, error)
	FindActiveAt(ctx context.Context, timetableID string, day, period int, excludeID string) (*models.TimetableSlot, error)
	Create(ctx context.Context, slot *models.TimetableSlot) error
	Update(ctx context.Context, slot *models.TimetableSlot) error
	Deactivate(ctx context.Context, id string) error
	GetDetail(ctx context.Context, id string) (*models.SlotDetail, error)
}

type slotConflictChecker interface {
	ValidateSlotAssignment(ctx context.Context, schoolID string, proposal models.SlotProposal) ([]models.ConflictResult, error)
	GetAvailableTeachers(ctx context.Context, q models.AvailabilityQuery) ([]models.TeacherAvailability, error)
}

// SlotService places, edits and removes timetable cells. Every save runs the
// conflict checks and the write inside one serializable transaction.
type SlotService struct {
	tx         txRunner
	slots      slotStore
	timetables periodLookup
	teachers   teacherReader
	subjects   subjectReader
	detector   slotConflictChecker
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSlotService wires the slot workflow.
func NewSlotService(
	tx txRunner,
	slots slotStore,
	timetables periodLookup,
	teachers teacherReader,
	subjects subjectReader,
	detector slotConflictChecker,
	cacheSvc *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SlotService {
	if tx == nil {
		tx = inlineTx{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		tx:         tx,
		slots:      slots,
		timetables: timetables,
		teachers:   teachers,
		subjects:   subjects,
		detector:   detector,
		cache:      cacheSvc,
		validator:  validate,
		logger:     logger,
	}
}

// SaveSlot creates or edits a slot. Conflicts abort the save unless
// SkipConflictCheck is set, in which case a slot already filling the target
// cell is deactivated and replaced.
func (s *SlotService) SaveSlot(ctx context.Context, claims *models.JWTClaims, req dto.SaveSlotRequest) (*models.SlotDetail, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	req = normalizeSlotRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	var savedID string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		timetable, err := s.editableTimetable(ctx, claims.SchoolID, req.TimetableID)
		if err != nil {
			return err
		}
		if err := s.checkReferences(ctx, timetable, req); err != nil {
			return err
		}

		var existing *models.TimetableSlot
		if req.SlotID != nil {
			slot, err := s.activeSlot(ctx, claims.SchoolID, *req.SlotID)
			if err != nil {
				return err
			}
			if slot.TimetableID != req.TimetableID {
				return appErrors.Clone(appErrors.ErrValidation, "slot belongs to another timetable")
			}
			existing = slot
		}
		excludeID := ""
		if existing != nil {
			excludeID = existing.ID
		}

		if req.SkipConflictCheck {
			if err := s.evictOccupant(ctx, req, excludeID); err != nil {
				return err
			}
		} else {
			conflicts, err := s.detector.ValidateSlotAssignment(ctx, claims.SchoolID, proposalFor(req, excludeID))
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return slotConflict(conflicts)
			}
		}

		slot := &models.TimetableSlot{
			SchoolID:     claims.SchoolID,
			TimetableID:  req.TimetableID,
			DayOfWeek:    req.DayOfWeek,
			PeriodNumber: req.PeriodNumber,
			SubjectID:    req.SubjectID,
			TeacherID:    req.TeacherID,
			Room:         req.Room,
			SlotType:     req.SlotType,
			Notes:        req.Notes,
			IsActive:     true,
		}
		if existing != nil {
			slot.ID = existing.ID
			slot.CreatedAt = existing.CreatedAt
			err = s.slots.Update(ctx, slot)
		} else {
			err = s.slots.Create(ctx, slot)
		}
		if err != nil {
			if database.IsUniqueViolation(err) {
				return slotConflict([]models.ConflictResult{{
					HasConflict: true,
					Type:        models.ConflictClassOccupied,
					Message:     fmt.Sprintf("Class already has a slot on %s period %d", dayName(req.DayOfWeek), req.PeriodNumber),
					Details:     map[string]interface{}{"timetableId": req.TimetableID, "dayOfWeek": req.DayOfWeek, "periodNumber": req.PeriodNumber},
				}})
			}
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
			}
			return internalErr(err, "failed to save slot")
		}
		savedID = slot.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateGrid(ctx, req.TimetableID)
	detail, err := s.slots.GetDetail(ctx, savedID)
	if err != nil {
		return nil, internalErr(err, "failed to load slot")
	}
	return detail, nil
}

// CheckSlot evaluates a placement without writing anything.
func (s *SlotService) CheckSlot(ctx context.Context, claims *models.JWTClaims, req dto.SaveSlotRequest) (*dto.SlotCheckResponse, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	req = normalizeSlotRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if _, err := s.editableTimetable(ctx, claims.SchoolID, req.TimetableID); err != nil {
		return nil, err
	}
	excludeID := ""
	if req.SlotID != nil {
		excludeID = *req.SlotID
	}
	conflicts, err := s.detector.ValidateSlotAssignment(ctx, claims.SchoolID, proposalFor(req, excludeID))
	if err != nil {
		return nil, err
	}
	return &dto.SlotCheckResponse{HasConflict: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// DeleteSlot soft-deletes a slot of an editable timetable.
func (s *SlotService) DeleteSlot(ctx context.Context, claims *models.JWTClaims, slotID string) error {
	if err := requireClaims(claims); err != nil {
		return err
	}
	var timetableID string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		slot, err := s.activeSlot(ctx, claims.SchoolID, slotID)
		if err != nil {
			return err
		}
		if _, err := s.editableTimetable(ctx, claims.SchoolID, slot.TimetableID); err != nil {
			return err
		}
		if err := s.slots.Deactivate(ctx, slot.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
			}
			return internalErr(err, "failed to delete slot")
		}
		timetableID = slot.TimetableID
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateGrid(ctx, timetableID)
	return nil
}

// GetAvailableTeachers lists teachers who can take the given cell.
func (s *SlotService) GetAvailableTeachers(ctx context.Context, claims *models.JWTClaims, query dto.AvailableTeachersQuery) ([]models.TeacherAvailability, error) {
	if err := requireClaims(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	return s.detector.GetAvailableTeachers(ctx, models.AvailabilityQuery{
		SchoolID:       claims.SchoolID,
		DayOfWeek:      query.DayOfWeek,
		PeriodNumber:   query.PeriodNumber,
		SubjectID:      query.SubjectID,
		AcademicYearID: query.AcademicYearID,
	})
}

func (s *SlotService) editableTimetable(ctx context.Context, schoolID, id string) (*models.Timetable, error) {
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
	if !timetable.Editable() {
		return nil, appErrors.ErrTimetableLocked
	}
	return timetable, nil
}

func (s *SlotService) activeSlot(ctx context.Context, schoolID, id string) (*models.TimetableSlot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, internalErr(err, "failed to load slot")
	}
	if slot.SchoolID != schoolID || !slot.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	return slot, nil
}

// checkReferences verifies the period exists in the template and that the
// subject and teacher are active members of the school.
func (s *SlotService) checkReferences(ctx context.Context, timetable *models.Timetable, req dto.SaveSlotRequest) error {
	schoolID := timetable.SchoolID
	if timetable.TemplateID != nil {
		if _, err := s.timetables.GetPeriod(ctx, *timetable.TemplateID, req.PeriodNumber); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %d is not defined by the timetable template", req.PeriodNumber))
			}
			return internalErr(err, "failed to load template period")
		}
	}

	if req.SubjectID != nil {
		subject, err := s.subjects.FindByID(ctx, *req.SubjectID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrValidation, "subject not found")
		case err != nil:
			return internalErr(err, "failed to load subject")
		case subject.SchoolID != schoolID:
			return appErrors.Clone(appErrors.ErrValidation, "subject not found")
		case !subject.IsActive:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s is not active", subject.Name))
		}
	}
	if req.TeacherID != nil {
		teacher, err := loadTeacher(ctx, s.teachers, schoolID, *req.TeacherID)
		if err != nil {
			if isNotFound(err) {
				return appErrors.Clone(appErrors.ErrValidation, "teacher not found")
			}
			return err
		}
		if !teacher.IsActive {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s is not active", teacher.FullName))
		}
	}
	return nil
}

func (s *SlotService) evictOccupant(ctx context.Context, req dto.SaveSlotRequest, excludeID string) error {
	occupant, err := s.slots.FindActiveAt(ctx, req.TimetableID, req.DayOfWeek, req.PeriodNumber, excludeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internalErr(err, "failed to check class occupancy")
	}
	if err := s.slots.Deactivate(ctx, occupant.ID); err != nil {
		return internalErr(err, "failed to replace existing slot")
	}
	s.logger.Info("replaced occupied slot",
		zap.String("timetable_id", req.TimetableID),
		zap.String("replaced_slot_id", occupant.ID),
		zap.Int("day_of_week", req.DayOfWeek),
		zap.Int("period_number", req.PeriodNumber),
	)
	return nil
}

func (s *SlotService) invalidateGrid(ctx context.Context, timetableID string) {
	if timetableID == "" {
		return
	}
	s.cache.Invalidate(ctx, gridCacheKey(timetableID))
}

func gridCacheKey(timetableID string) string {
	return cache.Key("grid", timetableID)
}

func normalizeSlotRequest(req dto.SaveSlotRequest) dto.SaveSlotRequest {
	if req.SlotType == "" {
		req.SlotType = models.SlotTypeRegular
	}
	req.SlotID = nonEmpty(req.SlotID)
	req.SubjectID = nonEmpty(req.SubjectID)
	req.TeacherID = nonEmpty(req.TeacherID)
	req.Room = nonEmpty(req.Room)
	req.Notes = nonEmpty(req.Notes)
	return req
}

func proposalFor(req dto.SaveSlotRequest, excludeID string) models.SlotProposal {
	return models.SlotProposal{
		TimetableID:   req.TimetableID,
		DayOfWeek:     req.DayOfWeek,
		PeriodNumber:  req.PeriodNumber,
		SubjectID:     req.SubjectID,
		TeacherID:     req.TeacherID,
		SlotType:      req.SlotType,
		ExcludeSlotID: excludeID,
	}
}

func slotConflict(conflicts []models.ConflictResult) error {
	return appErrors.Wrap(&models.SlotConflictError{Conflicts: conflicts},
		appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, appErrors.ErrSlotConflict.Message)
}
