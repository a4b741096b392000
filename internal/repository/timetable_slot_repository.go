package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const slotColumns = `s.id, s.school_id, s.timetable_id, s.day_of_week, s.period_number, s.subject_id, s.teacher_id,
       s.room, s.slot_type, s.notes, s.is_active, s.created_at, s.updated_at`

// TimetableSlotRepository persists timetable cells and answers the
// occupancy queries behind conflict detection.
type TimetableSlotRepository struct {
	base
}

// NewTimetableSlotRepository constructs the repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{base{db: db}}
}

// FindByID returns a slot or sql.ErrNoRows.
func (r *TimetableSlotRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM timetable_slots s WHERE s.id = $1`
	var slot models.TimetableSlot
	if err := sqlx.GetContext(ctx, r.exec(ctx), &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindActiveAt returns the active slot occupying a cell, ignoring excludeID.
func (r *TimetableSlotRepository) FindActiveAt(ctx context.Context, timetableID string, day, period int, excludeID string) (*models.TimetableSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM timetable_slots s
WHERE s.timetable_id = $1 AND s.day_of_week = $2 AND s.period_number = $3 AND s.is_active AND s.id <> $4
LIMIT 1`
	var slot models.TimetableSlot
	if err := sqlx.GetContext(ctx, r.exec(ctx), &slot, query, timetableID, day, period, excludeID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListTeacherDaySlots returns the teacher's teaching slots on one day across
// every draft or published timetable of the school, with template clock times.
func (r *TimetableSlotRepository) ListTeacherDaySlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) ([]models.BusySlot, error) {
	query := `SELECT s.id AS slot_id, s.timetable_id, tt.name AS timetable_name, u.name AS unit_name,
       s.day_of_week, s.period_number, sub.name AS subject_name,
       to_char(tp.start_time, 'HH24:MI') AS start_time, to_char(tp.end_time, 'HH24:MI') AS end_time
FROM timetable_slots s
JOIN timetables tt ON tt.id = s.timetable_id
JOIN academic_units u ON u.id = tt.academic_unit_id
LEFT JOIN subjects sub ON sub.id = s.subject_id
LEFT JOIN template_periods tp ON tp.template_id = tt.template_id AND tp.period_number = s.period_number
WHERE s.school_id = $1 AND s.teacher_id = $2 AND s.day_of_week = $3 AND s.is_active AND s.id <> $4
  AND ` + teachingSlot + ` AND ` + conflictScope + `
ORDER BY s.period_number ASC`
	var slots []models.BusySlot
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &slots, query, schoolID, teacherID, day, excludeID); err != nil {
		return nil, fmt.Errorf("list teacher day slots: %w", err)
	}
	return slots, nil
}

// CountTeacherSlots returns the teacher's teaching slot count on day and
// across the week. A zero day yields a zero daily count.
func (r *TimetableSlotRepository) CountTeacherSlots(ctx context.Context, schoolID, teacherID string, day int, excludeID string) (int, int, error) {
	query := `SELECT COUNT(*) FILTER (WHERE s.day_of_week = $3) AS daily, COUNT(*) AS weekly
FROM timetable_slots s
JOIN timetables tt ON tt.id = s.timetable_id
WHERE s.school_id = $1 AND s.teacher_id = $2 AND s.is_active AND s.id <> $4
  AND ` + teachingSlot + ` AND ` + conflictScope
	var counts struct {
		Daily  int `db:"daily"`
		Weekly int `db:"weekly"`
	}
	if err := sqlx.GetContext(ctx, r.exec(ctx), &counts, query, schoolID, teacherID, day, excludeID); err != nil {
		return 0, 0, fmt.Errorf("count teacher slots: %w", err)
	}
	return counts.Daily, counts.Weekly, nil
}

// Create inserts an active slot.
func (r *TimetableSlotRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	slot.IsActive = true
	const query = `INSERT INTO timetable_slots (id, school_id, timetable_id, day_of_week, period_number, subject_id, teacher_id, room, slot_type, notes, is_active, created_at, updated_at)
VALUES (:id, :school_id, :timetable_id, :day_of_week, :period_number, :subject_id, :teacher_id, :room, :slot_type, :notes, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, slot); err != nil {
		return fmt.Errorf("create timetable slot: %w", err)
	}
	return nil
}

// Update rewrites an active slot in place.
func (r *TimetableSlotRepository) Update(ctx context.Context, slot *models.TimetableSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_slots SET day_of_week = :day_of_week, period_number = :period_number, subject_id = :subject_id,
       teacher_id = :teacher_id, room = :room, slot_type = :slot_type, notes = :notes, updated_at = :updated_at
WHERE id = :id AND is_active`
	res, err := sqlx.NamedExecContext(ctx, r.exec(ctx), query, slot)
	if err != nil {
		return fmt.Errorf("update timetable slot: %w", err)
	}
	return expectOneRow(res, "update timetable slot")
}

// Deactivate soft-deletes an active slot.
func (r *TimetableSlotRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE timetable_slots SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`
	res, err := r.exec(ctx).ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate timetable slot: %w", err)
	}
	return expectOneRow(res, "deactivate timetable slot")
}

// GetDetail returns one slot with subject and teacher expanded.
func (r *TimetableSlotRepository) GetDetail(ctx context.Context, id string) (*models.SlotDetail, error) {
	query := slotDetailSelect + ` WHERE s.id = $1`
	var detail models.SlotDetail
	if err := sqlx.GetContext(ctx, r.exec(ctx), &detail, query, id); err != nil {
		return nil, err
	}
	detail.Expand()
	return &detail, nil
}

// ListDetails returns the active slots of a timetable in grid order.
func (r *TimetableSlotRepository) ListDetails(ctx context.Context, timetableID string) ([]models.SlotDetail, error) {
	query := slotDetailSelect + ` WHERE s.timetable_id = $1 AND s.is_active ORDER BY s.day_of_week ASC, s.period_number ASC`
	var details []models.SlotDetail
	if err := sqlx.SelectContext(ctx, r.exec(ctx), &details, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	for i := range details {
		details[i].Expand()
	}
	return details, nil
}

const slotDetailSelect = `SELECT ` + slotColumns + `,
       sub.code AS subject_code, sub.name AS subject_name, t.full_name AS teacher_name
FROM timetable_slots s
LEFT JOIN subjects sub ON sub.id = s.subject_id
LEFT JOIN teachers t ON t.id = s.teacher_id`

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
