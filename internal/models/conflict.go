package models

import "strings"

// ConflictKind names a slot placement rule violation.
type ConflictKind string

const (
	ConflictClassOccupied    ConflictKind = "CLASS_OCCUPIED"
	ConflictTeacherBusy      ConflictKind = "TEACHER_BUSY"
	ConflictWorkloadExceeded ConflictKind = "WORKLOAD_EXCEEDED"
	ConflictTimeOverlap      ConflictKind = "TIME_OVERLAP"
)

// ConflictResult is the outcome of one placement check. A conflict is an
// expected business outcome and is returned as data, not as an error.
type ConflictResult struct {
	HasConflict bool                   `json:"hasConflict"`
	Type        ConflictKind           `json:"type,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// NoConflict is the zero-conflict result.
func NoConflict() ConflictResult {
	return ConflictResult{HasConflict: false}
}

// SlotProposal is a candidate placement evaluated by the conflict detector.
type SlotProposal struct {
	TimetableID   string
	DayOfWeek     int
	PeriodNumber  int
	SubjectID     *string
	TeacherID     *string
	SlotType      SlotType
	ExcludeSlotID string
}

// BusySlot is an existing slot that occupies a teacher.
type BusySlot struct {
	SlotID        string  `db:"slot_id" json:"slotId"`
	TimetableID   string  `db:"timetable_id" json:"timetableId"`
	TimetableName string  `db:"timetable_name" json:"timetableName"`
	UnitName      string  `db:"unit_name" json:"unitName"`
	DayOfWeek     int     `db:"day_of_week" json:"dayOfWeek"`
	PeriodNumber  int     `db:"period_number" json:"periodNumber"`
	SubjectName   *string `db:"subject_name" json:"subjectName,omitempty"`
	StartTime     *string `db:"start_time" json:"startTime,omitempty"`
	EndTime       *string `db:"end_time" json:"endTime,omitempty"`
}

// AvailabilityQuery filters the available-teacher picker.
type AvailabilityQuery struct {
	SchoolID       string
	DayOfWeek      int
	PeriodNumber   int
	SubjectID      string
	AcademicYearID string
}

// TeacherLoad is a teacher with slot counts for one day and the whole week.
type TeacherLoad struct {
	Teacher
	DailySlots  int  `db:"daily_slots"`
	WeeklySlots int  `db:"weekly_slots"`
	BusyAtSlot  bool `db:"busy_at_slot"`
}

// TeacherAvailability is one entry of the available-teacher picker.
type TeacherAvailability struct {
	TeacherID         string `json:"teacherId"`
	FullName          string `json:"fullName"`
	DailySlots        int    `json:"dailySlots"`
	MaxPeriodsPerDay  int    `json:"maxPeriodsPerDay"`
	WeeklySlots       int    `json:"weeklySlots"`
	MaxPeriodsPerWeek int    `json:"maxPeriodsPerWeek"`
}

// SlotConflictError carries the conflicts that blocked a slot save.
type SlotConflictError struct {
	Conflicts []ConflictResult `json:"conflicts"`
}

func (e *SlotConflictError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return "slot conflict"
	}
	msgs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Message)
	}
	return strings.Join(msgs, "; ")
}
