package models

import "time"

// TimetableStatus represents lifecycle phases of a timetable.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable is the weekly grid of one academic unit for one academic year.
type Timetable struct {
	ID             string          `db:"id" json:"id"`
	SchoolID       string          `db:"school_id" json:"schoolId"`
	AcademicUnitID string          `db:"academic_unit_id" json:"academicUnitId"`
	AcademicYearID string          `db:"academic_year_id" json:"academicYearId"`
	TemplateID     *string         `db:"template_id" json:"templateId,omitempty"`
	Name           string          `db:"name" json:"name"`
	Status         TimetableStatus `db:"status" json:"status"`
	PublishedAt    *time.Time      `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// Editable reports whether slots may still change.
func (t *Timetable) Editable() bool {
	return t.Status == TimetableStatusDraft || t.Status == TimetableStatusPublished
}

// TimetableTemplate describes the bell schedule shared by timetables.
type TimetableTemplate struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"schoolId"`
	Name        string    `db:"name" json:"name"`
	DaysPerWeek int       `db:"days_per_week" json:"daysPerWeek"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TemplatePeriod is one numbered period of a template. Times are HH:MM.
type TemplatePeriod struct {
	TemplateID   string  `db:"template_id" json:"templateId"`
	PeriodNumber int     `db:"period_number" json:"periodNumber"`
	StartTime    *string `db:"start_time" json:"startTime,omitempty"`
	EndTime      *string `db:"end_time" json:"endTime,omitempty"`
	IsBreak      bool    `db:"is_break" json:"isBreak"`
}

// SlotType classifies a timetable cell.
type SlotType string

const (
	SlotTypeRegular  SlotType = "REGULAR"
	SlotTypeBreak    SlotType = "BREAK"
	SlotTypeLunch    SlotType = "LUNCH"
	SlotTypeAssembly SlotType = "ASSEMBLY"
	SlotTypeFree     SlotType = "FREE"
)

// OccupiesTeacher reports whether a teacher on this slot type is actually teaching.
func (t SlotType) OccupiesTeacher() bool {
	switch t {
	case SlotTypeBreak, SlotTypeLunch, SlotTypeAssembly:
		return false
	default:
		return true
	}
}

// TimetableSlot is one (day, period) cell. DayOfWeek runs 1 (Monday) to 7 (Sunday).
type TimetableSlot struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"schoolId"`
	TimetableID  string    `db:"timetable_id" json:"timetableId"`
	DayOfWeek    int       `db:"day_of_week" json:"dayOfWeek"`
	PeriodNumber int       `db:"period_number" json:"periodNumber"`
	SubjectID    *string   `db:"subject_id" json:"subjectId,omitempty"`
	TeacherID    *string   `db:"teacher_id" json:"teacherId,omitempty"`
	Room         *string   `db:"room" json:"room,omitempty"`
	SlotType     SlotType  `db:"slot_type" json:"slotType"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// SlotDetail is a slot with its subject and teacher expanded.
type SlotDetail struct {
	TimetableSlot
	SubjectCode *string     `db:"subject_code" json:"-"`
	SubjectName *string     `db:"subject_name" json:"-"`
	TeacherName *string     `db:"teacher_name" json:"-"`
	Subject     *SubjectRef `db:"-" json:"subject,omitempty"`
	Teacher     *TeacherRef `db:"-" json:"teacher,omitempty"`
}

// Expand fills Subject and Teacher from the joined columns.
func (d *SlotDetail) Expand() {
	if d.SubjectID != nil && d.SubjectName != nil {
		ref := &SubjectRef{ID: *d.SubjectID, Name: *d.SubjectName}
		if d.SubjectCode != nil {
			ref.Code = *d.SubjectCode
		}
		d.Subject = ref
	}
	if d.TeacherID != nil && d.TeacherName != nil {
		d.Teacher = &TeacherRef{ID: *d.TeacherID, FullName: *d.TeacherName}
	}
}

// TimetableGrid is the read model for a timetable and its active slots.
type TimetableGrid struct {
	Timetable Timetable        `json:"timetable"`
	UnitName  string           `json:"unitName"`
	Periods   []TemplatePeriod `json:"periods"`
	Slots     []SlotDetail     `json:"slots"`
}
