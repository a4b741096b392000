package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// SaveSlotRequest creates or edits one timetable cell. SlotID selects an
// in-place edit; otherwise the (timetable, day, period) cell is filled.
type SaveSlotRequest struct {
	SlotID            *string         `json:"slotId,omitempty"`
	TimetableID       string          `json:"timetableId" validate:"required"`
	DayOfWeek         int             `json:"dayOfWeek" validate:"min=1,max=7"`
	PeriodNumber      int             `json:"periodNumber" validate:"min=1"`
	SubjectID         *string         `json:"subjectId,omitempty"`
	TeacherID         *string         `json:"teacherId,omitempty"`
	Room              *string         `json:"room,omitempty" validate:"omitempty,max=64"`
	SlotType          models.SlotType `json:"slotType" validate:"required,oneof=REGULAR BREAK LUNCH ASSEMBLY FREE"`
	Notes             *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
	SkipConflictCheck bool            `json:"skipConflictCheck,omitempty"`
}

// SlotCheckResponse is the dry-run answer for a proposed placement.
type SlotCheckResponse struct {
	HasConflict bool                    `json:"hasConflict"`
	Conflicts   []models.ConflictResult `json:"conflicts"`
}

// PublishTimetableRequest controls the publish gate.
type PublishTimetableRequest struct {
	EnforceSubjectCoverage bool `json:"enforceSubjectCoverage"`
}

// AvailableTeachersQuery binds the picker query string.
type AvailableTeachersQuery struct {
	DayOfWeek      int    `form:"dayOfWeek" validate:"min=1,max=7"`
	PeriodNumber   int    `form:"periodNumber" validate:"min=1"`
	SubjectID      string `form:"subjectId"`
	AcademicYearID string `form:"academicYearId"`
}

// Export formats.
const (
	ExportFormatPDF = "pdf"
	ExportFormatCSV = "csv"
)

// ExportedFile is a rendered timetable download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
