package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AssignmentCategory distinguishes the two assignment kinds in history.
type AssignmentCategory string

const (
	CategorySubjectTeacher AssignmentCategory = "SUBJECT_TEACHER"
	CategoryClassTeacher   AssignmentCategory = "CLASS_TEACHER"
)

// Valid reports whether c is a known category.
func (c AssignmentCategory) Valid() bool {
	return c == CategorySubjectTeacher || c == CategoryClassTeacher
}

// HistoryAction is the lifecycle transition recorded in history.
type HistoryAction string

const (
	HistoryActionCreate     HistoryAction = "CREATE"
	HistoryActionModify     HistoryAction = "MODIFY"
	HistoryActionDeactivate HistoryAction = "DEACTIVATE"
	HistoryActionReactivate HistoryAction = "REACTIVATE"
)

// AssignmentHistory is an append-only snapshot of one assignment change.
type AssignmentHistory struct {
	ID           string             `db:"id" json:"id"`
	SchoolID     string             `db:"school_id" json:"schoolId"`
	Category     AssignmentCategory `db:"category" json:"category"`
	AssignmentID string             `db:"assignment_id" json:"assignmentId"`
	Action       HistoryAction      `db:"action" json:"action"`
	PreviousData types.JSONText     `db:"previous_data" json:"previousData,omitempty"`
	NewData      types.JSONText     `db:"new_data" json:"newData,omitempty"`
	ChangedBy    string             `db:"changed_by" json:"changedBy"`
	ChangeReason *string            `db:"change_reason" json:"changeReason,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"createdAt"`
}

// AuditEntry is what callers hand to the audit sink.
type AuditEntry struct {
	SchoolID     string
	AssignmentID string
	PreviousData interface{}
	NewData      interface{}
	ChangedBy    string
	ChangeReason *string
}
