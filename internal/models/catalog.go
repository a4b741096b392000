package models

import "time"

// Teacher is a schedulable instructor. CurrentPeriodsPerWeek is a cached sum
// maintained by the workload tracker; active assignment rows are the source of truth.
type Teacher struct {
	ID                    string    `db:"id" json:"id"`
	SchoolID              string    `db:"school_id" json:"schoolId"`
	FullName              string    `db:"full_name" json:"fullName"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	MaxPeriodsPerDay      int       `db:"max_periods_per_day" json:"maxPeriodsPerDay"`
	MaxPeriodsPerWeek     int       `db:"max_periods_per_week" json:"maxPeriodsPerWeek"`
	CurrentPeriodsPerWeek int       `db:"current_periods_per_week" json:"currentPeriodsPerWeek"`
	IsActive              bool      `db:"is_active" json:"isActive"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// TeacherRef is the compact teacher shape embedded in other payloads.
type TeacherRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// Subject is a teachable subject; CreditsPerWeek is the target weekly period count.
type Subject struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"schoolId"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	CreditsPerWeek int       `db:"credits_per_week" json:"creditsPerWeek"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// SubjectRef is the compact subject shape embedded in other payloads.
type SubjectRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AcademicUnitType enumerates schedulable student groups.
type AcademicUnitType string

const (
	AcademicUnitClass    AcademicUnitType = "CLASS"
	AcademicUnitSection  AcademicUnitType = "SECTION"
	AcademicUnitSemester AcademicUnitType = "SEMESTER"
	AcademicUnitBatch    AcademicUnitType = "BATCH"
)

// AcademicUnit is a class, section, semester or batch. Sections point at
// their class through ParentID.
type AcademicUnit struct {
	ID              string           `db:"id" json:"id"`
	SchoolID        string           `db:"school_id" json:"schoolId"`
	Name            string           `db:"name" json:"name"`
	Type            AcademicUnitType `db:"type" json:"type"`
	ParentID        *string          `db:"parent_id" json:"parentId,omitempty"`
	CurrentStudents int              `db:"current_students" json:"currentStudents"`
	IsActive        bool             `db:"is_active" json:"isActive"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// AcademicYear scopes assignments and timetables.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"schoolId"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	IsCurrent bool      `db:"is_current" json:"isCurrent"`
}
