package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "active"
	EnrollmentStatusTransferred EnrollmentStatus = "transferred"
	EnrollmentStatusLeft        EnrollmentStatus = "left"
	EnrollmentStatusCompleted   EnrollmentStatus = "completed"
)

// Enrollment captures a student's registration at a school for an academic year.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	TenantID       string           `db:"tenant_id" json:"tenant_id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt     time.Time        `db:"enrolled_at" json:"enrolled_at"`
	EndedAt        *time.Time       `db:"ended_at" json:"ended_at,omitempty"`
}

// ClassMembership places an enrollment in a class group over a validity window.
// A nil ValidTo marks the open (current) membership.
type ClassMembership struct {
	ID           string     `db:"id" json:"id"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id"`
	ClassGroupID string     `db:"class_group_id" json:"class_group_id"`
	ValidFrom    time.Time  `db:"valid_from" json:"valid_from"`
	ValidTo      *time.Time `db:"valid_to" json:"valid_to,omitempty"`
}
