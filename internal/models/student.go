package models

import "time"

// ProfileStatus is the lifecycle state of a tenant or school profile.
type ProfileStatus string

const (
	ProfileStatusActive   ProfileStatus = "active"
	ProfileStatusInactive ProfileStatus = "inactive"
)

// StudentWithPerson joins the global student record with its person data.
type StudentWithPerson struct {
	ID             string     `db:"id" json:"id"`
	PersonID       string     `db:"person_id" json:"person_id"`
	FullName       string     `db:"full_name" json:"full_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	DocumentNumber *string    `db:"document_number" json:"document_number,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// StudentTenantProfile links a student to a tenant.
type StudentTenantProfile struct {
	ID        string        `db:"id" json:"id"`
	TenantID  string        `db:"tenant_id" json:"tenant_id"`
	StudentID string        `db:"student_id" json:"student_id"`
	Status    ProfileStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// StudentSchoolProfile links a student to a school inside a tenant.
type StudentSchoolProfile struct {
	ID        string        `db:"id" json:"id"`
	TenantID  string        `db:"tenant_id" json:"tenant_id"`
	SchoolID  string        `db:"school_id" json:"school_id"`
	StudentID string        `db:"student_id" json:"student_id"`
	Status    ProfileStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
