package models

import "time"

// Tenant is an isolated organizational customer (a school network).
type Tenant struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// School belongs to exactly one tenant.
type School struct {
	ID        string     `db:"id" json:"id"`
	TenantID  string     `db:"tenant_id" json:"tenant_id"`
	Name      string     `db:"name" json:"name"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// AcademicYear is a school's academic calendar year.
type AcademicYear struct {
	ID       string    `db:"id" json:"id"`
	TenantID string    `db:"tenant_id" json:"tenant_id"`
	SchoolID string    `db:"school_id" json:"school_id"`
	Name     string    `db:"name" json:"name"`
	StartsOn time.Time `db:"starts_on" json:"starts_on"`
	EndsOn   time.Time `db:"ends_on" json:"ends_on"`
	IsActive bool      `db:"is_active" json:"is_active"`
}

// ClassGroup is a homeroom/section students are placed in for a year.
type ClassGroup struct {
	ID             string `db:"id" json:"id"`
	TenantID       string `db:"tenant_id" json:"tenant_id"`
	SchoolID       string `db:"school_id" json:"school_id"`
	AcademicYearID string `db:"academic_year_id" json:"academic_year_id"`
	Name           string `db:"name" json:"name"`
}
