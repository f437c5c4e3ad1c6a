package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransferStatus is the state of a transfer case.
type TransferStatus string

const (
	TransferRequested TransferStatus = "requested"
	TransferApproved  TransferStatus = "approved"
	TransferRejected  TransferStatus = "rejected"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferRequested, TransferApproved, TransferRejected, TransferCompleted, TransferCancelled:
		return true
	}
	return false
}

// Pending reports whether the case still blocks new transfers for the student.
func (s TransferStatus) Pending() bool {
	return s == TransferRequested || s == TransferApproved
}

// Well-known transfer metadata keys.
const (
	TransferMetaReason            = "reason"
	TransferMetaAcademicYearID    = "to_academic_year_id"
	TransferMetaClassGroupID      = "to_class_group_id"
	TransferMetaDecisionNote      = "decision_note"
	TransferMetaCancelledByTenant = "cancelled_by_tenant_id"
)

// TransferDirection filters list results relative to the acting tenant.
type TransferDirection string

const (
	DirectionIncoming TransferDirection = "incoming"
	DirectionOutgoing TransferDirection = "outgoing"
	DirectionAll      TransferDirection = "all"
)

// TransferCase records a student's move from one tenant/school to another.
// The source tenant owns the request fields, the destination tenant owns the
// approval and completion fields.
type TransferCase struct {
	ID               string            `db:"id" json:"id"`
	StudentID        string            `db:"student_id" json:"student_id"`
	FromTenantID     string            `db:"from_tenant_id" json:"from_tenant_id"`
	FromSchoolID     *string           `db:"from_school_id" json:"from_school_id,omitempty"`
	ToTenantID       string            `db:"to_tenant_id" json:"to_tenant_id"`
	ToSchoolID       *string           `db:"to_school_id" json:"to_school_id,omitempty"`
	Status           TransferStatus    `db:"status" json:"status"`
	RequestedAt      time.Time         `db:"requested_at" json:"requested_at"`
	RequestedBy      *string           `db:"requested_by" json:"requested_by,omitempty"`
	ApprovedAt       *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	DecidedAt        *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy        *string           `db:"decided_by" json:"decided_by,omitempty"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	FromEnrollmentID *string           `db:"from_enrollment_id" json:"from_enrollment_id,omitempty"`
	ToEnrollmentID   *string           `db:"to_enrollment_id" json:"to_enrollment_id,omitempty"`
	SnapshotID       *string           `db:"snapshot_id" json:"snapshot_id,omitempty"`
	Metadata         datatypes.JSONMap `db:"metadata" json:"metadata"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time        `db:"deleted_at" json:"-"`
}

// MetaString returns a non-empty string metadata value.
func (t *TransferCase) MetaString(key string) (string, bool) {
	if t == nil || t.Metadata == nil {
		return "", false
	}
	v, ok := t.Metadata[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// TransferFilter captures list criteria for transfer cases.
type TransferFilter struct {
	TenantID  string
	Direction TransferDirection
	Statuses  []TransferStatus
	StudentID string
	Page      int
	PageSize  int
}

// TransferTransition describes a guarded status change.
type TransferTransition struct {
	ID       string
	From     []TransferStatus
	To       TransferStatus
	At       time.Time
	By       *string
	Metadata datatypes.JSONMap
}
