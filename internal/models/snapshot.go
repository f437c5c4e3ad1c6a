package models

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotKind classifies what a snapshot captures.
type SnapshotKind string

const (
	SnapshotKindAcademicYear   SnapshotKind = "academic_year"
	SnapshotKindAsOf           SnapshotKind = "as_of"
	SnapshotKindFullHistory    SnapshotKind = "full_history"
	SnapshotKindTransferPacket SnapshotKind = "transfer_packet"
	SnapshotKindCustom         SnapshotKind = "custom"
)

// Valid reports whether k is a known kind.
func (k SnapshotKind) Valid() bool {
	switch k {
	case SnapshotKindAcademicYear, SnapshotKindAsOf, SnapshotKindFullHistory,
		SnapshotKindTransferPacket, SnapshotKindCustom:
		return true
	}
	return false
}

// SnapshotStatus is the supersession state of a snapshot.
type SnapshotStatus string

const (
	SnapshotActive     SnapshotStatus = "active"
	SnapshotSuperseded SnapshotStatus = "superseded"
	SnapshotRevoked    SnapshotStatus = "revoked"
)

// SnapshotSource records what triggered generation.
type SnapshotSource string

const (
	SnapshotSourceSystem    SnapshotSource = "system"
	SnapshotSourceManual    SnapshotSource = "manual"
	SnapshotSourceYearClose SnapshotSource = "year_close"
	SnapshotSourceTransfer  SnapshotSource = "transfer"
)

// AcademicRecordSnapshot is an immutable, versioned, hashed capture of a
// student's academic data. Payload and PayloadHash never change after insert.
type AcademicRecordSnapshot struct {
	ID                   string         `db:"id" json:"id"`
	TenantID             string         `db:"tenant_id" json:"tenant_id"`
	SchoolID             *string        `db:"school_id" json:"school_id,omitempty"`
	StudentID            string         `db:"student_id" json:"student_id"`
	Kind                 SnapshotKind   `db:"kind" json:"kind"`
	AcademicYearID       *string        `db:"academic_year_id" json:"academic_year_id,omitempty"`
	AsOfAt               time.Time      `db:"as_of_at" json:"as_of_at"`
	Version              int            `db:"version" json:"version"`
	IsFinal              bool           `db:"is_final" json:"is_final"`
	Status               SnapshotStatus `db:"status" json:"status"`
	Payload              datatypes.JSON `db:"payload" json:"payload"`
	PayloadSchemaVersion int            `db:"payload_schema_version" json:"payload_schema_version"`
	PayloadHash          string         `db:"payload_hash" json:"payload_hash"`
	HashAlgo             string         `db:"hash_algo" json:"hash_algo"`
	HashEncoding         string         `db:"hash_encoding" json:"hash_encoding"`
	SourceType           SnapshotSource `db:"source_type" json:"source_type"`
	SourceTransferCaseID *string        `db:"source_transfer_case_id" json:"source_transfer_case_id,omitempty"`
	Notes                *string        `db:"notes" json:"notes,omitempty"`
	FinalizedAt          *time.Time     `db:"finalized_at" json:"finalized_at,omitempty"`
	FinalizedBy          *string        `db:"finalized_by" json:"finalized_by,omitempty"`
	RevokedAt            *time.Time     `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedBy            *string        `db:"revoked_by" json:"revoked_by,omitempty"`
	RevokedReason        *string        `db:"revoked_reason" json:"revoked_reason,omitempty"`
	CreatedBy            *string        `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt            *time.Time     `db:"deleted_at" json:"-"`
}

// SnapshotFilter captures list criteria for snapshots.
type SnapshotFilter struct {
	TenantID  string
	StudentID string
	Kind      *SnapshotKind
	Status    *SnapshotStatus
	IsFinal   *bool
	Page      int
	PageSize  int
}

// SnapshotPayload is the document sealed into a snapshot.
type SnapshotPayload struct {
	SchemaVersion  int                 `json:"schema_version"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Kind           SnapshotKind        `json:"kind"`
	TenantID       string              `json:"tenant_id"`
	SchoolID       *string             `json:"school_id,omitempty"`
	AcademicYearID *string             `json:"academic_year_id,omitempty"`
	AsOf           time.Time           `json:"as_of"`
	Student        PayloadStudent      `json:"student"`
	Enrollments    []PayloadEnrollment `json:"enrollments"`
	Assessments    []AssessmentScore   `json:"assessments,omitempty"`
	Attendance     []AttendanceSummary `json:"attendance,omitempty"`
	Results        []SubjectResult     `json:"results,omitempty"`
}

// PayloadStudent is the identity section of a snapshot payload.
type PayloadStudent struct {
	ID             string     `json:"id"`
	PersonID       string     `json:"person_id"`
	FullName       string     `json:"full_name"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	DocumentNumber *string    `json:"document_number,omitempty"`
}

// PayloadEnrollment is one enrollment row inside a snapshot payload.
type PayloadEnrollment struct {
	ID             string           `db:"id" json:"id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	SchoolName     string           `db:"school_name" json:"school_name"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	AcademicYear   string           `db:"academic_year_name" json:"academic_year"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt     time.Time        `db:"enrolled_at" json:"enrolled_at"`
	EndedAt        *time.Time       `db:"ended_at" json:"ended_at,omitempty"`
}
